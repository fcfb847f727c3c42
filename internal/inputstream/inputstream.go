// Package inputstream defines the stream contract a demuxer reads from and
// the optional capabilities a stream may offer on top of it.
package inputstream

import (
	"fmt"
	"strings"
)

// NextStream tells the demuxer what to do after a stream stopped
// delivering data.
type NextStream int

const (
	// NextStreamNone means the stream is finished.
	NextStreamNone NextStream = iota
	// NextStreamRetry means the stream is waiting; call Read again later.
	NextStreamRetry
	// NextStreamOpen means the stream switched content and the demuxer must
	// be reopened.
	NextStreamOpen
)

func (n NextStream) String() string {
	switch n {
	case NextStreamNone:
		return "none"
	case NextStreamRetry:
		return "retry"
	case NextStreamOpen:
		return "open"
	default:
		return fmt.Sprintf("nextstream(%d)", int(n))
	}
}

// FileItem is the item a stream is opened from: a path or URL plus an
// optional MIME type.
type FileItem struct {
	Path     string
	MimeType string
}

// HasScheme reports whether Path is a URL with the given scheme.
func (f FileItem) HasScheme(scheme string) bool {
	prefix := scheme + "://"
	return len(f.Path) >= len(prefix) && strings.EqualFold(f.Path[:len(prefix)], prefix)
}

// Stream is a seekable byte stream.
//
// Read returns 0 and io.EOF at the end of the stream and after a fatal
// error; IsEOF reports the same condition afterwards.
type Stream interface {
	Open(item FileItem) error
	Close() error
	Read(p []byte) (int, error)
	Seek(offset int64, whence int) (int64, error)
	GetLength() int64
	IsEOF() bool
	Abort()
	NextStream() NextStream
	BlockSize() int
	Pause(dTime float64) bool
}

// DisplayTime times are in milliseconds.
type DisplayTime interface {
	GetTotalTime() int64
	GetTime() int64
}

// Chapters are numbered from 1.
type Chapters interface {
	GetChapter() int
	GetChapterCount() int
	GetChapterName(ch int) string
	GetChapterPos(ch int) int64
	SeekChapter(ch int) bool
}

type PosTime interface {
	PosTime(ms int64) bool
}

// Menus is implemented by streams with interactive menus.
type Menus interface {
	ActivateButton()
	SelectButton(button int)
	GetCurrentButton() int
	GetTotalButtons() int
	OnUp()
	OnDown()
	OnLeft()
	OnRight()
	OnMenu()
	OnBack()
	OnNext()
	OnPrevious()
	OnMouseMove(x, y int) bool
	OnMouseClick(x, y int) bool
	HasMenu() bool
	IsInMenu() bool
	SkipStill()
	GetState() (string, bool)
	SetState(state string) bool
}

// Angles are numbered from 1.
type Angles interface {
	GetAngleCount() int
	GetActiveAngle() int
	SetAngle(angle int) bool
}

func AsDisplayTime(s Stream) (DisplayTime, bool) {
	c, ok := s.(DisplayTime)
	return c, ok
}

func AsChapters(s Stream) (Chapters, bool) {
	c, ok := s.(Chapters)
	return c, ok
}

func AsPosTime(s Stream) (PosTime, bool) {
	c, ok := s.(PosTime)
	return c, ok
}

func AsMenus(s Stream) (Menus, bool) {
	c, ok := s.(Menus)
	return c, ok
}

func AsAngles(s Stream) (Angles, bool) {
	c, ok := s.(Angles)
	return c, ok
}
