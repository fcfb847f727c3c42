// Package bdnav plays BD-ROM titles from a BDMV tree. It implements the
// title-playback half of a Blu-ray navigation library: title enumeration,
// playlist and angle selection, aligned-unit reads, seeking and an event
// queue. HDMV and BD-J program execution are not supported.
package bdnav

import (
	"errors"
	"fmt"

	"github.com/s0up4200/go-bdplay/internal/stream"
)

const (
	AlignedUnitSize  = 6144
	SourcePacketSize = 192
	MaxPlaylistID    = 99999
	// TicksPerSecond is the library clock rate.
	TicksPerSecond = 90000
)

var (
	ErrNotBluray             = errors.New("bdnav: not a BD-ROM structure")
	ErrNavigationUnsupported = errors.New("bdnav: menu navigation not supported")
	ErrInvalidPlaylist       = errors.New("bdnav: invalid playlist")
	ErrOutOfRange            = errors.New("bdnav: out of range")
	ErrEncrypted             = errors.New("bdnav: encrypted content")
	ErrEjected               = errors.New("bdnav: disc content unavailable")
	ErrNoTitle               = errors.New("bdnav: no title selected")
)

type EventType int

const (
	EventNone EventType = iota
	EventError
	EventReadError
	EventEncrypted
	EventAngle
	EventTitle
	EventPlaylist
	EventPlayItem
	EventChapter
	EventPlayMark
	EventEndOfTitle
	EventAudioStream
	EventIGStream
	EventPGTextStream
	EventPGText
	EventSecondaryAudioStream
	EventSecondaryVideoStream
	EventPlaylistStop
	EventDiscontinuity
	EventSeek
	EventStill
	EventStillTime
	EventSoundEffect
	EventIdle
	EventPopup
	EventMenu
	EventUOMaskChanged
)

var eventNames = [...]string{
	"none", "error", "read-error", "encrypted", "angle", "title", "playlist",
	"play-item", "chapter", "play-mark", "end-of-title", "audio-stream",
	"ig-stream", "pg-text-stream", "pg-text", "secondary-audio-stream",
	"secondary-video-stream", "playlist-stop", "discontinuity", "seek",
	"still", "still-time", "sound-effect", "idle", "popup", "menu",
	"uo-mask-changed",
}

func (e EventType) String() string {
	if e >= 0 && int(e) < len(eventNames) {
		return eventNames[e]
	}
	return fmt.Sprintf("event(%d)", int(e))
}

// Event is a navigation event with its numeric parameter.
type Event struct {
	Type  EventType
	Param uint32
}

func (e Event) String() string {
	return fmt.Sprintf("%s(%d)", e.Type, e.Param)
}

// Key is a remote-control key code.
type Key uint32

const (
	Key0 Key = iota
	Key1
	Key2
	Key3
	Key4
	Key5
	Key6
	Key7
	Key8
	Key9
	KeyRootMenu
	KeyPopup
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEnter
	KeyMouseActivate
	KeyRed
	KeyGreen
	KeyYellow
	KeyBlue
)

// KeyDigit maps 0-9 to the digit keys.
func KeyDigit(n int) (Key, bool) {
	if n < 0 || n > 9 {
		return 0, false
	}
	return Key0 + Key(n), true
}

// Chapter times are title-relative 90 kHz ticks.
type Chapter struct {
	Index    int
	Start    uint64
	Duration uint64
	Offset   uint64
	ClipRef  int
}

type Clip struct {
	Name      string
	InTime    uint64
	OutTime   uint64
	StartTime uint64
	Size      uint64
	StillMode uint8
	StillTime uint16
	Streams   []stream.Stream
}

// TitleInfo describes one playlist as seen through a given angle.
type TitleInfo struct {
	Playlist   int
	Duration   uint64
	AngleCount int
	Chapters   []Chapter
	Clips      []Clip
}

// Size sums the clip file sizes.
func (t *TitleInfo) Size() uint64 {
	var size uint64
	for _, c := range t.Clips {
		size += c.Size
	}
	return size
}

type OverlayPlane uint8

const (
	PlanePG OverlayPlane = 0
	PlaneIG OverlayPlane = 1
)

type OverlayCmd uint8

const (
	OverlayInit OverlayCmd = iota
	OverlayClose
	OverlayClear
	OverlayDraw
	OverlayWipe
	OverlayHide
	OverlayFlush
)

func (c OverlayCmd) String() string {
	switch c {
	case OverlayInit:
		return "init"
	case OverlayClose:
		return "close"
	case OverlayClear:
		return "clear"
	case OverlayDraw:
		return "draw"
	case OverlayWipe:
		return "wipe"
	case OverlayHide:
		return "hide"
	case OverlayFlush:
		return "flush"
	default:
		return fmt.Sprintf("cmd(%d)", uint8(c))
	}
}

// PaletteEntry is a YCrCb color with transparency (0 = transparent).
type PaletteEntry struct {
	Y, Cr, Cb, T uint8
}

// RLEElem is a run of Len pixels of palette index Color. A zero Len ends
// the current line.
type RLEElem struct {
	Len   uint16
	Color uint16
}

// Overlay is a palette-based graphics command.
type Overlay struct {
	PTS     int64
	Plane   OverlayPlane
	Cmd     OverlayCmd
	X, Y    uint16
	W, H    uint16
	Palette []PaletteEntry
	Image   []RLEElem
}

// ARGBOverlay is a true-color graphics command. Argb is row-major with
// Stride pixels per row.
type ARGBOverlay struct {
	PTS    int64
	Plane  OverlayPlane
	Cmd    OverlayCmd
	X, Y   uint16
	W, H   uint16
	Stride uint16
	Argb   []uint32
}

// PlayerSettings are the player registers a disc program may consult.
type PlayerSettings struct {
	RegionCode       uint32
	ParentalLevel    uint32
	AudioLanguage    string
	SubtitleLanguage string
	MenuLanguage     string
	CountryCode      string
	PlayerProfile    uint32
}

// Region bits.
const (
	RegionA uint32 = 1 << iota
	RegionB
	RegionC
)

type DiscInfo struct {
	BlurayDetected      bool
	FirstPlaySupported  bool
	TopMenuSupported    bool
	NavigationSupported bool
	NumHDMVTitles       int
	NumBDJTitles        int
	AACSDetected        bool
	BDPlusDetected      bool
	BDJDetected         bool
	UHD                 bool
	VolumeLabel         string
	DiscName            string
	NumPlaylists        int
}

// Encrypted reports whether content protection was found on the disc.
func (d DiscInfo) Encrypted() bool {
	return d.AACSDetected || d.BDPlusDetected
}
