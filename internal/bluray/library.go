// Package bluray reads Blu-ray titles as a demuxable stream. It drives a
// BD-ROM Library, tracks the hold state reported through library events
// and keeps the graphics planes the library paints.
package bluray

import (
	"github.com/s0up4200/go-bdplay/internal/bdnav"
)

// Library is the BD-ROM library a Stream drives. Implementations need not
// be safe for concurrent use; Stream serializes every call.
//
// Playlists and angles are 0-based, times are 90 kHz ticks and positions
// are title-relative bytes.
type Library interface {
	DiscInfo() bdnav.DiscInfo
	SetPlayerSettings(s bdnav.PlayerSettings) error
	SetOverlayHandlers(overlay func(*bdnav.Overlay), argb func(*bdnav.ARGBOverlay))

	Titles(minSeconds int) []*bdnav.TitleInfo
	PlaylistInfo(id, angle int) (*bdnav.TitleInfo, error)
	SelectPlaylist(id int) error
	SelectAngle(angle int) error
	Title() *bdnav.TitleInfo
	Angle() int

	// Play starts navigation at the first play object.
	Play() error
	ReadExt(p []byte) (int, bdnav.Event, error)
	GetEvent() (bdnav.Event, bool)

	Seek(pos uint64) (uint64, error)
	SeekTime(tick uint64) (uint64, error)
	SeekChapter(chapter int) (uint64, error)
	Tell() uint64
	TellTime() uint64
	TitleSize() uint64
	CurrentChapter() int

	UserInput(pts int64, key bdnav.Key) error
	MouseSelect(pts int64, x, y int) error
	MenuCall(pts int64) error
	SkipStill() error

	Close() error
}

// Opener opens the disc rooted at root.
type Opener func(root string) (Library, error)

// OpenNative opens root with the bdnav library.
func OpenNative(root string) (Library, error) {
	d, err := bdnav.Open(root)
	if err != nil {
		return nil, err
	}
	return d, nil
}

var _ Library = (*bdnav.Disc)(nil)
