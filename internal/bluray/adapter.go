package bluray

import (
	"errors"
	"fmt"

	"github.com/s0up4200/go-bdplay/internal/bdnav"
)

// adapter owns the library handle and the selected title. Callers hold
// the stream lock.
type adapter struct {
	lib      Library
	minTitle int
	title    *bdnav.TitleInfo
}

func (a *adapter) isOpen() bool {
	return a.lib != nil
}

// mount opens root and wires settings and graphics callbacks. On failure
// no handle is kept.
func (a *adapter) mount(open Opener, root string, settings bdnav.PlayerSettings, overlay func(*bdnav.Overlay), argb func(*bdnav.ARGBOverlay)) error {
	lib, err := open(root)
	if err != nil {
		return fmt.Errorf("%s: %w: %w", root, ErrMount, err)
	}
	if !lib.DiscInfo().BlurayDetected {
		lib.Close()
		return fmt.Errorf("%s: %w: no BD-ROM structure", root, ErrMount)
	}
	if err := lib.SetPlayerSettings(settings); err != nil {
		log.Warningf("%s: player settings rejected: %v", root, err)
	}
	lib.SetOverlayHandlers(overlay, argb)
	a.lib = lib
	return nil
}

// close releases the handle. It is a no-op when nothing is open.
func (a *adapter) close() error {
	if a.lib == nil {
		return nil
	}
	err := a.lib.Close()
	a.lib = nil
	a.title = nil
	return err
}

// GetTitleLongest returns the longest relevant title, or nil.
func (a *adapter) GetTitleLongest() *bdnav.TitleInfo {
	var best *bdnav.TitleInfo
	for _, ti := range a.lib.Titles(a.minTitle) {
		if best == nil || ti.Duration > best.Duration {
			best = ti
		}
	}
	return best
}

// GetTitleFile returns the title of the playlist file name (NNNNN.mpls),
// or nil.
func (a *adapter) GetTitleFile(name string) *bdnav.TitleInfo {
	id, err := playlistID(name)
	if err != nil {
		log.Debugf("%v", err)
		return nil
	}
	ti, err := a.lib.PlaylistInfo(id, 0)
	if err != nil {
		log.Debugf("playlist %s: %v", name, err)
		return nil
	}
	return ti
}

func (a *adapter) selectTitle(ti *bdnav.TitleInfo) error {
	if ti == nil {
		return ErrNoPlayableTitle
	}
	if err := a.lib.SelectPlaylist(ti.Playlist); err != nil {
		return fmt.Errorf("playlist %05d: %w: %w", ti.Playlist, ErrNoPlayableTitle, err)
	}
	a.reloadTitle()
	return nil
}

// reloadTitle picks up the library's current title after it changed.
func (a *adapter) reloadTitle() {
	if ti := a.lib.Title(); ti != nil {
		a.title = ti
	}
}

// UserInput forwards key. Callers check the navigation mode.
func (a *adapter) UserInput(key bdnav.Key) bool {
	if err := a.lib.UserInput(-1, key); err != nil {
		if !errors.Is(err, bdnav.ErrNavigationUnsupported) {
			log.Debugf("user input %d: %v", key, err)
		}
		return false
	}
	return true
}

func (a *adapter) MouseMove(x, y int) bool {
	return a.lib.MouseSelect(-1, x, y) == nil
}

func (a *adapter) MouseClick(x, y int) bool {
	if a.lib.MouseSelect(-1, x, y) != nil {
		return false
	}
	return a.UserInput(bdnav.KeyMouseActivate)
}
