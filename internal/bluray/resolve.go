package bluray

import (
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/s0up4200/go-bdplay/internal/bdnav"
	"github.com/s0up4200/go-bdplay/internal/fs"
	"github.com/s0up4200/go-bdplay/internal/inputstream"
)

// target is what a file item asks to play.
type target struct {
	root string
	// playlist is -1 unless the item names one.
	playlist int
	// disc is set when the item names the whole disc, so menus may be
	// started.
	disc bool
	// image is set for single-file discs.
	image bool
}

// resolve accepts a disc root, its BDMV folder, index.bdmv or
// MovieObject.bdmv, a playlist file, a disc image, or a URL of the form
// bluray://<escaped root or image>/BDMV/PLAYLIST/00800.mpls.
func resolve(item inputstream.FileItem) (target, error) {
	if item.HasScheme("bluray") {
		return resolveURL(item.Path)
	}
	p := filepath.Clean(item.Path)
	base := filepath.Base(p)
	switch {
	case fs.IsImage(base):
		return target{root: p, playlist: -1, disc: true, image: true}, nil
	case strings.EqualFold(filepath.Ext(base), ".mpls"):
		id, err := playlistID(base)
		if err != nil {
			return target{}, err
		}
		return target{root: filepath.Dir(filepath.Dir(filepath.Dir(p))), playlist: id}, nil
	case strings.EqualFold(base, "index.bdmv"), strings.EqualFold(base, "MovieObject.bdmv"):
		return target{root: filepath.Dir(filepath.Dir(p)), playlist: -1, disc: true}, nil
	default:
		return target{root: p, playlist: -1, disc: true}, nil
	}
}

func resolveURL(raw string) (target, error) {
	rest := raw[len("bluray://"):]
	host, sub, _ := strings.Cut(rest, "/")
	root, err := url.PathUnescape(host)
	if err != nil || root == "" {
		return target{}, fmt.Errorf("%s: bad disc url", raw)
	}
	t := target{root: root, playlist: -1, image: fs.IsImage(root)}
	sub = strings.Trim(path.Clean("/"+sub), "/")
	switch {
	case sub == "", strings.EqualFold(sub, "root"), strings.EqualFold(sub, "BDMV/index.bdmv"):
		t.disc = true
	case strings.EqualFold(path.Ext(sub), ".mpls"):
		id, err := playlistID(path.Base(sub))
		if err != nil {
			return target{}, err
		}
		t.playlist = id
	default:
		return target{}, fmt.Errorf("%s: unsupported disc url path %q", raw, sub)
	}
	return t, nil
}

// playlistID parses NNNNN.mpls.
func playlistID(name string) (int, error) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	id, err := strconv.Atoi(stem)
	if err != nil || len(stem) != 5 || id < 0 || id > bdnav.MaxPlaylistID {
		return 0, fmt.Errorf("%s: not a playlist file name", name)
	}
	return id, nil
}

// PlaylistURL builds the bluray:// URL of playlist id on the disc at root.
func PlaylistURL(root string, id int) string {
	return fmt.Sprintf("bluray://%s/BDMV/PLAYLIST/%05d.mpls", url.PathEscape(root), id)
}
