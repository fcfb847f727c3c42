package bdrom

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/s0up4200/go-bdplay/internal/fs"
)

// ErrNoBDMV is returned when no BDMV structure can be located below a root.
var ErrNoBDMV = errors.New("unable to locate BD structure")

type BDROM struct {
	Path              string
	fileSystem        fs.FileSystem
	rootDirectory     fs.DirectoryInfo
	bdmvDirectory     fs.DirectoryInfo
	clipinfDirectory  fs.DirectoryInfo
	playlistDirectory fs.DirectoryInfo
	streamDirectory   fs.DirectoryInfo
	ssifDirectory     fs.DirectoryInfo
	metaDirectory     fs.DirectoryInfo
	bdjoDirectory     fs.DirectoryInfo

	DirectoryRoot string
	DirectoryBDMV string

	VolumeLabel string
	DiscTitle   string
	Size        uint64
	IsAACS      bool
	IsBDPlus    bool
	IsBDJava    bool
	Is3D        bool
	IsUHD       bool

	Index *IndexFile
	// IsImage is set when the tree was read from a disc image.
	IsImage bool
	cleanup func() error

	PlaylistFiles   map[string]*PlaylistFile
	PlaylistOrder   []string
	StreamClipFiles map[string]*StreamClipFile
	StreamFiles     map[string]*StreamFile
}

type ScanResult struct {
	FileErrors map[string]error
}

// Err joins the per-file errors in file name order.
func (r ScanResult) Err() error {
	if len(r.FileErrors) == 0 {
		return nil
	}
	names := make([]string, 0, len(r.FileErrors))
	for name := range r.FileErrors {
		names = append(names, name)
	}
	sort.Strings(names)
	errs := make([]error, 0, len(names))
	for _, name := range names {
		errs = append(errs, fmt.Errorf("%s: %w", name, r.FileErrors[name]))
	}
	return errors.Join(errs...)
}

// New locates the BDMV directory below path and indexes its files. Nothing
// is parsed until Scan. A path ending in .iso is mounted as a UDF image and
// stays open until Close.
func New(path string) (*BDROM, error) {
	rootPath := path
	var fileSystem fs.FileSystem = fs.NewDiskFileSystem()
	cleanup := func() error { return nil }
	volumeLabel := ""
	isImage := fs.IsImage(path)

	if isImage {
		isoFS := fs.NewISOFileSystem()
		if err := isoFS.Mount(path); err != nil {
			return nil, err
		}
		fileSystem = isoFS
		rootPath = "/"
		volumeLabel = isoFS.GetVolumeLabel()
		cleanup = isoFS.Unmount
	}

	rootDir, err := fileSystem.GetDirectoryInfo(rootPath)
	if err != nil {
		cleanup()
		return nil, err
	}

	bdmvDir, err := findBDMVDirectory(rootDir)
	if err != nil {
		cleanup()
		return nil, err
	}
	// A BDMV folder passed directly is its own root's child.
	if strings.EqualFold(rootDir.Name(), "BDMV") {
		if parent, err := fileSystem.GetDirectoryInfo(filepath.Dir(rootDir.FullName())); err == nil {
			rootDir = parent
		}
	}

	rom := &BDROM{
		Path:            path,
		fileSystem:      fileSystem,
		rootDirectory:   rootDir,
		bdmvDirectory:   bdmvDir,
		PlaylistFiles:   make(map[string]*PlaylistFile),
		StreamClipFiles: make(map[string]*StreamClipFile),
		StreamFiles:     make(map[string]*StreamFile),
		IsImage:         isImage,
		cleanup:         cleanup,
	}

	rom.DirectoryRoot = rootDir.FullName()
	rom.DirectoryBDMV = bdmvDir.FullName()

	if dir, err := bdmvDir.GetDirectory("BDJO"); err == nil {
		rom.bdjoDirectory = dir
	}
	if dir, err := bdmvDir.GetDirectory("CLIPINF"); err == nil {
		rom.clipinfDirectory = dir
	}
	if dir, err := bdmvDir.GetDirectory("PLAYLIST"); err == nil {
		rom.playlistDirectory = dir
	}
	if dir, err := bdmvDir.GetDirectory("STREAM"); err == nil {
		rom.streamDirectory = dir
		if ssifDir, err := dir.GetDirectory("SSIF"); err == nil {
			rom.ssifDirectory = ssifDir
		}
	}
	if dir, err := bdmvDir.GetDirectory("META"); err == nil {
		rom.metaDirectory = dir
	}

	if rom.clipinfDirectory == nil || rom.playlistDirectory == nil {
		cleanup()
		return nil, ErrNoBDMV
	}

	switch {
	case volumeLabel != "":
		rom.VolumeLabel = volumeLabel
	case isImage:
		rom.VolumeLabel = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	default:
		rom.VolumeLabel = filepath.Base(rom.DirectoryRoot)
	}
	rom.Size = uint64(getDirectorySizeFS(rootDir))

	rom.IsAACS = directoryExistsFS(rootDir, "AACS")
	rom.IsBDPlus = directoryExistsFS(rootDir, "BDSVM") ||
		directoryExistsFS(rootDir, "SLYVM") ||
		directoryExistsFS(rootDir, "ANYVM")

	if rom.bdjoDirectory != nil {
		if files, err := rom.bdjoDirectory.GetFiles(); err == nil && len(files) > 0 {
			rom.IsBDJava = true
		}
	}
	if rom.ssifDirectory != nil {
		if files, err := rom.ssifDirectory.GetFiles(); err == nil && len(files) > 0 {
			rom.Is3D = true
		}
	}

	rom.DiscTitle = readDiscTitleFS(rom.metaDirectory)

	if files, err := rom.playlistDirectory.GetFilesPattern("*.MPLS"); err == nil {
		for _, file := range files {
			pl := NewPlaylistFile(file)
			rom.PlaylistFiles[pl.Name] = pl
			rom.PlaylistOrder = append(rom.PlaylistOrder, pl.Name)
		}
	}
	sort.Strings(rom.PlaylistOrder)

	if rom.streamDirectory != nil {
		if files, err := rom.streamDirectory.GetFilesPattern("*.M2TS"); err == nil {
			for _, file := range files {
				sf := NewStreamFile(file)
				rom.StreamFiles[sf.Name] = sf
			}
		}
	}

	if files, err := rom.clipinfDirectory.GetFilesPattern("*.CLPI"); err == nil {
		for _, file := range files {
			cf := NewStreamClipFile(file)
			rom.StreamClipFiles[cf.Name] = cf
		}
	}

	return rom, nil
}

// Close releases the disc image, if any. Files opened from the tree are
// unreadable afterwards.
func (b *BDROM) Close() error {
	if b.cleanup == nil {
		return nil
	}
	err := b.cleanup()
	b.cleanup = nil
	return err
}

// Scan parses index.bdmv, every clip info file and every playlist.
// Files that fail to parse are reported in the result and left out.
func (b *BDROM) Scan() ScanResult {
	result := ScanResult{FileErrors: make(map[string]error)}

	if indexFile, err := b.bdmvDirectory.GetFile("index.bdmv"); err == nil {
		index, err := ReadIndexFile(indexFile)
		if err != nil {
			result.FileErrors["INDEX.BDMV"] = err
		} else {
			b.Index = index
			b.IsUHD = index.FileType == "INDX0300"
		}
	}

	for _, clip := range b.StreamClipFiles {
		if err := clip.Scan(); err != nil {
			result.FileErrors[clip.Name] = err
		}
	}

	for _, playlist := range b.PlaylistFiles {
		if err := playlist.Scan(b.StreamFiles, b.StreamClipFiles); err != nil {
			result.FileErrors[playlist.Name] = err
		}
	}

	return result
}

// Playlists returns the scanned playlists in file name order.
func (b *BDROM) Playlists() []*PlaylistFile {
	playlists := make([]*PlaylistFile, 0, len(b.PlaylistOrder))
	for _, name := range b.PlaylistOrder {
		if pl, ok := b.PlaylistFiles[name]; ok && pl.IsInitialized {
			playlists = append(playlists, pl)
		}
	}
	return playlists
}

// Playlist returns the scanned playlist with the given numeric id.
func (b *BDROM) Playlist(id int) (*PlaylistFile, bool) {
	pl, ok := b.PlaylistFiles[PlaylistName(id)]
	if !ok || !pl.IsInitialized {
		return nil, false
	}
	return pl, true
}

// PlaylistName formats a playlist id as its file name, e.g. "00800.MPLS".
func PlaylistName(id int) string {
	return fmt.Sprintf("%05d.MPLS", id)
}

func findBDMVDirectory(root fs.DirectoryInfo) (fs.DirectoryInfo, error) {
	if root == nil {
		return nil, ErrNoBDMV
	}
	if strings.EqualFold(root.Name(), "BDMV") {
		if _, err := root.GetDirectory("PLAYLIST"); err == nil {
			return root, nil
		}
		if _, err := root.GetDirectory("STREAM"); err == nil {
			return root, nil
		}
	}

	queue := []fs.DirectoryInfo{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		dirs, err := dir.GetDirectories()
		if err != nil {
			continue
		}
		for _, sub := range dirs {
			if strings.EqualFold(sub.Name(), "BDMV") {
				if _, err := sub.GetDirectory("PLAYLIST"); err == nil {
					return sub, nil
				}
				if _, err := sub.GetDirectory("STREAM"); err == nil {
					return sub, nil
				}
			}
			queue = append(queue, sub)
		}
	}

	return nil, ErrNoBDMV
}

func directoryExistsFS(root fs.DirectoryInfo, name string) bool {
	if root == nil {
		return false
	}
	_, err := root.GetDirectory(name)
	return err == nil
}

func getDirectorySizeFS(root fs.DirectoryInfo) int64 {
	if root == nil {
		return 0
	}
	var size int64
	queue := []fs.DirectoryInfo{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		files, err := dir.GetFiles()
		if err == nil {
			for _, file := range files {
				if strings.EqualFold(path.Ext(file.Name()), ".ssif") {
					continue
				}
				size += file.Length()
			}
		}
		subdirs, err := dir.GetDirectories()
		if err != nil {
			continue
		}
		queue = append(queue, subdirs...)
	}
	return size
}

func readFile(file fs.FileInfo) ([]byte, error) {
	reader, err := file.OpenRead()
	if err != nil {
		return nil, err
	}
	defer reader.Close()
	return io.ReadAll(reader)
}

func readDiscTitleFS(metaDir fs.DirectoryInfo) string {
	if metaDir == nil {
		return ""
	}
	file, ok := findFileCaseInsensitive(metaDir, "bdmt_eng.xml")
	if !ok {
		return ""
	}
	data, err := readFile(file)
	if err != nil {
		return ""
	}
	decoder := xml.NewDecoder(bytes.NewReader(data))
	inTitle := false
	inName := false
	var nameBuilder strings.Builder
	for {
		tok, err := decoder.Token()
		if err != nil {
			return ""
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "title":
				inTitle = true
			case "name":
				if inTitle {
					inName = true
					nameBuilder.Reset()
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "name":
				if inTitle && inName {
					name := strings.TrimSpace(nameBuilder.String())
					if strings.EqualFold(name, "blu-ray") {
						return ""
					}
					if name != "" {
						return name
					}
				}
				inName = false
			case "title":
				inTitle = false
			}
		case xml.CharData:
			if inTitle && inName {
				nameBuilder.Write(t)
			}
		}
	}
}

func findFileCaseInsensitive(root fs.DirectoryInfo, target string) (fs.FileInfo, bool) {
	queue := []fs.DirectoryInfo{root}
	for len(queue) > 0 {
		dir := queue[0]
		queue = queue[1:]

		files, err := dir.GetFiles()
		if err == nil {
			for _, file := range files {
				if strings.EqualFold(file.Name(), target) {
					return file, true
				}
			}
		}
		dirs, err := dir.GetDirectories()
		if err != nil {
			continue
		}
		queue = append(queue, dirs...)
	}
	return nil, false
}
