package fs

import (
	"errors"
	"fmt"
	"io"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/s0up4200/go-bdplay/internal/fs/udf"
)

// ISOFileSystem reads a BD-ROM tree from a UDF disc image.
type ISOFileSystem struct {
	isoPath     string
	volumeLabel string
	udfReader   *udf.Reader

	mu       sync.Mutex
	dirCache map[string]*udf.Directory
}

func NewISOFileSystem() *ISOFileSystem {
	return &ISOFileSystem{dirCache: make(map[string]*udf.Directory)}
}

// IsImage reports whether path names a single-file disc image.
func IsImage(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".iso")
}

// Mount opens the image and reads its volume structures.
func (fs *ISOFileSystem) Mount(isoPath string) error {
	if fs.udfReader != nil {
		return errors.New("image already mounted")
	}
	reader, err := udf.NewReader(isoPath)
	if err != nil {
		return fmt.Errorf("mount %s: %w", isoPath, err)
	}
	fs.udfReader = reader
	fs.isoPath = isoPath
	fs.volumeLabel = reader.GetVolumeLabel()
	return nil
}

// Unmount closes the image. Files opened from it become unreadable.
func (fs *ISOFileSystem) Unmount() error {
	if fs.udfReader == nil {
		return nil
	}
	err := fs.udfReader.Close()
	fs.udfReader = nil
	fs.mu.Lock()
	fs.dirCache = make(map[string]*udf.Directory)
	fs.mu.Unlock()
	return err
}

func (fs *ISOFileSystem) GetVolumeLabel() string {
	return fs.volumeLabel
}

func (fs *ISOFileSystem) GetDirectoryInfo(p string) (DirectoryInfo, error) {
	if fs.udfReader == nil {
		return nil, errors.New("image not mounted")
	}
	p = normalizeImagePath(p)
	dir, err := fs.directory(p)
	if err != nil {
		return nil, err
	}
	return &isoDirectoryInfo{fullPath: p, fs: fs, dir: dir}, nil
}

func (fs *ISOFileSystem) directory(p string) (*udf.Directory, error) {
	fs.mu.Lock()
	dir, ok := fs.dirCache[p]
	fs.mu.Unlock()
	if ok {
		return dir, nil
	}
	dir, err := fs.udfReader.ReadDirectory(p)
	if err != nil {
		return nil, err
	}
	fs.cache(p, dir)
	return dir, nil
}

func (fs *ISOFileSystem) cache(p string, dir *udf.Directory) {
	fs.mu.Lock()
	fs.dirCache[p] = dir
	fs.mu.Unlock()
}

func (fs *ISOFileSystem) GetFileInfo(p string) (FileInfo, error) {
	if fs.udfReader == nil {
		return nil, errors.New("image not mounted")
	}
	p = normalizeImagePath(p)
	file, err := fs.udfReader.FindFile(p)
	if err != nil {
		return nil, err
	}
	return &isoFileInfo{fullPath: path.Join(path.Dir(p), file.Name), file: file}, nil
}

// normalizeImagePath turns p into an absolute slash path within the image.
func normalizeImagePath(p string) string {
	p = filepath.ToSlash(p)
	p = strings.TrimPrefix(p, ".")
	return path.Clean("/" + p)
}

type isoFileInfo struct {
	fullPath string
	file     *udf.File
}

func (f *isoFileInfo) Name() string       { return f.file.Name }
func (f *isoFileInfo) FullName() string   { return f.fullPath }
func (f *isoFileInfo) Length() int64      { return f.file.Size() }
func (f *isoFileInfo) ModTime() time.Time { return f.file.ModTime() }

func (f *isoFileInfo) Extension() string {
	return strings.ToLower(path.Ext(f.file.Name))
}

func (f *isoFileInfo) OpenRead() (io.ReadCloser, error) {
	r, err := f.open()
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (f *isoFileInfo) Open() (File, error) {
	r, err := f.open()
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (f *isoFileInfo) open() (*udf.FileReader, error) {
	r, err := f.file.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.fullPath, err)
	}
	return r, nil
}

type isoDirectoryInfo struct {
	fullPath string
	fs       *ISOFileSystem
	dir      *udf.Directory
}

func (d *isoDirectoryInfo) Name() string {
	if d.fullPath == "/" {
		return ""
	}
	return d.dir.Name
}

func (d *isoDirectoryInfo) FullName() string { return d.fullPath }

func (d *isoDirectoryInfo) GetFiles() ([]FileInfo, error) {
	return d.GetFilesPattern("*")
}

func (d *isoDirectoryInfo) GetDirectories() ([]DirectoryInfo, error) {
	udfDirs, err := d.dir.GetDirectories()
	if err != nil {
		return nil, err
	}
	dirs := make([]DirectoryInfo, 0, len(udfDirs))
	for _, udfDir := range udfDirs {
		dirPath := path.Join(d.fullPath, udfDir.Name)
		d.fs.cache(dirPath, udfDir)
		dirs = append(dirs, &isoDirectoryInfo{fullPath: dirPath, fs: d.fs, dir: udfDir})
	}
	return dirs, nil
}

// GetFilesPattern matches case-insensitively like the disk implementation.
func (d *isoDirectoryInfo) GetFilesPattern(pattern string) ([]FileInfo, error) {
	udfFiles, err := d.dir.GetFiles()
	if err != nil {
		return nil, err
	}
	pattern = strings.ToUpper(pattern)
	var files []FileInfo
	for _, udfFile := range udfFiles {
		matched, err := path.Match(pattern, strings.ToUpper(udfFile.Name))
		if err != nil {
			return nil, err
		}
		if matched {
			files = append(files, &isoFileInfo{fullPath: path.Join(d.fullPath, udfFile.Name), file: udfFile})
		}
	}
	return files, nil
}

func (d *isoDirectoryInfo) GetDirectory(name string) (DirectoryInfo, error) {
	dirs, err := d.GetDirectories()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if strings.EqualFold(dir.Name(), name) {
			return dir, nil
		}
	}
	return nil, fmt.Errorf("directory not found: %s", name)
}

func (d *isoDirectoryInfo) GetFile(name string) (FileInfo, error) {
	files, err := d.GetFiles()
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if strings.EqualFold(file.Name(), name) {
			return file, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}
