package fs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DiskFileSystem implements FileSystem for regular disk access.
type DiskFileSystem struct{}

// NewDiskFileSystem creates a new disk-based file system.
func NewDiskFileSystem() FileSystem {
	return &DiskFileSystem{}
}

// GetDirectoryInfo returns information about a directory on disk.
func (fs *DiskFileSystem) GetDirectoryInfo(path string) (DirectoryInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", path)
	}
	return &diskDirectoryInfo{path: path}, nil
}

// GetFileInfo returns information about a file on disk.
func (fs *DiskFileSystem) GetFileInfo(path string) (FileInfo, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	return &diskFileInfo{path: path, info: info}, nil
}

type diskFileInfo struct {
	path string
	info os.FileInfo
}

func (f *diskFileInfo) Name() string       { return f.info.Name() }
func (f *diskFileInfo) FullName() string   { return f.path }
func (f *diskFileInfo) Length() int64      { return f.info.Size() }
func (f *diskFileInfo) ModTime() time.Time { return f.info.ModTime() }

func (f *diskFileInfo) Extension() string {
	return strings.ToLower(filepath.Ext(f.path))
}

func (f *diskFileInfo) OpenRead() (io.ReadCloser, error) {
	return os.Open(f.path)
}

func (f *diskFileInfo) Open() (File, error) {
	return os.Open(f.path)
}

type diskDirectoryInfo struct {
	path string
}

func (d *diskDirectoryInfo) Name() string     { return filepath.Base(d.path) }
func (d *diskDirectoryInfo) FullName() string { return d.path }

func (d *diskDirectoryInfo) entries() ([]os.DirEntry, error) {
	return os.ReadDir(d.path)
}

func (d *diskDirectoryInfo) GetFiles() ([]FileInfo, error) {
	return d.GetFilesPattern("*")
}

func (d *diskDirectoryInfo) GetDirectories() ([]DirectoryInfo, error) {
	entries, err := d.entries()
	if err != nil {
		return nil, err
	}
	var dirs []DirectoryInfo
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, &diskDirectoryInfo{path: filepath.Join(d.path, entry.Name())})
		}
	}
	return dirs, nil
}

// GetFilesPattern matches case-insensitively; discs copied from other
// media frequently carry lower-case names.
func (d *diskDirectoryInfo) GetFilesPattern(pattern string) ([]FileInfo, error) {
	entries, err := d.entries()
	if err != nil {
		return nil, err
	}
	pattern = strings.ToUpper(pattern)
	var files []FileInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		matched, err := filepath.Match(pattern, strings.ToUpper(entry.Name()))
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, err
		}
		files = append(files, &diskFileInfo{path: filepath.Join(d.path, entry.Name()), info: info})
	}
	return files, nil
}

func (d *diskDirectoryInfo) lookup(name string) (string, os.FileInfo, error) {
	path := filepath.Join(d.path, name)
	info, err := os.Stat(path)
	if err == nil {
		return path, info, nil
	}
	entries, rerr := d.entries()
	if rerr != nil {
		return "", nil, err
	}
	for _, entry := range entries {
		if strings.EqualFold(entry.Name(), name) {
			path = filepath.Join(d.path, entry.Name())
			info, serr := os.Stat(path)
			if serr != nil {
				return "", nil, serr
			}
			return path, info, nil
		}
	}
	return "", nil, err
}

func (d *diskDirectoryInfo) GetDirectory(name string) (DirectoryInfo, error) {
	path, info, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", name)
	}
	return &diskDirectoryInfo{path: path}, nil
}

func (d *diskDirectoryInfo) GetFile(name string) (FileInfo, error) {
	path, info, err := d.lookup(name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", name)
	}
	return &diskFileInfo{path: path, info: info}, nil
}
