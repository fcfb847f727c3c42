package fs

import (
	"io"
	"time"
)

// FileSystem abstracts access to a BD-ROM tree.
type FileSystem interface {
	GetDirectoryInfo(path string) (DirectoryInfo, error)
	GetFileInfo(path string) (FileInfo, error)
}

// DirectoryInfo describes a directory inside a FileSystem.
type DirectoryInfo interface {
	Name() string
	FullName() string
	GetFiles() ([]FileInfo, error)
	GetDirectories() ([]DirectoryInfo, error)
	GetFilesPattern(pattern string) ([]FileInfo, error)
	GetDirectory(name string) (DirectoryInfo, error)
	GetFile(name string) (FileInfo, error)
}

// FileInfo describes a regular file inside a FileSystem.
type FileInfo interface {
	Name() string
	FullName() string
	Length() int64
	Extension() string
	ModTime() time.Time
	OpenRead() (io.ReadCloser, error)
	Open() (File, error)
}

// File is an open file supporting positional reads.
type File interface {
	io.ReaderAt
	io.Closer
}
