package bdrom

import (
	"strings"

	"github.com/s0up4200/go-bdplay/internal/fs"
)

// StreamFile is an m2ts file of 192-byte source packets.
type StreamFile struct {
	FileInfo fs.FileInfo
	Name     string
	Size     int64
}

func NewStreamFile(fileInfo fs.FileInfo) *StreamFile {
	streamFile := &StreamFile{
		FileInfo: fileInfo,
		Name:     strings.ToUpper(fileInfo.Name()),
	}
	streamFile.Size = fileInfo.Length()
	return streamFile
}
