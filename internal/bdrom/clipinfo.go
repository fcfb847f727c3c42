package bdrom

import (
	"fmt"
	"strings"

	"github.com/s0up4200/go-bdplay/internal/fs"
	"github.com/s0up4200/go-bdplay/internal/stream"
)

type StreamClipFile struct {
	FileInfo fs.FileInfo
	Name     string
	FileType string
	IsValid  bool
	Streams  map[uint16]stream.Stream
}

func NewStreamClipFile(fileInfo fs.FileInfo) *StreamClipFile {
	return &StreamClipFile{
		FileInfo: fileInfo,
		Name:     strings.ToUpper(fileInfo.Name()),
		Streams:  make(map[uint16]stream.Stream),
	}
}

func (s *StreamClipFile) Scan() error {
	if s.FileInfo == nil {
		return fmt.Errorf("clip info file missing")
	}
	data, err := readFile(s.FileInfo)
	if err != nil {
		return err
	}
	return s.parse(data)
}

func (s *StreamClipFile) parse(data []byte) error {
	if len(data) < 20 {
		return fmt.Errorf("clip info %s too short", s.Name)
	}

	fileType := string(data[:8])
	s.FileType = fileType
	if fileType != "HDMV0100" && fileType != "HDMV0200" && fileType != "HDMV0300" {
		return fmt.Errorf("clip info %s has unknown file type %s", s.Name, fileType)
	}

	// Offset of ProgramInfo.
	clipIndex := int(uint32(data[12])<<24 | uint32(data[13])<<16 | uint32(data[14])<<8 | uint32(data[15]))
	if clipIndex < 0 || clipIndex+4 > len(data) {
		return fmt.Errorf("clip info %s invalid clip index", s.Name)
	}
	clipLength := int(uint32(data[clipIndex])<<24 | uint32(data[clipIndex+1])<<16 | uint32(data[clipIndex+2])<<8 | uint32(data[clipIndex+3]))
	if clipLength < 0 || clipIndex+4+clipLength > len(data) {
		return fmt.Errorf("clip info %s invalid clip length", s.Name)
	}
	clipData := data[clipIndex+4 : clipIndex+4+clipLength]
	if len(clipData) < 12 {
		return fmt.Errorf("clip info %s invalid clip data", s.Name)
	}

	streamCount := int(clipData[8])
	offset := 10
	for range streamCount {
		if offset+4 > len(clipData) {
			break
		}
		pid := uint16(clipData[offset])<<8 | uint16(clipData[offset+1])
		offset += 2
		if offset+2 >= len(clipData) {
			break
		}
		st := stream.Stream{PID: pid, StreamType: stream.StreamType(clipData[offset+1])}
		attrs := clipData[offset+2:]

		switch {
		case st.IsVideoStream():
			if len(attrs) < 2 {
				break
			}
			st.VideoFormat = stream.VideoFormat(attrs[0] >> 4)
			st.FrameRate = stream.FrameRate(attrs[0] & 0x0F)
			st.AspectRatio = stream.AspectRatio(attrs[1] >> 4)
		case st.IsAudioStream():
			if len(attrs) < 4 {
				break
			}
			st.ChannelLayout = stream.ChannelLayout(attrs[0] >> 4)
			st.SampleRate = stream.SampleRate(attrs[0] & 0x0F)
			st.SetLanguageCode(string(attrs[1:4]))
		case st.IsGraphicsStream():
			if len(attrs) < 3 {
				break
			}
			st.SetLanguageCode(string(attrs[0:3]))
		case st.IsTextStream():
			if len(attrs) < 4 {
				break
			}
			st.SetLanguageCode(string(attrs[1:4]))
		}
		s.Streams[pid] = st
		offset += int(clipData[offset]) + 1
	}
	s.IsValid = true
	return nil
}
