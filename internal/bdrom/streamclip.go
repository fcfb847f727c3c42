package bdrom

import (
	"sort"

	"github.com/s0up4200/go-bdplay/internal/stream"
)

// Still modes of a play item.
const (
	StillNone     = 0
	StillTime     = 1
	StillInfinite = 2
)

// StreamClip is one play item (or one angle of it) of a playlist. Times are
// in 45 kHz ticks.
type StreamClip struct {
	AngleIndex          int
	Name                string
	ClipName            string
	TimeIn              uint32
	TimeOut             uint32
	RelativeTimeIn      uint64
	ConnectionCondition uint8
	StillMode           uint8
	StillTime           uint16

	StreamFile     *StreamFile
	StreamClipFile *StreamClipFile
}

func NewStreamClip(streamFile *StreamFile, streamClipFile *StreamClipFile) *StreamClip {
	clip := &StreamClip{}
	if streamFile != nil {
		clip.Name = streamFile.Name
		clip.StreamFile = streamFile
	}
	clip.StreamClipFile = streamClipFile
	return clip
}

func (s *StreamClip) Length() uint64 {
	if s.TimeOut <= s.TimeIn {
		return 0
	}
	return uint64(s.TimeOut - s.TimeIn)
}

func (s *StreamClip) RelativeTimeOut() uint64 {
	return s.RelativeTimeIn + s.Length()
}

// FileSize is the size of the backing m2ts file, or 0 when it is missing.
func (s *StreamClip) FileSize() uint64 {
	if s.StreamFile == nil || s.StreamFile.Size < 0 {
		return 0
	}
	return uint64(s.StreamFile.Size)
}

// Streams returns the clip's elementary streams ordered by PID.
func (s *StreamClip) Streams() []stream.Stream {
	if s.StreamClipFile == nil {
		return nil
	}
	streams := make([]stream.Stream, 0, len(s.StreamClipFile.Streams))
	for _, st := range s.StreamClipFile.Streams {
		streams = append(streams, st)
	}
	sort.Slice(streams, func(i, j int) bool { return streams[i].PID < streams[j].PID })
	return streams
}
