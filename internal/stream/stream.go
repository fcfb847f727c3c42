package stream

import (
	"fmt"
	"strings"

	"github.com/s0up4200/go-bdplay/internal/lang"
)

// Stream is an elementary stream entry of a clip or playlist.
type Stream struct {
	PID          uint16
	StreamType   StreamType
	LanguageName string

	VideoFormat   VideoFormat
	FrameRate     FrameRate
	AspectRatio   AspectRatio
	ChannelLayout ChannelLayout
	SampleRate    SampleRate

	languageCode string
}

func (s Stream) String() string {
	return fmt.Sprintf("%s (%d)", s.CodecShortName(), s.PID)
}

func (s Stream) LanguageCode() string {
	return s.languageCode
}

func (s *Stream) SetLanguageCode(code string) {
	s.languageCode = strings.TrimRight(code, "\x00 ")
	s.LanguageName = lang.CodeName(s.languageCode)
}

func (s Stream) IsVideoStream() bool {
	switch s.StreamType {
	case StreamTypeMPEG1Video, StreamTypeMPEG2Video, StreamTypeAVCVideo, StreamTypeMVCVideo, StreamTypeVC1Video, StreamTypeHEVCVideo:
		return true
	default:
		return false
	}
}

func (s Stream) IsAudioStream() bool {
	switch s.StreamType {
	case StreamTypeMPEG1Audio, StreamTypeMPEG2Audio, StreamTypeMPEG2AACAudio, StreamTypeMPEG4AACAudio,
		StreamTypeLPCMAudio, StreamTypeAC3Audio, StreamTypeAC3PlusAudio, StreamTypeAC3PlusSecondaryAudio,
		StreamTypeAC3TrueHDAudio, StreamTypeDTSAudio, StreamTypeDTSHDAudio, StreamTypeDTSHDSecondaryAudio, StreamTypeDTSHDMasterAudio:
		return true
	default:
		return false
	}
}

func (s Stream) IsGraphicsStream() bool {
	return s.StreamType == StreamTypePresentationGraphics || s.StreamType == StreamTypeInteractiveGraphics
}

func (s Stream) IsTextStream() bool {
	return s.StreamType == StreamTypeSubtitle
}

func (s Stream) CodecShortName() string {
	switch s.StreamType {
	case StreamTypeMPEG1Video:
		return "MPEG-1"
	case StreamTypeMPEG2Video:
		return "MPEG-2"
	case StreamTypeAVCVideo:
		return "AVC"
	case StreamTypeMVCVideo:
		return "MVC"
	case StreamTypeHEVCVideo:
		return "HEVC"
	case StreamTypeVC1Video:
		return "VC-1"
	case StreamTypeMPEG1Audio:
		return "MP1"
	case StreamTypeMPEG2Audio:
		return "MP2"
	case StreamTypeMPEG2AACAudio:
		return "MPEG-2 AAC"
	case StreamTypeMPEG4AACAudio:
		return "MPEG-4 AAC"
	case StreamTypeLPCMAudio:
		return "LPCM"
	case StreamTypeAC3Audio:
		return "AC3"
	case StreamTypeAC3PlusAudio, StreamTypeAC3PlusSecondaryAudio:
		return "AC3+"
	case StreamTypeAC3TrueHDAudio:
		return "TrueHD"
	case StreamTypeDTSAudio:
		return "DTS"
	case StreamTypeDTSHDAudio:
		return "DTS-HD HR"
	case StreamTypeDTSHDSecondaryAudio:
		return "DTS Express"
	case StreamTypeDTSHDMasterAudio:
		return "DTS-HD MA"
	case StreamTypePresentationGraphics:
		return "PGS"
	case StreamTypeInteractiveGraphics:
		return "IGS"
	case StreamTypeSubtitle:
		return "SUB"
	default:
		return "UNKNOWN"
	}
}

// Description joins the known attributes, e.g. "1080p / 23.976 fps / 16:9".
func (s Stream) Description() string {
	var parts []string
	add := func(v string) {
		if v != "" {
			parts = append(parts, v)
		}
	}
	switch {
	case s.IsVideoStream():
		add(s.VideoFormat.String())
		add(s.FrameRate.String())
		add(s.AspectRatio.String())
	case s.IsAudioStream():
		add(s.ChannelLayout.String())
		if hz := s.SampleRate.Hz(); hz > 0 {
			add(fmt.Sprintf("%d kHz", hz/1000))
		}
	}
	return strings.Join(parts, " / ")
}
