package stream

// StreamType is the MPEG-TS stream_coding_type carried in STN and CLPI tables.
type StreamType uint8

const (
	StreamTypeUnknown               StreamType = 0x00
	StreamTypeMPEG1Video            StreamType = 0x01
	StreamTypeMPEG2Video            StreamType = 0x02
	StreamTypeAVCVideo              StreamType = 0x1b
	StreamTypeMVCVideo              StreamType = 0x20
	StreamTypeHEVCVideo             StreamType = 0x24
	StreamTypeVC1Video              StreamType = 0xea
	StreamTypeMPEG1Audio            StreamType = 0x03
	StreamTypeMPEG2Audio            StreamType = 0x04
	StreamTypeMPEG2AACAudio         StreamType = 0x0f
	StreamTypeMPEG4AACAudio         StreamType = 0x11
	StreamTypeLPCMAudio             StreamType = 0x80
	StreamTypeAC3Audio              StreamType = 0x81
	StreamTypeAC3PlusAudio          StreamType = 0x84
	StreamTypeAC3PlusSecondaryAudio StreamType = 0xa1
	StreamTypeAC3TrueHDAudio        StreamType = 0x83
	StreamTypeDTSAudio              StreamType = 0x82
	StreamTypeDTSHDAudio            StreamType = 0x85
	StreamTypeDTSHDSecondaryAudio   StreamType = 0xa2
	StreamTypeDTSHDMasterAudio      StreamType = 0x86
	StreamTypePresentationGraphics  StreamType = 0x90
	StreamTypeInteractiveGraphics   StreamType = 0x91
	StreamTypeSubtitle              StreamType = 0x92
)

type VideoFormat uint8

const (
	VideoFormatUnknown VideoFormat = 0
	VideoFormat480i    VideoFormat = 1
	VideoFormat576i    VideoFormat = 2
	VideoFormat480p    VideoFormat = 3
	VideoFormat1080i   VideoFormat = 4
	VideoFormat720p    VideoFormat = 5
	VideoFormat1080p   VideoFormat = 6
	VideoFormat576p    VideoFormat = 7
	VideoFormat2160p   VideoFormat = 8
)

// String renders the format as e.g. "1080p".
func (f VideoFormat) String() string {
	switch f {
	case VideoFormat480i:
		return "480i"
	case VideoFormat576i:
		return "576i"
	case VideoFormat480p:
		return "480p"
	case VideoFormat1080i:
		return "1080i"
	case VideoFormat720p:
		return "720p"
	case VideoFormat1080p:
		return "1080p"
	case VideoFormat576p:
		return "576p"
	case VideoFormat2160p:
		return "2160p"
	default:
		return ""
	}
}

type FrameRate uint8

const (
	FrameRateUnknown FrameRate = 0
	FrameRate23976   FrameRate = 1
	FrameRate24      FrameRate = 2
	FrameRate25      FrameRate = 3
	FrameRate2997    FrameRate = 4
	FrameRate50      FrameRate = 6
	FrameRate5994    FrameRate = 7
)

func (r FrameRate) String() string {
	switch r {
	case FrameRate23976:
		return "23.976 fps"
	case FrameRate24:
		return "24 fps"
	case FrameRate25:
		return "25 fps"
	case FrameRate2997:
		return "29.97 fps"
	case FrameRate50:
		return "50 fps"
	case FrameRate5994:
		return "59.94 fps"
	default:
		return ""
	}
}

type ChannelLayout uint8

const (
	ChannelLayoutUnknown ChannelLayout = 0
	ChannelLayoutMono    ChannelLayout = 1
	ChannelLayoutStereo  ChannelLayout = 3
	ChannelLayoutMulti   ChannelLayout = 6
	ChannelLayoutCombo   ChannelLayout = 12
)

func (c ChannelLayout) String() string {
	switch c {
	case ChannelLayoutMono:
		return "1.0"
	case ChannelLayoutStereo:
		return "2.0"
	case ChannelLayoutMulti:
		return "5.1"
	case ChannelLayoutCombo:
		return "2.0+5.1"
	default:
		return ""
	}
}

type SampleRate uint8

const (
	SampleRateUnknown SampleRate = 0
	SampleRate48      SampleRate = 1
	SampleRate96      SampleRate = 4
	SampleRate192     SampleRate = 5
	SampleRate48192   SampleRate = 12
	SampleRate4896    SampleRate = 14
)

// Hz returns the sample rate in Hz, or 0 when unknown.
func (r SampleRate) Hz() int {
	switch r {
	case SampleRate48:
		return 48000
	case SampleRate96, SampleRate4896:
		return 96000
	case SampleRate192, SampleRate48192:
		return 192000
	default:
		return 0
	}
}

type AspectRatio uint8

const (
	AspectUnknown AspectRatio = 0
	Aspect43      AspectRatio = 2
	Aspect169     AspectRatio = 3
	Aspect221     AspectRatio = 4
)

func (a AspectRatio) String() string {
	switch a {
	case Aspect43:
		return "4:3"
	case Aspect169:
		return "16:9"
	case Aspect221:
		return "2.21:1"
	default:
		return ""
	}
}
