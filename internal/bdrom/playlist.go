package bdrom

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/s0up4200/go-bdplay/internal/buffer"
	"github.com/s0up4200/go-bdplay/internal/fs"
	"github.com/s0up4200/go-bdplay/internal/stream"
	"github.com/s0up4200/go-bdplay/internal/util"
)

type PlaylistFile struct {
	FileInfo      fs.FileInfo
	Name          string
	ID            int
	FileType      string
	IsInitialized bool
	HasLoops      bool
	MVCBaseViewR  bool
	PlaybackType  uint8

	// Chapters are title-relative start times in 45 kHz ticks.
	Chapters []uint64

	PlaylistStreams map[uint16]stream.Stream
	StreamClips     []*StreamClip
	// AngleCount is the number of angles besides the main one.
	AngleCount int
}

func NewPlaylistFile(fileInfo fs.FileInfo) *PlaylistFile {
	name := strings.ToUpper(fileInfo.Name())
	id, err := strconv.Atoi(strings.TrimSuffix(name, ".MPLS"))
	if err != nil {
		id = -1
	}
	return &PlaylistFile{
		FileInfo:        fileInfo,
		Name:            name,
		ID:              id,
		PlaylistStreams: make(map[uint16]stream.Stream),
	}
}

// Items returns the main-angle play items in order.
func (p *PlaylistFile) Items() []*StreamClip {
	return p.AngleClips(0)
}

// AngleClips returns the play items for angle (0 = main), falling back to
// the main clip for items without that angle.
func (p *PlaylistFile) AngleClips(angle int) []*StreamClip {
	var clips []*StreamClip
	for _, clip := range p.StreamClips {
		if clip.AngleIndex == 0 {
			clips = append(clips, clip)
			continue
		}
		if clip.AngleIndex == angle && len(clips) > 0 {
			clips[len(clips)-1] = clip
		}
	}
	return clips
}

// TotalLength is the main-angle duration in 45 kHz ticks.
func (p *PlaylistFile) TotalLength() uint64 {
	var length uint64
	for _, clip := range p.StreamClips {
		if clip.AngleIndex == 0 {
			length += clip.Length()
		}
	}
	return length
}

// FileSize sums the m2ts sizes of the main-angle clips.
func (p *PlaylistFile) FileSize() uint64 {
	var size uint64
	for _, clip := range p.StreamClips {
		if clip.AngleIndex == 0 {
			size += clip.FileSize()
		}
	}
	return size
}

// Playable reports whether every clip of the playlist has its m2ts file.
func (p *PlaylistFile) Playable() bool {
	if !p.IsInitialized || len(p.StreamClips) == 0 {
		return false
	}
	for _, clip := range p.StreamClips {
		if clip.StreamFile == nil {
			return false
		}
	}
	return true
}

func (p *PlaylistFile) Scan(streamFiles map[string]*StreamFile, clipFiles map[string]*StreamClipFile) error {
	data, err := readFile(p.FileInfo)
	if err != nil {
		return err
	}
	return p.parse(data, streamFiles, clipFiles)
}

func (p *PlaylistFile) parse(data []byte, streamFiles map[string]*StreamFile, clipFiles map[string]*StreamClipFile) error {
	p.StreamClips = nil
	p.Chapters = nil
	p.AngleCount = 0
	p.HasLoops = false
	p.IsInitialized = false

	pos := 0
	p.FileType = util.ReadString(data, 8, &pos)
	if p.FileType != "MPLS0100" && p.FileType != "MPLS0200" && p.FileType != "MPLS0300" {
		return fmt.Errorf("playlist %s has unknown file type %s", p.Name, p.FileType)
	}
	playlistOffset := int(util.ReadUint32(data, &pos))
	chaptersOffset := int(util.ReadUint32(data, &pos))
	_ = util.ReadUint32(data, &pos) // extensions offset

	if len(data) > 0x38 {
		p.PlaybackType = data[45]
		p.MVCBaseViewR = (data[0x38] & 0x10) != 0
	}

	if playlistOffset <= 0 || playlistOffset+10 > len(data) {
		return fmt.Errorf("playlist %s invalid playlist offset %d", p.Name, playlistOffset)
	}
	pos = playlistOffset
	_ = util.ReadUint32(data, &pos) // playlist length
	_ = util.ReadUint16(data, &pos) // reserved
	itemCount := int(util.ReadUint16(data, &pos))
	_ = util.ReadUint16(data, &pos) // subpath count

	var items []*StreamClip
	for itemIndex := 0; itemIndex < itemCount; itemIndex++ {
		itemStart := pos
		if itemStart+34 > len(data) {
			return fmt.Errorf("playlist %s truncated at play item %d", p.Name, itemIndex)
		}
		itemLength := int(util.ReadUint16(data, &pos))
		itemName := util.ReadString(data, 5, &pos)
		_ = util.ReadString(data, 4, &pos) // codec id

		streamFileName := strings.ToUpper(itemName + ".M2TS")
		streamFile := streamFiles[streamFileName]

		clipFileName := strings.ToUpper(itemName + ".CLPI")
		clipFile := clipFiles[clipFileName]
		if clipFile == nil {
			return fmt.Errorf("playlist %s missing clip file %s", p.Name, clipFileName)
		}

		flags := buffer.NewBitReader(data[itemStart+11 : itemStart+13])
		flags.SkipBits(11)
		multiangle, _ := flags.ReadBool()
		connection, _ := flags.ReadBits(4)
		pos = itemStart + 14

		clip := NewStreamClip(streamFile, clipFile)
		clip.Name = streamFileName
		clip.ClipName = strings.ToUpper(itemName)
		clip.TimeIn = util.ReadUint32(data, &pos) & 0x7fffffff
		clip.TimeOut = util.ReadUint32(data, &pos) & 0x7fffffff
		clip.RelativeTimeIn = p.TotalLength()
		clip.ConnectionCondition = uint8(connection)
		clip.StillMode = data[itemStart+31]
		clip.StillTime = uint16(data[itemStart+32])<<8 | uint16(data[itemStart+33])
		p.StreamClips = append(p.StreamClips, clip)
		items = append(items, clip)

		pos = itemStart + 34
		if multiangle {
			if pos+2 > len(data) {
				return fmt.Errorf("playlist %s truncated angle table", p.Name)
			}
			angles := int(data[pos])
			pos += 2
			for angle := 0; angle < angles-1; angle++ {
				if pos+10 > len(data) {
					return fmt.Errorf("playlist %s truncated angle %d", p.Name, angle+1)
				}
				angleName := util.ReadString(data, 5, &pos)
				_ = util.ReadString(data, 4, &pos)
				pos++

				angleFileName := strings.ToUpper(angleName + ".M2TS")
				angleClipName := strings.ToUpper(angleName + ".CLPI")
				angleClipFile := clipFiles[angleClipName]
				if angleClipFile == nil {
					return fmt.Errorf("playlist %s missing angle clip %s", p.Name, angleClipName)
				}

				angleClip := NewStreamClip(streamFiles[angleFileName], angleClipFile)
				angleClip.Name = angleFileName
				angleClip.ClipName = strings.ToUpper(angleName)
				angleClip.AngleIndex = angle + 1
				angleClip.TimeIn = clip.TimeIn
				angleClip.TimeOut = clip.TimeOut
				angleClip.RelativeTimeIn = clip.RelativeTimeIn
				angleClip.ConnectionCondition = clip.ConnectionCondition
				angleClip.StillMode = clip.StillMode
				angleClip.StillTime = clip.StillTime
				p.StreamClips = append(p.StreamClips, angleClip)
			}
			if angles-1 > p.AngleCount {
				p.AngleCount = angles - 1
			}
		}

		if err := p.parseSTN(data, pos); err != nil {
			return err
		}

		pos = itemStart + itemLength + 2
	}

	p.parseMarks(data, chaptersOffset, items)
	p.detectLoops()
	p.IsInitialized = true
	return nil
}

// parseSTN reads the stream number table of a play item.
func (p *PlaylistFile) parseSTN(data []byte, pos int) error {
	if pos+16 > len(data) {
		return fmt.Errorf("playlist %s truncated stream table", p.Name)
	}
	pos += 4 // length, reserved
	counts := data[pos : pos+7]
	pos += 12

	add := func(extra int) error {
		st, ok := createPlaylistStream(data, &pos)
		if !ok {
			return fmt.Errorf("playlist %s truncated stream entry", p.Name)
		}
		if st.StreamType != stream.StreamTypeUnknown {
			if _, exists := p.PlaylistStreams[st.PID]; !exists {
				p.PlaylistStreams[st.PID] = st
			}
		}
		pos += extra
		return nil
	}
	// video, audio, PG, IG, secondary audio, secondary video, PiP
	extras := [7]int{0, 0, 0, 0, 2, 6, 0}
	for kind, count := range counts {
		for range int(count) {
			if err := add(extras[kind]); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *PlaylistFile) parseMarks(data []byte, offset int, items []*StreamClip) {
	if offset <= 0 {
		return
	}
	pos := offset + 4
	if pos+2 > len(data) {
		return
	}
	total := p.TotalLength()
	count := int(util.ReadUint16(data, &pos))
	for i := 0; i < count; i++ {
		if pos+14 > len(data) {
			break
		}
		markType := data[pos+1]
		itemRef := int(data[pos+2])<<8 | int(data[pos+3])
		markTime := uint32(data[pos+4])<<24 | uint32(data[pos+5])<<16 | uint32(data[pos+6])<<8 | uint32(data[pos+7])
		pos += 14

		// Entry marks only; link points do not start chapters.
		if markType != 1 || itemRef >= len(items) {
			continue
		}
		clip := items[itemRef]
		if markTime < clip.TimeIn {
			markTime = clip.TimeIn
		}
		relative := uint64(markTime-clip.TimeIn) + clip.RelativeTimeIn
		// Marks within the last second are ignored.
		if relative+util.Ticks45kHz < total {
			p.Chapters = append(p.Chapters, relative)
		}
	}
}

func (p *PlaylistFile) detectLoops() {
	clipTimes := map[string][]uint32{}
	for _, clip := range p.StreamClips {
		if clip.AngleIndex != 0 || clip.Name == "" {
			continue
		}
		for _, t := range clipTimes[clip.Name] {
			if t == clip.TimeIn {
				p.HasLoops = true
			}
		}
		clipTimes[clip.Name] = append(clipTimes[clip.Name], clip.TimeIn)
	}
}

// createPlaylistStream reads one stream entry and its attributes.
func createPlaylistStream(data []byte, pos *int) (stream.Stream, bool) {
	var st stream.Stream
	if *pos >= len(data) {
		return st, false
	}
	headerLength := int(data[*pos])
	*pos++
	headerPos := *pos
	if headerPos+headerLength > len(data) || headerLength < 3 {
		return st, false
	}
	headerType := int(data[*pos])
	*pos++

	switch headerType {
	case 2, 4:
		*pos += 2
	case 3:
		*pos++
	}
	st.PID = util.ReadUint16(data, pos)
	*pos = headerPos + headerLength

	if *pos >= len(data) {
		return st, false
	}
	streamLength := int(data[*pos])
	*pos++
	streamPos := *pos
	if streamPos+streamLength > len(data) || streamLength < 1 {
		return st, false
	}
	attrs := data[streamPos+1 : streamPos+streamLength]
	st.StreamType = stream.StreamType(data[streamPos])

	switch {
	case st.IsVideoStream():
		if len(attrs) >= 2 {
			st.VideoFormat = stream.VideoFormat(attrs[0] >> 4)
			st.FrameRate = stream.FrameRate(attrs[0] & 0x0F)
			st.AspectRatio = stream.AspectRatio(attrs[1] >> 4)
		}
	case st.IsAudioStream():
		if len(attrs) >= 4 {
			st.ChannelLayout = stream.ChannelLayout(attrs[0] >> 4)
			st.SampleRate = stream.SampleRate(attrs[0] & 0x0F)
			st.SetLanguageCode(string(attrs[1:4]))
		}
	case st.IsGraphicsStream():
		if len(attrs) >= 3 {
			st.SetLanguageCode(string(attrs[0:3]))
		}
	case st.IsTextStream():
		if len(attrs) >= 4 {
			st.SetLanguageCode(string(attrs[1:4]))
		}
	default:
		st.StreamType = stream.StreamTypeUnknown
	}

	*pos = streamPos + streamLength
	return st, true
}
