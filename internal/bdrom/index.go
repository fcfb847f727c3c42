package bdrom

import (
	"fmt"

	"github.com/s0up4200/go-bdplay/internal/buffer"
	"github.com/s0up4200/go-bdplay/internal/fs"
	"github.com/s0up4200/go-bdplay/internal/util"
)

type ObjectType uint8

const (
	ObjectNone ObjectType = 0
	ObjectHDMV ObjectType = 1
	ObjectBDJ  ObjectType = 2
)

// IndexObject is a first playback, top menu or title entry of index.bdmv.
type IndexObject struct {
	Type         ObjectType
	AccessType   uint8
	PlaybackType uint8
	MovieObject  uint16
	BDJOName     string
}

type IndexFile struct {
	FileType      string
	FirstPlayback IndexObject
	TopMenu       IndexObject
	Titles        []IndexObject
}

// HDMVTitles counts titles backed by movie objects.
func (f *IndexFile) HDMVTitles() int {
	n := 0
	for _, t := range f.Titles {
		if t.Type == ObjectHDMV {
			n++
		}
	}
	return n
}

// BDJTitles counts titles backed by BD-J objects.
func (f *IndexFile) BDJTitles() int {
	n := 0
	for _, t := range f.Titles {
		if t.Type == ObjectBDJ {
			n++
		}
	}
	return n
}

func ReadIndexFile(file fs.FileInfo) (*IndexFile, error) {
	data, err := readFile(file)
	if err != nil {
		return nil, err
	}
	return ParseIndex(data)
}

func ParseIndex(data []byte) (*IndexFile, error) {
	if len(data) < 16 {
		return nil, fmt.Errorf("index.bdmv too short")
	}
	pos := 0
	index := &IndexFile{FileType: util.ReadString(data, 8, &pos)}
	switch index.FileType {
	case "INDX0100", "INDX0200", "INDX0300":
	default:
		return nil, fmt.Errorf("index.bdmv has unknown file type %s", index.FileType)
	}
	indexesStart := int(util.ReadUint32(data, &pos))
	if indexesStart < 0 || indexesStart+4+24+2 > len(data) {
		return nil, fmt.Errorf("index.bdmv invalid indexes offset %d", indexesStart)
	}

	br := buffer.NewBitReader(data[indexesStart+4:])
	var ok bool
	if index.FirstPlayback, ok = readIndexObject(br, false); !ok {
		return nil, fmt.Errorf("index.bdmv truncated first playback")
	}
	if index.TopMenu, ok = readIndexObject(br, false); !ok {
		return nil, fmt.Errorf("index.bdmv truncated top menu")
	}
	count, _ := br.ReadUint16()
	for i := 0; i < int(count); i++ {
		title, ok := readIndexObject(br, true)
		if !ok {
			return nil, fmt.Errorf("index.bdmv truncated title %d", i+1)
		}
		index.Titles = append(index.Titles, title)
	}
	return index, nil
}

// readIndexObject reads one 12-byte object entry.
func readIndexObject(br *buffer.BitReader, title bool) (IndexObject, bool) {
	if br.BytesLeft() < 12 {
		return IndexObject{}, false
	}
	var obj IndexObject
	objType, _ := br.ReadBits(2)
	obj.Type = ObjectType(objType)
	if title {
		access, _ := br.ReadBits(2)
		obj.AccessType = uint8(access)
		br.SkipBits(28)
	} else {
		br.SkipBits(30)
	}
	playback, _ := br.ReadBits(2)
	obj.PlaybackType = uint8(playback)
	br.SkipBits(14)
	switch obj.Type {
	case ObjectHDMV:
		obj.MovieObject, _ = br.ReadUint16()
		br.SkipBytes(4)
	case ObjectBDJ:
		name := make([]byte, 0, 5)
		for range 5 {
			b, _ := br.ReadByte()
			name = append(name, b)
		}
		obj.BDJOName = string(name)
		br.SkipBytes(1)
	default:
		br.SkipBytes(6)
	}
	return obj, true
}
