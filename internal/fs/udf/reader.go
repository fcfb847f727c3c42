package udf

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"unicode/utf16"
)

// ErrNotUDF is returned for images without a UDF volume recognition
// sequence.
var ErrNotUDF = errors.New("not a UDF volume")

// partitionMap is one entry of the logical volume's partition map table.
// References in LongADs index this table.
type partitionMap struct {
	partitionNumber uint16
	isMetadata      bool
}

// Reader reads a UDF volume through positional reads only, so files opened
// from it can be read concurrently.
type Reader struct {
	file   io.ReaderAt
	closer io.Closer
	size   int64

	volumeLabel     string
	blockSize       uint32
	partitionStart  uint32
	partitionSize   uint32
	partitionMaps   []partitionMap
	metadataFileICB *LongAD
	rootICB         LongAD
	fileSetDesc     *FileSetDescriptor
	fileSetLocation LBAddr

	metaOnce    sync.Once
	metaExtents []allocationDescriptor
	metaErr     error
}

// NewReader opens the image at path.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	reader, err := newReader(file, info.Size())
	if err != nil {
		file.Close()
		return nil, err
	}
	reader.closer = file
	return reader, nil
}

func newReader(ra io.ReaderAt, size int64) (*Reader, error) {
	reader := &Reader{file: ra, size: size, blockSize: SectorSize}
	if err := reader.initialize(); err != nil {
		return nil, err
	}
	return reader, nil
}

func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Reader) GetVolumeLabel() string {
	return r.volumeLabel
}

func (r *Reader) initialize() error {
	if err := r.verifyVolume(); err != nil {
		return err
	}

	anchor, err := r.findAnchorVolumeDescriptor()
	if err != nil {
		return fmt.Errorf("find anchor volume descriptor: %w", err)
	}

	if err := r.readVolumeDescriptorSequence(anchor.MainVolumeDescriptorSequenceExtent); err != nil {
		return fmt.Errorf("read volume descriptor sequence: %w", err)
	}
	if len(r.partitionMaps) == 0 {
		r.partitionMaps = []partitionMap{{}}
	}

	location, err := r.resolveLBAddr(r.fileSetLocation)
	if err != nil {
		return fmt.Errorf("locate file set descriptor: %w", err)
	}
	block, err := r.readBlock(location)
	if err != nil {
		return fmt.Errorf("read file set descriptor: %w", err)
	}
	var fsd FileSetDescriptor
	if err := decode(block, &fsd); err != nil {
		return err
	}
	if fsd.DescriptorTag.TagIdentifier != TagFileSet {
		return fmt.Errorf("invalid file set descriptor tag %d at block %d", fsd.DescriptorTag.TagIdentifier, location)
	}
	r.fileSetDesc = &fsd
	r.rootICB = fsd.RootDirectoryICB
	return nil
}

func (r *Reader) verifyVolume() error {
	foundNSR := false
	var seen []string
	for i := int64(0); i < 16; i++ {
		sector := make([]byte, SectorSize)
		if err := r.readFullAt(VRSOffset+i*SectorSize, sector); err != nil {
			break
		}
		identifier := strings.TrimRight(string(sector[1:6]), "\x00")
		seen = append(seen, identifier)

		switch identifier {
		case StandardIDBEA01:
			continue
		case StandardIDNSR02, StandardIDNSR03:
			foundNSR = true
			continue
		}
		// TEA01, an empty sector or anything unknown ends the sequence.
		break
	}
	if !foundNSR {
		return fmt.Errorf("%w: recognition sequence %q", ErrNotUDF, seen)
	}
	return nil
}

// findAnchorVolumeDescriptor tries sector 256, then N-256, N-1 and 512.
func (r *Reader) findAnchorVolumeDescriptor() (*AnchorVolumeDescriptorPointer, error) {
	totalSectors := r.size / SectorSize
	for _, sector := range []int64{256, totalSectors - 256, totalSectors - 1, 512} {
		if sector < 0 || sector >= totalSectors {
			continue
		}
		block, err := r.readBlock(uint32(sector))
		if err != nil {
			continue
		}
		anchor := &AnchorVolumeDescriptorPointer{}
		if err := decode(block, anchor); err != nil {
			continue
		}
		if anchor.DescriptorTag.TagIdentifier == TagAnchorVolume {
			return anchor, nil
		}
	}
	return nil, errors.New("anchor volume descriptor not found")
}

func (r *Reader) readVolumeDescriptorSequence(extent ExtentAD) error {
	for off := uint32(0); off < extent.Length; off += SectorSize {
		block, err := r.readBlock(extent.Location + off/SectorSize)
		if err != nil {
			return err
		}
		var tag Tag
		if err := decode(block, &tag); err != nil {
			return err
		}

		switch tag.TagIdentifier {
		case TagPrimaryVolume:
			var pvd PrimaryVolumeDescriptor
			if err := decode(block, &pvd); err != nil {
				return err
			}
			r.volumeLabel = decodeDString(pvd.VolumeIdentifier[:])

		case TagPartition:
			var pd PartitionDescriptor
			if err := decode(block, &pd); err != nil {
				return err
			}
			r.partitionStart = pd.PartitionStartingLocation
			r.partitionSize = pd.PartitionLength

		case TagLogicalVolume:
			var lvd LogicalVolumeDescriptor
			if err := decode(block, &lvd); err != nil {
				return err
			}
			if lvd.LogicalBlockSize != 0 && lvd.LogicalBlockSize != SectorSize {
				return fmt.Errorf("unsupported logical block size %d", lvd.LogicalBlockSize)
			}
			// The contents use field holds the file set descriptor's long_ad.
			r.fileSetLocation = LBAddr{
				LogicalBlockNumber:       binary.LittleEndian.Uint32(lvd.LogicalVolumeContentsUse[4:8]),
				PartitionReferenceNumber: binary.LittleEndian.Uint16(lvd.LogicalVolumeContentsUse[8:10]),
			}
			start := binary.Size(lvd)
			end := start + int(lvd.MapTableLength)
			if end > len(block) {
				return fmt.Errorf("partition map table of %d bytes exceeds the descriptor block", lvd.MapTableLength)
			}
			if err := r.parsePartitionMaps(block[start:end], int(lvd.NumberOfPartitionMaps)); err != nil {
				return err
			}

		case TagTerminating:
			return nil
		}
	}
	return nil
}

// parsePartitionMaps reads count maps from table. A metadata partition map
// (UDF 2.50) records where its metadata file lives.
func (r *Reader) parsePartitionMaps(table []byte, count int) error {
	r.partitionMaps = r.partitionMaps[:0]
	pos := 0
	for i := 0; i < count; i++ {
		if pos+2 > len(table) {
			return fmt.Errorf("partition map %d truncated", i)
		}
		kind, length := table[pos], int(table[pos+1])
		if length < 2 || pos+length > len(table) {
			return fmt.Errorf("partition map %d has invalid length %d", i, length)
		}
		m := table[pos : pos+length]
		switch kind {
		case PartitionMapType1:
			if length < 6 {
				return fmt.Errorf("type 1 partition map %d too short", i)
			}
			r.partitionMaps = append(r.partitionMaps, partitionMap{partitionNumber: binary.LittleEndian.Uint16(m[4:6])})
		case PartitionMapType2:
			if length < 44 {
				return fmt.Errorf("type 2 partition map %d too short", i)
			}
			ident := strings.TrimRight(string(m[5:28]), "\x00")
			pm := partitionMap{partitionNumber: binary.LittleEndian.Uint16(m[38:40])}
			if ident == metadataPartitionID {
				pm.isMetadata = true
				r.metadataFileICB = &LongAD{ExtentLocation: LBAddr{
					LogicalBlockNumber:       binary.LittleEndian.Uint32(m[40:44]),
					PartitionReferenceNumber: r.physicalReference(pm.partitionNumber),
				}}
			}
			r.partitionMaps = append(r.partitionMaps, pm)
		default:
			return fmt.Errorf("unknown partition map type %d", kind)
		}
		pos += length
	}
	return nil
}

// physicalReference finds the type 1 map for partition number n.
func (r *Reader) physicalReference(n uint16) uint16 {
	for i, pm := range r.partitionMaps {
		if !pm.isMetadata && pm.partitionNumber == n {
			return uint16(i)
		}
	}
	return 0
}

func (r *Reader) resolveLBAddr(addr LBAddr) (uint32, error) {
	return r.resolvePartitionBlock(addr.PartitionReferenceNumber, addr.LogicalBlockNumber)
}

// resolvePartitionBlock maps a block of partition reference pref to an
// absolute sector.
func (r *Reader) resolvePartitionBlock(pref uint16, lbn uint32) (uint32, error) {
	if int(pref) >= len(r.partitionMaps) {
		if pref == 0 {
			return r.partitionStart + lbn, nil
		}
		return 0, fmt.Errorf("partition reference %d out of range", pref)
	}
	if !r.partitionMaps[pref].isMetadata {
		return r.partitionStart + lbn, nil
	}

	extents, err := r.metadataExtents()
	if err != nil {
		return 0, err
	}
	off := uint64(lbn) * uint64(r.blockSize)
	for _, ext := range extents {
		if off < uint64(ext.length) {
			return r.resolvePartitionBlock(ext.pref, ext.lbn+uint32(off/uint64(r.blockSize)))
		}
		off -= uint64(ext.length)
	}
	return 0, fmt.Errorf("metadata block %d beyond the metadata file", lbn)
}

// metadataExtents loads the allocation of the metadata file once.
func (r *Reader) metadataExtents() ([]allocationDescriptor, error) {
	r.metaOnce.Do(func() {
		if r.metadataFileICB == nil {
			r.metaErr = errors.New("metadata partition without metadata file")
			return
		}
		entry, data, err := r.readFileEntryWithData(*r.metadataFileICB)
		if err != nil {
			r.metaErr = fmt.Errorf("metadata file: %w", err)
			return
		}
		r.metaExtents = r.readAllocationDescriptors(entry, data, r.metadataFileICB.ExtentLocation.PartitionReferenceNumber)
		if len(r.metaExtents) == 0 {
			r.metaErr = errors.New("metadata file has no extents")
		}
	})
	return r.metaExtents, r.metaErr
}

func (r *Reader) readFullAt(off int64, p []byte) error {
	_, err := io.ReadFull(io.NewSectionReader(r.file, off, int64(len(p))), p)
	return err
}

func (r *Reader) readBlock(block uint32) ([]byte, error) {
	b := make([]byte, r.blockSize)
	if err := r.readFullAt(int64(block)*int64(r.blockSize), b); err != nil {
		return nil, err
	}
	return b, nil
}

func decode(block []byte, desc any) error {
	return binary.Read(bytes.NewReader(block), binary.LittleEndian, desc)
}

// decodeDString decodes a fixed-size dstring whose last byte holds the
// used length.
func decodeDString(field []byte) string {
	if len(field) < 2 {
		return ""
	}
	n := int(field[len(field)-1])
	if n == 0 || n >= len(field) {
		n = len(field) - 1
	}
	return decodeString(field[:n])
}

// decodeString decodes OSTA compressed unicode: a compression id of 8
// (one byte per character) or 16 (UCS-2 big endian).
func decodeString(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	switch data[0] {
	case 8:
		s := data[1:]
		if i := bytes.IndexByte(s, 0); i >= 0 {
			s = s[:i]
		}
		runes := make([]rune, len(s))
		for i, b := range s {
			runes[i] = rune(b)
		}
		return strings.TrimRight(string(runes), " ")
	case 16:
		var units []uint16
		for i := 1; i+1 < len(data); i += 2 {
			u := uint16(data[i])<<8 | uint16(data[i+1])
			if u == 0 {
				break
			}
			units = append(units, u)
		}
		return strings.TrimRight(string(utf16.Decode(units)), " ")
	}
	return ""
}
