package udf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"time"
)

// File is a regular file of the volume. Size and ModTime read the file
// entry on first use.
type File struct {
	reader *Reader
	Name   string
	icb    LongAD

	once    sync.Once
	size    int64
	modTime time.Time
}

// Directory is a directory of the volume. Entries are read on first use.
type Directory struct {
	reader  *Reader
	Name    string
	path    string
	icb     LongAD
	entries []*FileIdentifierDescriptor

	entriesOnce sync.Once
	entriesErr  error
}

// FileIdentifierDescriptor is one directory entry.
type FileIdentifierDescriptor struct {
	FileCharacteristics uint8
	ICB                 LongAD
	fileName            string
}

func (d *Directory) ensureEntries() error {
	d.entriesOnce.Do(func() {
		d.entriesErr = d.readEntries()
	})
	return d.entriesErr
}

func (f *File) stat() {
	f.once.Do(func() {
		entry, err := f.reader.readFileEntry(f.icb)
		if err != nil {
			return
		}
		switch e := entry.(type) {
		case *FileEntry:
			f.size = int64(e.InformationLength)
			f.modTime = convertTimestamp(e.ModificationTime)
		case *ExtendedFileEntry:
			f.size = int64(e.InformationLength)
			f.modTime = convertTimestamp(e.ModificationTime)
		}
	})
}

// Size is the file length in bytes, 0 if its entry cannot be read.
func (f *File) Size() int64 {
	f.stat()
	return f.size
}

func (f *File) ModTime() time.Time {
	f.stat()
	return f.modTime
}

// ReadDirectory resolves dirPath from the root, case-insensitively.
func (r *Reader) ReadDirectory(dirPath string) (*Directory, error) {
	if r.fileSetDesc == nil {
		return nil, errors.New("file set descriptor not loaded")
	}
	current := &Directory{reader: r, path: "/", icb: r.rootICB}
	if err := current.ensureEntries(); err != nil {
		return nil, err
	}

	for _, part := range strings.Split(strings.Trim(dirPath, "/"), "/") {
		if part == "" {
			continue
		}
		next, err := current.subdirectory(part)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}

func (d *Directory) subdirectory(name string) (*Directory, error) {
	dirs, err := d.GetDirectories()
	if err != nil {
		return nil, err
	}
	for _, dir := range dirs {
		if strings.EqualFold(dir.Name, name) {
			if err := dir.ensureEntries(); err != nil {
				return nil, err
			}
			return dir, nil
		}
	}
	return nil, fmt.Errorf("directory not found: %s", name)
}

// FindFile resolves a file path from the root, case-insensitively.
func (r *Reader) FindFile(filePath string) (*File, error) {
	dirPath, name := path.Split("/" + strings.Trim(filePath, "/"))
	dir, err := r.ReadDirectory(dirPath)
	if err != nil {
		return nil, err
	}
	files, err := dir.GetFiles()
	if err != nil {
		return nil, err
	}
	for _, file := range files {
		if strings.EqualFold(file.Name, name) {
			return file, nil
		}
	}
	return nil, fmt.Errorf("file not found: %s", name)
}

func (d *Directory) readEntries() error {
	entry, data, err := d.reader.readFileEntryWithData(d.icb)
	if err != nil {
		return err
	}
	layout := entryLayout(entry)
	if layout.allocType() == AllocEmbedded {
		start := layout.base + int64(layout.extAttrLength)
		end := start + int64(layout.allocLength)
		if end > int64(len(data)) {
			return fmt.Errorf("embedded directory data out of range (offset=%d length=%d)", start, layout.allocLength)
		}
		d.entries = parseFileIdentifiers(data[start:end])
		return nil
	}

	for _, ad := range d.reader.readAllocationDescriptors(entry, data, d.icb.ExtentLocation.PartitionReferenceNumber) {
		location, err := d.reader.resolvePartitionBlock(ad.pref, ad.lbn)
		if err != nil {
			return err
		}
		buf := make([]byte, ad.length)
		if err := d.reader.readFullAt(int64(location)*int64(d.reader.blockSize), buf); err != nil {
			return err
		}
		d.entries = append(d.entries, parseFileIdentifiers(buf)...)
	}
	return nil
}

// parseFileIdentifiers walks the 4-byte aligned FIDs of directory data.
func parseFileIdentifiers(data []byte) []*FileIdentifierDescriptor {
	var fids []*FileIdentifierDescriptor
	for off := 0; off+fidHeaderSize <= len(data); {
		b := data[off:]
		if binary.LittleEndian.Uint16(b[0:2]) != TagFileIdentifier {
			break
		}
		fid := &FileIdentifierDescriptor{
			FileCharacteristics: b[18],
			ICB: LongAD{
				ExtentLength: binary.LittleEndian.Uint32(b[20:24]),
				ExtentLocation: LBAddr{
					LogicalBlockNumber:       binary.LittleEndian.Uint32(b[24:28]),
					PartitionReferenceNumber: binary.LittleEndian.Uint16(b[28:30]),
				},
			},
		}
		copy(fid.ICB.ImplementationUse[:], b[30:36])
		nameLength := int(b[19])
		implLength := int(binary.LittleEndian.Uint16(b[36:38]))
		nameStart := fidHeaderSize + implLength
		if nameLength > 0 && nameStart+nameLength <= len(b) {
			fid.fileName = decodeString(b[nameStart : nameStart+nameLength])
		}
		fids = append(fids, fid)

		size := (fidHeaderSize + implLength + nameLength + 3) &^ 3
		off += size
	}
	return fids
}

// GetFiles lists regular files, skipping deleted entries.
func (d *Directory) GetFiles() ([]*File, error) {
	if err := d.ensureEntries(); err != nil {
		return nil, err
	}
	var files []*File
	for _, entry := range d.entries {
		if entry.FileCharacteristics&(FileCharDirectory|FileCharParent|FileCharDeleted) != 0 || entry.fileName == "" {
			continue
		}
		files = append(files, &File{reader: d.reader, Name: entry.fileName, icb: entry.ICB})
	}
	return files, nil
}

// GetDirectories lists subdirectories, skipping the parent entry.
func (d *Directory) GetDirectories() ([]*Directory, error) {
	if err := d.ensureEntries(); err != nil {
		return nil, err
	}
	var dirs []*Directory
	for _, entry := range d.entries {
		if entry.FileCharacteristics&FileCharDirectory == 0 ||
			entry.FileCharacteristics&(FileCharParent|FileCharDeleted) != 0 {
			continue
		}
		dirs = append(dirs, &Directory{
			reader: d.reader,
			Name:   entry.fileName,
			path:   path.Join(d.path, entry.fileName),
			icb:    entry.ICB,
		})
	}
	return dirs, nil
}

// fileEntryLayout holds the fields shared by both file entry kinds.
type fileEntryLayout struct {
	base          int64
	flags         uint16
	infoLength    uint64
	extAttrLength uint32
	allocLength   uint32
}

func (l fileEntryLayout) allocType() uint16 { return l.flags & 0x7 }

func entryLayout(entry any) fileEntryLayout {
	switch e := entry.(type) {
	case *FileEntry:
		return fileEntryLayout{fileEntrySize, e.ICBTag.Flags, e.InformationLength, e.LengthOfExtendedAttributes, e.LengthOfAllocationDescriptors}
	case *ExtendedFileEntry:
		return fileEntryLayout{extendedFileEntrySize, e.ICBTag.Flags, e.InformationLength, e.LengthOfExtendedAttributes, e.LengthOfAllocationDescriptors}
	}
	return fileEntryLayout{}
}

type allocationDescriptor struct {
	length uint32
	lbn    uint32
	pref   uint16
}

func (r *Reader) readFileEntryWithData(icb LongAD) (any, []byte, error) {
	location, err := r.resolveLBAddr(icb.ExtentLocation)
	if err != nil {
		return nil, nil, err
	}
	block, err := r.readBlock(location)
	if err != nil {
		return nil, nil, err
	}

	switch tag := binary.LittleEndian.Uint16(block[0:2]); tag {
	case TagFile:
		var fe FileEntry
		if err := decode(block, &fe); err != nil {
			return nil, nil, err
		}
		return &fe, block, nil
	case TagExtendedFileEntry:
		var efe ExtendedFileEntry
		if err := decode(block, &efe); err != nil {
			return nil, nil, err
		}
		return &efe, block, nil
	default:
		return nil, nil, fmt.Errorf("unexpected tag type: %d at location %d", tag, location)
	}
}

func (r *Reader) readFileEntry(icb LongAD) (any, error) {
	entry, _, err := r.readFileEntryWithData(icb)
	return entry, err
}

// readAllocationDescriptors extracts short or long allocation descriptors.
// Short descriptors carry no partition reference and use defaultPref.
func (r *Reader) readAllocationDescriptors(entry any, entryData []byte, defaultPref uint16) []allocationDescriptor {
	layout := entryLayout(entry)
	if layout.allocLength == 0 {
		return nil
	}
	start := layout.base + int64(layout.extAttrLength)
	end := start + int64(layout.allocLength)
	if end > int64(len(entryData)) {
		return nil
	}
	data := entryData[start:end]

	var descs []allocationDescriptor
	switch layout.allocType() {
	case AllocShort:
		for off := 0; off+8 <= len(data); off += 8 {
			length := binary.LittleEndian.Uint32(data[off:]) & extentLengthMask
			if length == 0 {
				break
			}
			descs = append(descs, allocationDescriptor{
				length: length,
				lbn:    binary.LittleEndian.Uint32(data[off+4:]),
				pref:   defaultPref,
			})
		}
	case AllocLong:
		for off := 0; off+16 <= len(data); off += 16 {
			length := binary.LittleEndian.Uint32(data[off:]) & extentLengthMask
			if length == 0 {
				break
			}
			descs = append(descs, allocationDescriptor{
				length: length,
				lbn:    binary.LittleEndian.Uint32(data[off+4:]),
				pref:   binary.LittleEndian.Uint16(data[off+8:]),
			})
		}
	}
	return descs
}

// Open returns a reader over the file's extents.
func (f *File) Open() (*FileReader, error) {
	entry, data, err := f.reader.readFileEntryWithData(f.icb)
	if err != nil {
		return nil, err
	}
	layout := entryLayout(entry)
	size := int64(layout.infoLength)

	if layout.allocType() == AllocEmbedded {
		start := layout.base + int64(layout.extAttrLength)
		if start+size > int64(len(data)) {
			return nil, fmt.Errorf("%s: embedded data out of range", f.Name)
		}
		return &FileReader{inline: data[start : start+size], size: size}, nil
	}

	var exts []extent
	var fileOff int64
	for _, ad := range f.reader.readAllocationDescriptors(entry, data, f.icb.ExtentLocation.PartitionReferenceNumber) {
		if fileOff >= size {
			break
		}
		loc, err := f.reader.resolvePartitionBlock(ad.pref, ad.lbn)
		if err != nil {
			return nil, err
		}
		segLen := min(int64(ad.length), size-fileOff)
		exts = append(exts, extent{
			fileStart: fileOff,
			fileEnd:   fileOff + segLen,
			physOff:   int64(loc) * int64(f.reader.blockSize),
		})
		fileOff += segLen
	}
	if fileOff < size {
		return nil, fmt.Errorf("%s: extents cover %d of %d bytes", f.Name, fileOff, size)
	}
	return &FileReader{reader: f.reader, extents: exts, size: size}, nil
}

type extent struct {
	fileStart int64
	fileEnd   int64
	physOff   int64
}

// FileReader reads a file's bytes sequentially or by offset. Closing it
// leaves the image open.
type FileReader struct {
	reader  *Reader
	extents []extent
	inline  []byte
	size    int64
	pos     int64
}

func (fr *FileReader) Size() int64 { return fr.size }

func (fr *FileReader) Read(p []byte) (int, error) {
	n, err := fr.ReadAt(p, fr.pos)
	fr.pos += int64(n)
	if err == io.EOF && n > 0 {
		err = nil
	}
	return n, err
}

func (fr *FileReader) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("udf: negative offset")
	}
	if off >= fr.size {
		return 0, io.EOF
	}
	want := len(p)
	if remaining := fr.size - off; int64(want) > remaining {
		want = int(remaining)
	}
	if fr.inline != nil {
		n := copy(p[:want], fr.inline[off:])
		return n, eofIfShort(n, len(p))
	}

	n := 0
	for _, ex := range fr.extents {
		if n == want {
			break
		}
		pos := off + int64(n)
		if pos >= ex.fileEnd || pos < ex.fileStart {
			continue
		}
		chunk := min(int64(want-n), ex.fileEnd-pos)
		nn, err := fr.reader.file.ReadAt(p[n:n+int(chunk)], ex.physOff+(pos-ex.fileStart))
		n += nn
		if err != nil && !(err == io.EOF && int64(nn) == chunk) {
			return n, err
		}
	}
	return n, eofIfShort(n, len(p))
}

func eofIfShort(n, want int) error {
	if n < want {
		return io.EOF
	}
	return nil
}

func (fr *FileReader) Close() error { return nil }

func convertTimestamp(ts Timestamp) time.Time {
	if ts.Year == 0 {
		return time.Time{}
	}
	return time.Date(
		int(ts.Year),
		time.Month(ts.Month),
		int(ts.Day),
		int(ts.Hour),
		int(ts.Minute),
		int(ts.Second),
		int(ts.Centiseconds)*10_000_000+int(ts.HundredsOfMicroseconds)*100_000+int(ts.Microseconds)*1000,
		time.UTC,
	)
}
