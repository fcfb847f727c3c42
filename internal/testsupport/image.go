package testsupport

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

const (
	sector = 2048
	// imagePartition is the first sector of the image's only partition.
	imagePartition = 257
)

type imageNode struct {
	name     string
	path     string
	dir      bool
	size     int64
	children []*imageNode
	parent   *imageNode
	entry    uint32
	data     uint32
}

// WriteImage packs the tree below dir into a UDF image at path, the way
// BD-ROM discs are mastered: one type 1 partition, 8-bit names and short
// allocation descriptors.
func WriteImage(t testing.TB, dir, path, label string) string {
	t.Helper()
	mustWrite(t, path, BuildImage(t, dir, label))
	return path
}

// BuildImage returns the UDF image of the tree below dir.
func BuildImage(t testing.TB, dir, label string) []byte {
	t.Helper()
	root := &imageNode{path: dir, dir: true}
	if err := scanImageTree(root); err != nil {
		t.Fatal(err)
	}
	root.parent = root

	next := uint32(1) // block 0 holds the file set descriptor
	var assign func(n *imageNode)
	assign = func(n *imageNode) {
		n.entry = next
		next++
		if n.dir {
			n.size = int64(len(directoryData(n)))
		}
		n.data = next
		next += uint32((n.size + sector - 1) / sector)
		for _, c := range n.children {
			assign(c)
		}
	}
	assign(root)

	img := make([]byte, (imagePartition+int(next))*sector)
	blk := func(n uint32) []byte { return img[int(n)*sector : int(n+1)*sector] }
	part := func(lbn uint32) []byte { return blk(imagePartition + lbn) }

	copy(blk(16)[1:], "BEA01")
	copy(blk(17)[1:], "NSR03")
	copy(blk(18)[1:], "TEA01")
	for _, s := range []uint32{16, 17, 18} {
		blk(s)[6] = 1
	}

	pvd := blk(32)
	putTag(pvd, 1, 32)
	pvd[24] = 8
	copy(pvd[25:55], label)
	pvd[55] = byte(len(label) + 1)

	pd := blk(33)
	putTag(pd, 5, 33)
	binary.LittleEndian.PutUint32(pd[188:], imagePartition)
	binary.LittleEndian.PutUint32(pd[192:], next)

	lvd := blk(34)
	putTag(lvd, 6, 34)
	binary.LittleEndian.PutUint32(lvd[212:], sector)
	binary.LittleEndian.PutUint32(lvd[248:], sector) // file set descriptor at block 0
	binary.LittleEndian.PutUint32(lvd[264:], 6)
	binary.LittleEndian.PutUint32(lvd[268:], 1)
	copy(lvd[440:], []byte{1, 6, 1, 0, 0, 0})

	putTag(blk(35), 8, 35)

	avdp := blk(256)
	putTag(avdp, 2, 256)
	binary.LittleEndian.PutUint32(avdp[16:], 4*sector)
	binary.LittleEndian.PutUint32(avdp[20:], 32)

	fsd := part(0)
	putTag(fsd, 256, 0)
	binary.LittleEndian.PutUint32(fsd[400:], sector)
	binary.LittleEndian.PutUint32(fsd[404:], root.entry)

	var write func(n *imageNode)
	write = func(n *imageNode) {
		fe := part(n.entry)
		putTag(fe, 261, n.entry)
		fe[27] = 5
		if n.dir {
			fe[27] = 4
		}
		binary.LittleEndian.PutUint16(fe[84+2:], 2024)
		fe[84+4], fe[84+5] = 1, 1
		binary.LittleEndian.PutUint64(fe[56:], uint64(n.size))
		if n.size > 0 {
			binary.LittleEndian.PutUint32(fe[172:], 8)
			binary.LittleEndian.PutUint32(fe[176:], uint32(n.size))
			binary.LittleEndian.PutUint32(fe[180:], n.data)
		}

		off := (imagePartition + int(n.data)) * sector
		if n.dir {
			copy(img[off:], directoryData(n))
			for _, c := range n.children {
				write(c)
			}
			return
		}
		data, err := os.ReadFile(n.path)
		if err != nil {
			t.Fatal(err)
		}
		copy(img[off:], data)
	}
	write(root)
	return img
}

func scanImageTree(n *imageNode) error {
	entries, err := os.ReadDir(n.path)
	if err != nil {
		return err
	}
	for _, e := range entries {
		c := &imageNode{name: e.Name(), path: filepath.Join(n.path, e.Name()), dir: e.IsDir(), parent: n}
		if c.dir {
			if err := scanImageTree(c); err != nil {
				return err
			}
		} else {
			info, err := e.Info()
			if err != nil {
				return err
			}
			c.size = info.Size()
		}
		n.children = append(n.children, c)
	}
	return nil
}

// directoryData encodes the parent entry followed by one file identifier
// descriptor per child.
func directoryData(n *imageNode) []byte {
	var out []byte
	out = appendFID(out, "", 0x0A, n.parent.entry)
	for _, c := range n.children {
		var chars byte
		if c.dir {
			chars = 0x02
		}
		out = appendFID(out, c.name, chars, c.entry)
	}
	return out
}

func appendFID(out []byte, name string, chars byte, entry uint32) []byte {
	nameLength := 0
	if name != "" {
		nameLength = 1 + len(name)
	}
	fid := make([]byte, (38+nameLength+3)&^3)
	binary.LittleEndian.PutUint16(fid[0:], 257)
	binary.LittleEndian.PutUint16(fid[16:], 1)
	fid[18] = chars
	fid[19] = byte(nameLength)
	binary.LittleEndian.PutUint32(fid[20:], sector)
	binary.LittleEndian.PutUint32(fid[24:], entry)
	if name != "" {
		fid[38] = 8
		copy(fid[39:], name)
	}
	return append(out, fid...)
}

func putTag(b []byte, id uint16, location uint32) {
	binary.LittleEndian.PutUint16(b[0:], id)
	binary.LittleEndian.PutUint16(b[2:], 3)
	binary.LittleEndian.PutUint32(b[12:], location)
}
