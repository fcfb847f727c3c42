// Package overlay keeps the presentation graphics (PG) and interactive
// graphics (IG) planes of a Blu-ray title and hands their contents to a
// renderer.
package overlay

import (
	"image"
	"image/color"
	"sync"

	"github.com/op/go-logging"

	"github.com/s0up4200/go-bdplay/internal/bdnav"
)

var log = logging.MustGetLogger("overlay")

const planeCount = 2

// Image is a decoded overlay bitmap. Pix bounds are plane coordinates.
// Images are never modified once built.
type Image struct {
	Pix image.Image
	PTS int64
}

func (i *Image) Bounds() image.Rectangle {
	return i.Pix.Bounds()
}

// Plane is a snapshot of one plane. Images are in paint order.
type Plane struct {
	W, H   int
	Images []*Image
}

// Group is what one flush delivers: both planes at PTS.
type Group struct {
	PTS    int64
	Planes [planeCount]Plane
}

// Sink receives flushed groups. It is called with the manager's lock held
// and must not call back into the manager.
type Sink func(Group)

type Manager struct {
	mu     sync.Mutex
	planes [planeCount]Plane
	argb   [planeCount]*image.NRGBA
	dirty  bool
	sink   Sink
}

func New(sink Sink) *Manager {
	return &Manager{sink: sink}
}

func valid(plane bdnav.OverlayPlane) bool {
	return int(plane) < planeCount
}

// Init resizes plane and drops its images.
func (m *Manager) Init(plane bdnav.OverlayPlane, w, h int) {
	if !valid(plane) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.init(plane, w, h)
}

func (m *Manager) init(plane bdnav.OverlayPlane, w, h int) {
	m.planes[plane] = Plane{W: max(w, 0), H: max(h, 0)}
	m.argb[plane] = nil
	m.dirty = true
	log.Debugf("plane %d init %dx%d", plane, w, h)
}

// Clear removes the rectangle from every image of plane. Parts of an image
// outside the rectangle are kept as sub-images sharing its pixels.
func (m *Manager) Clear(plane bdnav.OverlayPlane, x, y, w, h int) {
	if !valid(plane) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.clear(plane, image.Rect(x, y, x+w, y+h))
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

func (m *Manager) clear(plane bdnav.OverlayPlane, r image.Rectangle) {
	p := &m.planes[plane]
	var kept []*Image
	for _, img := range p.Images {
		b := img.Bounds()
		cut := b.Intersect(r)
		if cut.Empty() {
			kept = append(kept, img)
			continue
		}
		m.dirty = true
		sub, ok := img.Pix.(subImager)
		if !ok {
			continue
		}
		for _, part := range remainder(b, cut) {
			kept = append(kept, &Image{Pix: sub.SubImage(part), PTS: img.PTS})
		}
	}
	p.Images = kept

	if buf := m.argb[plane]; buf != nil {
		cut := buf.Bounds().Intersect(r)
		for y := cut.Min.Y; y < cut.Max.Y; y++ {
			row := buf.Pix[buf.PixOffset(cut.Min.X, y):buf.PixOffset(cut.Max.X, y)]
			clear(row)
		}
	}
}

// remainder splits b minus cut (cut inside b) into at most four rectangles:
// the bands above and below cut, then the parts left and right of it.
func remainder(b, cut image.Rectangle) []image.Rectangle {
	var parts []image.Rectangle
	add := func(r image.Rectangle) {
		if !r.Empty() {
			parts = append(parts, r)
		}
	}
	add(image.Rect(b.Min.X, b.Min.Y, b.Max.X, cut.Min.Y))
	add(image.Rect(b.Min.X, cut.Max.Y, b.Max.X, b.Max.Y))
	add(image.Rect(b.Min.X, cut.Min.Y, cut.Min.X, cut.Max.Y))
	add(image.Rect(cut.Max.X, cut.Min.Y, b.Max.X, cut.Max.Y))
	return parts
}

// Handle applies a palette overlay command. A nil overlay closes both
// planes.
func (m *Manager) Handle(ov *bdnav.Overlay) {
	if ov == nil {
		m.Close()
		return
	}
	if !valid(ov.Plane) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rect := image.Rect(int(ov.X), int(ov.Y), int(ov.X)+int(ov.W), int(ov.Y)+int(ov.H))
	switch ov.Cmd {
	case bdnav.OverlayInit:
		m.init(ov.Plane, int(ov.W), int(ov.H))
	case bdnav.OverlayClose:
		m.init(ov.Plane, 0, 0)
	case bdnav.OverlayClear, bdnav.OverlayHide:
		m.planes[ov.Plane].Images = nil
		m.dirty = true
	case bdnav.OverlayWipe:
		m.clear(ov.Plane, rect)
	case bdnav.OverlayDraw:
		m.clear(ov.Plane, rect)
		if rect.Empty() {
			return
		}
		p := &m.planes[ov.Plane]
		p.Images = append(p.Images, &Image{Pix: decodeRLE(rect, ov.Palette, ov.Image), PTS: ov.PTS})
		m.dirty = true
	case bdnav.OverlayFlush:
		m.flush(ov.PTS)
	default:
		log.Warningf("plane %d: unknown overlay command %s", ov.Plane, ov.Cmd)
	}
}

// decodeRLE paints runs into a paletted image at rect. A run of length 0
// moves to the next line.
func decodeRLE(rect image.Rectangle, palette []bdnav.PaletteEntry, runs []bdnav.RLEElem) *image.Paletted {
	pal := make(color.Palette, 256)
	for i := range pal {
		pal[i] = color.NYCbCrA{}
	}
	for i, e := range palette {
		if i >= len(pal) {
			break
		}
		pal[i] = color.NYCbCrA{YCbCr: color.YCbCr{Y: e.Y, Cb: e.Cb, Cr: e.Cr}, A: e.T}
	}
	img := image.NewPaletted(rect, pal)
	w, h := rect.Dx(), rect.Dy()
	x, y := 0, 0
	for _, run := range runs {
		if y >= h {
			break
		}
		if run.Len == 0 {
			x, y = 0, y+1
			continue
		}
		idx := uint8(0)
		if run.Color < 256 {
			idx = uint8(run.Color)
		}
		n := min(int(run.Len), w-x)
		if n <= 0 {
			continue
		}
		off := img.PixOffset(rect.Min.X+x, rect.Min.Y+y)
		for i := range n {
			img.Pix[off+i] = idx
		}
		x += n
	}
	return img
}

// HandleARGB applies a true-color overlay command. Drawing goes to a
// per-plane buffer that replaces the plane's images on flush.
func (m *Manager) HandleARGB(ov *bdnav.ARGBOverlay) {
	if ov == nil {
		m.Close()
		return
	}
	if !valid(ov.Plane) {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	rect := image.Rect(int(ov.X), int(ov.Y), int(ov.X)+int(ov.W), int(ov.Y)+int(ov.H))
	switch ov.Cmd {
	case bdnav.OverlayInit:
		m.init(ov.Plane, int(ov.W), int(ov.H))
		m.argb[ov.Plane] = image.NewNRGBA(image.Rect(0, 0, int(ov.W), int(ov.H)))
	case bdnav.OverlayClose:
		m.init(ov.Plane, 0, 0)
	case bdnav.OverlayClear, bdnav.OverlayWipe, bdnav.OverlayHide:
		m.clear(ov.Plane, rect)
	case bdnav.OverlayDraw:
		buf := m.argb[ov.Plane]
		if buf == nil {
			return
		}
		stride := int(ov.Stride)
		if stride == 0 {
			stride = int(ov.W)
		}
		cut := rect.Intersect(buf.Bounds())
		for y := cut.Min.Y; y < cut.Max.Y; y++ {
			for x := cut.Min.X; x < cut.Max.X; x++ {
				i := (y-rect.Min.Y)*stride + (x - rect.Min.X)
				if i >= len(ov.Argb) {
					break
				}
				v := ov.Argb[i]
				buf.SetNRGBA(x, y, color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: uint8(v >> 24)})
			}
		}
	case bdnav.OverlayFlush:
		if buf := m.argb[ov.Plane]; buf != nil {
			snap := image.NewNRGBA(buf.Bounds())
			copy(snap.Pix, buf.Pix)
			m.planes[ov.Plane].Images = []*Image{{Pix: snap, PTS: ov.PTS}}
			m.dirty = true
		}
		m.flush(ov.PTS)
	default:
		log.Warningf("plane %d: unknown argb command %s", ov.Plane, ov.Cmd)
	}
}

// Flush delivers both planes to the sink.
func (m *Manager) Flush(pts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.flush(pts)
}

// FlushPending delivers both planes only if they changed since the last
// flush.
func (m *Manager) FlushPending(pts int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.dirty {
		m.flush(pts)
	}
}

func (m *Manager) flush(pts int64) {
	m.dirty = false
	if m.sink == nil {
		return
	}
	g := Group{PTS: pts}
	for i := range m.planes {
		g.Planes[i] = m.snapshot(i)
	}
	m.sink(g)
}

func (m *Manager) snapshot(i int) Plane {
	p := m.planes[i]
	p.Images = append([]*Image(nil), p.Images...)
	return p
}

// Close empties both planes and resets them to 0x0.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.planes {
		m.planes[i] = Plane{}
		m.argb[i] = nil
	}
	m.dirty = true
}

// Plane returns a snapshot of plane.
func (m *Manager) Plane(plane bdnav.OverlayPlane) Plane {
	if !valid(plane) {
		return Plane{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot(int(plane))
}

// Len returns the number of images on plane.
func (m *Manager) Len(plane bdnav.OverlayPlane) int {
	if !valid(plane) {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.planes[plane].Images)
}
