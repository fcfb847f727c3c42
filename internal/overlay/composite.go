package overlay

import (
	"image"

	"golang.org/x/image/draw"
)

// Composite paints g over dst, plane 0 first. Planes whose size differs
// from dst are scaled to fit.
func Composite(dst draw.Image, g Group) {
	db := dst.Bounds()
	for _, p := range g.Planes {
		if p.W <= 0 || p.H <= 0 || len(p.Images) == 0 {
			continue
		}
		if p.W == db.Dx() && p.H == db.Dy() {
			for _, img := range p.Images {
				b := img.Bounds()
				draw.Draw(dst, b.Add(db.Min), img.Pix, b.Min, draw.Over)
			}
			continue
		}
		layer := image.NewRGBA(image.Rect(0, 0, p.W, p.H))
		for _, img := range p.Images {
			draw.Draw(layer, img.Bounds(), img.Pix, img.Bounds().Min, draw.Over)
		}
		draw.BiLinear.Scale(dst, db, layer, layer.Bounds(), draw.Over, nil)
	}
}
