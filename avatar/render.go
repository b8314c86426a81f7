package avatar

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// Palette holds the background colours a tile is drawn on.
var Palette = []color.RGBA{
	{125, 52, 92, 255},
	{255, 230, 181, 255},
	{223, 252, 222, 255},
	{157, 177, 209, 255},
	{55, 125, 52, 255},
	{209, 157, 186, 255},
	{209, 192, 157, 255},
	{37, 61, 36, 255},
	{52, 80, 125, 255},
	{186, 168, 76, 255},
}

var (
	fontOnce sync.Once
	boldFont *opentype.Font
	fontErr  error
)

func loadFont() (*opentype.Font, error) {
	fontOnce.Do(func() {
		boldFont, fontErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, fontErr
}

// TextColor picks white on dark backgrounds and black on light ones,
// using the relative luminance 0.2126R + 0.7152G + 0.0722B.
func TextColor(bg color.RGBA) color.RGBA {
	lum := 0.2126*float64(bg.R) + 0.7152*float64(bg.G) + 0.0722*float64(bg.B)
	if lum < 128 {
		return color.RGBA{255, 255, 255, 255}
	}
	return color.RGBA{0, 0, 0, 255}
}

// Render draws initial centred on a size x size square filled with bg and
// returns the PNG encoding.
func Render(initial string, bg color.RGBA, size int) ([]byte, error) {
	f, err := loadFont()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{
		Size:    float64(size) / 2,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		return nil, fmt.Errorf("new face: %w", err)
	}
	defer face.Close()

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)

	d := &font.Drawer{Dst: img, Src: image.NewUniform(TextColor(bg)), Face: face}
	bounds, _ := d.BoundString(initial)
	w := bounds.Max.X - bounds.Min.X
	h := bounds.Max.Y - bounds.Min.Y
	d.Dot = fixed.Point26_6{
		X: (fixed.I(size)-w)/2 - bounds.Min.X,
		Y: (fixed.I(size)-h)/2 - bounds.Min.Y,
	}
	d.DrawString(initial)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
