package texture

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"

	"github.com/cockroachdb/errors"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// TextureConfig is tightly packed RGBA8 pixel data ready for upload.
type TextureConfig struct {
	Width  int
	Height int
	Data   []uint8
}

func FromImage(img image.Image) *TextureConfig {
	bounds := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != 4*bounds.Dx() || bounds.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	}

	return &TextureConfig{
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Data:   rgba.Pix,
	}
}

// Decode reads a PNG, JPEG, BMP, TIFF or WebP image.
func Decode(reader io.Reader) (*TextureConfig, error) {
	img, format, err := image.Decode(reader)
	if err != nil {
		return nil, errors.Wrap(err, "decode image")
	}
	if img.Bounds().Empty() {
		return nil, errors.Newf("empty %s image", format)
	}
	return FromImage(img), nil
}

// Resize scales the texture with a bilinear filter.
func (c *TextureConfig) Resize(width, height int) *TextureConfig {
	if c.Width == width && c.Height == height {
		return c
	}
	src := &image.RGBA{Pix: c.Data, Stride: 4 * c.Width, Rect: image.Rect(0, 0, c.Width, c.Height)}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return &TextureConfig{Width: width, Height: height, Data: dst.Pix}
}

// FlatColor is a 1x1 texture, used when a material has no image.
func FlatColor(factor [4]float32) *TextureConfig {
	channel := func(v float32) uint8 {
		return uint8(min(max(v, 0), 1)*255 + 0.5)
	}
	c := color.RGBA{channel(factor[0]), channel(factor[1]), channel(factor[2]), channel(factor[3])}
	return &TextureConfig{
		Width:  1,
		Height: 1,
		Data:   []uint8{c.R, c.G, c.B, c.A},
	}
}
