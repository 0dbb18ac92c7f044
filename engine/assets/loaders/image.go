package loaders

import (
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/cockroachdb/errors"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// ImageLoader decodes PNG, JPEG, BMP and TIFF files into RGBA8 pixels.
type ImageLoader struct {
	// FlipY stores the rows bottom first.
	FlipY bool
}

func (il *ImageLoader) Load(path string) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open image %s", path)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "decode image %s", path)
	}

	data := toRGBA(img, il.FlipY)
	return &Resource{
		Name:     format,
		FullPath: path,
		Type:     ResourceTypeImage,
		DataSize: uint64(len(data.Pixels)),
		Data:     data,
	}, nil
}

func toRGBA(img image.Image, flipY bool) *ImageData {
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	if flipY {
		rowSize := rgba.Stride
		row := make([]byte, rowSize)
		for top, bottom := 0, bounds.Dy()-1; top < bottom; top, bottom = top+1, bottom-1 {
			a := rgba.Pix[top*rowSize : (top+1)*rowSize]
			b := rgba.Pix[bottom*rowSize : (bottom+1)*rowSize]
			copy(row, a)
			copy(a, b)
			copy(b, row)
		}
	}

	return &ImageData{
		Width:        uint32(bounds.Dx()),
		Height:       uint32(bounds.Dy()),
		ChannelCount: 4,
		Pixels:       rgba.Pix,
	}
}
