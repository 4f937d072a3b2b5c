// Copyright (C) 2020 Markus L. Noga
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package fits

import (
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"io"

	"github.com/pkg/errors"
	_ "golang.org/x/image/bmp"  // register decoder
	_ "golang.org/x/image/tiff" // register decoder

	"github.com/mlnoga/fibrelight/internal/stats"
)

// Rec. 709 luminance weights
const (
	lumR = 0.2126
	lumG = 0.7152
	lumB = 0.0722
)

// Decodes a TIFF, PNG, JPEG or BMP image from the reader into a monochrome image with values in [0,1].
// Colour images are converted to luminance
func (f *Image) ReadGoImage(r io.Reader) error {
	img, format, err := image.Decode(r)
	if err != nil {
		return errors.Wrapf(ErrInvalidImage, "%d: %v", f.ID, err)
	}
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidImage, "%d: empty %s image", f.ID, format)
	}

	data := make([]float32, width*height)
	switch src := img.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[y*width+x] = float32(src.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) / 255
			}
		}
	case *image.Gray16:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				data[y*width+x] = float32(src.Gray16At(bounds.Min.X+x, bounds.Min.Y+y).Y) / 65535
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
				data[y*width+x] = (lumR*float32(r) + lumG*float32(g) + lumB*float32(b)) / 65535
			}
		}
	}

	f.Bitpix, f.Bzero, f.Bscale = -32, 0, 1
	f.Naxisn = []int32{int32(width), int32(height)}
	f.Pixels = int32(width * height)
	f.Data = data
	f.Stats = stats.NewStats(data, width)
	return nil
}

// Converts a three channel RGB image into a single channel luminance image, in place
func (f *Image) ToLuminance() {
	if f.Channels() != 3 {
		return
	}
	size := f.Width() * f.Height()
	lum := make([]float32, size)
	rs, gs, bs := f.Data[:size], f.Data[size:2*size], f.Data[2*size:3*size]
	for i := range lum {
		lum[i] = lumR*rs[i] + lumG*gs[i] + lumB*bs[i]
	}
	f.Naxisn = f.Naxisn[:2]
	f.Pixels = int32(size)
	f.Data = lum
	f.Stats = stats.NewStats(lum, f.Width())
}
