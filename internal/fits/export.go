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
	"bufio"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"math"
	"os"

	"github.com/pkg/errors"
	"golang.org/x/image/tiff"
)

// Scaling from data values to the unit interval for export
type Scaling struct {
	Min, Max float32 // data values mapped to black and white
	Gamma    float32 // output gamma, 1 for linear
}

// Maps a data value to [0,1]. NaNs become black
func (s Scaling) apply(v, scale float32, gammaInv float64) float32 {
	v = (v - s.Min) * scale
	// replace NaNs with zeros for export, else JPG output breaks
	if math.IsNaN(float64(v)) || v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	if gammaInv != 1.0 {
		v = float32(math.Pow(float64(v), gammaInv))
	}
	return v
}

// Renders the image as a Go image with the given scaling, 8 or 16 bits per channel.
// Monochrome images yield gray, three channel images yield RGB
func (f *Image) toGoImage(s Scaling, bits16 bool) (image.Image, error) {
	width, height, channels := f.Width(), f.Height(), f.Channels()
	if width <= 0 || height <= 0 || (channels != 1 && channels != 3) || len(f.Data) < width*height*channels {
		return nil, errors.Wrapf(ErrInvalidImage, "%d: cannot export dimensions %s", f.ID, f.DimensionsToString())
	}
	if s.Gamma <= 0 {
		s.Gamma = 1
	}
	scale := float32(1)
	if s.Max > s.Min {
		scale = 1 / (s.Max - s.Min)
	}
	gammaInv := float64(1 / s.Gamma)
	size := width * height
	rect := image.Rect(0, 0, width, height)

	switch {
	case channels == 1 && !bits16:
		img := image.NewGray(rect)
		for i, v := range f.Data[:size] {
			img.Pix[i] = uint8(s.apply(v, scale, gammaInv) * 255)
		}
		return img, nil
	case channels == 1 && bits16:
		img := image.NewGray16(rect)
		for i, v := range f.Data[:size] {
			img.SetGray16(i%width, i/width, color.Gray16{uint16(s.apply(v, scale, gammaInv) * 65535)})
		}
		return img, nil
	case !bits16:
		img := image.NewRGBA(rect)
		for i := 0; i < size; i++ {
			r := s.apply(f.Data[i], scale, gammaInv)
			g := s.apply(f.Data[i+size], scale, gammaInv)
			b := s.apply(f.Data[i+2*size], scale, gammaInv)
			img.SetRGBA(i%width, i/width, color.RGBA{uint8(r * 255), uint8(g * 255), uint8(b * 255), 255})
		}
		return img, nil
	default:
		img := image.NewRGBA64(rect)
		for i := 0; i < size; i++ {
			r := s.apply(f.Data[i], scale, gammaInv)
			g := s.apply(f.Data[i+size], scale, gammaInv)
			b := s.apply(f.Data[i+2*size], scale, gammaInv)
			img.SetRGBA64(i%width, i/width, color.RGBA64{uint16(r * 65535), uint16(g * 65535), uint16(b * 65535), 65535})
		}
		return img, nil
	}
}

// Write the image to JPG, using the given scaling and quality
func (f *Image) WriteJPG(writer io.Writer, s Scaling, quality int) error {
	img, err := f.toGoImage(s, false)
	if err != nil {
		return err
	}
	return jpeg.Encode(writer, img, &jpeg.Options{Quality: quality})
}

// Write the image to 16-bit TIFF, using the given scaling
func (f *Image) WriteTIFF16(writer io.Writer, s Scaling) error {
	img, err := f.toGoImage(s, true)
	if err != nil {
		return err
	}
	return tiff.Encode(writer, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
}

// Write the image to a JPG file, using the given scaling and quality
func (f *Image) WriteJPGToFile(fileName string, s Scaling, quality int) error {
	return writeToFile(fileName, func(w io.Writer) error { return f.WriteJPG(w, s, quality) })
}

// Write the image to a 16-bit TIFF file, using the given scaling
func (f *Image) WriteTIFF16ToFile(fileName string, s Scaling) error {
	return writeToFile(fileName, func(w io.Writer) error { return f.WriteTIFF16(w, s) })
}

func writeToFile(fileName string, write func(w io.Writer) error) error {
	file, err := os.Create(fileName)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	if err := write(writer); err != nil {
		return err
	}
	return writer.Flush()
}
