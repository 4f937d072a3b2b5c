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

// Package fits holds the in-memory image container, and reads and writes
// it from and to FITS, TIFF, PNG, JPEG and BMP files.
package fits

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/mlnoga/fibrelight/internal/stats"
)

// ErrInvalidImage is returned for undecodable files and for empty or malformed image data
var ErrInvalidImage = errors.New("invalid image")

// A FITS image.
// Spec here:   https://fits.gsfc.nasa.gov/standard40/fits_standard40aa-le.pdf
// Primer here: https://fits.gsfc.nasa.gov/fits_primer.html
type Image struct {
	ID       int    // Sequential ID number, for log output. Counted upwards from 0 for input images
	FileName string // Original file name, if any, for log output.

	Header Header  // The header with all keys, values, comments, history entries etc.
	Bitpix int32   // Bits per pixel value from the header. Positive values are integral, negative floating.
	Bzero  float32 // Zero offset. True pixel value is Bzero + Bscale * Data[i].
	Bscale float32 // Value scaler. True pixel value is Bzero + Bscale * Data[i].
	Naxisn []int32 // Axis dimensions. Most quickly varying dimension first (i.e. X,Y)
	Pixels int32   // Number of pixels in the image. Product of Naxisn[]

	Data []float32 // The image data

	Stats *stats.Stats // Basic image statistics: min, mean, max
}

// Creates a FITS image initialized with empty header
func NewImage() *Image {
	return &Image{
		Header: NewHeader(),
		Bscale: 1,
	}
}

// Creates a FITS image from given naxisn. Data is not copied, allocated if nil. naxisn is deep copied
func NewImageFromNaxisn(naxisn []int32, data []float32) *Image {
	numPixels := int32(1)
	for _, naxis := range naxisn {
		numPixels *= naxis
	}
	if data == nil {
		data = make([]float32, numPixels)
	}
	width := 0
	if len(naxisn) > 0 {
		width = int(naxisn[0])
	}
	return &Image{
		Header: NewHeader(),
		Bitpix: -32,
		Bscale: 1,
		Naxisn: append([]int32(nil), naxisn...), // clone slice
		Pixels: numPixels,
		Data:   data,
		Stats:  stats.NewStats(data, width),
	}
}

// Creates a monochrome image of the given width from a data array, which is not copied.
// Inherits ID and file name from the optional source image
func NewImageFromData(data []float32, width int, src *Image) *Image {
	height := 0
	if width > 0 {
		height = len(data) / width
	}
	img := NewImageFromNaxisn([]int32{int32(width), int32(height)}, data)
	if src != nil {
		img.ID, img.FileName = src.ID, src.FileName
	}
	return img
}

// Combines single channel images into one multi-channel image.
// All channels must have the same dimensions
func NewImageFromChannels(chans [][]float32, width int, src *Image) *Image {
	height := 0
	if width > 0 && len(chans) > 0 {
		height = len(chans[0]) / width
	}
	img := NewImageFromNaxisn([]int32{int32(width), int32(height), int32(len(chans))}, nil)
	size := width * height
	for i, ch := range chans {
		copy(img.Data[i*size:(i+1)*size], ch)
	}
	if src != nil {
		img.ID, img.FileName = src.ID, src.FileName
	}
	return img
}

// FITS header data
type Header struct {
	Bools    map[string]bool
	Ints     map[string]int32
	Floats   map[string]float32
	Strings  map[string]string
	Dates    map[string]string
	Comments []string
	History  []string
	End      bool
	Length   int32
}

// Creates a FITS header initialized with empty maps and arrays
func NewHeader() Header {
	return Header{
		Bools:    make(map[string]bool),
		Ints:     make(map[string]int32),
		Floats:   make(map[string]float32),
		Strings:  make(map[string]string),
		Dates:    make(map[string]string),
		Comments: make([]string, 0),
		History:  make([]string, 0),
	}
}

const fitsBlockSize int = 2880 // Block size of FITS header and data units
const HeaderLineSize int = 80  // Line size of a FITS header

// Image width, the first axis
func (f *Image) Width() int {
	if len(f.Naxisn) == 0 {
		return 0
	}
	return int(f.Naxisn[0])
}

// Image height, the second axis
func (f *Image) Height() int {
	if len(f.Naxisn) < 2 {
		return 0
	}
	return int(f.Naxisn[1])
}

// Number of channels, the third axis if present
func (f *Image) Channels() int {
	if len(f.Naxisn) < 3 {
		return 1
	}
	return int(f.Naxisn[2])
}

func (f *Image) DimensionsToString() string {
	b := strings.Builder{}
	for i, naxis := range f.Naxisn {
		if i > 0 {
			fmt.Fprintf(&b, "x%d", naxis)
		} else {
			fmt.Fprintf(&b, "%d", naxis)
		}
	}
	return b.String()
}

// Checks the image is a non-empty 2D monochrome grid whose data matches its dimensions
func (f *Image) CheckMono() error {
	if f == nil {
		return errors.Wrap(ErrInvalidImage, "no image")
	}
	if len(f.Naxisn) != 2 {
		return errors.Wrapf(ErrInvalidImage, "%d: need 2 axes, have %s", f.ID, f.DimensionsToString())
	}
	width, height := f.Width(), f.Height()
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidImage, "%d: zero dimension %s", f.ID, f.DimensionsToString())
	}
	if len(f.Data) != width*height {
		return errors.Wrapf(ErrInvalidImage, "%d: %d pixels for dimensions %s", f.ID, len(f.Data), f.DimensionsToString())
	}
	return nil
}

// Equal tells whether a and b contain the same elements.
// A nil argument is equivalent to an empty slice.
func EqualInt32Slice(a, b []int32) bool {
	if len(a) != len(b) {
		return false
	}
	for i, v := range a {
		if v != b[i] {
			return false
		}
	}
	return true
}
