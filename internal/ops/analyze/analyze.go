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

package analyze

import (
	"fmt"
	"math"

	"github.com/pkg/errors"

	"github.com/mlnoga/fibrelight/internal/analysis"
	"github.com/mlnoga/fibrelight/internal/filter"
	"github.com/mlnoga/fibrelight/internal/fits"
	"github.com/mlnoga/fibrelight/internal/gradient"
	"github.com/mlnoga/fibrelight/internal/ops"
	"github.com/mlnoga/fibrelight/internal/spectrum"
	"github.com/mlnoga/fibrelight/internal/tensor"
)

// Default gradient method and window size
const (
	DefaultMethod     = analysis.DefaultMethod
	DefaultWindowSize = analysis.DefaultWindowSize
)

// Planes of the output image cube
const (
	PlaneEnergy = iota
	PlaneOrientation
	PlaneCoherency
	NumPlanes
)

// Runs the structure tensor analysis on each input image. Saves the requested fields under
// the given file patterns, where %d expands to the image id. The output image is a cube
// with the energy, orientation and coherency planes
type OpAnalyze struct {
	ops.OpUnaryBase
	Method      gradient.Method `json:"method"`
	WindowSize  float32         `json:"windowSize"`
	FFT         string          `json:"fft"`     // DFT backend for the spectral methods
	Threads     int             `json:"threads"` // goroutines per image, 0 for all cores
	Median      bool            `json:"median"`  // remove impulse noise with a 3x3 median filter first
	Energy      string          `json:"energy"`
	Orientation string          `json:"orientation"`
	Coherency   string          `json:"coherency"`
	Survey      string          `json:"survey"`
	GradX       string          `json:"gx"`
	GradY       string          `json:"gy"`
}

func init() { ops.SetOperatorFactory(func() ops.Operator { return NewOpAnalyzeDefault() }) } // register the operator for JSON decoding

func NewOpAnalyzeDefault() *OpAnalyze { return NewOpAnalyze(DefaultMethod, DefaultWindowSize) }

func NewOpAnalyze(m gradient.Method, windowSize float32) *OpAnalyze {
	op := OpAnalyze{
		OpUnaryBase: ops.OpUnaryBase{OpBase: ops.OpBase{Type: "analyze", Active: true}},
		Method:      m,
		WindowSize:  windowSize,
		FFT:         spectrum.DefaultBackend,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Estimated bytes of working memory per pixel for the given method:
// input, gradients, tensor, fields and a scratch buffer as float32, plus three spectra for spectral methods
func BytesPerPixel(m gradient.Method) int64 {
	b := int64(10 * 4)
	if m == gradient.Fourier || m == gradient.Riesz {
		b += 3 * 16
	}
	return b
}

func (op *OpAnalyze) options(c *ops.Context) ([]gradient.Option, error) {
	fft := op.FFT
	if fft == "" {
		fft = spectrum.DefaultBackend
	}
	t, err := spectrum.ByName(fft)
	if err != nil {
		return nil, err
	}
	threads := op.Threads
	if threads <= 0 {
		threads = c.MaxThreads
	}
	return []gradient.Option{gradient.WithTransformer(t), gradient.WithThreads(threads)}, nil
}

func (op *OpAnalyze) Apply(f *fits.Image, c *ops.Context) (result *fits.Image, err error) {
	if !op.Active {
		return f, nil
	}
	opts, err := op.options(c)
	if err != nil {
		return nil, err
	}

	release := c.Reserve(BytesPerPixel(op.Method) * int64(len(f.Data)))
	defer release()
	if op.Median {
		if f, err = denoise(f); err != nil {
			return nil, err
		}
		c.Log.Debug().Msgf("%d: applied 3x3 median filter", f.ID)
	}
	r, err := analysis.Compute(f, op.Method, op.WindowSize, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "%d: analyzing %s", f.ID, f.FileName)
	}
	r.Log(c.Log, f.ID)

	for _, out := range op.outputs(f, r) {
		if out.save.FilePattern == "" {
			continue
		}
		img, err := out.image()
		if err != nil {
			return nil, errors.Wrapf(err, "%d: %s", f.ID, out.name)
		}
		op.annotate(img, r, out.name)
		if _, err := out.save.Apply(img, c); err != nil {
			return nil, err
		}
	}

	cube := fits.NewImageFromChannels([][]float32{r.Fields.Energy, r.Fields.Orientation, r.Fields.Coherency}, r.Width, f)
	op.annotate(cube, r, "energy, orientation, coherency")
	return cube, nil
}

func denoise(f *fits.Image) (*fits.Image, error) {
	if err := f.CheckMono(); err != nil {
		return nil, err
	}
	data, err := filter.Median3x3(f.Data, f.Width())
	if err != nil {
		return nil, errors.Wrapf(fits.ErrInvalidImage, "%d: %v", f.ID, err)
	}
	return fits.NewImageFromData(data, f.Width(), f), nil
}

// A requested output field and how to save it
type output struct {
	name  string
	save  *ops.OpSave
	image func() (*fits.Image, error)
}

func (op *OpAnalyze) outputs(f *fits.Image, r *analysis.Result) []output {
	mono := func(data []float32) func() (*fits.Image, error) {
		return func() (*fits.Image, error) { return fits.NewImageFromData(data, r.Width, f), nil }
	}
	return []output{
		{"energy", ops.NewOpSave(op.Energy), mono(r.Fields.Energy)},
		{"orientation", ops.NewOpSaveRange(op.Orientation, -math.Pi/2, math.Pi/2), mono(r.Fields.Orientation)},
		{"coherency", ops.NewOpSaveRange(op.Coherency, 0, 1), mono(r.Fields.Coherency)},
		{"gx", ops.NewOpSave(op.GradX), mono(r.GradX)},
		{"gy", ops.NewOpSave(op.GradY), mono(r.GradY)},
		{"survey", ops.NewOpSaveRange(op.Survey, 0, 1), func() (*fits.Image, error) {
			red, green, blue, err := tensor.Survey(r.Fields, f.Data)
			if err != nil {
				return nil, err
			}
			return fits.NewImageFromChannels([][]float32{red, green, blue}, r.Width, f), nil
		}},
	}
}

// Records the analysis parameters in the FITS header
func (op *OpAnalyze) annotate(img *fits.Image, r *analysis.Result, content string) {
	img.Header.Strings["METHOD"] = r.Method.String()
	img.Header.Strings["WINDOW"] = fmt.Sprintf("%g", r.WindowSize)
	if r.Method == gradient.Fourier || r.Method == gradient.Riesz {
		img.Header.Strings["FFT"] = op.FFT
	}
	img.Header.Strings["CONTENT"] = content
	img.Header.History = append(img.Header.History, fmt.Sprintf("structure tensor %v window %g", r.Method, r.WindowSize))
}
