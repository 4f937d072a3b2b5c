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

// Package spectrum wraps 2D discrete Fourier transforms of row-major images.
// Spectra are indexed [row][column]; the zero frequency sits at [0][0].
package spectrum

import (
	"sort"
	"strings"

	dspfft "github.com/mjibson/go-dsp/fft"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/dsp/fourier"

	"github.com/mlnoga/fibrelight/internal/pool"
)

// ErrUnknownBackend is returned when a transformer name is not registered
var ErrUnknownBackend = errors.New("unknown fft backend")

// A 2D discrete Fourier transform. Forward is unnormalized,
// Inverse divides by rows*columns so Inverse(Forward(x)) == x.
// Neither method modifies its argument.
type Transformer interface {
	Name() string
	Forward(x [][]complex128) [][]complex128
	Inverse(x [][]complex128) [][]complex128
}

// Name of the default backend
const DefaultBackend = "gonum"

var backends = map[string]Transformer{
	"gonum": Gonum{},
	"dsp":   DSP{},
}

// Returns the transformer registered under the given name
func ByName(name string) (Transformer, error) {
	t, ok := backends[strings.ToLower(name)]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownBackend, "%q, want one of %s", name, strings.Join(Backends(), ", "))
	}
	return t, nil
}

// Returns the sorted names of all backends
func Backends() []string {
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Default returns the default transformer
func Default() Transformer { return backends[DefaultBackend] }

// Gonum computes the transform with gonum's fftpack port, one pass over the rows and one over the columns
type Gonum struct{}

func (Gonum) Name() string { return "gonum" }

func (Gonum) Forward(x [][]complex128) [][]complex128 {
	return gonumPasses(x, func(t *fourier.CmplxFFT, dst, seq []complex128) []complex128 {
		return t.Coefficients(dst, seq)
	}, 1)
}

func (Gonum) Inverse(x [][]complex128) [][]complex128 {
	rows, cols := Dims(x)
	return gonumPasses(x, func(t *fourier.CmplxFFT, dst, coeff []complex128) []complex128 {
		return t.Sequence(dst, coeff)
	}, 1/float64(rows*cols))
}

func gonumPasses(x [][]complex128, pass func(t *fourier.CmplxFFT, dst, src []complex128) []complex128, scale float64) [][]complex128 {
	rows, cols := Dims(x)
	res := make([][]complex128, rows)

	rowFFT := fourier.NewCmplxFFT(cols)
	for r := range x {
		res[r] = pass(rowFFT, make([]complex128, cols), x[r])
	}

	colFFT := fourier.NewCmplxFFT(rows)
	col := pool.GetComplex128(rows)
	defer pool.PutComplex128(col)
	s := complex(scale, 0)
	for c := 0; c < cols; c++ {
		for r := 0; r < rows; r++ {
			col[r] = res[r][c]
		}
		pass(colFFT, col, col)
		for r := 0; r < rows; r++ {
			res[r][c] = col[r] * s
		}
	}
	return res
}

// DSP computes the transform with github.com/mjibson/go-dsp, which uses radix-2
// for power of two sizes and Bluestein's algorithm otherwise
type DSP struct{}

func (DSP) Name() string { return "dsp" }

func (DSP) Forward(x [][]complex128) [][]complex128 { return dspfft.FFT2(x) }

func (DSP) Inverse(x [][]complex128) [][]complex128 { return dspfft.IFFT2(x) }

// Returns the number of rows and columns of a spectrum
func Dims(x [][]complex128) (rows, cols int) {
	if len(x) == 0 {
		return 0, 0
	}
	return len(x), len(x[0])
}

// Converts a row-major real image into a complex matrix
func FromReal(data []float32, width int) [][]complex128 {
	height := len(data) / width
	res := make([][]complex128, height)
	for y := range res {
		row := make([]complex128, width)
		for x := range row {
			row[x] = complex(float64(data[y*width+x]), 0)
		}
		res[y] = row
	}
	return res
}

// Returns the real part of a complex matrix as a row-major image
func RealPart(x [][]complex128) []float32 {
	rows, cols := Dims(x)
	res := make([]float32, rows*cols)
	for r, row := range x {
		for c, v := range row {
			res[r*cols+c] = float32(real(v))
		}
	}
	return res
}

// Returns the relative frequency of each of the n DFT bins: i/n for i<n/2, and (i-n)/n otherwise.
// Bin 0 is always the DC component with frequency 0
func Frequencies(n int) []float64 {
	freq := make([]float64, n)
	for i := range freq {
		if i == 0 || i < n/2 {
			freq[i] = float64(i) / float64(n)
		} else {
			freq[i] = float64(i-n) / float64(n)
		}
	}
	return freq
}

// Multiplies each bin of a spectrum with a per-bin factor, returning a new spectrum
func Multiply(x [][]complex128, factor func(row, col int) complex128) [][]complex128 {
	res := make([][]complex128, len(x))
	for r, row := range x {
		out := make([]complex128, len(row))
		for c, v := range row {
			out[c] = v * factor(r, c)
		}
		res[r] = out
	}
	return res
}
