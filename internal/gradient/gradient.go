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

// Package gradient estimates the directional intensity derivatives gx and gy
// of a row-major float32 image with one of several interchangeable methods.
// Spatial methods mirror the image at its borders; spectral methods treat it
// as periodic.
package gradient

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/pkg/errors"

	"github.com/mlnoga/fibrelight/internal/fits"
	"github.com/mlnoga/fibrelight/internal/spectrum"
)

var (
	// ErrUnsupportedMethod is returned for methods without a registered implementation
	ErrUnsupportedMethod = errors.New("unsupported gradient method")

	// ErrInvalidImage is returned for empty images, or images too small for the chosen method
	ErrInvalidImage = fits.ErrInvalidImage

	// ErrInvalidWindow is returned for a window size which is not positive
	ErrInvalidWindow = errors.New("window size must be positive and finite")
)

// Gradient estimation method
type Method int

const (
	FiniteDifference Method = iota
	GaussianSobel
	CubicSpline
	Fourier
	Riesz
	Hessian
	numMethods
)

var methodNames = [numMethods]string{
	FiniteDifference: "finite",
	GaussianSobel:    "gaussian",
	CubicSpline:      "spline",
	Fourier:          "fourier",
	Riesz:            "riesz",
	Hessian:          "hessian",
}

func (m Method) String() string {
	if m < 0 || m >= numMethods {
		return fmt.Sprintf("Method(%d)", int(m))
	}
	return methodNames[m]
}

// Parses a method name, case insensitive
func ParseMethod(s string) (Method, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for i, n := range methodNames {
		if n == name {
			return Method(i), nil
		}
	}
	return -1, errors.Wrapf(ErrUnsupportedMethod, "%q", s)
}

func (m Method) MarshalText() ([]byte, error) {
	if m < 0 || m >= numMethods {
		return nil, errors.Wrapf(ErrUnsupportedMethod, "%d", int(m))
	}
	return []byte(methodNames[m]), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Options for gradient computation
type Options struct {
	Transformer spectrum.Transformer // DFT backend for Fourier and Riesz
	Threads     int                  // maximum number of goroutines for per-line work
}

// Functional option
type Option func(o *Options)

// Selects the DFT backend for the spectral methods
func WithTransformer(t spectrum.Transformer) Option {
	return func(o *Options) {
		if t != nil {
			o.Transformer = t
		}
	}
}

// Bounds the number of goroutines used for per-row and per-column work
func WithThreads(n int) Option {
	return func(o *Options) {
		if n > 0 {
			o.Threads = n
		}
	}
}

func newOptions(opts []Option) *Options {
	o := &Options{
		Transformer: spectrum.Default(),
		Threads:     runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// A gradient strategy. Receives validated input, returns gx and gy of the same length as data
type Strategy func(data []float32, width int, windowSize float32, o *Options) (gx, gy []float32, err error)

type registration struct {
	strategy   Strategy
	minSamples int // minimum number of samples per row and per column
}

var registry = map[Method]registration{}

func register(m Method, minSamples int, s Strategy) {
	registry[m] = registration{strategy: s, minSamples: minSamples}
}

// Returns all registered methods in enum order
func Methods() []Method {
	ms := make([]Method, 0, len(registry))
	for m := Method(0); m < numMethods; m++ {
		if _, ok := registry[m]; ok {
			ms = append(ms, m)
		}
	}
	return ms
}

// Returns the minimum number of samples per row and column the method requires
func MinSamples(m Method) (int, error) {
	reg, ok := registry[m]
	if !ok {
		return 0, errors.Wrapf(ErrUnsupportedMethod, "%v", m)
	}
	return reg.minSamples, nil
}

// Checks an image of the given dimensions can be processed with the method
func Validate(m Method, width, height int) error {
	need, err := MinSamples(m)
	if err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return errors.Wrapf(ErrInvalidImage, "dimensions %dx%d", width, height)
	}
	if width < need || height < need {
		return errors.Wrapf(ErrInvalidImage, "%v needs at least %d samples per row and column, have %dx%d", m, need, width, height)
	}
	return nil
}

// Computes the gradient of the row-major image given by data and width with the given method.
// Fails before any computation if the method is unknown or the image is unsuitable.
func Compute(data []float32, width int, m Method, windowSize float32, opts ...Option) (gx, gy []float32, err error) {
	reg, ok := registry[m]
	if !ok {
		return nil, nil, errors.Wrapf(ErrUnsupportedMethod, "%v", m)
	}
	if width <= 0 || len(data) == 0 || len(data)%width != 0 {
		return nil, nil, errors.Wrapf(ErrInvalidImage, "%d pixels with width %d", len(data), width)
	}
	if err := Validate(m, width, len(data)/width); err != nil {
		return nil, nil, err
	}
	if !(windowSize > 0) || math.IsInf(float64(windowSize), 1) {
		return nil, nil, errors.Wrapf(ErrInvalidWindow, "%v", windowSize)
	}
	gx, gy, err = reg.strategy(data, width, windowSize, newOptions(opts))
	if err != nil {
		return nil, nil, errors.Wrapf(err, "%v gradient", m)
	}
	return gx, gy, nil
}
