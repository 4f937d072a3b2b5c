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

// Package analysis runs the structure tensor pipeline on an image: gradient
// estimation, tensor smoothing, and derivation of energy, orientation and
// coherency. Compute is a pure function; Session keeps the latest result.
package analysis

import (
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mlnoga/fibrelight/internal/fits"
	"github.com/mlnoga/fibrelight/internal/gradient"
	"github.com/mlnoga/fibrelight/internal/tensor"
)

var (
	// ErrInvalidImage is returned for images which are empty or too small for the chosen method
	ErrInvalidImage = fits.ErrInvalidImage

	// ErrNotComputed is returned by session accessors before the first successful run
	ErrNotComputed = errors.New("analysis not computed")
)

// Complete, immutable result of one pipeline run
type Result struct {
	Method     gradient.Method
	WindowSize float32
	Width      int
	Height     int

	GradX  []float32
	GradY  []float32
	Tensor tensor.Tensor
	Fields tensor.Fields

	Elapsed time.Duration
}

// Runs the full pipeline on a monochrome image. Validates the image and the method before
// any computation, and returns no partial result on failure
func Compute(img *fits.Image, m gradient.Method, windowSize float32, opts ...gradient.Option) (*Result, error) {
	if err := img.CheckMono(); err != nil {
		return nil, err
	}
	width, height := img.Width(), img.Height()
	if err := gradient.Validate(m, width, height); err != nil {
		return nil, err
	}

	start := time.Now()
	gx, gy, err := gradient.Compute(img.Data, width, m, windowSize, opts...)
	if err != nil {
		return nil, err
	}
	t, err := tensor.Build(gx, gy, width, windowSize)
	if err != nil {
		return nil, err
	}
	f, err := tensor.Derive(t)
	if err != nil {
		return nil, err
	}
	return &Result{
		Method:     m,
		WindowSize: windowSize,
		Width:      width,
		Height:     height,
		GradX:      gx,
		GradY:      gy,
		Tensor:     t,
		Fields:     f,
		Elapsed:    time.Since(start),
	}, nil
}

// Logs a summary of the result
func (r *Result) Log(log zerolog.Logger, id int) {
	log.Info().
		Str("method", r.Method.String()).
		Float32("window", r.WindowSize).
		Int("width", r.Width).
		Int("height", r.Height).
		Dur("elapsed", r.Elapsed).
		Msgf("%d: structure tensor computed", id)
}
