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

package analysis

import (
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mlnoga/fibrelight/internal/fits"
	"github.com/mlnoga/fibrelight/internal/gradient"
	"github.com/mlnoga/fibrelight/internal/tensor"
)

// Session owns an image and an analysis configuration, and holds the latest result.
// Each change of image, method or window size recomputes the full pipeline and publishes
// the new result atomically. Readers never observe a partially updated result.
// The zero value is an uninitialized session which analyzes with DefaultMethod and
// DefaultWindowSize and logs nowhere. Slices returned by the accessors belong to the
// published result and must not be modified.
type Session struct {
	mu     sync.Mutex // serializes writers
	img    *fits.Image
	method gradient.Method
	window float32
	opts   []gradient.Option
	log    zerolog.Logger

	result atomic.Pointer[Result]
}

// Default gradient method and window size of sessions created without configuration
const (
	DefaultMethod     = gradient.FiniteDifference
	DefaultWindowSize = 2
)

// Creates a session without image. All accessors return ErrNotComputed until Reload succeeds.
// A window size of 0 selects DefaultWindowSize
func NewEmptySession(m gradient.Method, windowSize float32, log zerolog.Logger, opts ...gradient.Option) *Session {
	return &Session{method: m, window: windowSize, opts: opts, log: log}
}

// Creates a session for the image and runs the pipeline once
func NewSession(img *fits.Image, m gradient.Method, windowSize float32, log zerolog.Logger, opts ...gradient.Option) (*Session, error) {
	s := NewEmptySession(m, windowSize, log, opts...)
	if err := s.Reload(img); err != nil {
		return nil, err
	}
	return s, nil
}

// Recomputes with a new method and window size. On failure the previous result and
// configuration remain in place
func (s *Session) Reconfigure(m gradient.Method, windowSize float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.img == nil {
		return errors.Wrap(ErrNotComputed, "reconfigure without image")
	}
	if err := s.run(s.img, m, windowSize); err != nil {
		return err
	}
	s.method, s.window = m, windowSize
	return nil
}

// Recomputes with a new image. On failure the previous image and result remain in place
func (s *Session) Reload(img *fits.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	window := s.window
	if window == 0 {
		window = DefaultWindowSize
	}
	if err := s.run(img, s.method, window); err != nil {
		return err
	}
	s.img, s.window = img, window
	return nil
}

func (s *Session) run(img *fits.Image, m gradient.Method, windowSize float32) error {
	id := 0
	if img != nil {
		id = img.ID
	}
	r, err := Compute(img, m, windowSize, s.opts...)
	if err != nil {
		s.log.Error().Err(err).Str("method", m.String()).Float32("window", windowSize).Msgf("%d: analysis failed", id)
		return err
	}
	r.Log(s.log, id)
	s.result.Store(r)
	return nil
}

// Returns the current method and window size
func (s *Session) Config() (gradient.Method, float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.method, s.window
}

// Returns the latest result, or ErrNotComputed
func (s *Session) Result() (*Result, error) {
	r := s.result.Load()
	if r == nil {
		return nil, ErrNotComputed
	}
	return r, nil
}

func (s *Session) field(get func(r *Result) []float32) ([]float32, error) {
	r, err := s.Result()
	if err != nil {
		return nil, err
	}
	return get(r), nil
}

// Gradient along x of the latest result
func (s *Session) GradX() ([]float32, error) {
	return s.field(func(r *Result) []float32 { return r.GradX })
}

// Gradient along y of the latest result
func (s *Session) GradY() ([]float32, error) {
	return s.field(func(r *Result) []float32 { return r.GradY })
}

func (s *Session) Energy() ([]float32, error) {
	return s.field(func(r *Result) []float32 { return r.Fields.Energy })
}

func (s *Session) Orientation() ([]float32, error) {
	return s.field(func(r *Result) []float32 { return r.Fields.Orientation })
}

func (s *Session) Coherency() ([]float32, error) {
	return s.field(func(r *Result) []float32 { return r.Fields.Coherency })
}

// Structure tensor of the latest result
func (s *Session) Tensor() (tensor.Tensor, error) {
	r, err := s.Result()
	if err != nil {
		return tensor.Tensor{}, err
	}
	return r.Tensor, nil
}
