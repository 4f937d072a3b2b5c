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

package gradient

import (
	"math"
	"testing"

	"github.com/pkg/errors"

	"github.com/mlnoga/fibrelight/internal/spectrum"
)

func TestParseMethod(t *testing.T) {
	for _, m := range Methods() {
		parsed, err := ParseMethod(m.String())
		if err != nil || parsed != m {
			t.Errorf("ParseMethod(%q)=%v, %v; want %v", m.String(), parsed, err, m)
		}
	}
	if m, err := ParseMethod(" Riesz "); err != nil || m != Riesz {
		t.Errorf("ParseMethod(Riesz)=%v, %v", m, err)
	}
	if _, err := ParseMethod("laplace"); !errors.Is(err, ErrUnsupportedMethod) {
		t.Errorf("err=%v; want %v", err, ErrUnsupportedMethod)
	}
	if s := Method(42).String(); s != "Method(42)" {
		t.Errorf("String()=%q", s)
	}
}

func TestMethodText(t *testing.T) {
	var m Method
	if err := m.UnmarshalText([]byte("hessian")); err != nil || m != Hessian {
		t.Errorf("UnmarshalText=%v, %v", m, err)
	}
	text, err := CubicSpline.MarshalText()
	if err != nil || string(text) != "spline" {
		t.Errorf("MarshalText=%q, %v", text, err)
	}
	if _, err := Method(-1).MarshalText(); err == nil {
		t.Errorf("MarshalText(-1): want error")
	}
}

func TestAllMethodsRegistered(t *testing.T) {
	if got := len(Methods()); got != int(numMethods) {
		t.Errorf("%d methods registered; want %d", got, numMethods)
	}
}

func TestShapeAndConstantImage(t *testing.T) {
	width, height := 9, 7
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 5
	}
	for _, m := range Methods() {
		gx, gy, err := Compute(data, width, m, 1.5)
		if err != nil {
			t.Fatalf("%v: %v", m, err)
		}
		if len(gx) != len(data) || len(gy) != len(data) {
			t.Fatalf("%v: len(gx)=%d len(gy)=%d; want %d", m, len(gx), len(gy), len(data))
		}
		for i := range data {
			if math.Abs(float64(gx[i])) > 1e-4 || math.Abs(float64(gy[i])) > 1e-4 {
				t.Errorf("%v: gx[%d]=%f gy[%d]=%f; want 0", m, i, gx[i], i, gy[i])
			}
		}
	}
}

func rampImage(width, height int, horizontal bool) []float32 {
	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			if horizontal {
				data[y*width+x] = float32(10 * x)
			} else {
				data[y*width+x] = float32(10 * y)
			}
		}
	}
	return data
}

func TestFiniteDifferenceRamp(t *testing.T) {
	width := 5
	gx, gy, err := Compute(rampImage(5, 5, true), width, FiniteDifference, 1)
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{10, 20, 20, 20, 10}
	for y := 0; y < 5; y++ {
		for x := 0; x < width; x++ {
			if got := gx[y*width+x]; got != want[x] {
				t.Errorf("gx[%d,%d]=%f; want %f", x, y, got, want[x])
			}
			if got := gy[y*width+x]; got != 0 {
				t.Errorf("gy[%d,%d]=%f; want 0", x, y, got)
			}
		}
	}
}

func TestSplineRamp(t *testing.T) {
	width, height := 6, 5
	for _, horizontal := range []bool{true, false} {
		gx, gy, err := Compute(rampImage(width, height, horizontal), width, CubicSpline, 1)
		if err != nil {
			t.Fatal(err)
		}
		wantX, wantY := float32(10), float32(0)
		if !horizontal {
			wantX, wantY = 0, 10
		}
		for i := range gx {
			if math.Abs(float64(gx[i]-wantX)) > 1e-3 || math.Abs(float64(gy[i]-wantY)) > 1e-3 {
				t.Errorf("horizontal=%v [%d]: gx=%f gy=%f; want %f %f", horizontal, i, gx[i], gy[i], wantX, wantY)
			}
		}
	}
}

func TestSplineDeterministic(t *testing.T) {
	width, height := 11, 13
	data := make([]float32, width*height)
	for i := range data {
		data[i] = float32(math.Sin(float64(i) * 0.37))
	}
	gx1, gy1, err := Compute(data, width, CubicSpline, 1, WithThreads(1))
	if err != nil {
		t.Fatal(err)
	}
	gx8, gy8, err := Compute(data, width, CubicSpline, 1, WithThreads(8))
	if err != nil {
		t.Fatal(err)
	}
	for i := range data {
		if gx1[i] != gx8[i] || gy1[i] != gy8[i] {
			t.Fatalf("[%d]: 1 thread %f %f, 8 threads %f %f", i, gx1[i], gy1[i], gx8[i], gy8[i])
		}
	}
}

func TestSplineMinimumSize(t *testing.T) {
	for _, dims := range [][2]int{{3, 5}, {5, 3}, {1, 1}} {
		width, height := dims[0], dims[1]
		_, _, err := Compute(make([]float32, width*height), width, CubicSpline, 1)
		if !errors.Is(err, ErrInvalidImage) {
			t.Errorf("%dx%d: err=%v; want %v", width, height, err, ErrInvalidImage)
		}
	}
	if _, _, err := Compute(make([]float32, 16), 4, CubicSpline, 1); err != nil {
		t.Errorf("4x4: %v", err)
	}
}

func TestFourierSinusoid(t *testing.T) {
	width, height, k := 64, 8, 4
	f := float64(k) / float64(width)
	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			data[y*width+x] = float32(math.Sin(2 * math.Pi * f * float64(x)))
		}
	}
	for _, name := range spectrum.Backends() {
		tr, err := spectrum.ByName(name)
		if err != nil {
			t.Fatal(err)
		}
		gx, gy, err := Compute(data, width, Fourier, 1, WithTransformer(tr))
		if err != nil {
			t.Fatal(err)
		}
		maxAbs := 0.0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				want := 2 * math.Pi * f * math.Cos(2*math.Pi*f*float64(x))
				got := float64(gx[y*width+x])
				if math.Abs(got-want) > 1e-4 {
					t.Errorf("%s gx[%d,%d]=%f; want %f", name, x, y, got, want)
				}
				if math.Abs(float64(gy[y*width+x])) > 1e-4 {
					t.Errorf("%s gy[%d,%d]=%f; want 0", name, x, y, gy[y*width+x])
				}
				maxAbs = math.Max(maxAbs, math.Abs(got))
			}
		}
		if math.Abs(maxAbs-2*math.Pi*f) > 1e-4 {
			t.Errorf("%s amplitude=%f; want %f", name, maxAbs, 2*math.Pi*f)
		}
	}
}

func TestRieszSinusoid(t *testing.T) {
	width, height, k := 32, 4, 2
	f := float64(k) / float64(width)
	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			data[y*width+x] = float32(math.Sin(2 * math.Pi * f * float64(x)))
		}
	}
	gx, _, err := Compute(data, width, Riesz, 1)
	if err != nil {
		t.Fatal(err)
	}
	// the multiplier has magnitude f/sqrt(f*f+eps) on the signal bins
	amp := f / math.Sqrt(f*f+rieszEpsilon)
	for x := 0; x < width; x++ {
		want := amp * math.Cos(2*math.Pi*f*float64(x))
		if got := float64(gx[x]); math.Abs(got-want) > 1e-4 {
			t.Errorf("gx[%d]=%f; want %f", x, got, want)
		}
	}
}

func TestHessianQuadratic(t *testing.T) {
	width, height := 9, 21
	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d := float32(y - height/2)
			data[y*width+x] = d * d
		}
	}
	gx, gy, err := Compute(data, width, Hessian, 1)
	if err != nil {
		t.Fatal(err)
	}
	// gaussian blur preserves the curvature of a parabola away from the border
	c := (height/2)*width + width/2
	if math.Abs(float64(gx[c]-8)) > 1e-2 {
		t.Errorf("gx=%f; want 8", gx[c])
	}
	if math.Abs(float64(gy[c])) > 1e-3 {
		t.Errorf("gy=%f; want 0", gy[c])
	}
}

func TestComputeErrors(t *testing.T) {
	data := make([]float32, 12)
	huge := 1e40 // overflows float32 at runtime
	tcs := []struct {
		name   string
		data   []float32
		width  int
		m      Method
		window float32
		want   error
	}{
		{"unknown method", data, 4, Method(42), 1, ErrUnsupportedMethod},
		{"negative method", data, 4, Method(-1), 1, ErrUnsupportedMethod},
		{"empty", nil, 4, FiniteDifference, 1, ErrInvalidImage},
		{"zero width", data, 0, FiniteDifference, 1, ErrInvalidImage},
		{"ragged", data, 5, FiniteDifference, 1, ErrInvalidImage},
		{"zero window", data, 4, FiniteDifference, 0, ErrInvalidWindow},
		{"nan window", data, 4, Hessian, float32(math.NaN()), ErrInvalidWindow},
		{"infinite window", data, 4, FiniteDifference, float32(math.Inf(1)), ErrInvalidWindow},
		{"overflowing window", data, 4, Hessian, float32(huge), ErrInvalidWindow},
	}
	for _, tc := range tcs {
		gx, gy, err := Compute(tc.data, tc.width, tc.m, tc.window)
		if !errors.Is(err, tc.want) {
			t.Errorf("%s: err=%v; want %v", tc.name, err, tc.want)
		}
		if gx != nil || gy != nil {
			t.Errorf("%s: want no output", tc.name)
		}
	}
}
