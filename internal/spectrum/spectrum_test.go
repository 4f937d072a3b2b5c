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

package spectrum

import (
	"math"
	"math/cmplx"
	"testing"

	"github.com/pkg/errors"
)

func TestFrequencies(t *testing.T) {
	tcs := []struct {
		n    int
		want []float64
	}{
		{1, []float64{0}},
		{2, []float64{0, -0.5}},
		{3, []float64{0, -0.666666666667, -0.333333333333}},
		{4, []float64{0, 0.25, -0.5, -0.25}},
		{5, []float64{0, 0.2, -0.6, -0.4, -0.2}},
	}
	for _, tc := range tcs {
		got := Frequencies(tc.n)
		if len(got) != len(tc.want) {
			t.Fatalf("n=%d len=%d; want %d", tc.n, len(got), len(tc.want))
		}
		for i := range got {
			if math.Abs(got[i]-tc.want[i]) > 1e-12 {
				t.Errorf("n=%d f[%d]=%f; want %f", tc.n, i, got[i], tc.want[i])
			}
		}
	}
}

func testImage(width, height int) []float32 {
	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			data[y*width+x] = float32((x*7+y*13)%11) - 3.5
		}
	}
	return data
}

func TestRoundTrip(t *testing.T) {
	for _, name := range Backends() {
		tr, err := ByName(name)
		if err != nil {
			t.Fatal(err)
		}
		for _, dims := range [][2]int{{8, 8}, {6, 5}, {1, 7}} {
			width, height := dims[0], dims[1]
			data := testImage(width, height)
			back := RealPart(tr.Inverse(tr.Forward(FromReal(data, width))))
			for i := range data {
				if math.Abs(float64(back[i]-data[i])) > 1e-4 {
					t.Errorf("%s %dx%d: [%d]=%f; want %f", name, width, height, i, back[i], data[i])
				}
			}
		}
	}
}

func TestBackendsAgree(t *testing.T) {
	width, height := 12, 9
	x := FromReal(testImage(width, height), width)
	a, b := Gonum{}.Forward(x), DSP{}.Forward(x)
	for r := range a {
		for c := range a[r] {
			if cmplx.Abs(a[r][c]-b[r][c]) > 1e-6 {
				t.Errorf("[%d][%d] gonum=%v dsp=%v", r, c, a[r][c], b[r][c])
			}
		}
	}
}

func TestForwardDC(t *testing.T) {
	width, height := 4, 3
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 2
	}
	f := Default().Forward(FromReal(data, width))
	if cmplx.Abs(f[0][0]-complex(24, 0)) > 1e-9 {
		t.Errorf("dc=%v; want 24", f[0][0])
	}
	for r := range f {
		for c := range f[r] {
			if (r != 0 || c != 0) && cmplx.Abs(f[r][c]) > 1e-9 {
				t.Errorf("[%d][%d]=%v; want 0", r, c, f[r][c])
			}
		}
	}
}

func TestByNameUnknown(t *testing.T) {
	if _, err := ByName("fftw"); errors.Cause(err) != ErrUnknownBackend {
		t.Errorf("err=%v; want %v", err, ErrUnknownBackend)
	}
	if tr, err := ByName("DSP"); err != nil || tr.Name() != "dsp" {
		t.Errorf("ByName(DSP)=%v, %v", tr, err)
	}
}
