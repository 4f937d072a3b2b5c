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

package filter

import (
	"math"
	"sort"
	"testing"

	"github.com/valyala/fastrand"
)

type gaussianKernel1DTestCase struct {
	Sigma  float32
	Kernel []float32
}

func TestGaussianKernel1D(t *testing.T) {
	epsilon := 1e-5
	tcs := []gaussianKernel1DTestCase{
		{0.1, []float32{1}},
		{1.0, []float32{0.27901, 0.44198, 0.27901}},
		{2.0, []float32{0.028532, 0.067234, 0.124009, 0.179044, 0.20236, 0.179044, 0.124009, 0.067234, 0.028532}},
		{3.0, []float32{0.018816, 0.034474, 0.056577, 0.083173, 0.109523, 0.129188, 0.136498, 0.129188, 0.109523,
			0.083173, 0.056577, 0.034474, 0.018816}},
	}

	for _, tc := range tcs {
		sigma := tc.Sigma
		kernel := GaussianKernel1D(sigma)
		if len(kernel) != len(tc.Kernel) {
			t.Fatalf("sigma=%f len=%d; want %d", sigma, len(kernel), len(tc.Kernel))
		}
		sum := float32(0)
		for i, k := range kernel {
			if math.Abs(float64(k-tc.Kernel[i])) > epsilon {
				t.Errorf("sigma=%f k[%d]=%f; want %f", sigma, i, k, tc.Kernel[i])
			}
			sum += k
		}
		if math.Abs(float64(sum-1)) > epsilon {
			t.Errorf("sigma=%f sum=%f; want 1", sigma, sum)
		}
	}
}

func TestGaussianKernel1DHugeSigma(t *testing.T) {
	for _, sigma := range []float32{1e30, float32(math.Inf(1))} {
		kernel := GaussianKernel1D(sigma)
		if len(kernel) != 2*MaxKernelRadius+1 {
			t.Fatalf("sigma=%g len=%d; want %d", sigma, len(kernel), 2*MaxKernelRadius+1)
		}
		sum := float64(0)
		for _, k := range kernel {
			sum += float64(k)
		}
		if math.Abs(sum-1) > 1e-3 {
			t.Errorf("sigma=%g sum=%f; want 1", sigma, sum)
		}
	}
}

func TestGaussianKernelSized(t *testing.T) {
	want := []float32{0.152469, 0.221841, 0.251379, 0.221841, 0.152469}
	kernel, err := GaussianKernelSized(5, 2.0)
	if err != nil {
		t.Fatal(err)
	}
	for i, k := range kernel {
		if math.Abs(float64(k-want[i])) > 1e-5 {
			t.Errorf("k[%d]=%f; want %f", i, k, want[i])
		}
	}

	for _, size := range []int{0, -1, 4} {
		if _, err := GaussianKernelSized(size, 1); err == nil {
			t.Errorf("size=%d: want error", size)
		}
	}
	if _, err := GaussianKernelSized(3, 0); err == nil {
		t.Errorf("sigma=0: want error")
	}
}

func TestReflect(t *testing.T) {
	tcs := []struct{ size, x, want int }{
		{5, 0, 0}, {5, 4, 4}, {5, -1, 0}, {5, -2, 1}, {5, 5, 4}, {5, 6, 3},
		{5, -7, 3}, {1, 3, 0}, {1, -2, 0}, {2, 5, 1},
	}
	for _, tc := range tcs {
		if got := reflect(tc.size, tc.x); got != tc.want {
			t.Errorf("reflect(%d,%d)=%d; want %d", tc.size, tc.x, got, tc.want)
		}
	}
}

func TestGaussFilter2D(t *testing.T) {
	dims := []int{15, 31}
	sigmas := []float32{1.0, 2.0, 3.0}
	epsilon := 1e-4

	for _, dim := range dims {
		for _, sigma := range sigmas {
			width, height := dim, dim
			sharp := make([]float32, width*height)
			peak := float32(9.99)
			sharp[width*(height/2)+width/2] = peak

			tmp := make([]float32, width*height)
			blur := make([]float32, width*height)
			kHalfSize := len(GaussianKernel1D(sigma)) / 2

			GaussFilter2D(blur, tmp, sharp, width, sigma)

			sum := float32(0)
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					v := blur[y*width+x]
					sum += v
					inside := abs(x-width/2) <= kHalfSize && abs(y-height/2) <= kHalfSize
					if inside && (v <= 0 || v >= peak) {
						t.Errorf("sigma=%f b[%d*w+%d]=%f; want >0 <%f", sigma, y, x, v, peak)
					}
					if !inside && v != 0 {
						t.Errorf("sigma=%f b[%d*w+%d]=%f; want 0", sigma, y, x, v)
					}
				}
			}
			if math.Abs(float64(sum-peak)) > epsilon*float64(peak) {
				t.Errorf("sigma=%f sum=%f; want %f", sigma, sum, peak)
			}
		}
	}
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func TestConvolveCentralDifference(t *testing.T) {
	width := 5
	data := []float32{
		0, 10, 20, 30, 40,
		0, 10, 20, 30, 40,
	}
	gx, err := ConvolveX(data, width, CentralDifference())
	if err != nil {
		t.Fatal(err)
	}
	want := []float32{10, 20, 20, 20, 10}
	for y := 0; y < 2; y++ {
		for x := 0; x < width; x++ {
			if gx[y*width+x] != want[x] {
				t.Errorf("gx[%d,%d]=%f; want %f", x, y, gx[y*width+x], want[x])
			}
		}
	}
	gy, err := ConvolveY(data, width, CentralDifference())
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range gy {
		if v != 0 {
			t.Errorf("gy[%d]=%f; want 0", i, v)
		}
	}
}

func TestSobel(t *testing.T) {
	width, height := 7, 7
	ramp := make([]float32, width*height)
	quad := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			ramp[y*width+x] = float32(10 * x)
			quad[y*width+x] = float32(y * y)
		}
	}

	tcs := []struct {
		name   string
		data   []float32
		dx, dy int
		want   float32
	}{
		{"ramp dx=1", ramp, 1, 0, 80},
		{"ramp dy=1", ramp, 0, 1, 0},
		{"ramp dx=2", ramp, 2, 0, 0},
		{"quad dy=2", quad, 0, 2, 8},
		{"quad dx=2", quad, 2, 0, 0},
	}
	for _, tc := range tcs {
		res, err := Sobel(tc.data, width, tc.dx, tc.dy)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		for y := 1; y < height-1; y++ {
			for x := 1; x < width-1; x++ {
				if got := res[y*width+x]; math.Abs(float64(got-tc.want)) > 1e-4 {
					t.Errorf("%s: res[%d,%d]=%f; want %f", tc.name, x, y, got, tc.want)
				}
			}
		}
	}

	if _, err := Sobel(ramp, width, 3, 0); err == nil {
		t.Errorf("order 3: want error")
	}
	if _, err := Sobel(ramp, 6, 1, 0); err == nil {
		t.Errorf("bad width: want error")
	}
}

func TestBlurConstant(t *testing.T) {
	width, height := 6, 4
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 42
	}
	for _, sigma := range []float32{0.5, 1, 4} {
		res, err := Blur(data, width, sigma)
		if err != nil {
			t.Fatal(err)
		}
		for i, v := range res {
			if math.Abs(float64(v-42)) > 1e-3 {
				t.Errorf("sigma=%f res[%d]=%f; want 42", sigma, i, v)
			}
		}
	}
	if _, err := Blur(data, width, 0); err == nil {
		t.Errorf("sigma=0: want error")
	}
}

func TestMedian9(t *testing.T) {
	rng := fastrand.RNG{}
	rng.Seed(42)
	for i := 0; i < 1000; i++ {
		var a [9]float32
		sorted := make([]float64, 9)
		for j := range a {
			a[j] = float32(rng.Uint32n(20))
			sorted[j] = float64(a[j])
		}
		sort.Float64s(sorted)
		in := a
		if got := median9(&a); float64(got) != sorted[4] {
			t.Fatalf("median9(%v)=%f; want %f", in, got, sorted[4])
		}
	}
}

func TestMedian3x3(t *testing.T) {
	width, height := 5, 4
	data := make([]float32, width*height)
	for i := range data {
		data[i] = 3
	}
	data[2*width+2] = 100 // hot pixel
	data[0] = -50         // corner outlier, four times in its mirrored window

	res, err := Median3x3(data, width)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range res {
		if v != 3 {
			t.Errorf("res[%d]=%f; want 3", i, v)
		}
	}
	if _, err := Median3x3(data, 3); err == nil {
		t.Errorf("bad width: want error")
	}
}
