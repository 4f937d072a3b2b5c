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
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mlnoga/fibrelight/internal/fits"
	"github.com/mlnoga/fibrelight/internal/gradient"
	"github.com/mlnoga/fibrelight/internal/ops"
	"github.com/mlnoga/fibrelight/internal/spectrum"
)

var nolog = zerolog.Nop()

func rampImage(id, width, height int) *fits.Image {
	data := make([]float32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			data[y*width+x] = float32(10 * x)
		}
	}
	img := fits.NewImageFromData(data, width, nil)
	img.ID = id
	return img
}

func TestUnmarshalDefaults(t *testing.T) {
	op, err := ops.UnmarshalOperator([]byte(`{"type":"analyze","method":"riesz","fft":"dsp","coherency":"c%d.fits"}`))
	if err != nil {
		t.Fatal(err)
	}
	a, ok := op.(*OpAnalyze)
	if !ok {
		t.Fatalf("got %T", op)
	}
	if a.Method != gradient.Riesz || a.FFT != "dsp" || a.Coherency != "c%d.fits" {
		t.Errorf("decoded %+v", a)
	}
	if !a.Active || a.WindowSize != DefaultWindowSize || a.Energy != "" {
		t.Errorf("defaults lost: %+v", a)
	}
	if a.OpUnaryBase.Apply == nil {
		t.Errorf("no apply function")
	}

	bs, err := json.Marshal(NewOpAnalyze(gradient.Hessian, 3))
	if err != nil {
		t.Fatal(err)
	}
	back, err := ops.UnmarshalOperator(bs)
	if err != nil {
		t.Fatal(err)
	}
	if b := back.(*OpAnalyze); b.Method != gradient.Hessian || b.WindowSize != 3 {
		t.Errorf("round trip %s gave %+v", bs, b)
	}

	if _, err := ops.UnmarshalOperator([]byte(`{"type":"analyze","method":"sobel"}`)); !errors.Is(err, gradient.ErrUnsupportedMethod) {
		t.Errorf("err=%v; want %v", err, gradient.ErrUnsupportedMethod)
	}
}

func TestApply(t *testing.T) {
	dir := t.TempDir()
	c := ops.NewContext(nolog)
	img := rampImage(2, 12, 9)

	op := NewOpAnalyze(gradient.FiniteDifference, 1)
	op.Energy = filepath.Join(dir, "energy%d.fits")
	op.Orientation = filepath.Join(dir, "orientation%d.jpg")
	op.Coherency = filepath.Join(dir, "coherency%d.fits")
	op.Survey = filepath.Join(dir, "survey%d.tif")
	op.GradX = filepath.Join(dir, "gx%d.fits")
	op.GradY = filepath.Join(dir, "gy%d.fits")

	cube, err := op.Apply(img, c)
	if err != nil {
		t.Fatal(err)
	}
	if cube.ID != 2 || cube.Width() != 12 || cube.Height() != 9 || cube.Channels() != NumPlanes {
		t.Errorf("cube id %d dims %s", cube.ID, cube.DimensionsToString())
	}
	if cube.Header.Strings["METHOD"] != "finite" || cube.Header.Strings["WINDOW"] != "1" {
		t.Errorf("header %v", cube.Header.Strings)
	}

	for _, name := range []string{"energy2.fits", "orientation2.jpg", "coherency2.fits", "survey2.tif", "gx2.fits", "gy2.fits"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("%s: %v", name, err)
		}
	}

	coh, err := fits.NewImageFromFile(filepath.Join(dir, "coherency2.fits"), 0, nolog)
	if err != nil {
		t.Fatal(err)
	}
	size := 12 * 9
	for i, v := range coh.Data {
		if v < 0 || v > 1 {
			t.Errorf("coherency[%d]=%f; want [0,1]", i, v)
		}
		if v != cube.Data[PlaneCoherency*size+i] {
			t.Fatalf("saved coherency[%d]=%f; cube has %f", i, v, cube.Data[PlaneCoherency*size+i])
		}
	}
	centre := 4*12 + 6
	if o := cube.Data[PlaneOrientation*size+centre]; math.Abs(float64(o)) > 1e-4 {
		t.Errorf("orientation at centre %f; want 0", o)
	}
	if e := cube.Data[PlaneEnergy*size+centre]; math.Abs(float64(e-400)) > 1e-2 {
		t.Errorf("energy at centre %f; want 400", e)
	}
}

func TestApplyMedian(t *testing.T) {
	c := ops.NewContext(nolog)
	img := rampImage(0, 12, 9)
	img.Data[4*12+6] = 1e4 // hot pixel at the centre

	op := NewOpAnalyze(gradient.FiniteDifference, 1)
	op.Median = true
	cube, err := op.Apply(img, c)
	if err != nil {
		t.Fatal(err)
	}
	size := 12 * 9
	centre := 4*12 + 6
	if e := cube.Data[PlaneEnergy*size+centre]; math.Abs(float64(e-400)) > 1e-2 {
		t.Errorf("energy at centre %f; want 400 after median filter", e)
	}
	if img.Data[centre] != 1e4 {
		t.Errorf("input modified")
	}
}

func TestApplyErrors(t *testing.T) {
	c := ops.NewContext(nolog)

	op := NewOpAnalyze(gradient.Fourier, 1)
	op.FFT = "fftw"
	if _, err := op.Apply(rampImage(0, 8, 8), c); !errors.Is(err, spectrum.ErrUnknownBackend) {
		t.Errorf("err=%v; want %v", err, spectrum.ErrUnknownBackend)
	}

	op = NewOpAnalyze(gradient.CubicSpline, 1)
	if _, err := op.Apply(rampImage(0, 3, 8), c); !errors.Is(err, fits.ErrInvalidImage) {
		t.Errorf("err=%v; want %v", err, fits.ErrInvalidImage)
	}

	op = NewOpAnalyze(gradient.FiniteDifference, 0)
	if _, err := op.Apply(rampImage(0, 8, 8), c); !errors.Is(err, gradient.ErrInvalidWindow) {
		t.Errorf("err=%v; want %v", err, gradient.ErrInvalidWindow)
	}
}

func TestBatch(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		if err := rampImage(i, 10, 10).WriteFile(filepath.Join(dir, "in"+string(rune('a'+i))+".fits")); err != nil {
			t.Fatal(err)
		}
	}
	c := ops.NewContext(nolog)
	c.MaxThreads = 2

	op := NewOpAnalyze(gradient.Riesz, 2)
	op.Coherency = filepath.Join(dir, "coh%d.fits")
	seq := ops.NewOpSequence(
		ops.NewOpLoadMany([]string{filepath.Join(dir, "in*.fits")}),
		ops.NewOpForEach(op),
	)
	promises, err := seq.MakePromises(nil, c)
	if err != nil {
		t.Fatal(err)
	}
	outs, err := ops.MaterializeAll(promises, c.MaxThreads, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(outs) != 3 {
		t.Fatalf("len(outs)=%d; want 3", len(outs))
	}
	for i := 0; i < 3; i++ {
		if _, err := os.Stat(filepath.Join(dir, "coh"+string(rune('0'+i))+".fits")); err != nil {
			t.Errorf("coh%d: %v", i, err)
		}
	}
}
