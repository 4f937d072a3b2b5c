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

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"runtime/pprof"
	"time"

	"github.com/pkg/errors"

	"github.com/mlnoga/fibrelight/internal/gradient"
	"github.com/mlnoga/fibrelight/internal/logging"
	"github.com/mlnoga/fibrelight/internal/ops"
	"github.com/mlnoga/fibrelight/internal/ops/analyze"
	"github.com/mlnoga/fibrelight/internal/pool"
	"github.com/mlnoga/fibrelight/internal/rest"
	"github.com/mlnoga/fibrelight/internal/spectrum"
)

const version = "0.1.0"

var cpuprofile = flag.String("cpuprofile", "", "write cpu profile to `file`")
var memprofile = flag.String("memprofile", "", "write memory profile to `file`")

var logFile = flag.String("log", "", "save log output to `file` in addition to stdout")
var verbose = flag.Bool("v", false, "verbose debug logging")
var threads = flag.Int("threads", runtime.GOMAXPROCS(0), "maximum number of images analyzed concurrently")
var job = flag.String("job", "", "run the JSON operator definition from `file` on the input files instead of the flags below")

var method = flag.String("method", analyze.DefaultMethod.String(), "gradient method, one of finite, gaussian, spline, fourier, riesz, hessian")
var window = flag.Float64("window", analyze.DefaultWindowSize, "window size, the standard deviation of the gaussian smoothing the structure tensor")
var median = flag.Bool("median", false, "remove impulse noise with a 3x3 median filter before analysis")
var fft = flag.String("fft", spectrum.DefaultBackend, "DFT backend for the fourier and riesz methods, one of gonum, dsp")

var energy = flag.String("energy", "", "save energy with given filename pattern, e.g. `energy%04d.fits`")
var orientation = flag.String("orientation", "", "save orientation with given filename pattern, e.g. `orient%04d.fits`")
var coherency = flag.String("coherency", "", "save coherency with given filename pattern, e.g. `coh%04d.jpg`")
var survey = flag.String("survey", "", "save color survey of orientation, coherency and brightness with given filename pattern, e.g. `survey%04d.jpg`")
var gx = flag.String("gx", "", "save horizontal gradient with given filename pattern, e.g. `gx%04d.fits`")
var gy = flag.String("gy", "", "save vertical gradient with given filename pattern, e.g. `gy%04d.fits`")

var addr = flag.String("addr", ":8080", "listen address for the serve command")
var chroot = flag.String("chroot", "", "change filesystem root to `dir` before serving")
var setuid = flag.Int("setuid", -1, "change to given user id before serving, -1: keep")

func main() {
	debug.SetGCPercent(10)
	start := time.Now()
	flag.Usage = func() {
		fmt.Fprintf(os.Stdout, `Fibrelight Copyright (c) 2020 Markus L. Noga
This program comes with ABSOLUTELY NO WARRANTY.
This is free software, and you are welcome to redistribute it under certain conditions.
Refer to https://www.gnu.org/licenses/gpl-3.0.en.html for details.

Usage: %s [-flag value] (analyze|methods|serve|legal|version) (img0.fits ... imgn.fits)

Commands:
  analyze Compute energy, orientation and coherency of the structure tensor of each input image
  methods List gradient methods and DFT backends
  serve   Serve the HTTP API
  legal   Show license and attribution information
  version Show version information

Flags:
`, os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	// Initialize logging to file in addition to stdout, if selected
	if *logFile != "" {
		if err := logging.AlsoToFile(*logFile); err != nil {
			fmt.Fprintf(os.Stderr, "Unable to open logfile '%s': %v\n", *logFile, err)
			os.Exit(-1)
		}
	}
	log := logging.Console(logging.Level(*verbose))

	// Enable CPU profiling if flagged
	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not create CPU profile")
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal().Err(err).Msg("Could not start CPU profile")
		}
		defer pprof.StopCPUProfile()
	}

	args := flag.Args()
	if len(args) < 1 {
		flag.Usage()
		return
	}

	c := ops.NewContext(log)
	if *threads > 0 {
		c.MaxThreads = *threads
	}

	var err error
	switch args[0] {
	case "analyze":
		c.LogSystem()
		err = cmdAnalyze(args[1:], c)

	case "methods":
		cmdMethods()

	case "serve":
		c.LogSystem()
		if err = rest.MakeSandbox(*chroot, *setuid, log); err == nil {
			s := rest.Server{Log: logging.Component(log, "rest"), MaxThreads: c.MaxThreads, Verbose: *verbose}
			err = s.Serve(*addr)
		}

	case "legal":
		cmdLegal()

	case "version":
		fmt.Fprintf(os.Stdout, "Version %s\n", version)
		c.LogSystem()

	case "help", "?":
		flag.Usage()

	default:
		fmt.Fprintf(os.Stdout, "Unknown command '%s'\n\n", args[0])
		flag.Usage()
		return
	}

	log.Info().Msgf("Done after %v", time.Since(start))

	// Store memory profile if flagged
	if *memprofile != "" {
		f, err := os.Create(*memprofile)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not create memory profile")
		}
		defer f.Close()
		runtime.GC() // get up-to-date statistics
		if err := pprof.Lookup("allocs").WriteTo(f, 0); err != nil {
			log.Fatal().Err(err).Msg("Could not write allocation profile")
		}
	}

	if err != nil {
		log.Error().Err(err).Msg("Error")
		logging.Close()
		os.Exit(-1)
	}
	logging.Close()
}

// Analyzes all files matching the given patterns, with the job file if given, else with the flags
func cmdAnalyze(patterns []string, c *ops.Context) error {
	op, err := jobOperator()
	if err != nil {
		return err
	}

	var steps []ops.Operator
	if len(patterns) > 0 {
		steps = append(steps, ops.NewOpLoadMany(patterns))
	}
	steps = append(steps, op)
	seq := ops.NewOpSequence(steps...)

	m, err := json.MarshalIndent(seq, "", "  ")
	if err != nil {
		return err
	}
	c.Log.Info().Msgf("Analyzing with these settings:\n%s", string(m))

	promises, err := seq.MakePromises(nil, c)
	if err != nil {
		return err
	}
	_, err = ops.MaterializeAll(promises, c.MaxThreads, true)
	pool.Clear()
	return err
}

// Returns the operator from the job file, or a per-image analysis built from the flags
func jobOperator() (ops.Operator, error) {
	if *job != "" {
		bs, err := os.ReadFile(*job)
		if err != nil {
			return nil, errors.Wrapf(err, "reading job %s", *job)
		}
		op, err := ops.UnmarshalOperator(bs)
		if err != nil {
			return nil, errors.Wrapf(err, "decoding job %s", *job)
		}
		return op, nil
	}

	m, err := gradient.ParseMethod(*method)
	if err != nil {
		return nil, err
	}
	if _, err := spectrum.ByName(*fft); err != nil {
		return nil, err
	}
	op := analyze.NewOpAnalyze(m, float32(*window))
	op.FFT = *fft
	op.Median = *median
	op.Energy = *energy
	op.Orientation = *orientation
	op.Coherency = *coherency
	op.Survey = *survey
	op.GradX = *gx
	op.GradY = *gy
	return ops.NewOpForEach(op), nil
}

func cmdMethods() {
	for _, m := range gradient.Methods() {
		minSamples, _ := gradient.MinSamples(m)
		fmt.Fprintf(os.Stdout, "%-9s needs at least %d samples per row and column\n", m, minSamples)
	}
	fmt.Fprintf(os.Stdout, "DFT backends: %v (default %s)\n", spectrum.Backends(), spectrum.DefaultBackend)
}
