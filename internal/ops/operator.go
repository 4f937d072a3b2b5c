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

// Package ops composes image processing jobs from operators which turn
// promises for images into promises for images. Jobs are built from code or
// decoded from JSON, and materialized concurrently.
package ops

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/klauspost/cpuid"
	"github.com/pbnjay/memory"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/mlnoga/fibrelight/internal/fits"
	"github.com/mlnoga/fibrelight/internal/stats"
)

// An execution context for operators
type Context struct {
	Log           zerolog.Logger
	MemoryMB      int  // memory.TotalMemory()/1024/1024
	BudgetMB      int  // MemoryMB*7/10, shared by all concurrently materializing promises
	MaxThreads    int  `json:"maxThreads"`
	RestrictPaths bool // only allow relative paths inside the working directory tree

	mu       sync.Mutex
	freed    *sync.Cond
	reserved int64
}

func NewContext(log zerolog.Logger) *Context {
	memoryMB := int(memory.TotalMemory() / 1024 / 1024)
	return &Context{
		Log:        log,
		MemoryMB:   memoryMB,
		BudgetMB:   memoryMB * 7 / 10,
		MaxThreads: runtime.GOMAXPROCS(0),
	}
}

// Logs CPU and memory information
func (c *Context) LogSystem() {
	c.Log.Info().
		Str("cpu", cpuid.CPU.BrandName).
		Int("physicalCores", cpuid.CPU.PhysicalCores).
		Int("logicalCores", cpuid.CPU.LogicalCores).
		Int("threadsPerCore", cpuid.CPU.ThreadsPerCore).
		Bool("avx2", cpuid.CPU.AVX2()).
		Int("memoryMB", c.MemoryMB).
		Int("budgetMB", c.BudgetMB).
		Int("maxThreads", c.MaxThreads).
		Msg("system")
}

// Reserves the given number of bytes from the memory budget, blocking until enough is available.
// Requests larger than the budget run alone. Returns a function which releases the reservation
func (c *Context) Reserve(bytes int64) (release func()) {
	budget := int64(c.BudgetMB) * 1024 * 1024
	if budget <= 0 || bytes <= 0 {
		return func() {}
	}
	if bytes > budget {
		bytes = budget
	}

	c.mu.Lock()
	if c.freed == nil {
		c.freed = sync.NewCond(&c.mu)
	}
	for c.reserved > 0 && c.reserved+bytes > budget {
		c.freed.Wait()
	}
	c.reserved += bytes
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			c.mu.Lock()
			c.reserved -= bytes
			c.freed.Broadcast()
			c.mu.Unlock()
		})
	}
}

// A promise for a FITS image. Returns a materialized image, or an error
type Promise func() (f *fits.Image, err error)

// Materializes all promises with given concurrency limit. Errors of individual promises
// are joined; the first one remains the cause
func MaterializeAll(ins []Promise, maxThreads int, forget bool) (outs []*fits.Image, err error) {
	if len(ins) == 0 {
		return nil, nil
	}
	if maxThreads < 1 {
		maxThreads = 1
	}
	if !forget {
		outs = make([]*fits.Image, len(ins))
	}
	limiter := make(chan bool, maxThreads)
	errs := make(chan error, len(ins))
	for i, in := range ins {
		limiter <- true
		go func(i int, theIn Promise) {
			defer func() { <-limiter }()
			f, err := theIn() // materialize the promise
			if err != nil {
				errs <- err
				return
			}
			if !forget {
				outs[i] = f
			}
			errs <- nil
		}(i, in)
	}
	for i := 0; i < cap(limiter); i++ { // wait for goroutines to finish
		limiter <- true
	}
	for i := 0; i < len(ins); i++ { // collect errors
		e := <-errs
		if e == nil {
			continue
		}
		if err == nil {
			err = e
		} else {
			err = errors.Wrapf(err, "%v", e)
		}
	}
	return RemoveNils(outs), err
}

// Remove nils from an array of fits.Images, editing the underlying array in place
func RemoveNils(images []*fits.Image) []*fits.Image {
	o := 0
	for i := 0; i < len(images); i++ {
		if images[i] != nil {
			images[o] = images[i]
			o++
		}
	}
	for i := o; i < len(images); i++ {
		images[i] = nil
	}
	return images[:o]
}

// An general image processing operator: takes n promises as inputs,
// and produces m promises as output or an error
type Operator interface {
	GetType() string
	IsActive() bool
	MakePromises(ins []Promise, c *Context) (outs []Promise, err error)
}

// Base type for operators, including type information for JSON serializing/deserializing
type OpBase struct {
	Type   string `json:"type"`
	Active bool   `json:"active"`
}

func (op *OpBase) GetType() string { return op.Type }
func (op *OpBase) IsActive() bool  { return op.Active }

// Factory method for operators. For JSON serializing/deserializing
type OperatorFactory func() Operator

// Mapping from operator type strings to factory method for the type
var operatorFactories = map[string]OperatorFactory{}

// Returns the operator factory for a given type string
func GetOperatorFactory(t string) OperatorFactory {
	return operatorFactories[t]
}

// Registers the type string of the exemplar returned by the factory
func SetOperatorFactory(f OperatorFactory) {
	t := f().GetType()
	if GetOperatorFactory(t) != nil {
		panic(fmt.Sprintf("error: re-registering operator key %s\n", t))
	}
	operatorFactories[t] = f
}

// Decodes a single polymorphic operator from JSON, starting from the registered defaults for its type
func UnmarshalOperator(raw []byte) (Operator, error) {
	var base OpBase
	if err := json.Unmarshal(raw, &base); err != nil {
		return nil, err
	}
	factory := GetOperatorFactory(base.Type)
	if factory == nil {
		return nil, errors.Errorf("unknown operator type '%s' in raw JSON message '%s'", base.Type, string(raw))
	}
	op := factory()
	if err := json.Unmarshal(raw, op); err != nil {
		return nil, err
	}
	return op, nil
}

// A unary image processing operator: given n promises as inputs,
// applies itself to each of them individually and returns n output promises or an error
type OperatorUnary interface {
	Operator
	Apply(f *fits.Image, c *Context) (fOut *fits.Image, err error)
}

// Abstract base type for unary operators. Uses golang workaround for abstract classes
// from https://golangbyexample.com/go-abstract-class/
type OpUnaryBase struct {
	OpBase
	Apply func(f *fits.Image, c *Context) (fOut *fits.Image, err error) `json:"-"`
}

func (op *OpUnaryBase) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) == 0 {
		return nil, errors.Errorf("%s operator with %d inputs", op.Type, len(ins))
	}
	outs = make([]Promise, len(ins))
	for i, in := range ins {
		outs[i] = op.MakePromise(in, c)
	}
	return outs, nil
}

func (op *OpUnaryBase) MakePromise(in Promise, c *Context) (out Promise) {
	return func() (f *fits.Image, err error) {
		if f, err = in(); err != nil { // materialize input promise
			return nil, err
		}
		if f, err = op.Apply(f, c); err != nil { // apply unary operator
			return nil, err
		}
		return f, nil
	}
}

// Load a single image from a single filename. Takes zero inputs, produces one output
type OpLoad struct {
	OpBase
	ID       int    `json:"id"`
	FileName string `json:"fileName"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadDefault() }) } // register the operator for JSON decoding

func NewOpLoadDefault() *OpLoad { return NewOpLoad(0, "") }

func NewOpLoad(id int, fileName string) *OpLoad {
	return &OpLoad{
		OpBase:   OpBase{Type: "load", Active: true},
		ID:       id,
		FileName: fileName,
	}
}

// Load image from a file. Ignores any f argument provided
func (op *OpLoad) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, errors.Errorf("%s operator with non-zero input", op.Type)
	}
	if c.RestrictPaths && !isPathAllowed(op.FileName) {
		return nil, errors.Errorf("filename %s outside current directory tree, aborting", op.FileName)
	}

	out := func() (f *fits.Image, err error) {
		// no inputs to materialize
		return op.Apply(nil, c)
	}
	return []Promise{out}, nil
}

// Returns true if a path is considered safe, i.e. not an absolute path,
// and doesn't contain the ".." characters to change to a parent directory
func isPathAllowed(p string) bool {
	if filepath.IsAbs(p) { // relative paths only
		return false
	}
	if strings.Contains(p, "..") { // no going outside the tree
		return false
	}
	return true
}

func (op *OpLoad) Apply(f *fits.Image, c *Context) (result *fits.Image, err error) {
	f, err = fits.NewImageFromFile(op.FileName, op.ID, c.Log)
	if err != nil {
		return nil, err
	}

	ev := c.Log.Info()
	if f.Stats.Max()-f.Stats.Min() < 1e-8 {
		ev = c.Log.Warn().Bool("lowDynamicRange", true)
	}
	ev.Msgf("%d: Loaded %s image with %v from %s", f.ID, f.DimensionsToString(), f.Stats, f.FileName)
	return f, nil
}

// Load many images from a slice of filename patterns with wildcards.
// Takes zero inputs, produces n outputs
type OpLoadMany struct {
	OpBase
	FilePatterns []string `json:"filePatterns"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpLoadManyDefault() }) } // register the operator for JSON decoding

func NewOpLoadManyDefault() *OpLoadMany { return NewOpLoadMany(nil) }

func NewOpLoadMany(filePatterns []string) *OpLoadMany {
	return &OpLoadMany{
		OpBase:       OpBase{Type: "loadMany", Active: true},
		FilePatterns: filePatterns,
	}
}

// Turn filename wildcards into list of file load operators
func (op *OpLoadMany) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) > 0 {
		return nil, errors.Errorf("%s operator with non-zero input", op.Type)
	}
	for _, pattern := range op.FilePatterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "pattern %s", pattern)
		}
		for _, match := range matches {
			if c.RestrictPaths && !isPathAllowed(match) {
				c.Log.Warn().Msgf("Pattern match %s outside current directory tree, skipping", match)
				continue
			}
			opLoad := NewOpLoad(len(outs), match)
			promises, err := opLoad.MakePromises(nil, c)
			if err != nil {
				return nil, err
			}
			outs = append(outs, promises...)
		}
	}
	if len(outs) == 0 {
		return nil, errors.Errorf("%s operator with no files to load from pattern %v", op.Type, op.FilePatterns)
	}
	c.Log.Info().Msgf("Found %d files.", len(outs))
	return outs, nil
}

// Percentiles which previews are scaled between unless a fixed range is given
const (
	PreviewLow  = 0.005
	PreviewHigh = 0.995
)

// Saves given promise under a given filename, with pattern expansion for %d based on the image id.
// Takes one input, produces one output (the materialized but unchanged input)
type OpSave struct {
	OpUnaryBase
	FilePattern string    `json:"filePattern"`
	Range       []float32 `json:"range,omitempty"` // fixed [min, max] for JPEG and TIFF output. Percentiles if empty
	Gamma       float32   `json:"gamma"`
	Quality     int       `json:"quality"` // JPEG quality
}

func init() { SetOperatorFactory(func() Operator { return NewOpSaveDefault() }) } // register the operator for JSON decoding

func NewOpSaveDefault() *OpSave { return NewOpSave("") }

func NewOpSave(filenamePattern string) *OpSave {
	op := OpSave{
		OpUnaryBase: OpUnaryBase{OpBase: OpBase{Type: "save", Active: filenamePattern != ""}},
		FilePattern: filenamePattern,
		Gamma:       1,
		Quality:     95,
	}
	op.OpUnaryBase.Apply = op.Apply // assign class method to superclass abstract method
	return &op
}

// Creates a save operator which maps the fixed range [min, max] to black and white for previews
func NewOpSaveRange(filenamePattern string, min, max float32) *OpSave {
	op := NewOpSave(filenamePattern)
	op.Range = []float32{min, max}
	return op
}

// Returns the file name for the given image id
func (op *OpSave) FileName(id int) string {
	if strings.Contains(op.FilePattern, "%d") {
		return fmt.Sprintf(op.FilePattern, id)
	}
	return op.FilePattern
}

// Returns the scaling for previews of the image, from the fixed range if present, else from percentiles
func (op *OpSave) Scaling(f *fits.Image) fits.Scaling {
	if len(op.Range) == 2 {
		return fits.Scaling{Min: op.Range[0], Max: op.Range[1], Gamma: op.Gamma}
	}
	qs := stats.FastApproxQuantiles(f.Data, []float64{PreviewLow, PreviewHigh}, stats.DefaultSamples)
	return fits.Scaling{Min: qs[0], Max: qs[1], Gamma: op.Gamma}
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

func (op *OpSave) Apply(f *fits.Image, c *Context) (result *fits.Image, err error) {
	if !op.Active || op.FilePattern == "" {
		return f, nil
	}
	fileName := op.FileName(f.ID)
	if c.RestrictPaths && !isPathAllowed(fileName) {
		return nil, errors.Errorf("%d: filename %s outside current directory tree, aborting", f.ID, fileName)
	}
	fnLower := strings.ToLower(fileName)

	switch {
	case hasAnySuffix(fnLower, ".fits", ".fit", ".fts", ".fits.gz", ".fit.gz", ".fts.gz", ".fits.gzip", ".fit.gzip", ".fts.gzip"):
		c.Log.Info().Msgf("%d: Writing %s pixel FITS to %s", f.ID, f.DimensionsToString(), fileName)
		err = f.WriteFile(fileName)
	case hasAnySuffix(fnLower, ".tif", ".tiff"):
		s := op.Scaling(f)
		c.Log.Info().Msgf("%d: Writing %s pixel 16-bit TIFF to %s, range [%g, %g]", f.ID, f.DimensionsToString(), fileName, s.Min, s.Max)
		err = f.WriteTIFF16ToFile(fileName, s)
	case hasAnySuffix(fnLower, ".jpg", ".jpeg"):
		s := op.Scaling(f)
		c.Log.Info().Msgf("%d: Writing %s pixel JPEG to %s, range [%g, %g]", f.ID, f.DimensionsToString(), fileName, s.Min, s.Max)
		err = f.WriteJPGToFile(fileName, s, op.Quality)
	default:
		err = errors.Errorf("unknown suffix")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%d: error writing to file %s", f.ID, fileName)
	}
	return f, nil
}

// Applies a sequence of operators to a promise. Number of inputs, outputs as per the chained steps
type OpSequence struct {
	OpBase
	Steps    []Operator        `json:"-"`     // the actual steps
	StepsRaw []json.RawMessage `json:"steps"` // helper for unmarshaling
}

func init() { SetOperatorFactory(func() Operator { return NewOpSequenceDefault() }) } // register the operator for JSON decoding

func NewOpSequenceDefault() *OpSequence { return NewOpSequence() }

func NewOpSequence(steps ...Operator) *OpSequence {
	return &OpSequence{
		OpBase: OpBase{Type: "seq", Active: len(steps) > 0},
		Steps:  steps,
	}
}

// Unmarshals a sequence of polymorphic operators from JSON.
// Uses temporary op.StepsRaw inspired by https://alexkappa.medium.com/json-polymorphism-in-go-4cade1e58ed1
func (op *OpSequence) UnmarshalJSON(b []byte) error {
	type alias OpSequence
	if err := json.Unmarshal(b, (*alias)(op)); err != nil {
		return err
	}
	op.Steps = nil
	for _, raw := range op.StepsRaw {
		step, err := UnmarshalOperator(raw)
		if err != nil {
			return err
		}
		op.Steps = append(op.Steps, step)
	}
	op.StepsRaw = nil
	return nil
}

// Appends one or more operators to the existing sequence
func (op *OpSequence) Append(steps ...Operator) {
	op.Steps = append(op.Steps, steps...)
}

// Marshals a sequence with polymorphic operators to JSON.
// Uses the actual op.Steps with label "steps", and ignores op.StepsRaw
func (op *OpSequence) MarshalJSON() (bs []byte, err error) {
	buf := bytes.Buffer{}
	buf.WriteString("{\"type\":")
	inner, err := json.Marshal(op.Type)
	if err != nil {
		return nil, err
	}
	buf.Write(inner)
	fmt.Fprintf(&buf, ", \"active\":%v, \"steps\":", op.Active)
	if op.Steps == nil {
		buf.WriteString("[]")
	} else {
		inner, err = json.Marshal(op.Steps)
		if err != nil {
			return nil, err
		}
		buf.Write(inner)
	}
	buf.WriteRune('}')
	return buf.Bytes(), nil
}

func (op *OpSequence) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	return op.applyRecursive(op.Steps, ins, c)
}

func (op *OpSequence) applyRecursive(steps []Operator, ins []Promise, c *Context) (outs []Promise, err error) {
	if len(steps) == 0 {
		return ins, nil
	}
	if steps[0].IsActive() {
		if ins, err = steps[0].MakePromises(ins, c); err != nil {
			return nil, err
		}
	}
	return op.applyRecursive(steps[1:], ins, c)
}

// Applies a single operator to each input. Takes n inputs, produces n outputs
type OpForEach struct {
	OpBase
	Operation Operator `json:"operation"`
}

func init() { SetOperatorFactory(func() Operator { return NewOpForEachDefault() }) } // register the operator for JSON decoding

func NewOpForEachDefault() *OpForEach { return NewOpForEach(nil) }

func NewOpForEach(operation Operator) *OpForEach {
	return &OpForEach{
		OpBase:    OpBase{Type: "forEach", Active: operation != nil},
		Operation: operation,
	}
}

// Decodes the embedded polymorphic operation via the factory registry
func (op *OpForEach) UnmarshalJSON(b []byte) error {
	var aux struct {
		OpBase
		Operation json.RawMessage `json:"operation"`
	}
	aux.OpBase = op.OpBase
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	op.OpBase = aux.OpBase
	if len(aux.Operation) == 0 || string(aux.Operation) == "null" {
		op.Operation = nil
		return nil
	}
	operation, err := UnmarshalOperator(aux.Operation)
	if err != nil {
		return err
	}
	op.Operation = operation
	return nil
}

// Applies the operation to every input individually
func (op *OpForEach) MakePromises(ins []Promise, c *Context) (outs []Promise, err error) {
	if len(ins) == 0 {
		return ins, nil
	}
	if op.Operation == nil {
		return nil, errors.Errorf("%s operator has no operation to apply", op.Type)
	}
	for _, in := range ins {
		out, err := op.Operation.MakePromises([]Promise{in}, c)
		if err != nil {
			return nil, err
		}
		if len(out) != 1 {
			return nil, errors.Errorf("%s operator needs exactly one promise from embedded operation", op.Type)
		}
		outs = append(outs, out[0])
	}
	return outs, nil
}
