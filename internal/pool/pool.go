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

// Package pool keeps constant sized scratch arrays around, to reduce
// memory allocation overhead of the convolution and transform passes.
// Arrays handed out are not cleared; callers overwrite them completely.
package pool

import (
	"runtime"
	"sync"
)

// Pool of constant sized arrays of given type, keyed by array size
type sizedPool[T any] struct {
	sync.RWMutex
	m map[int]*sync.Pool
}

func newSizedPool[T any]() *sizedPool[T] {
	return &sizedPool[T]{m: make(map[int]*sync.Pool)}
}

// Returns a pool for arrays of the given size
func (p *sizedPool[T]) getSized(size int) *sync.Pool {
	p.RLock()
	pool := p.m[size]
	p.RUnlock()
	if pool != nil {
		return pool
	}
	p.Lock()
	defer p.Unlock()
	if pool = p.m[size]; pool == nil {
		pool = &sync.Pool{
			New: func() interface{} {
				return make([]T, size)
			},
		}
		p.m[size] = pool
	}
	return pool
}

func (p *sizedPool[T]) get(size int) []T {
	return p.getSized(size).Get().([]T)
}

func (p *sizedPool[T]) put(arr []T) {
	if cap(arr) == 0 {
		return
	}
	p.getSized(cap(arr)).Put(arr[:cap(arr)])
}

func (p *sizedPool[T]) clear() {
	p.Lock()
	p.m = make(map[int]*sync.Pool)
	p.Unlock()
}

var (
	poolFloat32    = newSizedPool[float32]()
	poolFloat64    = newSizedPool[float64]()
	poolComplex128 = newSizedPool[complex128]()
)

// Retrieves an array of given size from pool
func GetFloat32(size int) []float32 { return poolFloat32.get(size) }

// Returns an array to the pool
func PutFloat32(arr []float32) { poolFloat32.put(arr) }

// Retrieves an array of given size from pool
func GetFloat64(size int) []float64 { return poolFloat64.get(size) }

// Returns an array to the pool
func PutFloat64(arr []float64) { poolFloat64.put(arr) }

// Retrieves an array of given size from pool
func GetComplex128(size int) []complex128 { return poolComplex128.get(size) }

// Returns an array to the pool
func PutComplex128(arr []complex128) { poolComplex128.put(arr) }

// Clears all memory pools and triggers garbage collection
func Clear() {
	poolFloat32.clear()
	poolFloat64.clear()
	poolComplex128.clear()
	runtime.GC()
}
