/*
 * MIT License
 *
 * Copyright (c) 2024 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package atomic provides a generic, lock-free Value[T] used for the
// fields the concurrency model (spec §5) allows to be read without a
// lock: a back-end's alive/disabled flags, and the ephemeral TLS key
// array readers pick from.
package atomic

import "sync/atomic"

// Value is a type-safe wrapper over sync/atomic.Value.
type Value[T any] interface {
	Load() T
	Store(v T)
	Swap(new T) (old T)
}

type box[T any] struct {
	v T
}

type val[T any] struct {
	av atomic.Value
}

// NewValue returns a new Value[T] initialized to the zero value of T.
func NewValue[T any]() Value[T] {
	v := &val[T]{}
	var zero T
	v.av.Store(box[T]{v: zero})
	return v
}

func (o *val[T]) Load() T {
	if b, ok := o.av.Load().(box[T]); ok {
		return b.v
	}
	var zero T
	return zero
}

func (o *val[T]) Store(v T) {
	o.av.Store(box[T]{v: v})
}

func (o *val[T]) Swap(new T) (old T) {
	if b, ok := o.av.Swap(box[T]{v: new}).(box[T]); ok {
		return b.v
	}
	var zero T
	return zero
}

