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

// Package context provides the explicit, non-global runtime handle
// threaded through the timer thread, the control thread and every
// request thread, replacing the process-wide globals (listener list,
// service list, key arrays, log facility) the original design used.
package context

import (
	"context"
	"sync"
	"time"
)

// Config is a generic key/value store bound to a cancellable context,
// used as the one runtime object every subsystem receives instead of
// reaching for package-level globals.
type Config[K comparable] interface {
	context.Context

	Load(key K) (interface{}, bool)
	Store(key K, value interface{})
	Delete(key K)
	Walk(fct func(key K, value interface{}) bool)

	Cancel()
	GetContext() context.Context
}

type cfg[K comparable] struct {
	ctx context.Context
	cnl context.CancelFunc
	mu  sync.RWMutex
	m   map[K]interface{}
}

// New creates a Config rooted on parent() if non-nil, else
// context.Background().
func New[K comparable](parent func() context.Context) Config[K] {
	var base context.Context
	if parent != nil {
		base = parent()
	}
	if base == nil {
		base = context.Background()
	}

	ctx, cnl := context.WithCancel(base)
	return &cfg[K]{
		ctx: ctx,
		cnl: cnl,
		m:   make(map[K]interface{}),
	}
}

// Deadline/Done/Err/Value satisfy context.Context by delegating to the
// wrapped context.
func (c *cfg[K]) Deadline() (deadline time.Time, ok bool) { return c.ctx.Deadline() }
func (c *cfg[K]) Done() <-chan struct{}             { return c.ctx.Done() }
func (c *cfg[K]) Err() error                        { return c.ctx.Err() }
func (c *cfg[K]) Value(key interface{}) interface{} { return c.ctx.Value(key) }

func (c *cfg[K]) Load(key K) (interface{}, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.m[key]
	return v, ok
}

func (c *cfg[K]) Store(key K, value interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = value
}

func (c *cfg[K]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, key)
}

func (c *cfg[K]) Walk(fct func(key K, value interface{}) bool) {
	c.mu.RLock()
	cp := make(map[K]interface{}, len(c.m))
	for k, v := range c.m {
		cp[k] = v
	}
	c.mu.RUnlock()

	for k, v := range cp {
		if !fct(k, v) {
			return
		}
	}
}

func (c *cfg[K]) Cancel()                      { c.cnl() }
func (c *cfg[K]) GetContext() context.Context { return c.ctx }
