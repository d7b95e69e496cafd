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

// Package keyrotation maintains the pool of ephemeral asymmetric keys
// referenced by spec §5 ("a process-wide mutex protects the RSA
// ephemeral-key array"), supplemented per SPEC_FULL.md §4.13: a small
// set of ECDSA P-256 keys rotated every T_RSA_KEYS seconds, read
// lock-free by listeners wiring forward-secret session resumption into
// their TLS configuration.
package keyrotation

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"time"

	libatm "github.com/jhill/pound/atomic"
	"github.com/jhill/pound/logger"
)

// Pool holds the current generation of ephemeral keys and rotates them
// on a timer. Readers call Current() and never block; the rotation
// loop is the only writer (spec §5 "a process-wide mutex protects the
// RSA ephemeral-key array" — here realized as a single atomic pointer
// swap instead of a mutex, since the array is replaced wholesale on
// each rotation rather than mutated in place).
type Pool struct {
	keys libatm.Value[[]*ecdsa.PrivateKey]
	size int
}

// New creates a Pool of size ephemeral keys, generating the first
// generation synchronously so Current() never returns an empty slice.
func New(size int) (*Pool, error) {
	if size <= 0 {
		size = 1
	}
	p := &Pool{keys: libatm.NewValue[[]*ecdsa.PrivateKey](), size: size}
	keys, err := generate(size)
	if err != nil {
		return nil, err
	}
	p.keys.Store(keys)
	return p, nil
}

func generate(n int) ([]*ecdsa.PrivateKey, error) {
	keys := make([]*ecdsa.PrivateKey, n)
	for i := range keys {
		k, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
		if err != nil {
			return nil, ErrorGenerate.Error(err)
		}
		keys[i] = k
	}
	return keys, nil
}

// Current returns the live key array for lock-free reads; readers pick
// one uniformly at random from it (spec §5: "readers pick one uniformly
// at random from the current array").
func (p *Pool) Current() []*ecdsa.PrivateKey { return p.keys.Load() }

// RotateOnce generates a fresh key generation and swaps it in. Exposed
// so the single sequential timer loop (package runtime, grounded on
// the teacher's thr_timer which fires RSAgen/rescale/do_resurect from
// one thread on their own independent intervals rather than one ticker
// per task) can fire key rotation itself instead of this package
// owning its own ticker goroutine.
func (p *Pool) RotateOnce() {
	keys, err := generate(p.size)
	if err != nil {
		logger.ErrorLevel.LogErrorCtxf("keyrotation: generate", err)
		return
	}
	p.keys.Store(keys)
	logger.DebugLevel.Logf("keyrotation: rotated %d ephemeral keys", len(keys))
}

// Run rotates the key pool every interval until ctx is cancelled (spec
// §5 "Ephemeral asymmetric keys are rotated every T_RSA_KEYS seconds").
// Kept as a standalone loop for callers that want key rotation on its
// own goroutine; package runtime instead calls RotateOnce directly from
// its single sequential timer loop.
func (p *Pool) Run(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.RotateOnce()
		}
	}
}
