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

// Package runtime holds the explicit, non-global runtime handle (spec
// §5 "Concurrency & resource model") that replaces the teacher's
// process-wide globals: the immutable listener/service topology built
// by package config, and the single sequential timer loop that fires
// health, rescale, expiry and key rotation from one goroutine (spec §5
// "one timer thread running §4.7-4.9 and key rotation in a single
// sequential loop").
package runtime

import (
	"time"

	"github.com/jhill/pound/errors"
	"github.com/jhill/pound/listener"
	"github.com/jhill/pound/rescale"
	"github.com/jhill/pound/service"
)

// Topology is the immutable listener/service graph a config loader
// hands to the runtime (spec §6 "Config loader hands the core a fully-
// built listener/service/back-end graph; the core assumes immutability
// of topology after load").
type Topology struct {
	Listeners []*listener.Listener
	Global    []*service.Service
}

// Services returns every distinct service reachable from the topology,
// whether bound to a listener or registered globally — the flat list
// the timer loop's health/rescale/expire passes sweep over.
func (t *Topology) Services() []*service.Service {
	seen := make(map[*service.Service]bool)
	var out []*service.Service

	add := func(s *service.Service) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	for _, l := range t.Listeners {
		for _, s := range l.Services() {
			add(s)
		}
	}
	for _, s := range t.Global {
		add(s)
	}
	return out
}

// Scalables adapts Services to the rescale package's narrower
// interface; *service.Service already satisfies it structurally via
// BackEnds/PriorityOf/Bump.
func (t *Topology) Scalables() []rescale.Scalable {
	svcs := t.Services()
	out := make([]rescale.Scalable, len(svcs))
	for i, s := range svcs {
		out[i] = s
	}
	return out
}

// Validate reports an error if the topology has nothing to route
// against at all (neither a listener nor a global service was
// configured) — a config loader should reject this before starting any
// background loop.
func (t *Topology) Validate() errors.Error {
	if len(t.Listeners) == 0 && len(t.Global) == 0 {
		return ErrorEmptyTopology.Error()
	}
	return nil
}

// minDuration returns the smallest of the given positive durations,
// ignoring any that are zero or negative (disabled). Zero if none are
// positive.
func minDuration(ds ...time.Duration) time.Duration {
	var min time.Duration
	for _, d := range ds {
		if d <= 0 {
			continue
		}
		if min == 0 || d < min {
			min = d
		}
	}
	return min
}
