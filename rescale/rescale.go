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

// Package rescale implements the dynamic-scaling loop (spec §4.9
// "do_rescale"): every service handed to Pass gets its back-ends'
// priorities nudged up or down by how far each back-end's running
// latency average sits from the service's mean, in units of sample
// standard deviation. There is no per-service switch: a service cannot
// opt out of rescaling on its own.
package rescale

import (
	"context"
	"math"
	"time"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/service"
)

// Params bundles the two operator-configured sample-size gates spec
// §4.9 names (RESCALE_MIN/RESCALE_BOT); the ±3σ band is fixed, not a
// parameter.
type Params struct {
	// Min is RESCALE_MIN: a back-end needs at least this many samples
	// before its average is trusted for rescaling.
	Min uint64
	// Bot is RESCALE_BOT: counters are halved after a priority bump
	// only once the back-end has this many samples, so a just-reset
	// back-end isn't immediately halved again.
	Bot uint64
}

// Scalable is the subset of Service dynamic scaling needs: the
// back-end list, a lock-guarded priority read, and the ability to
// mutate one back-end's priority and the service's tot_pri together
// under the service mutex. Rescale itself never takes the service lock
// directly — Service.Bump/Service.PriorityOf do, mirroring KillBackEnd's
// "mutate through one locked entry point" shape.
type Scalable interface {
	BackEnds() []*libbe.BackEnd
	PriorityOf(b *libbe.BackEnd) int
	Bump(b *libbe.BackEnd, delta int, bot uint64)
}

// Pass runs one rescale pass over svc (spec §4.9 steps 1-2): compute
// mean/stddev of t_average across routable back-ends, then for each
// back-end with enough samples, nudge its priority by ±1 when its
// average sits more than 3σ from the mean.
func Pass(svc Scalable, p Params) {
	backends := svc.BackEnds()

	var routable []*libbe.BackEnd
	for _, b := range backends {
		if b.Routable() {
			routable = append(routable, b)
		}
	}
	if len(routable) < 2 {
		return
	}

	mean, stddev := meanStddev(routable)
	delta := 3 * stddev

	for _, b := range routable {
		snap := b.Snapshot()
		if snap.NRequests < p.Min {
			continue
		}

		switch {
		case snap.TAverage < mean-delta:
			svc.Bump(b, 1, p.Bot)
		case snap.TAverage > mean+delta && svc.PriorityOf(b) > 1:
			svc.Bump(b, -1, p.Bot)
		}
	}
}

func meanStddev(backends []*libbe.BackEnd) (mean, stddev float64) {
	n := float64(len(backends))
	for _, b := range backends {
		mean += b.TAverage()
	}
	mean /= n

	var variance float64
	for _, b := range backends {
		d := b.TAverage() - mean
		variance += d * d
	}
	if n > 1 {
		variance /= n - 1
	}
	return mean, math.Sqrt(variance)
}

// Run drives Pass on a ticker until ctx is done (spec §5 "one timer
// thread running §4.7-4.9... in a single sequential loop").
func Run(ctx context.Context, rescaleTo time.Duration, p Params, servicesFn func() []Scalable) {
	ticker := time.NewTicker(rescaleTo)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, svc := range servicesFn() {
				Pass(svc, p)
			}
		}
	}
}
