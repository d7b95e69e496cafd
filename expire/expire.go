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

// Package expire implements the expiry loop (spec §4.8 "do_expire"):
// for every service with a stateful session policy, evict stale
// session-table entries and sweep the pending-free list under the
// service mutex.
package expire

import (
	"context"
	"time"

	"github.com/jhill/pound/service"
)

// Sweep runs one pass of spec §4.8 over services: services with
// PolicyNone, or a negative TTL (consistent-hash, no table, spec §3),
// are skipped — neither ever populates a session table.
func Sweep(services []*service.Service, now time.Time) {
	for _, svc := range services {
		if svc.Policy == service.PolicyNone || svc.TTL < 0 {
			continue
		}

		svc.Lock()
		svc.Sessions().ExpireTTL(now, svc.TTL, svc.DeathTTL)
		svc.Sessions().SweepPending()
		svc.Unlock()
	}
}

// Run drives Sweep on a ticker until ctx is done (spec §5 "one timer
// thread running §4.7-4.9... in a single sequential loop"). expireTo
// is the tick interval; each tick passes the current time to Sweep.
func Run(ctx context.Context, expireTo time.Duration, servicesFn func() []*service.Service) {
	ticker := time.NewTicker(expireTo)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Sweep(servicesFn(), time.Now())
		}
	}
}
