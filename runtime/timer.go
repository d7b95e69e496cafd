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

package runtime

import (
	"context"
	"time"

	"github.com/jhill/pound/expire"
	"github.com/jhill/pound/health"
	"github.com/jhill/pound/keyrotation"
	"github.com/jhill/pound/logger"
	"github.com/jhill/pound/rescale"
)

// HealthParams bundles the health loop's tick interval and per-probe
// dial timeout (spec §4.7 alive_to / conn_to).
type HealthParams struct {
	AliveTo time.Duration
	ConnTo  time.Duration
}

// TimerParams bundles every background loop's operator-configured
// interval (spec §4.7-4.9, §5 "T_RSA_KEYS"), zero disabling that loop.
type TimerParams struct {
	Health        HealthParams
	RescaleTo     time.Duration
	Rescale       rescale.Params
	ExpireTo      time.Duration
	KeyRotationTo time.Duration
}

// Timer is the single timer thread (spec §5 "one timer thread running
// §4.7-4.9 and key rotation in a single sequential loop"), grounded on
// the teacher's original thr_timer (original_source/svc.c): wake at the
// shortest configured interval, and on each wake fire whichever loops'
// own interval has elapsed since they last ran, in a fixed order
// (key rotation, rescale, health, expire — matching thr_timer's
// RSAgen/rescale/resurrect/expire order) — never more than one loop
// running at a time, never a dedicated goroutine per loop.
type Timer struct {
	Topology *Topology
	Params   TimerParams

	// Keys is the ephemeral key pool key rotation fires against; nil
	// disables key rotation regardless of Params.KeyRotationTo.
	Keys *keyrotation.Pool

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (t *Timer) now() time.Time {
	if t.Now != nil {
		return t.Now()
	}
	return time.Now()
}

// Run blocks, firing due loops on each wake, until ctx is cancelled.
func (t *Timer) Run(ctx context.Context) {
	p := t.Params

	wait := minDuration(p.Health.AliveTo, p.RescaleTo, p.ExpireTo, p.KeyRotationTo)
	if wait <= 0 {
		wait = time.Second
	}

	start := t.now()
	lastRSA, lastRescale, lastAlive, lastExpire := start, start, start, start

	ticker := time.NewTicker(wait)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		cur := t.now()

		if t.Keys != nil && p.KeyRotationTo > 0 && cur.Sub(lastRSA) >= p.KeyRotationTo {
			lastRSA = cur
			logger.DebugLevel.Logf("timer: generating ephemeral keys")
			t.Keys.RotateOnce()
		}

		if p.RescaleTo > 0 && cur.Sub(lastRescale) >= p.RescaleTo {
			lastRescale = cur
			logger.DebugLevel.Logf("timer: processing dynamic rescaling")
			for _, s := range t.Topology.Scalables() {
				rescale.Pass(s, p.Rescale)
			}
		}

		if p.Health.AliveTo > 0 && cur.Sub(lastAlive) >= p.Health.AliveTo {
			lastAlive = cur
			logger.DebugLevel.Logf("timer: checking for back-end resurrection")
			health.Check(t.Topology.Services(), health.DefaultDialer, p.Health.ConnTo)
		}

		if p.ExpireTo > 0 && cur.Sub(lastExpire) >= p.ExpireTo {
			lastExpire = cur
			logger.DebugLevel.Logf("timer: pruning expired sessions")
			expire.Sweep(t.Topology.Services(), cur)
		}
	}
}
