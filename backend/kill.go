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

package backend

// Mode selects the effect of Kill (spec §4.4 "Back-end state
// transitions": disable/kill/enable).
type Mode uint8

const (
	// ModeDisable marks the back-end unavailable for new sessions but
	// leaves existing bound sessions alone (an operator "soft" take-down).
	ModeDisable Mode = iota
	// ModeKill marks the back-end dead; callers are expected to also
	// purge any session bound to it (spec §4.4 "no session... has
	// be = b" after a kill).
	ModeKill
	// ModeEnable restores the back-end to alive and not-disabled.
	ModeEnable
)

// Resurrect sets alive back to true without touching the disabled flag
// (spec §4.7 Pass 2: "set alive = true on resurrected back-ends"); an
// operator-disabled back-end that the health loop resurrects stays
// disabled until explicitly re-enabled.
func (b *BackEnd) Resurrect() { b.setAlive(true) }

// Kill applies the requested state transition to b (spec §4.4). It does
// not know about sessions or services: the caller (service.KillBackEnd)
// is responsible for sweeping any session bound to b after a ModeKill,
// and for recomputing the owning service's abs_pri/tot_pri.
func (b *BackEnd) Kill(mode Mode) {
	switch mode {
	case ModeDisable:
		b.setDisabled(true)
	case ModeKill:
		b.setAlive(false)
	case ModeEnable:
		b.setAlive(true)
		b.setDisabled(false)
	}
}

// RescaleMax caps the running sample count the latency average is
// computed over; past this, UpdRequest halves both accumulators so a
// long-lived back-end's average keeps tracking recent behavior rather
// than being swamped by history (spec §4.9 "if n_requests >
// RESCALE_MAX, halve both").
const RescaleMax = 100000

// UpdRequest records the completion of one request against b: latency
// in seconds and the HTTP status code returned (spec §4.9 "upd_be").
// It updates the running request count, the running latency average,
// and the 1xx-5xx response-class counters.
func (b *BackEnd) UpdRequest(latencySeconds float64, statusCode int) {
	b.cnt.mu.Lock()
	defer b.cnt.mu.Unlock()

	b.cnt.nRequests++
	b.cnt.tRequests += latencySeconds
	if b.cnt.nRequests > RescaleMax {
		b.cnt.nRequests /= 2
		b.cnt.tRequests /= 2
	}
	b.cnt.tAverage = b.cnt.tRequests / float64(b.cnt.nRequests)

	switch {
	case statusCode >= 100 && statusCode < 200:
		b.cnt.c1xx++
	case statusCode >= 200 && statusCode < 300:
		b.cnt.c2xx++
	case statusCode >= 300 && statusCode < 400:
		b.cnt.c3xx++
	case statusCode >= 400 && statusCode < 500:
		b.cnt.c4xx++
	case statusCode >= 500 && statusCode < 600:
		b.cnt.c5xx++
	}
}

// Snapshot is an immutable copy of a back-end's counters, used by the
// rescale loop (spec §4.9) and the control server's status dump (spec
// §4.11) without holding the back-end's lock for the duration.
type Snapshot struct {
	NRequests                   uint64
	TAverage                    float64
	C1xx, C2xx, C3xx, C4xx, C5xx uint64
	Alive, Disabled             bool
}

func (b *BackEnd) Snapshot() Snapshot {
	b.cnt.mu.Lock()
	defer b.cnt.mu.Unlock()

	return Snapshot{
		NRequests: b.cnt.nRequests,
		TAverage:  b.cnt.tAverage,
		C1xx:      b.cnt.c1xx,
		C2xx:      b.cnt.c2xx,
		C3xx:      b.cnt.c3xx,
		C4xx:      b.cnt.c4xx,
		C5xx:      b.cnt.c5xx,
		Alive:     b.Alive(),
		Disabled:  b.Disabled(),
	}
}

// HalveCounters divides the running counters in half, the rescale
// loop's decay step so long-lived back-ends don't let old traffic mask
// a recent change in behavior (spec §4.9 "counter halving").
func (b *BackEnd) HalveCounters() {
	b.cnt.mu.Lock()
	defer b.cnt.mu.Unlock()

	b.cnt.nRequests /= 2
	b.cnt.tRequests /= 2
	b.cnt.c1xx /= 2
	b.cnt.c2xx /= 2
	b.cnt.c3xx /= 2
	b.cnt.c4xx /= 2
	b.cnt.c5xx /= 2
}

// TAverage returns the current running latency average in seconds.
func (b *BackEnd) TAverage() float64 {
	b.cnt.mu.Lock()
	defer b.cnt.mu.Unlock()
	return b.cnt.tAverage
}
