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

package service

import libbe "github.com/jhill/pound/backend"

// PriorityOf reads b.Priority under the service mutex — every other
// mutation or cumulative-sum read of Priority (AddBackEnd, recompute,
// RandBackEnd, HashBackEnd, Bump) happens under the same lock, so this
// is the only race-free way for package rescale to inspect it.
func (s *Service) PriorityOf(b *libbe.BackEnd) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return b.Priority
}

// Bump adjusts a back-end's priority by delta and recomputes tot_pri,
// both under the service mutex (spec §4.9 "priority += 1, tot_pri +=
// 1" / "priority -= 1, tot_pri -= 1"). Priority is floored at 1: the
// rescale loop's decrement branch is only ever invoked by its caller
// when priority > 1, but the floor keeps this entry point safe to call
// unconditionally. Counters are halved afterward, outside the service
// lock (back-end counters have their own independent mutex, spec §5),
// once the back-end has accumulated more than bot samples (spec §4.9
// "halve its running counters while n_requests > RESCALE_BOT").
func (s *Service) Bump(b *libbe.BackEnd, delta int, bot uint64) {
	s.mu.Lock()
	b.Priority += delta
	if b.Priority < 1 {
		b.Priority = 1
	}
	s.recompute()
	s.mu.Unlock()

	for b.Snapshot().NRequests > bot {
		b.HalveCounters()
	}
}
