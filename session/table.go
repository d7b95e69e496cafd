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

package session

import "time"

// Table is a session table (spec §4.6). It is NOT safe for concurrent
// use on its own: callers (package service) hold the owning service's
// mutex around every Table method, matching the spec's "table
// operations run under the service mutex" rule (§4.5) and the
// documented lock order "service -> session, never the reverse" (§5).
type Table struct {
	m       map[string]*Session
	pending []*Session
}

func NewTable() *Table {
	return &Table{m: make(map[string]*Session)}
}

// Insert adds or overwrites the binding for key. If a prior session
// already occupied key, it is queued on the pending-free list rather
// than dropped outright, so a concurrent holder of its mutex (the
// router, mid-I/O) is never invalidated out from under it (spec §4.6
// "insert (overwriting returns and frees the prior mapping)").
func (t *Table) Insert(key string, s *Session) {
	if prev, ok := t.m[key]; ok && prev != s {
		t.pending = append(t.pending, prev)
	}
	t.m[key] = s
}

// Lookup returns the session bound to key, touching its LastAcc/NReq
// bookkeeping, or (nil, false) on a miss (spec §4.6 "lookup (touches
// last_acc)").
func (t *Table) Lookup(key string, now time.Time, clientAddr, url, user string) (*Session, bool) {
	s, ok := t.m[key]
	if !ok {
		return nil, false
	}
	s.Touch(now, clientAddr, url, user)
	return s, true
}

// Peek returns the session bound to key without updating bookkeeping.
func (t *Table) Peek(key string) (*Session, bool) {
	s, ok := t.m[key]
	return s, ok
}

// RemoveByKey deletes the entry for key, if any, queuing its session
// for the pending-free sweep.
func (t *Table) RemoveByKey(key string) {
	if s, ok := t.m[key]; ok {
		delete(t.m, key)
		t.pending = append(t.pending, s)
	}
}

// Len reports the number of live entries.
func (t *Table) Len() int { return len(t.m) }

// Walk invokes fn for every live entry. fn must not mutate the table;
// collect victims and remove them after Walk returns (spec REDESIGN
// FLAGS: "ordinary ordered iteration..., collecting victims into a
// local buffer and removing them after the walk").
func (t *Table) Walk(fn func(key string, s *Session)) {
	for k, s := range t.m {
		fn(k, s)
	}
}

// ExpireTTL removes entries whose LastAcc predates now-ttl, or
// now-deathTTL when the entry has a pending delete (spec §4.6
// "Expire"). Returns the removed keys' sessions, queued for the
// pending-free sweep.
func (t *Table) ExpireTTL(now time.Time, ttl, deathTTL time.Duration) []*Session {
	var victims []string

	for k, s := range t.m {
		s.mu.Lock()
		last := s.LastAcc
		pending := s.DeletePending()
		s.mu.Unlock()

		limit := ttl
		if pending {
			limit = deathTTL
		}
		if now.Sub(last) >= limit {
			victims = append(victims, k)
		}
	}

	removed := make([]*Session, 0, len(victims))
	for _, k := range victims {
		if s, ok := t.m[k]; ok {
			delete(t.m, k)
			removed = append(removed, s)
		}
	}
	t.pending = append(t.pending, removed...)
	return removed
}

// CleanByBackEnd removes every entry bound to beKey (spec §4.6
// "Clean-by-backend", used after a back-end kill per §4.4).
func (t *Table) CleanByBackEnd(beKey string) int {
	var victims []string
	for k, s := range t.m {
		if s.BEKey == beKey {
			victims = append(victims, k)
		}
	}
	for _, k := range victims {
		t.RemoveByKey(k)
	}
	return len(victims)
}

// CleanByContent removes every entry whose session pointer equals s
// (spec §4.6 "Clean-by-session-content", used by upd_session's
// content-equal sweep when the key used for insertion is unknown at
// end-of-session time).
func (t *Table) CleanByContent(s *Session) int {
	var victims []string
	for k, v := range t.m {
		if v == s {
			victims = append(victims, k)
		}
	}
	for _, k := range victims {
		delete(t.m, k)
	}
	t.pending = append(t.pending, s)
	return len(victims)
}

// SweepPending tries to free every session on the pending-free list:
// on a successful try-lock the session is dropped for good (Go's
// collector reclaims it once no reference remains — see spec §9
// REDESIGN FLAGS, "the pending-free list becomes unnecessary" under
// reference-counted ownership); on failure it stays queued for the
// next sweep (spec §4.8 "sweep the pending-free list (try-lock each
// session; on success, free; on failure, leave in list")).
func (t *Table) SweepPending() (freed, remaining int) {
	kept := t.pending[:0]
	for _, s := range t.pending {
		if s.TryLock() {
			s.Unlock()
			freed++
			continue
		}
		kept = append(kept, s)
	}
	t.pending = kept
	return freed, len(t.pending)
}

// PendingLen reports the number of sessions awaiting the next sweep.
func (t *Table) PendingLen() int { return len(t.pending) }
