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

// Package session implements the session table (spec §4.6): a hash map
// from session key to Session record, with insert/lookup/remove-by-key
// and predicate-driven sweeps for expiry and back-end eviction.
//
// The table itself does not hash the key (spec names FNV-1a over the
// key as the bucketing scheme of the original hand-rolled hash table);
// here a plain Go map already gives O(1) lookup, so FNV-1a is kept only
// where the spec's semantics actually depend on its bit pattern — the
// consistent-hash back-end selector in package service, not here.
package session

import (
	"sync"
	"time"

	libatm "github.com/jhill/pound/atomic"
)

// Session is one session-table entry: a session key bound to a
// back-end, plus request-path bookkeeping (spec §3 "Session table").
type Session struct {
	mu sync.Mutex

	Key string

	// BEKey identifies the bound back-end by its stable key, not by
	// pointer, so the session table never holds a direct reference
	// into a service's back-end slice (spec §9 redesign: tables hold
	// ordinary Go references, the pending-free list becomes a
	// try-lock sweep rather than a manual refcount).
	BEKey string

	Created  time.Time
	LastAcc  time.Time
	NReq     uint64
	LastAddr string
	LastURL  string
	LastUser string
	LBInfo   string

	deletePending libatm.Value[int]
}

// New creates a bound session for key, recording the back-end's key
// (spec §4.5 "insert a new binding to the back-end that served the
// request").
func New(key, beKey string, now time.Time) *Session {
	s := &Session{
		Key:     key,
		BEKey:   beKey,
		Created: now,
		LastAcc: now,
	}
	s.deletePending = libatm.NewValue[int]()
	return s
}

// Touch updates LastAcc and bumps the request counter; called on every
// table lookup (spec §4.6 "lookup (touches last_acc)").
func (s *Session) Touch(now time.Time, clientAddr, url, user string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.LastAcc = now
	s.NReq++
	if clientAddr != "" {
		s.LastAddr = clientAddr
	}
	if url != "" {
		s.LastURL = url
	}
	if user != "" {
		s.LastUser = user
	}
}

// SetLBInfo records the first capture group of the first matching
// LB-info header (spec §4.5 step 3).
func (s *Session) SetLBInfo(v string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LBInfo = v
}

// MarkDeletePending increments the delete-pending counter (spec §4.5
// step 1, §4.6 "delete_pending").
func (s *Session) MarkDeletePending() int {
	v := s.deletePending.Load() + 1
	s.deletePending.Store(v)
	return v
}

func (s *Session) DeletePending() bool { return s.deletePending.Load() > 0 }

// TryLock attempts to acquire the session's own mutex without
// blocking, used by the expiry sweep to avoid racing the router, which
// may hold this lock across back-end I/O (spec §4.6 "Deletion
// semantics" / §5 "Lock ordering").
func (s *Session) TryLock() bool { return s.mu.TryLock() }

func (s *Session) Unlock() { s.mu.Unlock() }

// Snapshot is a read-only copy of a session's fields, for the control
// server's session dump (spec §6 "Session dumps emit... the session
// record").
type Snapshot struct {
	Key, BEKey                       string
	Created, LastAcc                 time.Time
	NReq                             uint64
	LastAddr, LastURL, LastUser, LBI string
	DeletePending                    bool
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return Snapshot{
		Key:           s.Key,
		BEKey:         s.BEKey,
		Created:       s.Created,
		LastAcc:       s.LastAcc,
		NReq:          s.NReq,
		LastAddr:      s.LastAddr,
		LastURL:       s.LastURL,
		LastUser:      s.LastUser,
		LBI:           s.LBInfo,
		DeletePending: s.DeletePending(),
	}
}
