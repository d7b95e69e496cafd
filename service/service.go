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

// Package service implements the Service routing rule (spec §3
// "Service"): a matcher set, session policy, ordered back-end list,
// emergency back-end, session table and aggregate counters, plus the
// back-end selection algorithms (spec §4.3) and the kill_be state
// machine (spec §4.4).
//
// Grounded on the real Pound load balancer's svc.c rand_backend /
// hash_backend / kill_be (original_source/svc.c); adapted to Go's
// explicit locking idiom (one sync.Mutex per Service, matching the
// teacher's one-mutex-per-aggregate convention in golib's atomic and
// httpserver packages) rather than the C source's manual pthread
// mutex plus reference counting.
package service

import (
	"hash/fnv"
	"math/rand"
	"sync"
	"time"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/matcher"
	libsess "github.com/jhill/pound/session"
)

// Service is a routing rule: a matcher pipeline, a session policy, an
// ordered back-end list, an optional emergency back-end, a session
// table, and aggregate counters (spec §3 "Service").
type Service struct {
	mu sync.Mutex

	Name string

	URLMatch    matcher.List
	HeaderReq   matcher.List
	HeaderDeny  matcher.List

	Policy    SessionPolicy
	KeyExtr   matcher.KeyExtractor
	BEKeyName string // name of the "back-end cookie" carrying an explicit bekey
	EndOfSess matcher.List
	LBInfo    matcher.List

	TTL      time.Duration
	DeathTTL time.Duration

	backends  []*libbe.BackEnd
	emergency *libbe.BackEnd

	absPri int
	totPri int

	disabled bool
	global   bool

	sessions *libsess.Table

	nRequests uint64
}

// New builds an empty Service ready to have back-ends added.
func New(name string, policy SessionPolicy) *Service {
	return &Service{
		Name:     name,
		Policy:   policy,
		sessions: libsess.NewTable(),
	}
}

// AddBackEnd appends b to the service's back-end list and recomputes
// abs_pri/tot_pri (spec §3.1 glossary: "abs_pri = Σ priority over all
// defined back-ends; tot_pri = Σ priority over alive∧¬disabled").
func (s *Service) AddBackEnd(b *libbe.BackEnd) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.backends = append(s.backends, b)
	s.recompute()
}

// SetEmergency sets the service's fallback back-end, used when tot_pri
// drops to zero (spec §4.3 "Emergency").
func (s *Service) SetEmergency(b *libbe.BackEnd) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emergency = b
}

// recompute must be called with s.mu held.
func (s *Service) recompute() {
	abs, tot := 0, 0
	for _, b := range s.backends {
		abs += b.Priority
		if b.Alive() && !b.Disabled() {
			tot += b.Priority
		}
	}
	s.absPri = abs
	s.totPri = tot
}

func (s *Service) AbsPri() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.absPri
}

func (s *Service) TotPri() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.totPri
}

func (s *Service) Disabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disabled
}

func (s *Service) SetDisabled(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = v
}

func (s *Service) BackEnds() []*libbe.BackEnd {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*libbe.BackEnd, len(s.backends))
	copy(out, s.backends)
	return out
}

// Matches reports whether this service's matcher pipeline accepts the
// request (spec §4.1): every URL matcher matches, every require-header
// matcher finds a header, and no deny-header matcher finds a header.
// Disabled services never match.
func (s *Service) Matches(target string, headers []string) bool {
	if s.Disabled() {
		return false
	}
	if len(s.URLMatch) > 0 && !s.URLMatch.MatchAllOf(target) {
		return false
	}
	if !s.HeaderReq.MatchAll(headers) {
		return false
	}
	if !s.HeaderDeny.NoneMatch(headers) {
		return false
	}
	return true
}

// RandBackEnd implements weighted random selection (spec §4.3
// "rand_backend"): draw r in [0, tot_pri), walk back-ends skipping
// dead/disabled, return the first at which cumulative priority exceeds
// r.
func (s *Service) RandBackEnd() *libbe.BackEnd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.randBackEndLocked()
}

func (s *Service) randBackEndLocked() *libbe.BackEnd {
	if s.totPri <= 0 {
		return s.emergency
	}

	r := rand.Intn(s.totPri)
	cum := 0
	for _, b := range s.backends {
		if !b.Alive() || b.Disabled() {
			continue
		}
		cum += b.Priority
		if cum > r {
			return b
		}
	}
	return s.emergency
}

// HashBackEnd implements consistent-hash selection (spec §4.3
// "hash_backend"), used when the service's TTL is negative. Hash key by
// 32-bit FNV-1a, reduce modulo abs_pri, walk back-ends in declaration
// order (including dead/disabled, for the index computation only)
// until cumulative priority exceeds the reduced value; if the selected
// back-end is unavailable, walk forward wrapping once to the next
// alive∧enabled back-end; nil if none is found. This declaration-order
// walk over abs_pri (not tot_pri) is what gives minimal disruption when
// one back-end dies (spec §4.3).
func (s *Service) HashBackEnd(key string) *libbe.BackEnd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hashBackEndLocked(key)
}

// HashBackEndLocked is HashBackEnd for callers (router) that already
// hold s.mu.
func (s *Service) HashBackEndLocked(key string) *libbe.BackEnd {
	return s.hashBackEndLocked(key)
}

func (s *Service) hashBackEndLocked(key string) *libbe.BackEnd {
	if s.absPri <= 0 || len(s.backends) == 0 {
		return s.emergency
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	target := int(h.Sum32() % uint32(s.absPri))

	idx := -1
	cum := 0
	for i, b := range s.backends {
		cum += b.Priority
		if cum > target {
			idx = i
			break
		}
	}
	if idx < 0 {
		idx = len(s.backends) - 1
	}

	n := len(s.backends)
	for i := 0; i < n; i++ {
		b := s.backends[(idx+i)%n]
		if b.Alive() && !b.Disabled() {
			return b
		}
	}
	return nil
}

// ExplicitBEKey implements the optional explicit-bekey selector (spec
// §4.3): if bekey names a known, alive back-end, return it; otherwise
// fall back to weighted random.
func (s *Service) ExplicitBEKey(bekey string) *libbe.BackEnd {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.explicitBEKeyLocked(bekey)
}

// ExplicitBEKeyLocked is ExplicitBEKey for callers (router) that
// already hold s.mu.
func (s *Service) ExplicitBEKeyLocked(bekey string) *libbe.BackEnd {
	return s.explicitBEKeyLocked(bekey)
}

func (s *Service) explicitBEKeyLocked(bekey string) *libbe.BackEnd {
	for _, b := range s.backends {
		if b.BEKey == bekey {
			if b.Alive() {
				return b
			}
			break
		}
	}
	return s.randBackEndLocked()
}

// RandBackEndLocked is RandBackEnd for callers (router) that already
// hold s.mu.
func (s *Service) RandBackEndLocked() *libbe.BackEnd {
	return s.randBackEndLocked()
}

// BackEndByKeyLocked looks up a back-end by its stable key. Callers
// must already hold s.mu (router uses this while it holds the service
// lock across the session-table probe described in spec §4.3).
func (s *Service) BackEndByKeyLocked(beKey string) *libbe.BackEnd {
	for _, b := range s.backends {
		if b.BEKey == beKey {
			return b
		}
	}
	return nil
}

// Sessions exposes the service's session table for callers holding the
// service mutex (package router orchestrates the full §4.3 stateful
// flow: probe table, fall back to selection, insert).
func (s *Service) Sessions() *libsess.Table { return s.sessions }

// Lock/Unlock expose the service mutex directly so router can hold it
// across the combined table-probe + selection + insert sequence
// required by spec §4.3 ("the router first probes the session table
// under the service mutex... a miss invokes selection... creates a new
// session, and inserts it").
func (s *Service) Lock()   { s.mu.Lock() }
func (s *Service) Unlock() { s.mu.Unlock() }

// RecomputeLocked exposes recompute to callers (router, kill_be) that
// already hold s.mu.
func (s *Service) RecomputeLocked() { s.recompute() }

// IncRequests bumps the service's aggregate request counter.
func (s *Service) IncRequests() {
	s.mu.Lock()
	s.nRequests++
	s.mu.Unlock()
}

// Global reports whether this service is registered in the listener-
// independent global services list (spec §4.1 step 2 "fall back to
// the global services list"); the proxy handler passes this straight
// through to listener.NeedRewrite's own global-fallback step (spec
// §4.10 step 8, "RewriteAnyListener... only applies to a global
// service").
func (s *Service) Global() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.global
}

func (s *Service) SetGlobal(v bool) {
	s.mu.Lock()
	s.global = v
	s.mu.Unlock()
}

func (s *Service) NRequests() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nRequests
}
