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

import (
	"time"

	libbe "github.com/jhill/pound/backend"
	libsess "github.com/jhill/pound/session"
)

// KillBackEnd is the single entry point mutating back-end state (spec
// §4.4 "kill_be"). Disable preserves bound sessions; Kill removes every
// session bound to b (content-equal sweep by back-end key); Enable
// clears both flags. Every mode ends with a tot_pri recomputation under
// the service mutex.
func (s *Service) KillBackEnd(b *libbe.BackEnd, mode libbe.Mode) {
	b.Kill(mode)

	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == libbe.ModeKill {
		s.sessions.CleanByBackEnd(b.BEKey)
	}
	s.recompute()
}

// Resurrect is invoked only by the health loop (spec §4.4
// "Resurrection (dead->alive) is performed only by the health loop").
func (s *Service) Resurrect(b *libbe.BackEnd) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b.Resurrect()
	s.recompute()
}

// InsertSessionLocked binds key to beKey under the service mutex
// (session/table.go: the table is not safe for concurrent use on its
// own — every caller must hold the owning service's mutex around each
// Table method). Used by the control server's add-session command,
// which otherwise races the request path and the expiry loop.
func (s *Service) InsertSessionLocked(key, beKey string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.Insert(key, libsess.New(key, beKey, now))
}

// RemoveSessionLocked unbinds key under the service mutex, mirroring
// InsertSessionLocked. Used by the control server's delete-session
// command.
func (s *Service) RemoveSessionLocked(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions.RemoveByKey(key)
}
