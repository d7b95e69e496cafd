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

package session_test

import (
	"time"

	. "github.com/jhill/pound/session"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("[TC-SESS] Session table", func() {
	var (
		tbl *Table
		now time.Time
	)

	BeforeEach(func() {
		tbl = NewTable()
		now = time.Now()
	})

	It("[TC-SESS-001] insert then lookup returns the bound back-end and touches access time", func() {
		s := New("key-1", "be-1", now)
		tbl.Insert("key-1", s)

		got, ok := tbl.Lookup("key-1", now.Add(time.Second), "1.2.3.4", "/x", "")
		Expect(ok).To(BeTrue())
		Expect(got.BEKey).To(Equal("be-1"))
		Expect(got.NReq).To(Equal(uint64(1)))
	})

	It("[TC-SESS-002] lookup on a missing key fails", func() {
		_, ok := tbl.Lookup("nope", now, "", "", "")
		Expect(ok).To(BeFalse())
	})

	It("[TC-SESS-003] insert overwriting a key queues the prior session for the pending-free sweep", func() {
		s1 := New("key-1", "be-1", now)
		s2 := New("key-1", "be-2", now)
		tbl.Insert("key-1", s1)
		tbl.Insert("key-1", s2)

		Expect(tbl.PendingLen()).To(Equal(1))
		got, _ := tbl.Peek("key-1")
		Expect(got.BEKey).To(Equal("be-2"))
	})

	It("[TC-SESS-004] ExpireTTL removes entries older than TTL", func() {
		s := New("key-1", "be-1", now.Add(-time.Hour))
		s.Touch(now.Add(-time.Hour), "", "", "")
		tbl.Insert("key-1", s)

		removed := tbl.ExpireTTL(now, 10*time.Second, time.Minute)
		Expect(removed).To(HaveLen(1))
		Expect(tbl.Len()).To(Equal(0))
	})

	It("[TC-SESS-005] ExpireTTL keeps entries within TTL", func() {
		s := New("key-1", "be-1", now)
		tbl.Insert("key-1", s)

		removed := tbl.ExpireTTL(now, time.Hour, time.Minute)
		Expect(removed).To(BeEmpty())
		Expect(tbl.Len()).To(Equal(1))
	})

	It("[TC-SESS-006] CleanByBackEnd removes every session bound to that back-end", func() {
		tbl.Insert("a", New("a", "be-1", now))
		tbl.Insert("b", New("b", "be-2", now))
		tbl.Insert("c", New("c", "be-1", now))

		n := tbl.CleanByBackEnd("be-1")
		Expect(n).To(Equal(2))
		Expect(tbl.Len()).To(Equal(1))
		_, ok := tbl.Peek("b")
		Expect(ok).To(BeTrue())
	})

	It("[TC-SESS-007] SweepPending frees sessions that are not locked elsewhere", func() {
		s1 := New("a", "be-1", now)
		s2 := New("b", "be-2", now)
		tbl.Insert("a", s1)
		tbl.Insert("b", s2)
		tbl.RemoveByKey("a")
		tbl.RemoveByKey("b")

		s2.TryLock() // simulate the router holding this session mid-I/O

		freed, remaining := tbl.SweepPending()
		Expect(freed).To(Equal(1))
		Expect(remaining).To(Equal(1))
	})

	It("[TC-SESS-008] MarkDeletePending shortens the eviction window to death-TTL", func() {
		s := New("key-1", "be-1", now.Add(-30*time.Second))
		s.Touch(now.Add(-30*time.Second), "", "", "")
		s.MarkDeletePending()
		tbl.Insert("key-1", s)

		removed := tbl.ExpireTTL(now, time.Hour, 10*time.Second)
		Expect(removed).To(HaveLen(1))
	})
})
