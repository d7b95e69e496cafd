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

package service_test

import (
	"time"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/matcher"
	. "github.com/jhill/pound/service"
	libsess "github.com/jhill/pound/session"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func boundSession(key, beKey string) *libsess.Session {
	return libsess.New(key, beKey, time.Now())
}

var _ = Describe("[TC-SVC] Service back-end selection", func() {
	var (
		svc        *Service
		b1, b2, b3 *libbe.BackEnd
	)

	BeforeEach(func() {
		svc = New("web", PolicyNone)
		b1 = libbe.New(libbe.Config{BEKey: "b1", Address: "10.0.0.1:80", Priority: 5})
		b2 = libbe.New(libbe.Config{BEKey: "b2", Address: "10.0.0.2:80", Priority: 5})
		b3 = libbe.New(libbe.Config{BEKey: "b3", Address: "10.0.0.3:80", Priority: 5})
		svc.AddBackEnd(b1)
		svc.AddBackEnd(b2)
		svc.AddBackEnd(b3)
	})

	It("[TC-SVC-001] abs_pri and tot_pri sum declared priorities", func() {
		Expect(svc.AbsPri()).To(Equal(15))
		Expect(svc.TotPri()).To(Equal(15))
	})

	It("[TC-SVC-002] RandBackEnd only returns alive, non-disabled back-ends", func() {
		svc.KillBackEnd(b1, libbe.ModeKill)
		svc.KillBackEnd(b2, libbe.ModeDisable)

		for i := 0; i < 50; i++ {
			picked := svc.RandBackEnd()
			Expect(picked).To(Equal(b3))
		}
	})

	It("[TC-SVC-003] killing a back-end recomputes tot_pri and sweeps its sessions", func() {
		svc.Sessions().Insert("sess-1", boundSession("sess-1", "b1"))
		svc.KillBackEnd(b1, libbe.ModeKill)

		Expect(svc.TotPri()).To(Equal(10))
		_, ok := svc.Sessions().Peek("sess-1")
		Expect(ok).To(BeFalse())
	})

	It("[TC-SVC-004] disable then enable restores tot_pri without evicting sessions", func() {
		svc.Sessions().Insert("sess-1", boundSession("sess-1", "b1"))

		before := svc.TotPri()
		svc.KillBackEnd(b1, libbe.ModeDisable)
		svc.KillBackEnd(b1, libbe.ModeEnable)

		Expect(svc.TotPri()).To(Equal(before))
		_, ok := svc.Sessions().Peek("sess-1")
		Expect(ok).To(BeTrue())
	})

	It("[TC-SVC-005] tot_pri = 0 forces emergency routing", func() {
		emer := libbe.New(libbe.Config{BEKey: "emer", Address: "10.0.0.9:80", Priority: 1})
		svc.SetEmergency(emer)

		svc.KillBackEnd(b1, libbe.ModeKill)
		svc.KillBackEnd(b2, libbe.ModeKill)
		svc.KillBackEnd(b3, libbe.ModeKill)

		Expect(svc.TotPri()).To(Equal(0))
		Expect(svc.RandBackEnd()).To(Equal(emer))
	})

	It("[TC-SVC-006] HashBackEnd walks forward on an unavailable target, wrapping once", func() {
		picked := svc.HashBackEnd("some-consistent-key")
		Expect(picked).NotTo(BeNil())

		svc.KillBackEnd(picked, libbe.ModeKill)
		reroute := svc.HashBackEnd("some-consistent-key")
		Expect(reroute).NotTo(BeNil())
		Expect(reroute).NotTo(Equal(picked))
	})

	It("[TC-SVC-007] ExplicitBEKey honors a known, alive back-end", func() {
		Expect(svc.ExplicitBEKey("b2")).To(Equal(b2))
	})

	It("[TC-SVC-008] ExplicitBEKey falls back to weighted random when the back-end is dead", func() {
		svc.KillBackEnd(b2, libbe.ModeKill)
		picked := svc.ExplicitBEKey("b2")
		Expect(picked).NotTo(Equal(b2))
	})

	It("[TC-SVC-009] Matches requires every URL matcher to match, not just one", func() {
		apiMatch, _ := matcher.Compile("api", `^/api/`, true)
		v2Match, _ := matcher.Compile("v2", `/v2/`, true)
		svc.URLMatch = matcher.List{apiMatch, v2Match}

		Expect(svc.Matches("/api/v2/widgets", nil)).To(BeTrue())
		Expect(svc.Matches("/api/v1/widgets", nil)).To(BeFalse())
		Expect(svc.Matches("/other/v2/widgets", nil)).To(BeFalse())
	})
})
