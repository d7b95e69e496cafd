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

package runtime_test

import (
	"context"
	"time"

	"github.com/jhill/pound/keyrotation"
	"github.com/jhill/pound/listener"
	. "github.com/jhill/pound/runtime"
	libsess "github.com/jhill/pound/session"
	"github.com/jhill/pound/service"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("[TC-RUNTIME] Runtime topology and timer", func() {
	It("[TC-RUNTIME-001] Services dedups a service shared between a listener and the global list", func() {
		svc := service.New("shared", service.PolicyNone)
		l := listener.New("l0", "127.0.0.1:8080", false)
		l.AddService(svc)

		topo := &Topology{Listeners: []*listener.Listener{l}, Global: []*service.Service{svc}}

		Expect(topo.Services()).To(HaveLen(1))
	})

	It("[TC-RUNTIME-002] Validate rejects an empty topology", func() {
		Expect((&Topology{}).Validate()).To(HaveOccurred())
	})

	It("[TC-RUNTIME-003] Validate accepts a topology with at least one global service", func() {
		svc := service.New("s", service.PolicyNone)
		topo := &Topology{Global: []*service.Service{svc}}
		Expect(topo.Validate()).NotTo(HaveOccurred())
	})

	It("[TC-RUNTIME-004] the timer loop sweeps expired sessions on its own interval", func() {
		svc := service.New("s", service.PolicyCookie)
		svc.TTL = time.Millisecond
		svc.DeathTTL = time.Millisecond
		svc.Sessions().Insert("k1", libsess.New("k1", "b1", time.Now().Add(-time.Hour)))

		topo := &Topology{Global: []*service.Service{svc}}
		timer := &Timer{
			Topology: topo,
			Params:   TimerParams{ExpireTo: 10 * time.Millisecond},
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go timer.Run(ctx)

		Eventually(func() int { return svc.Sessions().Len() }, "200ms", "5ms").Should(Equal(0))
	})

	It("[TC-RUNTIME-005] the timer loop rotates the ephemeral key pool on its own interval", func() {
		pool, err := keyrotation.New(2)
		Expect(err).NotTo(HaveOccurred())
		first := pool.Current()

		svc := service.New("s", service.PolicyNone)
		topo := &Topology{Global: []*service.Service{svc}}
		timer := &Timer{
			Topology: topo,
			Params:   TimerParams{KeyRotationTo: 10 * time.Millisecond},
			Keys:     pool,
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go timer.Run(ctx)

		Eventually(func() bool {
			cur := pool.Current()
			return len(cur) == len(first) && cur[0] != first[0]
		}, "200ms", "5ms").Should(BeTrue())
	})
})
