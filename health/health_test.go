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

package health_test

import (
	"errors"
	"net"
	"time"

	libbe "github.com/jhill/pound/backend"
	. "github.com/jhill/pound/health"
	"github.com/jhill/pound/network/protocol"
	"github.com/jhill/pound/service"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// fakeConn is the minimal net.Conn a successful probe needs to close.
type fakeConn struct{ net.Conn }

func (fakeConn) Close() error { return nil }

func dialerFor(reachable map[string]bool) Dialer {
	return func(_, address string, _ time.Duration) (net.Conn, error) {
		if reachable[address] {
			return fakeConn{}, nil
		}
		return nil, errors.New("connection refused")
	}
}

// networkCapturingDialer records the network argument each dial used,
// always succeeding, so a test can assert which family was probed.
func networkCapturingDialer(seen *[]string) Dialer {
	return func(network, _ string, _ time.Duration) (net.Conn, error) {
		*seen = append(*seen, network)
		return fakeConn{}, nil
	}
}

var _ = Describe("[TC-HEALTH] Health loop", func() {
	It("[TC-HEALTH-001] kills an alive back-end whose HA address stops answering", func() {
		svc := service.New("s", service.PolicyNone)
		be := libbe.New(libbe.Config{BEKey: "b1", Address: "10.0.0.1:80", HAAddress: "10.0.0.1:9", Priority: 1})
		svc.AddBackEnd(be)

		Check([]*service.Service{svc}, dialerFor(nil), time.Second)

		Expect(be.Alive()).To(BeFalse())
		Expect(svc.TotPri()).To(Equal(0))
	})

	It("[TC-HEALTH-002] resurrects a dead back-end whose HA address answers again", func() {
		svc := service.New("s", service.PolicyNone)
		be := libbe.New(libbe.Config{BEKey: "b1", Address: "10.0.0.1:80", HAAddress: "10.0.0.1:9", Priority: 1})
		svc.AddBackEnd(be)
		svc.KillBackEnd(be, libbe.ModeKill)
		Expect(be.Alive()).To(BeFalse())

		Check([]*service.Service{svc}, dialerFor(map[string]bool{"10.0.0.1:9": true}), time.Second)

		Expect(be.Alive()).To(BeTrue())
		Expect(svc.TotPri()).To(Equal(1))
	})

	It("[TC-HEALTH-003] probes the main address when no HA address is configured", func() {
		svc := service.New("s", service.PolicyNone)
		be := libbe.New(libbe.Config{BEKey: "b1", Address: "10.0.0.1:80", Priority: 1})
		svc.AddBackEnd(be)
		svc.KillBackEnd(be, libbe.ModeKill)

		Check([]*service.Service{svc}, dialerFor(map[string]bool{"10.0.0.1:80": true}), time.Second)

		Expect(be.Alive()).To(BeTrue())
	})

	It("[TC-HEALTH-004] leaves a disabled-but-alive back-end's disabled flag untouched across a successful health check", func() {
		svc := service.New("s", service.PolicyNone)
		be := libbe.New(libbe.Config{BEKey: "b1", Address: "10.0.0.1:80", HAAddress: "10.0.0.1:9", Priority: 1})
		svc.AddBackEnd(be)
		svc.KillBackEnd(be, libbe.ModeDisable)

		Check([]*service.Service{svc}, dialerFor(map[string]bool{"10.0.0.1:9": true}), time.Second)

		Expect(be.Alive()).To(BeTrue())
		Expect(be.Disabled()).To(BeTrue())
		Expect(svc.TotPri()).To(Equal(0))
	})

	It("[TC-HEALTH-005] probes a UNIX-domain back-end over its configured network", func() {
		svc := service.New("s", service.PolicyNone)
		be := libbe.New(libbe.Config{BEKey: "b1", Address: "/var/run/app.sock", Network: protocol.NetworkUnix, Priority: 1})
		svc.AddBackEnd(be)
		svc.KillBackEnd(be, libbe.ModeKill)

		var seen []string
		Check([]*service.Service{svc}, networkCapturingDialer(&seen), time.Second)

		Expect(seen).To(ContainElement("unix"))
		Expect(be.Alive()).To(BeTrue())
	})
})
