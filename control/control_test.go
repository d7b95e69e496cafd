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

package control_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"net"
	"time"

	libbe "github.com/jhill/pound/backend"
	. "github.com/jhill/pound/control"
	"github.com/jhill/pound/listener"
	libsess "github.com/jhill/pound/session"
	"github.com/jhill/pound/service"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("[TC-CTRL] Control server", func() {
	It("[TC-CTRL-001] round-trips a command frame through the wire encoding", func() {
		var buf bytes.Buffer
		want := Command{Code: CmdAddSession, ListenerOrdinal: 2, ServiceOrdinal: 1, BackEndOrdinal: 0, Key: "sess-key"}

		Expect(WriteCommand(&buf, want)).To(Succeed())
		got, err := ReadCommand(&buf)
		Expect(err).NotTo(HaveOccurred())
		Expect(got).To(Equal(want))
	})

	It("[TC-CTRL-002] enable/disable listener by ordinal", func() {
		l := listener.New("l0", "127.0.0.1:8080", false)
		reg := NewRegistry([]*listener.Listener{l}, nil)

		Expect(reg.Apply(Command{Code: CmdDisableListener, ListenerOrdinal: 0}, time.Now())).To(Succeed())
		Expect(l.Disabled()).To(BeTrue())

		Expect(reg.Apply(Command{Code: CmdEnableListener, ListenerOrdinal: 0}, time.Now())).To(Succeed())
		Expect(l.Disabled()).To(BeFalse())
	})

	It("[TC-CTRL-003] enable/disable service scoped to a listener ordinal", func() {
		svc := service.New("s0", service.PolicyNone)
		l := listener.New("l0", "127.0.0.1:8080", false)
		l.AddService(svc)
		reg := NewRegistry([]*listener.Listener{l}, nil)

		Expect(reg.Apply(Command{Code: CmdDisableService, ListenerOrdinal: 0, ServiceOrdinal: 0}, time.Now())).To(Succeed())
		Expect(svc.Disabled()).To(BeTrue())
	})

	It("[TC-CTRL-004] kill-back-end purges sessions bound to it and recomputes tot_pri", func() {
		svc := service.New("s0", service.PolicyCookie)
		be := libbe.New(libbe.Config{BEKey: "b0", Address: "10.0.0.1:80", Priority: 5})
		svc.AddBackEnd(be)
		svc.Sessions().Insert("k1", libsess.New("k1", "b0", time.Now()))

		reg := NewRegistry(nil, []*service.Service{svc})

		Expect(reg.Apply(Command{Code: CmdKillBackEnd, ListenerOrdinal: -1, ServiceOrdinal: 0, BackEndOrdinal: 0}, time.Now())).To(Succeed())
		Expect(be.Alive()).To(BeFalse())
		Expect(svc.Sessions().Len()).To(Equal(0))
		Expect(svc.TotPri()).To(Equal(0))
	})

	It("[TC-CTRL-005] add-session then delete-session round-trips a binding", func() {
		svc := service.New("s0", service.PolicyCookie)
		be := libbe.New(libbe.Config{BEKey: "b0", Address: "10.0.0.1:80", Priority: 5})
		svc.AddBackEnd(be)
		reg := NewRegistry(nil, []*service.Service{svc})

		Expect(reg.Apply(Command{Code: CmdAddSession, ListenerOrdinal: -1, ServiceOrdinal: 0, BackEndOrdinal: 0, Key: "k1"}, time.Now())).To(Succeed())
		Expect(svc.Sessions().Len()).To(Equal(1))

		Expect(reg.Apply(Command{Code: CmdDeleteSession, ListenerOrdinal: -1, ServiceOrdinal: 0, Key: "k1"}, time.Now())).To(Succeed())
		Expect(svc.Sessions().Len()).To(Equal(0))
	})

	It("[TC-CTRL-006] rejects an out-of-range ordinal", func() {
		reg := NewRegistry(nil, nil)
		err := reg.Apply(Command{Code: CmdDisableListener, ListenerOrdinal: 0}, time.Now())
		Expect(err).To(Equal(ErrorBadOrdinal.Error()))
	})

	It("[TC-CTRL-007] serves one list-all command per connection over a real socket", func() {
		svc := service.New("s0", service.PolicyNone)
		be := libbe.New(libbe.Config{BEKey: "b0", Address: "10.0.0.1:80", Priority: 1})
		svc.AddBackEnd(be)
		l := listener.New("l0", "127.0.0.1:8080", false)
		l.AddService(svc)

		reg := NewRegistry([]*listener.Listener{l}, nil)
		srv := &Server{Registry: reg, Version: "test-1.0"}

		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go func() { _ = srv.Serve(ctx, ln) }()

		conn, err := net.Dial("tcp", ln.Addr().String())
		Expect(err).NotTo(HaveOccurred())
		defer conn.Close()

		var hdr [13]byte
		hdr[0] = byte(CmdListAll)
		_, err = conn.Write(hdr[:])
		Expect(err).NotTo(HaveOccurred())
		var klen [2]byte
		_, err = conn.Write(klen[:])
		Expect(err).NotTo(HaveOccurred())

		status := make([]byte, 1)
		_, err = conn.Read(status)
		Expect(err).NotTo(HaveOccurred())
		Expect(status[0]).To(Equal(byte(StatusOK)))

		vlen := make([]byte, 2)
		_, err = conn.Read(vlen)
		Expect(err).NotTo(HaveOccurred())
		n := binary.BigEndian.Uint16(vlen)
		Expect(int(n)).To(Equal(len("test-1.0")))
	})
})
