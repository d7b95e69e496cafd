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

package proxy_test

import (
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/listener"
	"github.com/jhill/pound/network/protocol"
	. "github.com/jhill/pound/proxy"
	"github.com/jhill/pound/service"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("[TC-PROXY] Request handler", func() {
	It("[TC-PROXY-001] forwards to the selected back-end and records latency", func() {
		upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Upstream", "hit")
			w.WriteHeader(http.StatusOK)
		}))
		defer upstream.Close()

		be := libbe.New(libbe.Config{BEKey: "b1", Address: strings.TrimPrefix(upstream.URL, "http://"), Priority: 1})
		svc := service.New("s", service.PolicyNone)
		svc.AddBackEnd(be)

		l := listener.New("l", "127.0.0.1:0", false)
		l.AddService(svc)

		h := &Handler{Listener: l}

		req := httptest.NewRequest(http.MethodGet, "/path", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("X-Upstream")).To(Equal("hit"))
		Expect(be.Snapshot().NRequests).To(Equal(uint64(1)))
	})

	It("[TC-PROXY-002] answers a static redirect back-end without dialing upstream", func() {
		be := libbe.New(libbe.Config{
			BEKey: "r1", Priority: 1,
			StatusCode: http.StatusFound,
			RedirectTo: "https://example.com/elsewhere",
			Redirect:   libbe.RedirectStatic,
		})
		svc := service.New("s", service.PolicyNone)
		svc.AddBackEnd(be)

		l := listener.New("l", "127.0.0.1:0", false)
		l.AddService(svc)

		h := &Handler{Listener: l}

		req := httptest.NewRequest(http.MethodGet, "/anything", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusFound))
		Expect(rec.Header().Get("Location")).To(Equal("https://example.com/elsewhere"))
	})

	It("[TC-PROXY-003] append-path redirect keeps the original request path", func() {
		be := libbe.New(libbe.Config{
			BEKey: "r2", Priority: 1,
			StatusCode: http.StatusMovedPermanently,
			RedirectTo: "https://new.example.com",
			Redirect:   libbe.RedirectAppendPath,
		})
		svc := service.New("s", service.PolicyNone)
		svc.AddBackEnd(be)

		l := listener.New("l", "127.0.0.1:0", false)
		l.AddService(svc)

		h := &Handler{Listener: l}

		req := httptest.NewRequest(http.MethodGet, "/some/path?x=1", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Header().Get("Location")).To(Equal("https://new.example.com/some/path?x=1"))
	})

	It("[TC-PROXY-004] answers unrouteable requests with 503", func() {
		l := listener.New("l", "127.0.0.1:0", false)
		h := &Handler{Listener: l}

		req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("[TC-PROXY-005] forwards to a UNIX-domain back-end", func() {
		sockPath := filepath.Join(os.TempDir(), fmt.Sprintf("pound-test-%d.sock", time.Now().UnixNano()))
		ln, lerr := net.Listen("unix", sockPath)
		Expect(lerr).To(BeNil())
		defer os.Remove(sockPath)

		srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Upstream", "unix-hit")
			w.WriteHeader(http.StatusOK)
		})}
		go srv.Serve(ln)
		defer srv.Close()

		be := libbe.New(libbe.Config{BEKey: "u1", Address: sockPath, Network: protocol.NetworkUnix, Priority: 1})
		svc := service.New("s", service.PolicyNone)
		svc.AddBackEnd(be)

		l := listener.New("l", "127.0.0.1:0", false)
		l.AddService(svc)

		h := &Handler{Listener: l}

		req := httptest.NewRequest(http.MethodGet, "/path", nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Header().Get("X-Upstream")).To(Equal("unix-hit"))
	})
})
