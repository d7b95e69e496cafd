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

package listener_test

import (
	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/certificates"
	. "github.com/jhill/pound/listener"
	"github.com/jhill/pound/matcher"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func fakeTLS() *certificates.TLSConfig { return certificates.New() }

var _ = Describe("[TC-LIS] Listener", func() {
	It("[TC-LIS-001] ResolveSNI returns the first matching pattern's TLS context", func() {
		l := New("web", "10.0.0.1:443", true)
		m1, _ := matcher.Compile("a", `^a\.example\.com$`, true)
		m2, _ := matcher.Compile("b", `^b\.example\.com$`, true)

		cfgA := fakeTLS()
		cfgB := fakeTLS()
		l.AddSNI(m1, cfgA)
		l.AddSNI(m2, cfgB)

		Expect(l.ResolveSNI("b.example.com")).To(Equal(cfgB))
	})

	It("[TC-LIS-002] ResolveSNI falls back to the default context", func() {
		l := New("web", "10.0.0.1:443", true)
		def := fakeTLS()
		l.SetDefaultTLS(def)

		Expect(l.ResolveSNI("unknown.example.com")).To(Equal(def))
	})

	Describe("NeedRewrite", func() {
		It("[TC-LIS-003] mode off never rewrites", func() {
			l := New("web", "10.0.0.1:80", false)
			l.RewriteLocation = RewriteOff
			be := libbe.New(libbe.Config{Address: "10.0.0.9:8080"})

			Expect(l.NeedRewrite("http://10.0.0.9:8080/x", "", be, false, nil)).To(Equal(RewriteNo))
		})

		It("[TC-LIS-004] a location matching the back-end's address and port rewrites", func() {
			l := New("web", "10.0.0.1:80", false)
			l.RewriteLocation = RewriteSameHostOnly
			be := libbe.New(libbe.Config{Address: "10.0.0.9:8080"})

			Expect(l.NeedRewrite("http://10.0.0.9:8080/x", "", be, false, nil)).To(Equal(RewriteFits))
		})

		It("[TC-LIS-005] any-listener mode rewrites to https when a matching listener uses TLS", func() {
			front := New("http-front", "10.0.0.1:80", false)
			secure := New("https-front", "10.0.0.1:443", true)
			front.RewriteLocation = RewriteAnyListener
			be := libbe.New(libbe.Config{Address: "10.0.0.9:8080"})

			all := []*Listener{front, secure}
			got := front.NeedRewrite("http://10.0.0.1:443/x", "", be, true, all)
			Expect(got).To(Equal(RewriteToHTTPS))
		})

		It("[TC-LIS-006] a non-absolute location is never rewritten", func() {
			l := New("web", "10.0.0.1:80", false)
			l.RewriteLocation = RewriteAnyListener
			be := libbe.New(libbe.Config{Address: "10.0.0.9:8080"})

			Expect(l.NeedRewrite("/relative/path", "", be, false, nil)).To(Equal(RewriteNo))
		})
	})
})
