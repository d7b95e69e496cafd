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

package matcher_test

import (
	. "github.com/jhill/pound/matcher"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("[TC-MATCH] Matcher pipeline", func() {
	Describe("URL matcher list", func() {
		It("[TC-MATCH-001] empty list is trivially true", func() {
			var l List
			Expect(l.MatchAny("/anything")).To(BeFalse())
			Expect(l.MatchAll(nil)).To(BeTrue())
		})

		It("[TC-MATCH-002] matches any pattern in the list", func() {
			m1, _ := Compile("api", `^/api/`, true)
			m2, _ := Compile("admin", `^/admin/`, true)
			l := List{m1, m2}

			Expect(l.MatchAny("/api/foo")).To(BeTrue())
			Expect(l.MatchAny("/other")).To(BeFalse())
		})
	})

	Describe("require/deny semantics", func() {
		It("[TC-MATCH-003] require matches when every matcher finds a header", func() {
			m, _ := Compile("host", `^Host: `, true)
			l := List{m}

			Expect(l.MatchAll([]string{"Host: example.com", "X-Foo: bar"})).To(BeTrue())
			Expect(l.MatchAll([]string{"X-Foo: bar"})).To(BeFalse())
		})

		It("[TC-MATCH-004] deny matches when no matcher finds a header", func() {
			m, _ := Compile("blocked", `X-Blocked`, true)
			l := List{m}

			Expect(l.NoneMatch([]string{"X-Foo: bar"})).To(BeTrue())
			Expect(l.NoneMatch([]string{"X-Blocked: 1"})).To(BeFalse())
		})
	})

	Describe("KeyExtractor", func() {
		It("[TC-MATCH-005] extracts the captured key after the start match", func() {
			start, _ := Compile("start", `JSESSIONID=`, true)
			pat, _ := Compile("pat", `([A-Za-z0-9]+)`, true)
			ke := KeyExtractor{Start: start, Pattern: pat}

			key, ok := ke.Extract("Cookie: foo=bar; JSESSIONID=abc123; other=1")
			Expect(ok).To(BeTrue())
			Expect(key).To(Equal("abc123"))
		})

		It("[TC-MATCH-006] returns the last matching candidate", func() {
			start, _ := Compile("start", `id=`, true)
			pat, _ := Compile("pat", `([0-9]+)`, true)
			ke := KeyExtractor{Start: start, Pattern: pat}

			key, ok := ke.ExtractFromLast([]string{"Cookie: id=1", "Cookie: id=2"})
			Expect(ok).To(BeTrue())
			Expect(key).To(Equal("2"))
		})

		It("[TC-MATCH-007] truncates keys longer than KeySize", func() {
			start, _ := Compile("start", `k=`, true)
			pat, _ := Compile("pat", `(.+)`, true)
			ke := KeyExtractor{Start: start, Pattern: pat}

			long := make([]byte, KeySize+50)
			for i := range long {
				long[i] = 'a'
			}

			key, ok := ke.Extract("k=" + string(long))
			Expect(ok).To(BeTrue())
			Expect(len(key)).To(Equal(KeySize))
		})
	})
})
