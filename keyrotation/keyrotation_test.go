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

package keyrotation_test

import (
	"context"
	"time"

	. "github.com/jhill/pound/keyrotation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("[TC-KEYROT] Ephemeral key pool", func() {
	It("[TC-KEYROT-001] New populates the pool immediately", func() {
		p, err := New(3)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Current()).To(HaveLen(3))
	})

	It("[TC-KEYROT-002] Run rotates the pool to a new generation on each tick", func() {
		p, err := New(2)
		Expect(err).NotTo(HaveOccurred())
		first := p.Current()

		ctx, cancel := context.WithCancel(context.Background())
		go p.Run(ctx, 10*time.Millisecond)

		Eventually(func() bool {
			cur := p.Current()
			return len(cur) == len(first) && cur[0] != first[0]
		}, "200ms", "5ms").Should(BeTrue())

		cancel()
	})
})
