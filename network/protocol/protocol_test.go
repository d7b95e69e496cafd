/***********************************************************************************************************************
 *
 *   MIT License
 *
 *   Copyright (c) 2024 Nicolas JUHEL
 *
 *   Permission is hereby granted, free of charge, to any person obtaining a copy
 *   of this software and associated documentation files (the "Software"), to deal
 *   in the Software without restriction, including without limitation the rights
 *   to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 *   copies of the Software, and to permit persons to whom the Software is
 *   furnished to do so, subject to the following conditions:
 *
 *   The above copyright notice and this permission notice shall be included in all
 *   copies or substantial portions of the Software.
 *
 *   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 *   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 *   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 *   AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 *   LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 *   OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 *   SOFTWARE.
 *
 *
 **********************************************************************************************************************/

package protocol_test

import (
	. "github.com/jhill/pound/network/protocol"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("NetworkProtocol", func() {
	It("[TC-PROTO-001] round-trips String()/Code() through Parse()", func() {
		all := []NetworkProtocol{
			NetworkUnix, NetworkUnixGram, NetworkTCP, NetworkTCP4, NetworkTCP6,
			NetworkUDP, NetworkUDP4, NetworkUDP6, NetworkIP, NetworkIP4, NetworkIP6,
		}
		for _, p := range all {
			Expect(Parse(p.String())).To(Equal(p))
			Expect(Parse(p.Code())).To(Equal(p))
		}
	})

	It("[TC-PROTO-002] unknown values stringify to empty and parse to NetworkEmpty", func() {
		Expect(NetworkProtocol(99).String()).To(Equal(""))
		Expect(Parse("bogus")).To(Equal(NetworkEmpty))
	})

	It("[TC-PROTO-003] MarshalJSON quotes the string form", func() {
		data, err := NetworkTCP.MarshalJSON()
		Expect(err).NotTo(HaveOccurred())
		Expect(string(data)).To(Equal(`"tcp"`))
	})

	It("[TC-PROTO-004] IsStream distinguishes connection-oriented protocols", func() {
		Expect(NetworkTCP.IsStream()).To(BeTrue())
		Expect(NetworkUnix.IsStream()).To(BeTrue())
		Expect(NetworkUDP.IsStream()).To(BeFalse())
	})
})
