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

package certificates_test

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"time"

	. "github.com/jhill/pound/certificates"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func selfSigned(cn string) tls.Certificate {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	Expect(err).NotTo(HaveOccurred())

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: cn},
		DNSNames:     []string{cn},
		NotBefore:    time.Now(),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	Expect(err).NotTo(HaveOccurred())

	return tls.Certificate{Certificate: [][]byte{der}, PrivateKey: key}
}

var _ = Describe("[TC-CERT] TLSConfig SNI dispatch", func() {
	It("[TC-CERT-001] serves the registered certificate for a matching SNI name", func() {
		cfg := New()
		cfg.AddCertificatePair("a.example.com", selfSigned("a.example.com"))
		cfg.AddCertificatePair("b.example.com", selfSigned("b.example.com"))

		tlsCfg := cfg.TlsConfig("")
		cert, err := tlsCfg.GetCertificate(&tls.ClientHelloInfo{ServerName: "b.example.com"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cert).NotTo(BeNil())
	})

	It("[TC-CERT-002] falls back to the first-registered certificate for an unknown SNI name", func() {
		cfg := New()
		cfg.AddCertificatePair("default.example.com", selfSigned("default.example.com"))

		tlsCfg := cfg.TlsConfig("")
		cert, err := tlsCfg.GetCertificate(&tls.ClientHelloInfo{ServerName: "unknown.example.com"})
		Expect(err).NotTo(HaveOccurred())
		Expect(cert).NotTo(BeNil())
	})

	It("[TC-CERT-003] reports an error when no certificate has ever been registered", func() {
		cfg := New()
		tlsCfg := cfg.TlsConfig("")
		_, err := tlsCfg.GetCertificate(&tls.ClientHelloInfo{ServerName: "anything"})
		Expect(err).To(HaveOccurred())
	})

	It("[TC-CERT-004] applies the configured TLS version range", func() {
		cfg := New()
		cfg.SetVersionRange(tls.VersionTLS13, tls.VersionTLS13)
		tlsCfg := cfg.TlsConfig("")
		Expect(tlsCfg.MinVersion).To(Equal(uint16(tls.VersionTLS13)))
		Expect(tlsCfg.MaxVersion).To(Equal(uint16(tls.VersionTLS13)))
	})
})
