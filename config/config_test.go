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

package config_test

import (
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jhill/pound/config"
)

const validDoc = `
health:
  alive_to_seconds: 5
  conn_to_seconds: 2
expire:
  expire_to_seconds: 120
rescale:
  rescale_to_seconds: 60
  min_samples: 20
  halve_after_samples: 1000
key_rotation:
  interval_seconds: 3600
  pool_size: 4
control:
  listen: "127.0.0.1:9000"
listeners:
  - name: "front"
    address: "0.0.0.0:8080"
    services:
      - name: "app"
        url_match:
          - "^/app/"
        session_policy: "cookie"
        session_key:
          start: "JSESSIONID="
          pattern: "([^;]+)"
        ttl_seconds: 300
        backends:
          - bekey: "be1"
            address: "10.0.0.1:9090"
            priority: 5
`

const missingBackendKeyDoc = `
health:
  alive_to_seconds: 5
  conn_to_seconds: 2
expire:
  expire_to_seconds: 120
listeners:
  - name: "front"
    address: "0.0.0.0:8080"
    services:
      - name: "app"
        backends:
          - address: "10.0.0.1:9090"
            priority: 5
`

const emptyServicesDoc = `
health:
  alive_to_seconds: 5
  conn_to_seconds: 2
expire:
  expire_to_seconds: 120
listeners:
  - name: "front"
    address: "0.0.0.0:8080"
`

var _ = Describe("[TC-CONFIG] Configuration loading", func() {

	It("[TC-CONFIG-001] loads and validates a well-formed document", func() {
		cfg, err := config.LoadReader(strings.NewReader(validDoc), "yaml")
		Expect(err).To(BeNil())
		Expect(cfg.Listeners).To(HaveLen(1))
		Expect(cfg.Listeners[0].Services).To(HaveLen(1))
		Expect(cfg.Listeners[0].Services[0].BackEnds).To(HaveLen(1))
	})

	It("[TC-CONFIG-002] rejects a back-end missing its required bekey", func() {
		_, err := config.LoadReader(strings.NewReader(missingBackendKeyDoc), "yaml")
		Expect(err).ToNot(BeNil())
		Expect(err.Code()).To(Equal(config.ErrorValidate))
	})

	It("[TC-CONFIG-003] rejects a listener that declares no services", func() {
		_, err := config.LoadReader(strings.NewReader(emptyServicesDoc), "yaml")
		Expect(err).ToNot(BeNil())
		Expect(err.Code()).To(Equal(config.ErrorValidate))
	})

	It("[TC-CONFIG-004] builds a routable topology from a well-formed document", func() {
		cfg, err := config.LoadReader(strings.NewReader(validDoc), "yaml")
		Expect(err).To(BeNil())

		built, berr := config.Build(cfg)
		Expect(berr).To(BeNil())
		Expect(built.Topology.Listeners).To(HaveLen(1))

		svc := built.Topology.Listeners[0].Services()[0]
		Expect(svc.TotPri()).To(Equal(5))
		Expect(svc.BackEnds()).To(HaveLen(1))
	})

	It("[TC-CONFIG-005] rejects an unparsable matcher pattern", func() {
		const badPattern = `
health:
  alive_to_seconds: 5
  conn_to_seconds: 2
expire:
  expire_to_seconds: 120
listeners:
  - name: "front"
    address: "0.0.0.0:8080"
    services:
      - name: "app"
        url_match:
          - "[unterminated"
        backends:
          - bekey: "be1"
            address: "10.0.0.1:9090"
            priority: 5
`
		cfg, err := config.LoadReader(strings.NewReader(badPattern), "yaml")
		Expect(err).To(BeNil())

		_, berr := config.Build(cfg)
		Expect(berr).ToNot(BeNil())
		Expect(berr.Code()).To(Equal(config.ErrorCompileMatcher))
	})

	It("[TC-CONFIG-006] decodes a UNIX-domain back-end's network", func() {
		const unixDoc = `
health:
  alive_to_seconds: 5
  conn_to_seconds: 2
expire:
  expire_to_seconds: 120
listeners:
  - name: "front"
    address: "0.0.0.0:8080"
    services:
      - name: "app"
        backends:
          - bekey: "be1"
            address: "/var/run/app.sock"
            network: "unix"
            priority: 5
`
		cfg, err := config.LoadReader(strings.NewReader(unixDoc), "yaml")
		Expect(err).To(BeNil())

		built, berr := config.Build(cfg)
		Expect(berr).To(BeNil())

		be := built.Topology.Listeners[0].Services()[0].BackEnds()[0]
		Expect(be.DialNetwork()).To(Equal("unix"))
	})
})
