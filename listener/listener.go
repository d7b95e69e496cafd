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

// Package listener implements the Listener descriptor (spec §3
// "Listener") and the location-rewrite decision procedure (spec §4.10
// "need_rewrite").
package listener

import (
	"regexp"
	"sync"

	"github.com/jhill/pound/certificates"
	"github.com/jhill/pound/matcher"
	"github.com/jhill/pound/service"
)

// RewriteMode selects how aggressively the listener rewrites
// back-end-emitted Location/Content-Location/Destination headers
// (spec §3 "rewrite-location mode").
type RewriteMode uint8

const (
	RewriteOff RewriteMode = iota
	RewriteSameHostOnly
	RewriteAnyListener
)

// sniEntry pairs a compiled SNI-name pattern with the TLS context to
// serve when it matches (spec §3 "SNI map (pattern -> TLS context)").
type sniEntry struct {
	match matcher.Matcher
	tls   *certificates.TLSConfig
}

// Listener is a bound address plus its TLS context, SNI map, default
// vhost, and routed services (spec §3 "Listener").
type Listener struct {
	mu sync.RWMutex

	Name    string
	Address string // host:port
	IsTLS   bool

	defaultTLS *certificates.TLSConfig
	sni        []sniEntry

	services []*service.Service
	disabled bool

	RewriteLocation  RewriteMode
	RewriteDest      bool
	ForceHTTP10      matcher.List
	NoSSLRedirect    string

	HeadRemove []string
	HeadAdd    map[string]string
}

func New(name, address string, isTLS bool) *Listener {
	return &Listener{
		Name:    name,
		Address: address,
		IsTLS:   isTLS,
	}
}

func (l *Listener) SetDefaultTLS(cfg *certificates.TLSConfig) {
	l.mu.Lock()
	l.defaultTLS = cfg
	l.mu.Unlock()
}

// AddSNI registers cfg for server names matching pattern (spec §3 "SNI
// map"); first-match-wins order is declaration order (spec §6 "first
// regex match wins; falls back to the listener's default context").
// This iterates every registered entry — the teacher's original C
// finalizer has an off-by-one bug that skips the first SNI context
// (see spec §9 REDESIGN FLAGS); that bug is deliberately NOT
// reproduced here.
func (l *Listener) AddSNI(pattern matcher.Matcher, cfg *certificates.TLSConfig) {
	l.mu.Lock()
	l.sni = append(l.sni, sniEntry{match: pattern, tls: cfg})
	l.mu.Unlock()
}

// ResolveSNI implements the callback the TLS layer invokes with the
// ClientHello's server name (spec §6 "TLS layer... expects the core to
// return a TLS context from the listener's SNI map").
func (l *Listener) ResolveSNI(serverName string) *certificates.TLSConfig {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, e := range l.sni {
		if e.match.Regexp.MatchString(serverName) {
			return e.tls
		}
	}
	return l.defaultTLS
}

func (l *Listener) AddService(s *service.Service) {
	l.mu.Lock()
	l.services = append(l.services, s)
	l.mu.Unlock()
}

func (l *Listener) Services() []*service.Service {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*service.Service, len(l.services))
	copy(out, l.services)
	return out
}

// Disabled reports whether an operator has administratively disabled
// this listener via the control server (spec §4.11 "enable/disable
// listener... by ordinal position"). A disabled listener's accept loop
// is expected to stop handing connections to the router, but this
// package does not own the accept loop itself, so it only tracks the
// flag.
func (l *Listener) Disabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.disabled
}

func (l *Listener) SetDisabled(v bool) {
	l.mu.Lock()
	l.disabled = v
	l.mu.Unlock()
}

// hostPort is a minimal parsed scheme://host[:port] used by the
// location rewriter; populated by parseAbsoluteURL, which fills in the
// scheme's default port when none is given (spec §4.10 steps 2 and 4).
type hostPort struct {
	scheme string
	host   string
	port   string
}

var absoluteURL = regexp.MustCompile(`^(https?)://([^/:]+)(?::(\d+))?(/.*)?$`)

func parseAbsoluteURL(s string) (hostPort, bool) {
	m := absoluteURL.FindStringSubmatch(s)
	if m == nil {
		return hostPort{}, false
	}
	port := m[3]
	if port == "" {
		if m[1] == "https" {
			port = "443"
		} else {
			port = "80"
		}
	}
	return hostPort{scheme: m[1], host: m[2], port: port}, true
}
