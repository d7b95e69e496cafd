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

package listener

import (
	"net"
	"strings"

	libbe "github.com/jhill/pound/backend"
)

// Rewrite is the return codomain of NeedRewrite (spec §4.10 "Return
// codomain: {no, rewrite-to-whatever-fits, rewrite-to-http,
// rewrite-to-https}").
type Rewrite uint8

const (
	RewriteNo Rewrite = iota
	RewriteFits
	RewriteToHTTP
	RewriteToHTTPS
)

// resolve is the address resolver (spec §3 item 1): resolves a host
// string to its IP addresses. A lookup failure is not itself fatal to
// NeedRewrite — step 3 falls back to an exact string comparison
// against the request's Host header.
func resolve(host string) ([]net.IP, error) {
	return net.LookupIP(host)
}

func sameFamily(a, b net.IP) bool {
	return (a.To4() != nil) == (b.To4() != nil)
}

// NeedRewrite implements spec §4.10's 9-step decision procedure.
// requestHost is the request's Host header, used by step 3's resolver-
// failure fallback; global is the current service's global flag, used
// by step 8.
func (l *Listener) NeedRewrite(location, requestHost string, be *libbe.BackEnd, global bool, all []*Listener) Rewrite {
	if l.RewriteLocation == RewriteOff {
		return RewriteNo
	}

	hp, ok := parseAbsoluteURL(location)
	if !ok {
		return RewriteNo
	}

	ips, err := resolve(hp.host)
	if err != nil {
		if hp.host == requestHost {
			return RewriteFits
		}
		return RewriteNo
	}
	if len(ips) == 0 {
		return RewriteNo
	}
	addr := ips[0]

	beHost, bePort, splitErr := net.SplitHostPort(be.Address)
	if splitErr != nil {
		beHost = be.Address
	}
	beIPs, _ := resolve(beHost)
	var beAddr net.IP
	if len(beIPs) > 0 {
		beAddr = beIPs[0]
	} else {
		beAddr = net.ParseIP(beHost)
	}

	if beAddr != nil && !sameFamily(addr, beAddr) {
		return RewriteNo
	}

	if beAddr != nil && addr.Equal(beAddr) && hp.port == bePort {
		return RewriteFits
	}

	switch l.RewriteLocation {
	case RewriteSameHostOnly:
		lHost, lPort, _ := net.SplitHostPort(l.Address)
		_ = lHost
		if hp.host == lHost || (beAddr != nil && addr.Equal(listenerIP(l))) {
			if hp.port != lPort || (hp.scheme == "https") != l.IsTLS {
				return RewriteFits
			}
		}
		return RewriteNo

	case RewriteAnyListener:
		if !global {
			return RewriteNo
		}
		for _, other := range all {
			oHost, oPort, _ := net.SplitHostPort(other.Address)
			if oHost != hp.host || oPort != hp.port {
				continue
			}
			wantsTLS := hp.scheme == "https"
			if wantsTLS == other.IsTLS {
				return RewriteNo
			}
			if other.IsTLS {
				return RewriteToHTTPS
			}
			return RewriteToHTTP
		}
		return RewriteNo
	}

	return RewriteNo
}

func listenerIP(l *Listener) net.IP {
	host, _, err := net.SplitHostPort(l.Address)
	if err != nil {
		host = l.Address
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip
	}
	ips, err := resolve(host)
	if err != nil || len(ips) == 0 {
		return nil
	}
	return ips[0]
}

// Scheme is a small helper kept for callers that need to
// stringify a Rewrite decision back into a scheme (used by the proxy
// handler when writing the rewritten Location header).
func (r Rewrite) Scheme(fallback string) string {
	switch r {
	case RewriteToHTTP:
		return "http"
	case RewriteToHTTPS:
		return "https"
	default:
		return strings.TrimSpace(fallback)
	}
}
