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

// Package backend implements the BackEnd descriptor (spec §3 "BackEnd")
// and its per-request counters, latency average, and redirect-target
// fields. Liveness and disabled flags are read lock-free via
// atomic.Value[bool]; everything else the rescale loop snapshots lives
// behind the back-end's own mutex (spec §5 "Each back-end has a mutex
// protecting its per-back-end counters").
package backend

import (
	"sync"

	libatm "github.com/jhill/pound/atomic"
	"github.com/jhill/pound/network/protocol"
)

// RedirectMode distinguishes the three ways a redirect-target back-end
// rewrites the client-visible location (spec §3 "be_type... redirect
// mode").
type RedirectMode uint8

const (
	RedirectNone RedirectMode = iota
	RedirectStatic
	RedirectAppendPath
	RedirectDynamic
)

// Protocol is the back-end's wire protocol.
type Protocol uint8

const (
	ProtoPlain Protocol = iota
	ProtoTLS
)

// Config is the immutable, configuration-time description of a
// back-end; BackEnd wraps a Config with the mutable runtime state.
type Config struct {
	// BEKey is the stable operator-assigned identifier used for
	// explicit selection via a request cookie (spec glossary "bekey").
	BEKey string

	// Address is the dial target: "host:port" for TCP, or a filesystem
	// path for a UNIX-domain back-end.
	Address string

	// Network selects the dial family for Address and HAAddress (spec
	// §3 "TCP/UNIX-domain back-end"). The zero value resolves to TCP in
	// DialNetwork.
	Network protocol.NetworkProtocol

	// HAAddress is the optional high-availability probe address (spec
	// §3 "optional high-availability probe endpoint"); empty means
	// "probe Address directly".
	HAAddress string

	Priority int // 0 means "definition-only, do not route"

	ReadTimeoutSeconds    int
	WriteTimeoutSeconds   int
	ConnectTimeoutSeconds int

	Protocol Protocol

	// StatusCode is be_type: 0 for a real back-end, else an HTTP
	// status code for a redirect target.
	StatusCode int
	RedirectTo string
	Redirect   RedirectMode
}

// IsRedirect reports whether this back-end is a redirect target rather
// than a real upstream (spec §3 "be_type = 0 for a real back-end or an
// HTTP status code for a redirect target").
func (c Config) IsRedirect() bool { return c.StatusCode != 0 }

// Routable reports whether the back-end is eligible for selection at
// all (priority 0 means "definition-only, do not route").
func (c Config) Routable() bool { return c.Priority > 0 }

// DialNetwork returns the network family to dial Address/HAAddress
// with, defaulting an unset Network to TCP.
func (c Config) DialNetwork() string {
	if c.Network == protocol.NetworkEmpty {
		return protocol.NetworkTCP.String()
	}
	return c.Network.String()
}

// counters holds the per-back-end running latency and response-class
// counters (spec §4.9 "upd_be").
type counters struct {
	mu sync.Mutex

	nRequests uint64
	tRequests float64 // running latency sum, seconds
	tAverage  float64

	c1xx, c2xx, c3xx, c4xx, c5xx uint64
}

// BackEnd is one server endpoint with liveness, disabled flag,
// priority, running latency average and counters (spec §3).
type BackEnd struct {
	Config

	alive    libatm.Value[bool]
	disabled libatm.Value[bool]

	cnt counters
}

// New builds a BackEnd from cfg, alive by default (the teacher marks
// a back-end alive at configuration load; the health loop is
// responsible for killing it on first probe failure, not the other way
// around).
func New(cfg Config) *BackEnd {
	b := &BackEnd{
		Config:   cfg,
		alive:    libatm.NewValue[bool](),
		disabled: libatm.NewValue[bool](),
	}
	b.alive.Store(true)
	return b
}

func (b *BackEnd) Alive() bool      { return b.alive.Load() }
func (b *BackEnd) Disabled() bool   { return b.disabled.Load() }
func (b *BackEnd) Routable() bool   { return b.Alive() && !b.Disabled() && b.Config.Routable() }

func (b *BackEnd) setAlive(v bool)    { b.alive.Store(v) }
func (b *BackEnd) setDisabled(v bool) { b.disabled.Store(v) }
