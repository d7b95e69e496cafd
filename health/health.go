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

// Package health implements the health loop (spec §4.7 "do_resurect"):
// a two-pass sweep over every back-end in every service that kills
// back-ends whose HA probe address has stopped answering, and
// resurrects back-ends whose probe address (or main address, absent
// an HA address) answers again.
//
// The original C source's connect_nb hand-rolls non-blocking connect
// (O_NONBLOCK, EINPROGRESS, poll-for-writable, SO_ERROR). Go's
// net.DialTimeout already performs a non-blocking connect internally
// and returns once the handshake completes or the deadline fires, so
// that machinery is not reproduced here — see DESIGN.md.
package health

import (
	"context"
	"net"
	"time"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/service"
)

// Dialer abstracts the probe connection so tests can substitute a
// fake without opening real sockets.
type Dialer func(network, address string, timeout time.Duration) (net.Conn, error)

// DefaultDialer is net.DialTimeout, the idiomatic non-blocking connect
// equivalent (spec §4.7 "connect_nb").
func DefaultDialer(network, address string, timeout time.Duration) (net.Conn, error) {
	return net.DialTimeout(network, address, timeout)
}

// Check runs one pass of both phases of the health loop over services
// (spec §4.7). connTimeout corresponds to the spec's conn_to.
func Check(services []*service.Service, dial Dialer, connTimeout time.Duration) {
	killOnHAFailure(services, dial, connTimeout)
	resurrectReachable(services, dial, connTimeout)
}

// killOnHAFailure is pass 1: an alive back-end with a configured HA
// probe address that fails to connect is killed (spec §4.7 "Pass 1").
func killOnHAFailure(services []*service.Service, dial Dialer, timeout time.Duration) {
	for _, svc := range services {
		for _, b := range svc.BackEnds() {
			if !b.Alive() || b.HAAddress == "" {
				continue
			}
			if !probe(dial, b.DialNetwork(), b.HAAddress, timeout) {
				svc.KillBackEnd(b, libbe.ModeKill)
			}
		}
	}
}

// resurrectReachable is pass 2: a dead back-end whose HA address (or
// main address, absent one) answers is resurrected (spec §4.7 "Pass
// 2"). Resurrection goes through service.Resurrect, which takes the
// service mutex and recomputes tot_pri, per spec "set alive = true on
// resurrected back-ends... recompute tot_pri" under the service mutex.
func resurrectReachable(services []*service.Service, dial Dialer, timeout time.Duration) {
	for _, svc := range services {
		for _, b := range svc.BackEnds() {
			if b.Alive() {
				continue
			}
			addr := b.HAAddress
			if addr == "" {
				addr = b.Address
			}
			if probe(dial, b.DialNetwork(), addr, timeout) {
				svc.Resurrect(b)
			}
		}
	}
}

func probe(dial Dialer, network, address string, timeout time.Duration) bool {
	conn, err := dial(network, address, timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Run drives Check on a ticker until ctx is done (spec §5 "Scheduling
// model": "one timer thread running §4.7-4.9... in a single sequential
// loop"). servicesFn is re-invoked on every tick so the loop always
// probes the current listener/service graph rather than a stale
// snapshot taken at start-up. alive_to is the tick interval; conn_to is
// the per-probe dial timeout (spec §4.7).
func Run(ctx context.Context, aliveTo, connTo time.Duration, servicesFn func() []*service.Service) {
	ticker := time.NewTicker(aliveTo)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			Check(servicesFn(), DefaultDialer, connTo)
		}
	}
}
