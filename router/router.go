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

// Package router implements the per-request decision function (spec
// §2 item 7 "Router"): given a listener, a request, and the global
// services list, it returns the matched service, the selected
// back-end, and (for stateful session policies) the bound session.
//
// It also implements the post-response Updater (spec §4.5
// "upd_session"): header/cookie session modes may create a new
// affinity binding, mark one for deletion, or record an LB-info value
// once the back-end's response headers are known.
package router

import (
	"strings"
	"time"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/listener"
	libsess "github.com/jhill/pound/session"
	"github.com/jhill/pound/service"
)

// Request is the subset of an inbound request the router needs: the
// request-target (for URL matchers and URL/param session keys), the
// raw header lines (for require/deny/cookie/header matchers), the
// client address without port (for IP affinity), and the
// authenticated user name, if any (spec §2 item 7, §4.2).
type Request struct {
	Target     string
	Headers    []string
	ClientAddr string
	User       string
}

// Decision is the router's output: the matched service, the selected
// back-end, and the session bound to the request (nil for a
// stateless/PolicyNone service).
type Decision struct {
	Service *service.Service
	BackEnd *libbe.BackEnd
	Session *libsess.Session
}

// Route implements spec §4.1 (service selection) followed by §4.2-§4.3
// (session-key extraction and back-end selection), in declaration
// order: the listener's own services first, then the global services
// list. An unrouteable request (spec §7) or a service with no usable
// back-end is reported as an errors.Error built from the matching
// service package code, so callers can log/compare by CodeError the
// way the rest of this module does.
func Route(l *listener.Listener, global []*service.Service, req Request, now time.Time) (Decision, error) {
	svc := match(l.Services(), req)
	if svc == nil {
		svc = match(global, req)
	}
	if svc == nil {
		return Decision{}, service.ErrorUnrouteable.Error()
	}
	svc.IncRequests()

	be, sess := selectBackEnd(svc, req, now)
	if be == nil {
		return Decision{Service: svc}, service.ErrorNoBackEnd.Error()
	}
	return Decision{Service: svc, BackEnd: be, Session: sess}, nil
}

func match(services []*service.Service, req Request) *service.Service {
	for _, s := range services {
		if s.Matches(req.Target, req.Headers) {
			return s
		}
	}
	return nil
}

// sessionKey extracts the affinity key for req under svc's policy
// (spec §4.2). The bool result is false when the policy yields no key
// ("no affinity for this request"), which is impossible for PolicyIP
// and PolicyNone never calls this at all.
func sessionKey(svc *service.Service, req Request) (string, bool) {
	switch svc.Policy {
	case service.PolicyIP:
		return req.ClientAddr, req.ClientAddr != ""
	case service.PolicyURL, service.PolicyParam:
		return svc.KeyExtr.Extract(req.Target)
	case service.PolicyCookie, service.PolicyHeader, service.PolicyBasic:
		return svc.KeyExtr.ExtractFromLast(req.Headers)
	default:
		return "", false
	}
}

// selectBackEnd implements spec §4.3 in full. A negative TTL ("negative
// TTL signals consistent-hash, no table", spec §3 "Service") never
// touches the session table at all: the key, if any, is fed straight
// to the consistent-hash selector and no Session is created. A
// non-negative TTL is the stateful path: the router probes the session
// table under the service mutex, falls back to weighted-random/
// explicit-bekey selection on a miss, and inserts a new binding;
// bookkeeping on the returned session is then updated under the
// session's own mutex, outside the service lock (spec §4.3 "In either
// case the session's request counter... are updated under the
// session's own mutex").
func selectBackEnd(svc *service.Service, req Request, now time.Time) (*libbe.BackEnd, *libsess.Session) {
	if svc.Policy == service.PolicyNone {
		return svc.RandBackEnd(), nil
	}

	key, ok := sessionKey(svc, req)

	if svc.TTL < 0 {
		if !ok {
			return svc.RandBackEnd(), nil
		}
		return svc.HashBackEnd(key), nil
	}

	if !ok {
		return svc.RandBackEnd(), nil
	}

	svc.Lock()
	table := svc.Sessions()
	sess, hit := table.Peek(key)
	var be *libbe.BackEnd
	if hit {
		be = svc.BackEndByKeyLocked(sess.BEKey)
	} else {
		be = pickLocked(svc, req)
		if be != nil {
			sess = libsess.New(key, be.BEKey, now)
			table.Insert(key, sess)
		}
	}
	svc.Unlock()

	if be == nil {
		return nil, nil
	}
	sess.Touch(now, req.ClientAddr, req.Target, req.User)
	return be, sess
}

// pickLocked is the stateful-path (non-negative TTL) selector used on a
// session-table miss: explicit bekey, falling back to weighted random.
// Consistent hashing is exclusively the negative-TTL, no-table path
// (spec §3 "negative TTL signals consistent-hash, no table") and is
// never reached from here.
func pickLocked(svc *service.Service, req Request) *libbe.BackEnd {
	if bekey, ok := explicitBEKey(svc, req); ok {
		return svc.ExplicitBEKeyLocked(bekey)
	}
	return svc.RandBackEndLocked()
}

// explicitBEKey implements spec §4.3 "Explicit bekey": when the service
// configures a back-end cookie name (BEKeyName), the request's Cookie
// header is scanned for that name and its value is returned as the
// back-end key. An unconfigured service (BEKeyName == "") always falls
// through to the other selectors.
func explicitBEKey(svc *service.Service, req Request) (string, bool) {
	if svc.BEKeyName == "" {
		return "", false
	}
	for _, h := range req.Headers {
		rest, ok := cutHeader(h, "Cookie:")
		if !ok {
			continue
		}
		for _, pair := range strings.Split(rest, ";") {
			name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
			if ok && name == svc.BEKeyName {
				return value, true
			}
		}
	}
	return "", false
}

// cutHeader reports whether line is a header of the given name (matched
// case-insensitively, per RFC 7230 field-name rules) and returns the
// trimmed field-value.
func cutHeader(line, name string) (string, bool) {
	if len(line) < len(name) || !strings.EqualFold(line[:len(name)], name) {
		return "", false
	}
	return strings.TrimSpace(line[len(name):]), true
}
