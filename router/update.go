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

package router

import (
	"time"

	libbe "github.com/jhill/pound/backend"
	libsess "github.com/jhill/pound/session"
	"github.com/jhill/pound/service"
)

// Response is the subset of a back-end's reply the updater needs: its
// header lines, scanned independently for end-of-session and LB-info
// matches (spec §4.5).
type Response struct {
	Headers []string
}

// Update implements spec §4.5 ("upd_session"), invoked once the
// back-end's response headers have been parsed. It only applies to
// header/cookie/HTTP-Basic affinity modes — PolicyIP and PolicyURL
// bind at request time in Route and have nothing left to update here;
// PolicyNone never has a session.
func Update(svc *service.Service, be *libbe.BackEnd, sess *libsess.Session, req Request, resp Response, now time.Time) {
	switch svc.Policy {
	case service.PolicyCookie, service.PolicyHeader, service.PolicyBasic:
	default:
		return
	}

	svc.Lock()
	switch {
	case sess != nil && anyHeaderMatches(svc, resp.Headers):
		markEndOfSession(svc, sess)
	default:
		insertIfAbsent(svc, be, req, resp, now)
	}
	svc.Unlock()

	if sess != nil {
		applyLBInfo(svc, sess, resp)
	}
}

// anyHeaderMatches reports whether any response header line matches
// the service's end-of-session matcher set (spec §4.5 step 1).
func anyHeaderMatches(svc *service.Service, headers []string) bool {
	for _, h := range headers {
		if _, ok := svc.EndOfSess.FirstMatch(h); ok {
			return true
		}
	}
	return false
}

// markEndOfSession implements spec §4.5 step 1: increment
// delete_pending; remove immediately by key when the service's
// death-TTL is zero or negative.
func markEndOfSession(svc *service.Service, sess *libsess.Session) {
	sess.MarkDeletePending()
	if svc.DeathTTL <= 0 {
		svc.Sessions().RemoveByKey(sess.Key)
	}
}

// insertIfAbsent implements spec §4.5 step 2: extract a session key
// from the response headers; if not already bound, insert a new
// binding to the back-end that served the request.
func insertIfAbsent(svc *service.Service, be *libbe.BackEnd, req Request, resp Response, now time.Time) {
	key, ok := svc.KeyExtr.ExtractFromLast(resp.Headers)
	if !ok {
		return
	}

	table := svc.Sessions()
	if _, hit := table.Peek(key); hit {
		return
	}

	s := libsess.New(key, be.BEKey, now)
	s.Touch(now, req.ClientAddr, req.Target, req.User)
	table.Insert(key, s)
}

// applyLBInfo implements spec §4.5 step 3, independently of steps 1-2:
// the first capture group of the first matching LB-info matcher is
// copied into the session's lb_info field.
func applyLBInfo(svc *service.Service, sess *libsess.Session, resp Response) {
	for _, h := range resp.Headers {
		m, ok := svc.LBInfo.FirstMatch(h)
		if !ok {
			continue
		}
		sub := m.Regexp.FindStringSubmatch(h)
		if len(sub) > 1 {
			sess.SetLBInfo(sub[1])
		}
		return
	}
}
