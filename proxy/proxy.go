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

// Package proxy wires the router's per-request decision and the
// listener's location rewriter into an http.Handler: it selects a
// back-end via package router, forwards via httputil.ReverseProxy (or
// answers directly for a redirect-target back-end), rewrites
// Location/Content-Location/Destination headers per spec §4.10, records
// the completed request's latency and status against the back-end, and
// runs the post-response session updater (spec §4.5).
package proxy

import (
	"context"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/listener"
	"github.com/jhill/pound/logger"
	"github.com/jhill/pound/network/protocol"
	"github.com/jhill/pound/router"
	"github.com/jhill/pound/service"
)

// requestIDHeader carries a correlation ID generated for every request
// this process handles, echoed back to the client and included in
// every log line for that request so an operator can trace one
// request across the router/update log lines without relying on
// timestamps alone.
const requestIDHeader = "X-Request-Id"

// Handler serves one Listener's traffic (spec §2 "per-listener accept
// loop hands each connection's requests to the router").
type Handler struct {
	Listener *listener.Listener
	Global   []*service.Service
	// AllListeners backs the any-listener rewrite mode (spec §4.10 step
	// 8); it must include Handler's own Listener.
	AllListeners []*listener.Listener

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (h *Handler) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// statusCapture wraps an http.ResponseWriter to record the status code
// the back-end answered with, for UpdRequest's 1xx-5xx counters.
type statusCapture struct {
	http.ResponseWriter
	status int
}

func (w *statusCapture) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

func headerLines(h http.Header) []string {
	out := make([]string, 0, len(h))
	for k, vs := range h {
		for _, v := range vs {
			out = append(out, k+": "+v)
		}
	}
	return out
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func toRouterRequest(r *http.Request) router.Request {
	return router.Request{
		Target:     r.URL.RequestURI(),
		Headers:    headerLines(r.Header),
		ClientAddr: clientAddr(r),
		User:       basicUser(r),
	}
}

func basicUser(r *http.Request) string {
	user, _, ok := r.BasicAuth()
	if !ok {
		return ""
	}
	return user
}

// ServeHTTP implements spec §2's end-to-end request path: route,
// dispatch (redirect target or reverse proxy), rewrite, update.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	now := h.now()
	req := toRouterRequest(r)

	reqID := r.Header.Get(requestIDHeader)
	if reqID == "" {
		reqID = uuid.NewString()
	}
	w.Header().Set(requestIDHeader, reqID)

	decision, err := router.Route(h.Listener, h.Global, req, now)
	if err != nil {
		logger.WarnLevel.LogErrorCtxf("proxy["+reqID+"]: route", err)
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	if decision.BackEnd.IsRedirect() {
		h.serveRedirect(w, r, decision.BackEnd)
		return
	}

	h.serveUpstream(w, r, req, decision, now)
}

// serveRedirect answers a redirect-target back-end directly, without
// ever dialing upstream (spec §3 "be_type = 0 for a real back-end or
// an HTTP status code for a redirect target").
func (h *Handler) serveRedirect(w http.ResponseWriter, r *http.Request, be *libbe.BackEnd) {
	loc := redirectLocation(be, r)
	w.Header().Set("Location", loc)
	w.WriteHeader(be.StatusCode)
}

func redirectLocation(be *libbe.BackEnd, r *http.Request) string {
	switch be.Redirect {
	case libbe.RedirectAppendPath:
		return strings.TrimRight(be.RedirectTo, "/") + r.URL.RequestURI()
	case libbe.RedirectDynamic:
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		return strings.Replace(be.RedirectTo, "%s", scheme+"://"+r.Host+r.URL.RequestURI(), 1)
	default: // RedirectStatic
		return be.RedirectTo
	}
}

// backendURL builds the target httputil.ReverseProxy rewrites the
// request onto. A UNIX-domain back-end's Address is a filesystem path,
// not a valid HTTP host, so it gets a synthetic placeholder host here;
// transportFor dials the real path directly and ignores this URL's
// host entirely.
func backendURL(be *libbe.BackEnd) *url.URL {
	if be.DialNetwork() == protocol.NetworkUnix.String() {
		return &url.URL{Scheme: "http", Host: "unix"}
	}

	scheme := "http"
	if be.Protocol == libbe.ProtoTLS {
		scheme = "https"
	}
	return &url.URL{Scheme: scheme, Host: be.Address}
}

// serveUpstream forwards the request to decision.BackEnd via
// httputil.ReverseProxy, timing the round trip for UpdRequest and
// rewriting redirect-ish response headers before they reach the client
// (spec §4.10).
func (h *Handler) serveUpstream(w http.ResponseWriter, r *http.Request, req router.Request, decision router.Decision, now time.Time) {
	be := decision.BackEnd
	target := backendURL(be)

	rp := httputil.NewSingleHostReverseProxy(target)
	rp.Transport = transportFor(be)

	var resp router.Response
	start := now
	sc := &statusCapture{ResponseWriter: w, status: http.StatusOK}

	rp.ModifyResponse = func(httpResp *http.Response) error {
		h.rewriteLocationHeaders(httpResp, r, decision, be)
		resp = router.Response{Headers: headerLines(httpResp.Header)}
		return nil
	}
	rp.ErrorHandler = func(ew http.ResponseWriter, er *http.Request, err error) {
		logger.ErrorLevel.LogErrorCtxf("proxy["+w.Header().Get(requestIDHeader)+"]: upstream", err)
		ew.WriteHeader(http.StatusBadGateway)
	}

	rp.ServeHTTP(sc, r)

	elapsed := h.now().Sub(start).Seconds()
	be.UpdRequest(elapsed, sc.status)
	router.Update(decision.Service, be, decision.Session, req, resp, h.now())
}

// rewriteLocationHeaders applies spec §4.10's need_rewrite decision to
// every redirect-bearing response header the back-end sent.
func (h *Handler) rewriteLocationHeaders(resp *http.Response, r *http.Request, decision router.Decision, be *libbe.BackEnd) {
	for _, name := range []string{"Location", "Content-Location", "Destination"} {
		v := resp.Header.Get(name)
		if v == "" {
			continue
		}
		rw := h.Listener.NeedRewrite(v, r.Host, be, decision.Service.Global(), h.AllListeners)
		if rw == listener.RewriteNo {
			continue
		}
		resp.Header.Set(name, rewriteScheme(v, rw))
	}
}

func rewriteScheme(location string, r listener.Rewrite) string {
	if r == listener.RewriteFits {
		return location
	}
	scheme := r.Scheme("")
	if scheme == "" {
		return location
	}
	if i := strings.Index(location, "://"); i >= 0 {
		return scheme + location[i:]
	}
	return location
}

// transportFor builds the per-back-end RoundTripper. A UNIX-domain
// back-end (spec §3 "TCP/UNIX-domain back-end") always dials
// be.Address over be.DialNetwork() regardless of what reverse-proxy
// rewrote the request URL's host to, since a filesystem path cannot
// itself be a valid request-URL host.
func transportFor(be *libbe.BackEnd) http.RoundTripper {
	dialTimeout := time.Duration(be.ConnectTimeoutSeconds) * time.Second
	if dialTimeout <= 0 {
		dialTimeout = 10 * time.Second
	}
	rwTimeout := time.Duration(be.ReadTimeoutSeconds) * time.Second

	dialer := &net.Dialer{Timeout: dialTimeout}
	network := be.DialNetwork()
	address := be.Address

	return &http.Transport{
		DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.DialContext(ctx, network, address)
		},
		ResponseHeaderTimeout: rwTimeout,
	}
}
