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

package config

import (
	"fmt"
	"time"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/certificates"
	"github.com/jhill/pound/errors"
	"github.com/jhill/pound/keyrotation"
	"github.com/jhill/pound/listener"
	"github.com/jhill/pound/matcher"
	"github.com/jhill/pound/network/protocol"
	"github.com/jhill/pound/rescale"
	"github.com/jhill/pound/runtime"
	"github.com/jhill/pound/service"
)

// Built is the fully-wired object graph produced from a validated
// RootConfig: the routable topology plus the stand-alone parameters
// the timer loop and key-rotation pool need (spec §6 "Config loader
// hands the core a fully-built listener/service/back-end graph; the
// core assumes immutability of topology after load").
type Built struct {
	Topology *runtime.Topology
	Timer    runtime.TimerParams
	Keys     *keyrotation.Pool
}

// Build constructs the concrete listener/service/back-end graph named
// by cfg. cfg must already have passed Validate.
func Build(cfg *RootConfig) (*Built, errors.Error) {
	top := &runtime.Topology{}

	for i := range cfg.Listeners {
		l, err := buildListener(cfg.Listeners[i])
		if err != nil {
			return nil, err
		}
		top.Listeners = append(top.Listeners, l)
	}

	for i := range cfg.Global {
		s, err := buildService(cfg.Global[i])
		if err != nil {
			return nil, err
		}
		s.SetGlobal(true)
		top.Global = append(top.Global, s)
	}

	if e := top.Validate(); e != nil {
		return nil, e
	}

	var keys *keyrotation.Pool
	if cfg.KeyRotation.PoolSize > 0 {
		p, err := keyrotation.New(cfg.KeyRotation.PoolSize)
		if err != nil {
			return nil, ErrorCompileMatcher.Error(err)
		}
		keys = p
	}

	tp := runtime.TimerParams{
		Health: runtime.HealthParams{
			AliveTo: time.Duration(cfg.Health.AliveToSeconds) * time.Second,
			ConnTo:  time.Duration(cfg.Health.ConnToSeconds) * time.Second,
		},
		RescaleTo: time.Duration(cfg.Rescale.RescaleToSeconds) * time.Second,
		Rescale: rescale.Params{
			Min: cfg.Rescale.Min,
			Bot: cfg.Rescale.Bot,
		},
		ExpireTo:      time.Duration(cfg.Expire.ExpireToSeconds) * time.Second,
		KeyRotationTo: time.Duration(cfg.KeyRotation.IntervalSeconds) * time.Second,
	}

	return &Built{Topology: top, Timer: tp, Keys: keys}, nil
}

func buildListener(lc ListenerConfig) (*listener.Listener, errors.Error) {
	l := listener.New(lc.Name, lc.Address, lc.TLS != nil)

	switch lc.RewriteLocation {
	case "same_host":
		l.RewriteLocation = listener.RewriteSameHostOnly
	case "any_listener":
		l.RewriteLocation = listener.RewriteAnyListener
	default:
		l.RewriteLocation = listener.RewriteOff
	}
	l.RewriteDest = lc.RewriteDest
	l.HeadRemove = lc.HeadRemove
	l.HeadAdd = lc.HeadAdd

	if lc.TLS != nil {
		tc, err := buildTLS(*lc.TLS)
		if err != nil {
			return nil, err
		}
		l.SetDefaultTLS(tc)
	}

	for i := range lc.Services {
		s, err := buildService(lc.Services[i])
		if err != nil {
			return nil, err
		}
		l.AddService(s)
	}

	return l, nil
}

func buildTLS(tc TLSConfig) (*certificates.TLSConfig, errors.Error) {
	out := certificates.New()

	for _, c := range tc.Certificates {
		if err := out.AddCertificatePairFile(c.ServerName, c.CertFile, c.KeyFile); err != nil {
			return nil, ErrorLoadCertificate.Error(err)
		}
	}
	if tc.RootCAFile != "" {
		if err := out.AddRootCAFile(tc.RootCAFile); err != nil {
			return nil, ErrorLoadCertificate.Error(err)
		}
	}
	if tc.ClientCAFile != "" {
		if err := out.AddClientCAFile(tc.ClientCAFile); err != nil {
			return nil, ErrorLoadCertificate.Error(err)
		}
	}

	return out, nil
}

func buildService(sc ServiceConfig) (*service.Service, errors.Error) {
	policy, err := parsePolicy(sc.Policy)
	if err != nil {
		return nil, err
	}

	s := service.New(sc.Name, policy)

	if s.URLMatch, err = compileList("url", sc.URLMatch); err != nil {
		return nil, err
	}
	if s.HeaderReq, err = compileList("header_require", sc.HeaderReq); err != nil {
		return nil, err
	}
	if s.HeaderDeny, err = compileList("header_deny", sc.HeaderDeny); err != nil {
		return nil, err
	}
	if s.EndOfSess, err = compileList("end_of_session_markers", sc.EndOfSess); err != nil {
		return nil, err
	}
	if s.LBInfo, err = compileList("lb_info_headers", sc.LBInfo); err != nil {
		return nil, err
	}

	if sc.KeyExtr.Start != "" || sc.KeyExtr.Pattern != "" {
		start, cerr := matcher.Compile("session_key.start", sc.KeyExtr.Start, true)
		if cerr != nil {
			return nil, ErrorCompileMatcher.Error(cerr)
		}
		pattern, cerr := matcher.Compile("session_key.pattern", sc.KeyExtr.Pattern, true)
		if cerr != nil {
			return nil, ErrorCompileMatcher.Error(cerr)
		}
		s.KeyExtr = matcher.KeyExtractor{Start: start, Pattern: pattern}
	}
	s.BEKeyName = sc.BEKeyName

	s.TTL = sc.TTL()
	s.DeathTTL = sc.DeathTTL()

	for _, bc := range sc.BackEnds {
		s.AddBackEnd(libbe.New(buildBackEnd(bc)))
	}
	if sc.Emergency != nil {
		s.SetEmergency(libbe.New(buildBackEnd(*sc.Emergency)))
	}

	return s, nil
}

func buildBackEnd(bc BackEndConfig) libbe.Config {
	cfg := libbe.Config{
		BEKey:                 bc.BEKey,
		Address:               bc.Address,
		Network:               protocol.Parse(bc.Network),
		HAAddress:             bc.HAAddress,
		Priority:              bc.Priority,
		ReadTimeoutSeconds:    bc.ReadTimeoutSeconds,
		WriteTimeoutSeconds:   bc.WriteTimeoutSeconds,
		ConnectTimeoutSeconds: bc.ConnectTimeoutSeconds,
		StatusCode:            bc.StatusCode,
		RedirectTo:            bc.RedirectTo,
	}
	if bc.TLS {
		cfg.Protocol = libbe.ProtoTLS
	} else {
		cfg.Protocol = libbe.ProtoPlain
	}
	switch bc.RedirectMode {
	case "static":
		cfg.Redirect = libbe.RedirectStatic
	case "append_path":
		cfg.Redirect = libbe.RedirectAppendPath
	case "dynamic":
		cfg.Redirect = libbe.RedirectDynamic
	default:
		cfg.Redirect = libbe.RedirectNone
	}
	return cfg
}

func parsePolicy(s string) (service.SessionPolicy, errors.Error) {
	switch s {
	case "", "none":
		return service.PolicyNone, nil
	case "ip":
		return service.PolicyIP, nil
	case "url":
		return service.PolicyURL, nil
	case "param":
		return service.PolicyParam, nil
	case "cookie":
		return service.PolicyCookie, nil
	case "header":
		return service.PolicyHeader, nil
	case "basic":
		return service.PolicyBasic, nil
	}
	return service.PolicyNone, ErrorValidate.Error(fmt.Errorf("unknown session_policy %q", s))
}

func compileList(name string, patterns []string) (matcher.List, errors.Error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	out := make(matcher.List, 0, len(patterns))
	for i, p := range patterns {
		m, err := matcher.Compile(fmt.Sprintf("%s[%d]", name, i), p, true)
		if err != nil {
			return nil, ErrorCompileMatcher.Error(err)
		}
		out = append(out, m)
	}
	return out, nil
}
