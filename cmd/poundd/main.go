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

// Command poundd is the process that loads a configuration document,
// builds the listener/service/back-end graph, and runs the three
// threads spec §5 describes: the request threads (one per-listener
// http.Server), the single sequential timer thread (package runtime),
// and the control thread (package control).
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/net/http2"

	appcontext "github.com/jhill/pound/context"

	"github.com/jhill/pound/config"
	"github.com/jhill/pound/control"
	"github.com/jhill/pound/listener"
	"github.com/jhill/pound/logger"
	"github.com/jhill/pound/proxy"
	"github.com/jhill/pound/runtime"
	"github.com/jhill/pound/status"
)

const shutdownGrace = 10 * time.Second

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "pound.yaml", "path to the configuration document")
	flag.Parse()

	cfg, err := config.Load(configPath)
	if err != nil {
		logger.ErrorLevel.LogErrorCtxf("poundd: load configuration", err)
		os.Exit(1)
	}

	built, err := config.Build(cfg)
	if err != nil {
		logger.ErrorLevel.LogErrorCtxf("poundd: build topology", err)
		os.Exit(1)
	}

	rtctx := appcontext.New[string](nil)
	ctx := rtctx.GetContext()

	registry := control.NewRegistry(built.Topology.Listeners, built.Topology.Global)

	printBanner(built.Topology, cfg)

	var wg sync.WaitGroup

	runListeners(ctx, &wg, built.Topology)
	runTimer(ctx, &wg, built)
	runControl(ctx, &wg, cfg.Control.Listen, registry)
	runMetrics(ctx, &wg, cfg.Metrics.Listen, registry)

	waitForShutdown(ctx, rtctx.Cancel)
	wg.Wait()
}

// waitForShutdown blocks until SIGINT/SIGTERM/SIGQUIT arrives or ctx is
// otherwise cancelled, then cancels the shared runtime context — the
// same interrupt-channel shape golib's httpserver pool.WaitNotify uses
// (_examples/nabbar-golib/httpserver/pool.go), minus the direct
// per-server Shutdown() calls, which here live behind ctx cancellation
// instead.
func waitForShutdown(ctx context.Context, cancel context.CancelFunc) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case <-quit:
		logger.InfoLevel.Log("poundd: received shutdown signal")
	case <-ctx.Done():
	}
	cancel()
}

func runTimer(ctx context.Context, wg *sync.WaitGroup, built *config.Built) {
	t := &runtime.Timer{
		Topology: built.Topology,
		Params:   built.Timer,
		Keys:     built.Keys,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		t.Run(ctx)
	}()
}

func runControl(ctx context.Context, wg *sync.WaitGroup, addr string, registry *control.Registry) {
	if addr == "" {
		return
	}
	l, err := net.Listen("tcp", addr)
	if err != nil {
		logger.ErrorLevel.LogErrorCtxf("poundd: control listen", err)
		return
	}

	srv := &control.Server{
		Registry: registry,
		Version:  "poundd-dev",
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := srv.Serve(ctx, l); err != nil {
			logger.ErrorLevel.LogErrorCtxf("poundd: control server", err)
		}
	}()
}

func runMetrics(ctx context.Context, wg *sync.WaitGroup, addr string, registry *control.Registry) {
	if addr == "" {
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", status.Handler(registry))
	srv := &http.Server{Addr: addr, Handler: mux}

	serveGraceful(ctx, wg, "metrics", srv, func() error {
		l, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			return err
		}
		return srv.Serve(l)
	})
}

func runListeners(ctx context.Context, wg *sync.WaitGroup, top *runtime.Topology) {
	for _, l := range top.Listeners {
		l := l
		h := &proxy.Handler{
			Listener:     l,
			Global:       top.Global,
			AllListeners: top.Listeners,
		}
		srv := &http.Server{Addr: l.Address, Handler: h}

		serveGraceful(ctx, wg, l.Name, srv, func() error {
			ln, err := listenReusable(srv.Addr)
			if err != nil {
				return err
			}
			if l.IsTLS {
				srv.TLSConfig = tlsConfigFor(l)
				if err := http2.ConfigureServer(srv, &http2.Server{}); err != nil {
					logger.WarnLevel.LogErrorCtxf("poundd: "+l.Name+" http2", err)
				}
				ln = tls.NewListener(ln, srv.TLSConfig)
			}
			return srv.Serve(ln)
		})
	}
}

// serveGraceful runs start in its own goroutine and arranges for srv's
// graceful Shutdown to run once ctx is cancelled, bounded by
// shutdownGrace — the same pattern golib's httpserver.server.Shutdown
// uses (context.WithTimeout(context.Background(), timeoutShutdown)).
func serveGraceful(ctx context.Context, wg *sync.WaitGroup, name string, srv *http.Server, start func() error) {
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := start(); err != nil && err != http.ErrServerClosed {
			logger.ErrorLevel.LogErrorCtxf("poundd: "+name+" serve", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()

		logger.InfoLevel.Logf("poundd: shutting down %q", name)
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.ErrorLevel.LogErrorCtxf("poundd: "+name+" shutdown", err)
		}
	}()
}

func tlsConfigFor(l *listener.Listener) *tls.Config {
	return &tls.Config{
		GetCertificate: func(hello *tls.ClientHelloInfo) (*tls.Certificate, error) {
			tc := l.ResolveSNI(hello.ServerName)
			if tc == nil {
				return nil, errNoCertificate
			}
			return tc.TlsConfig(hello.ServerName).GetCertificate(hello)
		},
	}
}
