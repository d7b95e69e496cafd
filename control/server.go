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

package control

import (
	"context"
	"net"
	"time"

	"github.com/jhill/pound/logger"
	"github.com/jhill/pound/service"
	"github.com/jhill/pound/session"
)

// Server is the control thread (spec §5 "one control thread"): it
// accepts connections on l and processes exactly one command per
// connection, sequentially, never spawning a worker goroutine per
// connection — the single-threaded discipline spec §4.11 calls for.
type Server struct {
	Registry *Registry
	Version  string

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (s *Server) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Serve runs the accept loop until ctx is cancelled or l.Accept fails.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	for {
		conn, err := l.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		s.handle(conn)
	}
}

// handle reads exactly one command frame, executes it, writes one
// response, and closes the connection (spec §4.11 "accepting one
// command per connection").
func (s *Server) handle(conn net.Conn) {
	defer func() { _ = conn.Close() }()

	cmd, err := ReadCommand(conn)
	if err != nil {
		return
	}

	switch cmd.Code {
	case CmdListAll:
		_ = writeByte(conn, byte(StatusOK))
		if err := WriteSnapshot(conn, s.Version, s.Registry); err != nil {
			logger.WarnLevel.LogErrorCtxf("control: snapshot", err)
		}
		return

	case CmdDumpSessions:
		svc, err := s.Registry.resolveService(cmd.ListenerOrdinal, cmd.ServiceOrdinal)
		if err != nil {
			s.respondError(conn, err)
			return
		}
		s.dumpSessions(conn, svc)
		return
	}

	if err := s.Registry.Apply(cmd, s.now()); err != nil {
		s.respondError(conn, err)
		return
	}
	_ = writeByte(conn, byte(StatusOK))
}

func (s *Server) respondError(conn net.Conn, err error) {
	_ = writeByte(conn, byte(StatusError))
	_ = writeString(conn, err.Error())
}

// dumpSessions writes a CmdDumpSessions response: an ok status byte,
// then every session currently bound in svc's table, resolving each
// one's back-end key to its ordinal within svc's own back-end list.
func (s *Server) dumpSessions(conn net.Conn, svc *service.Service) {
	bes := svc.BackEnds()
	ordinalOf := func(beKey string) int32 {
		for i, b := range bes {
			if b.BEKey == beKey {
				return int32(i)
			}
		}
		return -1
	}

	var snaps []session.Snapshot
	svc.Sessions().Walk(func(_ string, sess *session.Session) {
		snaps = append(snaps, sess.Snapshot())
	})

	_ = writeByte(conn, byte(StatusOK))
	if err := WriteSessionDump(conn, ordinalOf, snaps); err != nil {
		logger.WarnLevel.LogErrorCtxf("control: session dump", err)
	}
}
