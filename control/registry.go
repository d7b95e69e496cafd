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
	"sync"
	"time"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/listener"
	"github.com/jhill/pound/service"
)

// Registry is the fixed, ordinal-addressable topology the control
// server mutates (spec §6 "the core assumes immutability of topology
// after load" — only liveness/disabled flags and session bindings ever
// change, never the listener/service/back-end lists themselves).
type Registry struct {
	mu        sync.RWMutex
	listeners []*listener.Listener
	global    []*service.Service
}

func NewRegistry(listeners []*listener.Listener, global []*service.Service) *Registry {
	return &Registry{listeners: listeners, global: global}
}

func (r *Registry) Listeners() []*listener.Listener {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*listener.Listener, len(r.listeners))
	copy(out, r.listeners)
	return out
}

func (r *Registry) GlobalServices() []*service.Service {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*service.Service, len(r.global))
	copy(out, r.global)
	return out
}

// servicesFor resolves a listener ordinal (-1 meaning the global
// services list) to the concrete service slice it indexes.
func (r *Registry) servicesFor(listenerOrdinal int32) ([]*service.Service, error) {
	if listenerOrdinal < 0 {
		return r.GlobalServices(), nil
	}
	ls := r.Listeners()
	if int(listenerOrdinal) >= len(ls) {
		return nil, ErrorBadOrdinal.Error()
	}
	return ls[listenerOrdinal].Services(), nil
}

func (r *Registry) resolveListener(ordinal int32) (*listener.Listener, error) {
	ls := r.Listeners()
	if ordinal < 0 || int(ordinal) >= len(ls) {
		return nil, ErrorBadOrdinal.Error()
	}
	return ls[ordinal], nil
}

func (r *Registry) resolveService(listenerOrdinal, serviceOrdinal int32) (*service.Service, error) {
	svcs, err := r.servicesFor(listenerOrdinal)
	if err != nil {
		return nil, err
	}
	if serviceOrdinal < 0 || int(serviceOrdinal) >= len(svcs) {
		return nil, ErrorBadOrdinal.Error()
	}
	return svcs[serviceOrdinal], nil
}

func (r *Registry) resolveBackEnd(listenerOrdinal, serviceOrdinal, beOrdinal int32) (*service.Service, *libbe.BackEnd, error) {
	svc, err := r.resolveService(listenerOrdinal, serviceOrdinal)
	if err != nil {
		return nil, nil, err
	}
	bes := svc.BackEnds()
	if beOrdinal < 0 || int(beOrdinal) >= len(bes) {
		return nil, nil, ErrorBadOrdinal.Error()
	}
	return svc, bes[beOrdinal], nil
}

// Apply executes one decoded command against the registry (spec §4.11
// "Mutations go through kill_be, service disabled, or session-table
// insert/remove, each under the appropriate mutex" — this dispatcher
// never takes a lock itself, it only calls into the already-guarded
// methods on listener/service/backend/session).
func (r *Registry) Apply(cmd Command, now time.Time) error {
	switch cmd.Code {
	case CmdEnableListener, CmdDisableListener:
		l, err := r.resolveListener(cmd.ListenerOrdinal)
		if err != nil {
			return err
		}
		l.SetDisabled(cmd.Code == CmdDisableListener)
		return nil

	case CmdEnableService, CmdDisableService:
		svc, err := r.resolveService(cmd.ListenerOrdinal, cmd.ServiceOrdinal)
		if err != nil {
			return err
		}
		svc.SetDisabled(cmd.Code == CmdDisableService)
		return nil

	case CmdEnableBackEnd:
		svc, be, err := r.resolveBackEnd(cmd.ListenerOrdinal, cmd.ServiceOrdinal, cmd.BackEndOrdinal)
		if err != nil {
			return err
		}
		svc.KillBackEnd(be, libbe.ModeEnable)
		return nil

	case CmdDisableBackEnd:
		svc, be, err := r.resolveBackEnd(cmd.ListenerOrdinal, cmd.ServiceOrdinal, cmd.BackEndOrdinal)
		if err != nil {
			return err
		}
		svc.KillBackEnd(be, libbe.ModeDisable)
		return nil

	case CmdKillBackEnd:
		svc, be, err := r.resolveBackEnd(cmd.ListenerOrdinal, cmd.ServiceOrdinal, cmd.BackEndOrdinal)
		if err != nil {
			return err
		}
		svc.KillBackEnd(be, libbe.ModeKill)
		return nil

	case CmdAddSession:
		svc, be, err := r.resolveBackEnd(cmd.ListenerOrdinal, cmd.ServiceOrdinal, cmd.BackEndOrdinal)
		if err != nil {
			return err
		}
		svc.InsertSessionLocked(cmd.Key, be.BEKey, now)
		return nil

	case CmdDeleteSession:
		svc, err := r.resolveService(cmd.ListenerOrdinal, cmd.ServiceOrdinal)
		if err != nil {
			return err
		}
		svc.RemoveSessionLocked(cmd.Key)
		return nil
	}

	return ErrorUnknownCommand.Error()
}
