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
	"encoding/binary"
	"io"

	libbe "github.com/jhill/pound/backend"
	"github.com/jhill/pound/session"
)

// sentinel marks the end of a record stream (spec §6 "each record
// terminated by a sentinel with disabled = -1"); every record's first
// field is a disabled tri-state (-1 sentinel, 0 enabled, 1 disabled).
const sentinel int32 = -1

func disabledFlag(v bool) int32 {
	if v {
		return 1
	}
	return 0
}

func boolByte(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// WriteSnapshot encodes the registry's current topology and aggregate
// counters (spec §4.11 "list-all (dumps listeners, services,
// back-ends, sessions as a serialised snapshot)"; session bindings
// themselves are a separate command, see WriteSessionDump, since a
// full session dump is only meaningful once a specific service is
// chosen).
func WriteSnapshot(w io.Writer, version string, r *Registry) error {
	if err := writeString(w, version); err != nil {
		return err
	}

	listeners := r.Listeners()

	for i, l := range listeners {
		if err := writeListenerRecord(w, int32(i), l.Name, l.Address, l.IsTLS, l.Disabled()); err != nil {
			return err
		}
	}
	if err := writeInt32(w, sentinel); err != nil {
		return err
	}

	for i, l := range listeners {
		for j, s := range l.Services() {
			if err := writeServiceRecord(w, int32(i), int32(j), s.Name, s.Disabled(), s.TotPri(), s.NRequests()); err != nil {
				return err
			}
		}
	}
	for j, s := range r.GlobalServices() {
		if err := writeServiceRecord(w, -1, int32(j), s.Name, s.Disabled(), s.TotPri(), s.NRequests()); err != nil {
			return err
		}
	}
	if err := writeInt32(w, sentinel); err != nil {
		return err
	}

	for i, l := range listeners {
		for j, s := range l.Services() {
			for k, b := range s.BackEnds() {
				if err := writeBackEndRecord(w, int32(i), int32(j), int32(k), b); err != nil {
					return err
				}
			}
		}
	}
	for j, s := range r.GlobalServices() {
		for k, b := range s.BackEnds() {
			if err := writeBackEndRecord(w, -1, int32(j), int32(k), b); err != nil {
				return err
			}
		}
	}
	return writeInt32(w, sentinel)
}

func writeListenerRecord(w io.Writer, ordinal int32, name, address string, isTLS, disabled bool) error {
	if err := writeInt32(w, disabledFlag(disabled)); err != nil {
		return err
	}
	if err := writeInt32(w, ordinal); err != nil {
		return err
	}
	if err := writeString(w, name); err != nil {
		return err
	}
	if err := writeString(w, address); err != nil {
		return err
	}
	return writeByte(w, boolByte(isTLS))
}

func writeServiceRecord(w io.Writer, listenerOrdinal, ordinal int32, name string, disabled bool, totPri int, nRequests uint64) error {
	if err := writeInt32(w, disabledFlag(disabled)); err != nil {
		return err
	}
	if err := writeInt32(w, listenerOrdinal); err != nil {
		return err
	}
	if err := writeInt32(w, ordinal); err != nil {
		return err
	}
	if err := writeString(w, name); err != nil {
		return err
	}
	if err := writeInt32(w, int32(totPri)); err != nil {
		return err
	}
	return writeUint64(w, nRequests)
}

func writeBackEndRecord(w io.Writer, listenerOrdinal, serviceOrdinal, ordinal int32, b *libbe.BackEnd) error {
	snap := b.Snapshot()

	if err := writeInt32(w, disabledFlag(snap.Disabled)); err != nil {
		return err
	}
	if err := writeInt32(w, listenerOrdinal); err != nil {
		return err
	}
	if err := writeInt32(w, serviceOrdinal); err != nil {
		return err
	}
	if err := writeInt32(w, ordinal); err != nil {
		return err
	}
	if err := writeString(w, b.BEKey); err != nil {
		return err
	}
	if err := writeString(w, b.Address); err != nil {
		return err
	}
	if err := writeInt32(w, int32(b.Priority)); err != nil {
		return err
	}
	if err := writeByte(w, boolByte(snap.Alive)); err != nil {
		return err
	}
	if err := writeUint64(w, snap.NRequests); err != nil {
		return err
	}
	return writeFloat64(w, snap.TAverage)
}

// WriteSessionDump encodes every session bound in one service's table
// (spec §6 "Session dumps emit the table node, back-end ordinal, key,
// session record, and variable-length last-IP blob"). beOrdinalOf
// resolves a session's bound back-end key to its ordinal within the
// same service, so a client can cross-reference the preceding
// list-all response.
func WriteSessionDump(w io.Writer, beOrdinalOf func(beKey string) int32, sessions []session.Snapshot) error {
	for _, s := range sessions {
		if err := writeInt32(w, beOrdinalOf(s.BEKey)); err != nil {
			return err
		}
		if err := writeString(w, s.Key); err != nil {
			return err
		}
		if err := writeInt64(w, s.Created.Unix()); err != nil {
			return err
		}
		if err := writeInt64(w, s.LastAcc.Unix()); err != nil {
			return err
		}
		if err := writeUint64(w, s.NReq); err != nil {
			return err
		}
		if err := writeString(w, s.LastAddr); err != nil {
			return err
		}
	}
	return writeInt32(w, sentinel)
}

func writeInt64(w io.Writer, v int64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	_, err := w.Write(b[:])
	return err
}
