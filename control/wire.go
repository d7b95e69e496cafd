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

// Package control implements the control server (spec §4.11): a
// single-threaded reader of fixed-layout command frames that mutates
// listeners/services/back-ends and dumps a snapshot of the session
// tables. One command is read, executed, and answered per connection.
package control

import (
	"encoding/binary"
	"io"
	"math"
)

// Code is the command-frame's command byte (spec §4.11 "command code").
type Code byte

const (
	CmdListAll Code = iota + 1
	CmdEnableListener
	CmdDisableListener
	CmdEnableService
	CmdDisableService
	CmdEnableBackEnd
	CmdDisableBackEnd
	CmdKillBackEnd
	CmdAddSession
	CmdDeleteSession
	CmdDumpSessions
)

// Command is the fixed-layout command record (spec §4.11 "Control wire
// format... {command code, listener ordinal, service ordinal, back-end
// ordinal, key}"). A listener ordinal of -1 selects the global services
// list rather than a specific listener's own services.
type Command struct {
	Code            Code
	ListenerOrdinal int32
	ServiceOrdinal  int32
	BackEndOrdinal  int32
	Key             string
}

// ReadCommand decodes one fixed-layout command record from r.
func ReadCommand(r io.Reader) (Command, error) {
	var hdr [13]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return Command{}, err
	}

	cmd := Command{
		Code:            Code(hdr[0]),
		ListenerOrdinal: int32(binary.BigEndian.Uint32(hdr[1:5])),
		ServiceOrdinal:  int32(binary.BigEndian.Uint32(hdr[5:9])),
		BackEndOrdinal:  int32(binary.BigEndian.Uint32(hdr[9:13])),
	}

	key, err := readString(r)
	if err != nil {
		return Command{}, err
	}
	cmd.Key = key
	return cmd, nil
}

// WriteCommand encodes cmd for a client of this protocol (used by
// tests and any future CLI operator tool built against this package).
func WriteCommand(w io.Writer, cmd Command) error {
	var hdr [13]byte
	hdr[0] = byte(cmd.Code)
	binary.BigEndian.PutUint32(hdr[1:5], uint32(cmd.ListenerOrdinal))
	binary.BigEndian.PutUint32(hdr[5:9], uint32(cmd.ServiceOrdinal))
	binary.BigEndian.PutUint32(hdr[9:13], uint32(cmd.BackEndOrdinal))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	return writeString(w, cmd.Key)
}

// Status is the first byte of every response (spec §4.11 mutations
// answer ok/error; list-all and dump-sessions answer ok followed by
// their snapshot payload).
type Status byte

const (
	StatusOK Status = iota
	StatusError
)

func writeString(w io.Writer, s string) error {
	var l [2]byte
	binary.BigEndian.PutUint16(l[:], uint16(len(s)))
	if _, err := w.Write(l[:]); err != nil {
		return err
	}
	_, err := io.WriteString(w, s)
	return err
}

func readString(r io.Reader) (string, error) {
	var l [2]byte
	if _, err := io.ReadFull(r, l[:]); err != nil {
		return "", err
	}
	n := binary.BigEndian.Uint16(l[:])
	if n == 0 {
		return "", nil
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func writeInt32(w io.Writer, v int32) error {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(v))
	_, err := w.Write(b[:])
	return err
}

func writeUint64(w io.Writer, v uint64) error {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	_, err := w.Write(b[:])
	return err
}

func writeFloat64(w io.Writer, v float64) error {
	return writeUint64(w, math.Float64bits(v))
}

func writeByte(w io.Writer, v byte) error {
	_, err := w.Write([]byte{v})
	return err
}
