/*
 * MIT License
 *
 * Copyright (c) 2020 Nicolas JUHEL
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

package errors

import (
	"fmt"
	"strings"
)

// Error is an error value that carries a CodeError and an optional chain
// of parent errors, so a request or background-loop failure can be
// reported with both a stable code and the underlying cause(s).
type Error interface {
	error

	Code() CodeError
	AddParent(e ...error)
	HasParent() bool
	Unwrap() error
}

type errImpl struct {
	code CodeError
	msg  string
	sub  []error
}

// New builds an Error from a raw numeric code and message, chaining the
// given parents. Parents that are nil are dropped.
func New(code uint16, msg string, parents ...error) Error {
	e := &errImpl{code: CodeError(code), msg: msg}
	e.AddParent(parents...)
	return e
}

func (e *errImpl) Error() string {
	if !e.HasParent() {
		return e.msg
	}

	parts := make([]string, 0, len(e.sub)+1)
	parts = append(parts, e.msg)
	for _, p := range e.sub {
		parts = append(parts, p.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *errImpl) Code() CodeError { return e.code }

func (e *errImpl) AddParent(p ...error) {
	for _, x := range p {
		if x != nil {
			e.sub = append(e.sub, x)
		}
	}
}

func (e *errImpl) HasParent() bool { return len(e.sub) > 0 }

func (e *errImpl) Unwrap() error {
	if len(e.sub) == 0 {
		return nil
	}
	return e.sub[0]
}

// Errorf is a convenience for formatting a message ad hoc under an
// existing code, without a prior Message registration.
func Errorf(code uint16, format string, args ...interface{}) Error {
	return New(code, fmt.Sprintf(format, args...))
}
