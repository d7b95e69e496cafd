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

package certificates

import (
	"os"

	"github.com/jhill/pound/errors"
)

const (
	ErrorLoadCertificate errors.CodeError = iota + errors.MinPkgCertificates
	ErrorNoCertificate
	ErrorInvalidCAPool
)

func init() {
	errors.RegisterIdFctMessage(errors.MinPkgCertificates, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorLoadCertificate:
		return "cannot load certificate pair or CA file"
	case ErrorNoCertificate:
		return "no certificate pair registered for this SNI name"
	case ErrorInvalidCAPool:
		return "PEM data did not contain a valid CA certificate"
	}
	return ""
}

func readFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
