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

import "github.com/jhill/pound/errors"

const (
	ErrorReadConfig errors.CodeError = iota + errors.MinPkgConfig
	ErrorDecodeConfig
	ErrorValidate
	ErrorCompileMatcher
	ErrorLoadCertificate
)

func init() {
	errors.RegisterIdFctMessage(errors.MinPkgConfig, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case ErrorReadConfig:
		return "unable to read configuration file"
	case ErrorDecodeConfig:
		return "unable to decode configuration into the expected shape"
	case ErrorValidate:
		return "configuration failed validation"
	case ErrorCompileMatcher:
		return "unable to compile a configured matcher pattern"
	case ErrorLoadCertificate:
		return "unable to load a configured certificate pair"
	}
	return ""
}
