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

package service

// SessionPolicy selects the session-key extraction strategy (spec
// §4.2).
type SessionPolicy uint8

const (
	PolicyNone SessionPolicy = iota
	PolicyIP
	PolicyURL
	PolicyParam
	PolicyCookie
	PolicyHeader
	PolicyBasic
)

// String implements fmt.Stringer for logging (matches the teacher's
// convention of human-readable enum rendering, see network/protocol).
func (p SessionPolicy) String() string {
	switch p {
	case PolicyNone:
		return "none"
	case PolicyIP:
		return "IP"
	case PolicyURL:
		return "URL"
	case PolicyParam:
		return "PARM"
	case PolicyCookie:
		return "COOKIE"
	case PolicyHeader:
		return "HEADER"
	case PolicyBasic:
		return "BASIC"
	default:
		return "unknown"
	}
}
