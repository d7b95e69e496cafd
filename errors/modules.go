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

// Minimum code ranges reserved per package, mirroring HTTP-status-like
// registration so each package can register its own message function
// without colliding with another package's codes.
const (
	MinPkgMatcher    = 100
	MinPkgBackend    = 200
	MinPkgSession    = 300
	MinPkgService    = 400
	MinPkgListener   = 500
	MinPkgRouter     = 600
	MinPkgProxy      = 700
	MinPkgHealth     = 800
	MinPkgExpire     = 900
	MinPkgRescale    = 1000
	MinPkgKeyRotate  = 1100
	MinPkgControl    = 1200
	MinPkgConfig     = 1300
	MinPkgCertificates = 1400
	MinPkgLogger     = 1500
	MinPkgRuntime    = 1600
	MinPkgStatus     = 1700

	MinAvailable = 2000
)
