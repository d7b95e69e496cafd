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

package matcher

// KeySize is the fixed maximum length a session key is truncated to
// (spec §4.2 "Keys are truncated at a fixed maximum length (KEY_SIZE)").
const KeySize = 128

// KeyExtractor pairs a "start" matcher (locates the relevant substring,
// e.g. `JSESSIONID=` in a cookie header) with a capturing "pattern"
// matcher applied from the start match onward (spec §4.2: "capture of
// sess_pat after matching sess_start").
type KeyExtractor struct {
	Start   Matcher
	Pattern Matcher
}

// Extract runs Start against s; on a match it runs Pattern against the
// remainder of s following the match, and returns the first capture
// group, truncated to KeySize. Returns ("", false) on no match or when
// Pattern has no capture group.
func (k KeyExtractor) Extract(s string) (string, bool) {
	loc := k.Start.Regexp.FindStringIndex(s)
	if loc == nil {
		return "", false
	}

	rest := s[loc[1]:]
	sub := k.Pattern.Regexp.FindStringSubmatch(rest)
	if len(sub) < 2 || sub[1] == "" {
		return "", false
	}

	key := sub[1]
	if len(key) > KeySize {
		key = key[:KeySize]
	}
	return key, true
}

// ExtractFromLast runs Extract against each candidate in order and
// returns the result of the *last* matching candidate (spec §4.2: "the
// last matching header line" for cookie/header/HTTP-Basic policies).
func (k KeyExtractor) ExtractFromLast(candidates []string) (string, bool) {
	var (
		key   string
		found bool
	)

	for _, c := range candidates {
		if v, ok := k.Extract(c); ok {
			key = v
			found = true
		}
	}

	return key, found
}
