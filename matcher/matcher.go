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

// Package matcher implements the compiled-regex matcher pipeline (spec
// §3 "Matcher", §4.1): named, ordered lists of regular expressions
// evaluated against a request line or header lines. Lists are
// immutable once built at configuration load (spec §3 invariants) —
// there is no API here to mutate a List once it has been built.
package matcher

import "regexp"

// Matcher is a single named, compiled regular expression. Name is
// cosmetic (used in diagnostics); matching is always by Regexp.
type Matcher struct {
	Name          string
	CaseSensitive bool
	Regexp        *regexp.Regexp
}

// Compile builds a Matcher from a pattern. When caseSensitive is false
// the pattern is compiled with the `(?i)` flag.
func Compile(name, pattern string, caseSensitive bool) (Matcher, error) {
	p := pattern
	if !caseSensitive {
		p = "(?i)" + p
	}

	re, err := regexp.Compile(p)
	if err != nil {
		return Matcher{}, err
	}

	return Matcher{Name: name, CaseSensitive: caseSensitive, Regexp: re}, nil
}

// List is an append-ordered, immutable list of Matchers evaluated in
// order (declaration order is significant for consistent hashing and
// for "first match wins" semantics elsewhere in the pipeline).
type List []Matcher

// MatchAny reports whether at least one matcher in the list matches s.
// An empty list is never matched by MatchAny — callers that need
// "empty list means trivially true" (spec §4.1 URL matcher semantics)
// use MatchAllOf instead.
func (l List) MatchAny(s string) bool {
	for _, m := range l {
		if m.Regexp.MatchString(s) {
			return true
		}
	}
	return false
}

// MatchAllOf reports whether every matcher in the list matches s (spec
// §4.1 step 1: "every URL matcher matches the request-target"). An
// empty list is trivially true; callers that only need "at least one"
// use MatchAny instead.
func (l List) MatchAllOf(s string) bool {
	for _, m := range l {
		if !m.Regexp.MatchString(s) {
			return false
		}
	}
	return true
}

// MatchAll reports whether every matcher in the list matches at least
// one of the given candidate strings (used for "require" semantics:
// every required matcher must find at least one matching header
// line). An empty list is trivially true.
func (l List) MatchAll(candidates []string) bool {
	for _, m := range l {
		found := false
		for _, c := range candidates {
			if m.Regexp.MatchString(c) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// NoneMatch reports whether no matcher in the list matches any of the
// given candidate strings (used for "deny" semantics).
func (l List) NoneMatch(candidates []string) bool {
	for _, m := range l {
		for _, c := range candidates {
			if m.Regexp.MatchString(c) {
				return false
			}
		}
	}
	return true
}

// FirstMatch returns the first matcher in the list that matches s, and
// true, or the zero Matcher and false. Used by SNI lookup and LB-info
// header scanning, both "first match wins" pipelines.
func (l List) FirstMatch(s string) (Matcher, bool) {
	for _, m := range l {
		if m.Regexp.MatchString(s) {
			return m, true
		}
	}
	return Matcher{}, false
}
