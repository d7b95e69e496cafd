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

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/hashicorp/go-multierror"

	"github.com/jhill/pound/errors"
)

// Validate runs struct-tag validation over the whole document (spec §6
// config loader contract), the same validator.New()/val.Struct pattern
// golib's ServerConfig.Validate uses, with every field error aggregated
// via go-multierror into a single reported Error rather than failing on
// the first violation.
func (c *RootConfig) Validate() errors.Error {
	val := validator.New()

	var agg *multierror.Error
	if err := val.Struct(c); err != nil {
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				agg = multierror.Append(agg, fmt.Errorf("field '%s' failed constraint '%s'", fe.Namespace(), fe.ActualTag()))
			}
		} else {
			agg = multierror.Append(agg, err)
		}
	}

	for i, l := range c.Listeners {
		if len(l.Services) == 0 {
			agg = multierror.Append(agg, fmt.Errorf("listener[%d] %q declares no services", i, l.Name))
		}
		for j, s := range l.Services {
			agg = multierror.Append(agg, validateService(i, j, s)...)
		}
	}
	for j, s := range c.Global {
		agg = multierror.Append(agg, validateService(-1, j, s)...)
	}

	if agg == nil || len(agg.Errors) == 0 {
		return nil
	}

	out := ErrorValidate.Error()
	for _, e := range agg.Errors {
		out.AddParent(e)
	}
	return out
}

// validateService applies the cross-field rules struct tags alone
// cannot express: every back-end's redirect fields are internally
// consistent, and a dynamic session policy names a key extractor.
func validateService(listenerIdx, serviceIdx int, s ServiceConfig) []error {
	var errs []error
	label := fmt.Sprintf("listener[%d].services[%d] (%s)", listenerIdx, serviceIdx, s.Name)

	for k, b := range s.BackEnds {
		if b.StatusCode != 0 && b.RedirectTo == "" {
			errs = append(errs, fmt.Errorf("%s.backends[%d]: redirect_status set without redirect_to", label, k))
		}
	}

	switch s.Policy {
	case "cookie", "header", "param":
		if s.KeyExtr.Start == "" || s.KeyExtr.Pattern == "" {
			errs = append(errs, fmt.Errorf("%s: session_policy %q requires session_key.start and session_key.pattern", label, s.Policy))
		}
	}

	return errs
}
