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
	"bytes"
	"io"

	"github.com/spf13/viper"

	"github.com/jhill/pound/errors"
)

// Load reads and decodes the configuration document at path (YAML,
// JSON or TOML, detected by extension — the same viper.SetConfigFile
// auto-detection golib's config loaders rely on), validates it, and
// returns the decoded RootConfig.
func Load(path string) (*RootConfig, errors.Error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, ErrorReadConfig.Error(err)
	}

	return decode(v)
}

// LoadReader decodes a configuration document already in memory (used
// by tests and by callers embedding a config blob rather than a file
// path); format names a viper config type ("yaml", "json", "toml").
func LoadReader(r io.Reader, format string) (*RootConfig, errors.Error) {
	v := viper.New()
	v.SetConfigType(format)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(r); err != nil {
		return nil, ErrorReadConfig.Error(err)
	}
	if err := v.ReadConfig(buf); err != nil {
		return nil, ErrorReadConfig.Error(err)
	}

	return decode(v)
}

func decode(v *viper.Viper) (*RootConfig, errors.Error) {
	cfg := &RootConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, ErrorDecodeConfig.Error(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}
