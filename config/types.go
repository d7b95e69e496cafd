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

// Package config loads and validates the listener/service/back-end
// graph (spec §6 "Config loader hands the core a fully-built listener/
// service/back-end graph; the core assumes immutability of topology
// after load"), the same viper + go-playground/validator/v10 +
// mapstructure combination golib's httpserver.ServerConfig uses
// (_examples/nabbar-golib/httpserver/config.go).
package config

import "time"

// KeyExtractConfig describes a session-key extractor (spec §4.2): a
// "start" pattern locating the relevant substring and a capturing
// "pattern" matcher applied from there.
type KeyExtractConfig struct {
	Start   string `mapstructure:"start" validate:"omitempty"`
	Pattern string `mapstructure:"pattern" validate:"omitempty"`
}

// BackEndConfig is the on-disk shape of backend.Config.
type BackEndConfig struct {
	BEKey     string `mapstructure:"bekey" validate:"required"`
	Address   string `mapstructure:"address" validate:"required"`
	HAAddress string `mapstructure:"ha_address"`

	// Network is one of "tcp", "tcp4", "tcp6", "unix" (spec §3
	// "TCP/UNIX-domain back-end"); empty defaults to "tcp".
	Network string `mapstructure:"network" validate:"omitempty,oneof=tcp tcp4 tcp6 unix"`

	Priority int `mapstructure:"priority" validate:"gte=0"`

	ReadTimeoutSeconds    int `mapstructure:"read_timeout" validate:"gte=0"`
	WriteTimeoutSeconds   int `mapstructure:"write_timeout" validate:"gte=0"`
	ConnectTimeoutSeconds int `mapstructure:"connect_timeout" validate:"gte=0"`

	TLS bool `mapstructure:"tls"`

	// StatusCode non-zero marks this back-end a redirect target rather
	// than a real upstream (spec §3 "be_type").
	StatusCode int    `mapstructure:"redirect_status"`
	RedirectTo string `mapstructure:"redirect_to"`
	// RedirectMode is one of "static", "append_path", "dynamic" (spec
	// glossary "redirect mode"); ignored unless StatusCode is set.
	RedirectMode string `mapstructure:"redirect_mode" validate:"omitempty,oneof=static append_path dynamic"`
}

// ServiceConfig is the on-disk shape of a routing rule (spec §3
// "Service").
type ServiceConfig struct {
	Name string `mapstructure:"name" validate:"required"`

	URLMatch   []string `mapstructure:"url_match"`
	HeaderReq  []string `mapstructure:"header_require"`
	HeaderDeny []string `mapstructure:"header_deny"`

	// Policy is one of "none", "ip", "url", "param", "cookie",
	// "header", "basic" (spec §4.2).
	Policy    string           `mapstructure:"session_policy" validate:"omitempty,oneof=none ip url param cookie header basic"`
	KeyExtr   KeyExtractConfig `mapstructure:"session_key"`
	BEKeyName string           `mapstructure:"bekey_cookie_name"`

	EndOfSess []string `mapstructure:"end_of_session_markers"`
	LBInfo    []string `mapstructure:"lb_info_headers"`

	TTLSeconds      int `mapstructure:"ttl_seconds"`
	DeathTTLSeconds int `mapstructure:"death_ttl_seconds" validate:"gte=0"`

	BackEnds  []BackEndConfig `mapstructure:"backends" validate:"dive"`
	Emergency *BackEndConfig  `mapstructure:"emergency"`

	// Global is decoded from the document but Build does not read it:
	// a service nested under a listener stays listener-only whatever
	// this says. Only services listed under global_services join the
	// global services list (spec §4.1 "fall back to the global services
	// list").
	Global bool `mapstructure:"global"`
}

// TTL returns TTLSeconds as a signed Duration — negative values select
// consistent-hash back-end selection (spec §4.3 "TTL < 0").
func (s ServiceConfig) TTL() time.Duration {
	return time.Duration(s.TTLSeconds) * time.Second
}

func (s ServiceConfig) DeathTTL() time.Duration {
	return time.Duration(s.DeathTTLSeconds) * time.Second
}

// CertPairConfig is one SNI-addressable certificate pair on disk.
type CertPairConfig struct {
	ServerName string `mapstructure:"server_name" validate:"required"`
	CertFile   string `mapstructure:"cert_file" validate:"required"`
	KeyFile    string `mapstructure:"key_file" validate:"required"`
}

// TLSConfig is the on-disk shape of a listener's TLS context.
type TLSConfig struct {
	Certificates []CertPairConfig `mapstructure:"certificates" validate:"dive"`
	RootCAFile   string           `mapstructure:"root_ca_file"`
	ClientCAFile string           `mapstructure:"client_ca_file"`
	RequireClientCert bool        `mapstructure:"require_client_cert"`
}

// ListenerConfig is the on-disk shape of listener.Listener.
type ListenerConfig struct {
	Name    string `mapstructure:"name" validate:"required"`
	Address string `mapstructure:"address" validate:"required,hostname_port"`

	TLS *TLSConfig `mapstructure:"tls"`

	// RewriteLocation is one of "off", "same_host", "any_listener"
	// (spec §3 "rewrite-location mode").
	RewriteLocation string `mapstructure:"rewrite_location" validate:"omitempty,oneof=off same_host any_listener"`
	RewriteDest     bool   `mapstructure:"rewrite_destination"`

	HeadRemove []string          `mapstructure:"headers_remove"`
	HeadAdd    map[string]string `mapstructure:"headers_add"`

	Services []ServiceConfig `mapstructure:"services" validate:"dive"`
}

// HealthConfig configures the health loop (spec §4.7).
type HealthConfig struct {
	AliveToSeconds int `mapstructure:"alive_to_seconds" validate:"required,gt=0"`
	ConnToSeconds  int `mapstructure:"conn_to_seconds" validate:"required,gt=0"`
}

// RescaleConfig configures the dynamic-scaling loop (spec §4.9).
type RescaleConfig struct {
	RescaleToSeconds int    `mapstructure:"rescale_to_seconds" validate:"gte=0"`
	Min              uint64 `mapstructure:"min_samples"`
	Bot              uint64 `mapstructure:"halve_after_samples"`
}

// ExpireConfig configures the session-expiry loop (spec §4.8).
type ExpireConfig struct {
	ExpireToSeconds int `mapstructure:"expire_to_seconds" validate:"required,gt=0"`
}

// KeyRotationConfig configures the ephemeral-key pool (SPEC_FULL.md
// §4.13 / spec §5 "T_RSA_KEYS").
type KeyRotationConfig struct {
	IntervalSeconds int `mapstructure:"interval_seconds" validate:"gte=0"`
	PoolSize        int `mapstructure:"pool_size" validate:"gte=0"`
}

// ControlConfig configures the control server's listening socket (spec
// §4.11).
type ControlConfig struct {
	Listen string `mapstructure:"listen"`
}

// MetricsConfig configures the optional Prometheus scrape endpoint;
// an empty Listen means "do not serve /metrics".
type MetricsConfig struct {
	Listen string `mapstructure:"listen"`
}

// RootConfig is the top-level, fully-decoded configuration document.
type RootConfig struct {
	Listeners []ListenerConfig `mapstructure:"listeners" validate:"dive"`
	Global    []ServiceConfig  `mapstructure:"global_services" validate:"dive"`

	Health      HealthConfig      `mapstructure:"health" validate:"required"`
	Rescale     RescaleConfig     `mapstructure:"rescale"`
	Expire      ExpireConfig      `mapstructure:"expire" validate:"required"`
	KeyRotation KeyRotationConfig `mapstructure:"key_rotation"`
	Control     ControlConfig     `mapstructure:"control"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
}
