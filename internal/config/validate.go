// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package config

import (
	"crypto/sha256"
	"errors"

	"golang.org/x/crypto/pbkdf2"
)

var (
	// ErrInvalidLogLevel indicates that the provided log level is not valid.
	ErrInvalidLogLevel = errors.New("invalid log level provided")
	// ErrSecretRequired indicates that the secret key is required for the application.
	ErrSecretRequired = errors.New("secret key is required for the application")
	// ErrPasswordSaltRequired indicates that the password salt is required for deriving the token secret.
	ErrPasswordSaltRequired = errors.New("password salt is required for the application")

	// ErrInvalidRedisHost indicates that the provided Redis host is not valid.
	ErrInvalidRedisHost = errors.New("invalid Redis host provided")
	// ErrInvalidRedisPort indicates that the provided Redis port is not valid.
	ErrInvalidRedisPort = errors.New("invalid Redis port provided")

	// ErrInvalidDatabaseDriver indicates that the provided database driver is not valid.
	ErrInvalidDatabaseDriver = errors.New("invalid database driver provided")
	// ErrInvalidDatabaseHost indicates that the provided database host is not valid.
	ErrInvalidDatabaseHost = errors.New("invalid database host provided")
	// ErrInvalidDatabasePort indicates that the provided database port is not valid.
	ErrInvalidDatabasePort = errors.New("invalid database port provided")
	// ErrInvalidDatabaseName indicates that the provided database name is not valid.
	ErrInvalidDatabaseName = errors.New("invalid database name provided")

	// ErrInvalidHTTPHost indicates that the provided HTTP host is not valid.
	ErrInvalidHTTPHost = errors.New("invalid HTTP host provided")
	// ErrInvalidHTTPPort indicates that the provided HTTP port is not valid.
	ErrInvalidHTTPPort = errors.New("invalid HTTP port provided")
	// ErrHTTPCanonicalHostRequired indicates that the canonical host is required for generating absolute URLs.
	ErrHTTPCanonicalHostRequired = errors.New("canonical host is required for generating absolute URLs in the HTTP server")
	// ErrHTTPRobotsTXTModeInvalid indicates that the provided robots.txt mode is not valid.
	ErrHTTPRobotsTXTModeInvalid = errors.New("invalid robots.txt mode provided, must be one of allow, disabled, or custom")
	// ErrInvalidHTTPRobotsTXTContent indicates that the robots.txt content is required when the mode is custom.
	ErrInvalidHTTPRobotsTXTContent = errors.New("invalid robots.txt content provided, must be non-empty when mode is custom")

	// ErrInvalidDMRMMDVMHost indicates that the provided signaling listener host is not valid.
	ErrInvalidDMRMMDVMHost = errors.New("invalid signaling listener host provided")
	// ErrInvalidDMRMMDVMPort indicates that the provided signaling listener port is not valid.
	ErrInvalidDMRMMDVMPort = errors.New("invalid signaling listener port provided")
	// ErrInvalidDMROpenBridgeHost indicates that the provided federation listener host is not valid.
	ErrInvalidDMROpenBridgeHost = errors.New("invalid federation listener host provided")
	// ErrInvalidDMROpenBridgePort indicates that the provided federation listener port is not valid.
	ErrInvalidDMROpenBridgePort = errors.New("invalid federation listener port provided")

	// ErrInvalidMetricsBindAddress indicates that the provided metrics server bind address is not valid.
	ErrInvalidMetricsBindAddress = errors.New("invalid metrics server bind address provided")
	// ErrInvalidMetricsPort indicates that the provided metrics server port is not valid.
	ErrInvalidMetricsPort = errors.New("invalid metrics server port provided")

	// ErrInvalidPProfBindAddress indicates that the provided pprof server bind address is not valid.
	ErrInvalidPProfBindAddress = errors.New("invalid pprof server bind address provided")
	// ErrInvalidPProfPort indicates that the provided pprof server port is not valid.
	ErrInvalidPProfPort = errors.New("invalid pprof server port provided")
)

// Validate validates the Redis configuration, returning the first error found.
func (r Redis) Validate() error {
	errs := r.ValidateWithFields()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ValidateWithFields validates the Redis configuration and returns every
// violation found, rather than stopping at the first.
func (r Redis) ValidateWithFields() []error {
	if !r.Enabled {
		return nil
	}
	var errs []error
	if r.Host == "" {
		errs = append(errs, ErrInvalidRedisHost)
	}
	if r.Port <= 0 || r.Port > 65535 {
		errs = append(errs, ErrInvalidRedisPort)
	}
	return errs
}

// Validate validates the Database configuration.
func (d Database) Validate() error {
	if d.Driver != DatabaseDriverSQLite &&
		d.Driver != DatabaseDriverPostgres &&
		d.Driver != DatabaseDriverMySQL {
		return ErrInvalidDatabaseDriver
	}

	if d.Driver != DatabaseDriverSQLite && d.Host == "" {
		return ErrInvalidDatabaseHost
	}

	if d.Driver != DatabaseDriverSQLite && (d.Port <= 0 || d.Port > 65535) {
		return ErrInvalidDatabasePort
	}

	if d.Database == "" {
		return ErrInvalidDatabaseName
	}

	return nil
}

// Validate validates the RobotsTXT configuration.
func (r RobotsTXT) Validate() error {
	if r.Mode != RobotsTXTModeAllow &&
		r.Mode != RobotsTXTModeDisabled &&
		r.Mode != RobotsTXTModeCustom {
		return ErrHTTPRobotsTXTModeInvalid
	}

	if r.Mode == RobotsTXTModeCustom && r.Content == "" {
		return ErrInvalidHTTPRobotsTXTContent
	}

	return nil
}

// Validate validates the HTTP configuration.
func (h HTTP) Validate() error {
	if h.Bind == "" {
		return ErrInvalidHTTPHost
	}

	if h.Port <= 0 || h.Port > 65535 {
		return ErrInvalidHTTPPort
	}

	if h.CanonicalHost == "" {
		return ErrHTTPCanonicalHostRequired
	}

	if err := h.RobotsTXT.Validate(); err != nil {
		return err
	}

	return nil
}

// Validate validates the MMDVM (primary signaling listener) configuration.
func (m MMDVM) Validate() error {
	if m.Bind == "" {
		return ErrInvalidDMRMMDVMHost
	}

	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidDMRMMDVMPort
	}

	return nil
}

// Validate validates the OpenBridge (federation listener) configuration.
func (o OpenBridge) Validate() error {
	if !o.Enabled {
		return nil
	}

	if o.Bind == "" {
		return ErrInvalidDMROpenBridgeHost
	}
	if o.Port <= 0 || o.Port > 65535 {
		return ErrInvalidDMROpenBridgePort
	}

	return nil
}

// Validate validates the DMR configuration.
func (d DMR) Validate() error {
	if err := d.MMDVM.Validate(); err != nil {
		return err
	}

	if err := d.OpenBridge.Validate(); err != nil {
		return err
	}

	return nil
}

// Validate validates the Metrics configuration.
func (m Metrics) Validate() error {
	if !m.Enabled {
		return nil
	}

	if m.Bind == "" {
		return ErrInvalidMetricsBindAddress
	}
	if m.Port <= 0 || m.Port > 65535 {
		return ErrInvalidMetricsPort
	}

	return nil
}

// Validate validates the PProf configuration.
func (p PProf) Validate() error {
	if !p.Enabled {
		return nil
	}

	if p.Bind == "" {
		return ErrInvalidPProfBindAddress
	}
	if p.Port <= 0 || p.Port > 65535 {
		return ErrInvalidPProfPort
	}

	return nil
}

// Validate validates the full configuration, returning the first error found.
func (c Config) Validate() error {
	errs := c.ValidateWithFields()
	if len(errs) > 0 {
		return errs[0]
	}
	return nil
}

// ValidateWithFields validates the full configuration and returns every
// violation found across every section, rather than stopping at the first.
// The startup path in cmd uses this to report every problem at once instead
// of making the operator fix one field, restart, and discover the next.
func (c Config) ValidateWithFields() []error {
	var errs []error

	if c.LogLevel != LogLevelDebug &&
		c.LogLevel != LogLevelInfo &&
		c.LogLevel != LogLevelWarn &&
		c.LogLevel != LogLevelError {
		errs = append(errs, ErrInvalidLogLevel)
	}

	if c.Secret == "" {
		errs = append(errs, ErrSecretRequired)
	}

	if c.PasswordSalt == "" {
		errs = append(errs, ErrPasswordSaltRequired)
	}

	errs = append(errs, c.Redis.ValidateWithFields()...)

	if err := c.Database.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := c.HTTP.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := c.DMR.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, err)
	}

	if err := c.PProf.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errs
}

// GetDerivedSecret derives a 32-byte HMAC/token-signing key from Secret and
// PasswordSalt, matching the teacher's session-secret derivation so a
// misconfigured Secret fails loudly rather than silently using a weak key.
func (c Config) GetDerivedSecret() []byte {
	const iterations = 4096
	const keyLen = 32
	return pbkdf2.Key([]byte(c.Secret), []byte(c.PasswordSalt), iterations, keyLen, sha256.New)
}
