// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package config defines the typed configuration tree loaded by configulator
// from flags, environment variables, and an optional config file.
package config

import "time"

// Config is the root configuration object for the control plane.
type Config struct {
	LogLevel LogLevel `yaml:"log-level" default:"info"`
	Secret string `yaml:"secret"`
	PasswordSalt string `yaml:"password-salt"`

	HTTP HTTP `yaml:"http"`
	Database Database `yaml:"database"`
	Redis Redis `yaml:"redis"`
	Metrics Metrics `yaml:"metrics"`
	PProf PProf `yaml:"pprof"`
	DMR DMR `yaml:"dmr"`
	JWT JWT `yaml:"jwt"`
	CORS CORS `yaml:"cors"`
	RateLimit RateLimit `yaml:"rate-limit"`
	Worker Worker `yaml:"worker"`
	Recording Recording `yaml:"recording"`
	AWS AWS `yaml:"aws"`
	Routing Routing `yaml:"routing"`
}

// HTTP configures the public-facing REST and websocket signaling listener.
type HTTP struct {
	Bind string `yaml:"bind" default:"[::]"`
	Port int `yaml:"port" default:"3005"`
	CanonicalHost string `yaml:"canonical-host"`
	ServiceName string `yaml:"service-name" default:"connect-core"`
	TrustedProxies []string `yaml:"trusted-proxies"`
	RobotsTXT RobotsTXT `yaml:"robots-txt"`
}

// RobotsTXT configures how the HTTP server answers /robots.txt.
type RobotsTXT struct {
	Mode RobotsTXTMode `yaml:"mode" default:"allow"`
	Content string `yaml:"content"`
}

// Database configures the durable store. It defaults to an embedded SQLite
// file suitable for single-node development; production deployments set
// Driver to postgres and point Host/Port/Username/Password/Database at a
// real cluster.
type Database struct {
	Driver DatabaseDriver `yaml:"driver" default:"sqlite"`
	Host string `yaml:"host"`
	Port int `yaml:"port" default:"5432"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Database string `yaml:"database" default:"connect-core.db"`
	ExtraParameters []string `yaml:"extra-parameters"`
}

// Redis configures the shared-store backend used for KV and pub-sub. When
// disabled, both KV and pub-sub fall back to an in-process implementation,
// suitable for single-node development but not a multi-node deployment.
type Redis struct {
	Enabled bool `yaml:"enabled"`
	Host string `yaml:"host"`
	Port int `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
}

// Metrics configures the Prometheus metrics listener and OTLP trace export.
type Metrics struct {
	Enabled bool `yaml:"enabled" default:"true"`
	Bind string `yaml:"bind" default:"[::]"`
	Port int `yaml:"port" default:"9100"`
	OTLPEndpoint string `yaml:"otlp-endpoint"`
}

// PProf configures the optional debug profiling listener.
type PProf struct {
	Enabled bool `yaml:"enabled"`
	Bind string `yaml:"bind" default:"127.0.0.1"`
	Port int `yaml:"port" default:"6060"`
	TrustedProxies []string `yaml:"trusted-proxies"`
}

// DMR retains two legacy listener sections from the teacher codebase: MMDVM,
// a validated bind/port pair that no listener uses, and OpenBridge, whose
// Enabled flag gates inbound cross-node control requests.
type DMR struct {
	MMDVM MMDVM `yaml:"mmdvm"`
	OpenBridge OpenBridge `yaml:"openbridge"`
}

// MMDVM holds a bind address and port in the teacher's protocol-server
// validation shape. Config.Validate checks them, but no listener binds to
// them: signaling websockets are served on the HTTP listener.
type MMDVM struct {
	Bind string `yaml:"bind" default:"[::]"`
	Port int `yaml:"port" default:"62031"`
}

// OpenBridge configures cross-node federation: whether this instance acts
// on producer/transport control requests published by other nodes in the
// cluster. Bind/Port are retained for a future dedicated federation
// listener; today federation rides the shared pub-sub bus keyed by
// instance ID, not a separate socket.
type OpenBridge struct {
	Enabled bool `yaml:"enabled" default:"true"`
	Bind string `yaml:"bind" default:"[::]"`
	Port int `yaml:"port" default:"62035"`
}

// JWT configures verification of client-presented access tokens on the
// signaling handshake. Token issuance is an external collaborator.
type JWT struct {
	Issuer string `yaml:"issuer"`
	Audience string `yaml:"audience"`
	Leeway time.Duration `yaml:"leeway" default:"30s"`
}

// CORS configures allowed origins for the REST and websocket upgrade paths.
type CORS struct {
	Hosts []string `yaml:"hosts"`
}

// RateLimit configures the REST surface's request rate limiter.
type RateLimit struct {
	Enabled bool `yaml:"enabled" default:"true"`
	RequestsPerSecond int `yaml:"requests-per-second" default:"10"`
	Burst int `yaml:"burst" default:"20"`
}

// Worker configures the bounded RTC worker pool that backs every
// router, transport, producer, and consumer on this node.
type Worker struct {
	Count int `yaml:"count" default:"1"`
	RTCMinPort int `yaml:"rtc-min-port" default:"40000"`
	RTCMaxPort int `yaml:"rtc-max-port" default:"49999"`
	AnnouncedIP string `yaml:"announced-ip"`
	LogLevel LogLevel `yaml:"log-level" default:"warn"`
	RestartBackoff time.Duration `yaml:"restart-backoff" default:"2s"`
	MaxRestarts int `yaml:"max-restarts" default:"5"`
}

// Recording configures the composite-recording orchestrator.
type Recording struct {
	Enabled bool `yaml:"enabled"`
	OutputDir string `yaml:"output-dir" default:"/var/lib/connect-core/recordings"`
	FFmpegPath string `yaml:"ffmpeg-path" default:"ffmpeg"`
	PortRangeMin int `yaml:"port-range-min" default:"50000"`
	PortRangeMax int `yaml:"port-range-max" default:"50999"`
}

// AWS configures the object-storage destination for finished recording
// assets.
type AWS struct {
	Region string `yaml:"region"`
	Bucket string `yaml:"bucket"`
	AccessKeyID string `yaml:"access-key-id"`
	SecretAccessKey string `yaml:"secret-access-key"`
	Endpoint string `yaml:"endpoint"`
}

// Routing configures the room-to-server assignment layer.
type Routing struct {
	InstanceTTL time.Duration `yaml:"instance-ttl" default:"30s"`
	InstanceHeartbeat time.Duration `yaml:"instance-heartbeat" default:"10s"`
}
