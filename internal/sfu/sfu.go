// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

// Package sfu declares the capability contract a worker process exposes:
// create a router, create a transport on it, connect, produce, consume,
// pause/resume, close. The control plane's registries call through
// these interfaces; they never implement media routing, ICE/DTLS, or RTP
// forwarding themselves.
package sfu

// CodecTable is the fixed set of media codecs offered to every router at
// boot. It does not change at runtime. router.Registry hashes it (via
// hashstructure) when it is built, but no check compares that hash across
// workers or nodes.
type CodecTable struct {
	Audio []Codec
	Video []Codec
}

// Codec describes one entry of a router's RTP capabilities.
type Codec struct {
	Kind string // "audio" or "video"
	MimeType string
	ClockRate uint32
	Channels uint8
	Parameters map[string]any
}

// DefaultCodecTable is the codec table every router is created with: Opus
// for audio, VP8/VP9/H.264/AV1 for video,.
func DefaultCodecTable() CodecTable {
	return CodecTable{
		Audio: []Codec{
			{Kind: "audio", MimeType: "audio/opus", ClockRate: 48000, Channels: 2},
		},
		Video: []Codec{
			{Kind: "video", MimeType: "video/VP8", ClockRate: 90000},
			{Kind: "video", MimeType: "video/VP9", ClockRate: 90000},
			{Kind: "video", MimeType: "video/H264", ClockRate: 90000},
			{Kind: "video", MimeType: "video/AV1", ClockRate: 90000},
		},
	}
}

// MediaKind selects which side of a producer/consumer a pause/resume or
// replace-track call addresses.
type MediaKind string

const (
	KindAudio MediaKind = "audio"
	KindVideo MediaKind = "video"
)

// Worker is the capability set a single SFU worker process exposes.
type Worker interface {
	CreateRouter(codecs CodecTable) (Router, error)
}

// Router is one worker-side routing table, scoped to a single room on a
// single node.
type Router interface {
	ID() string
	CreateTransport(opts TransportOptions) (Transport, error)
	Close() error
}

// TransportOptions configures a new WebRTC or plain transport.
type TransportOptions struct {
	Producing bool
	Consuming bool
	Plain bool
	AnnouncedIP string
	ListenPortLo int
	ListenPortHi int
}

// Transport is one ICE/DTLS (or plain UDP) endpoint within a router.
type Transport interface {
	ID() string
	Connect(dtlsParameters any) error
	Produce(kind MediaKind, rtpParameters any) (Producer, error)
	Consume(producer Producer, rtpCapabilities any) (Consumer, error)
	Close() error
}

// Producer is one inbound media stream published by a client.
type Producer interface {
	ID() string
	Kind() MediaKind
	Pause() error
	Resume() error
	ReplaceTrack(rtpParameters any) error
	Close() error
}

// Consumer is one outbound media stream forwarded to a client.
type Consumer interface {
	ID() string
	ProducerID() string
	Close() error
}
