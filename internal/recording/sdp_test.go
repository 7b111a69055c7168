// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package recording

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSDPIncludesOneSectionPerTrack(t *testing.T) {
	t.Parallel()
	tracks := []plainTrack{
		{Kind: "audio", Port: 5004, ClockRate: 48000, PayloadID: 111, Role: "primary"},
		{Kind: "video", Port: 5006, ClockRate: 90000, PayloadID: 96, Role: "pip"},
	}

	sdp := generateSDP("203.0.113.5", tracks)

	assert.True(t, strings.HasPrefix(sdp, "v=0\r\n"))
	assert.Contains(t, sdp, "o=- 0 0 IN IP4 203.0.113.5\r\n")
	assert.Contains(t, sdp, "c=IN IP4 203.0.113.5\r\n")
	assert.Equal(t, 2, strings.Count(sdp, "m="))
	assert.Contains(t, sdp, "m=audio 5004 RTP/AVP 111\r\n")
	assert.Contains(t, sdp, "a=rtpmap:111 opus/48000\r\n")
	assert.Contains(t, sdp, "m=video 5006 RTP/AVP 96\r\n")
	assert.Contains(t, sdp, "a=rtpmap:96 VP8/90000\r\n")
}

func TestGenerateSDPWithNoTracksHasNoMediaSections(t *testing.T) {
	t.Parallel()
	sdp := generateSDP("198.51.100.1", nil)
	assert.NotContains(t, sdp, "m=")
	assert.Contains(t, sdp, "t=0 0\r\n")
}

func TestCodecNamePicksOpusForAudioAndVP8Otherwise(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "opus", codecName("audio"))
	assert.Equal(t, "VP8", codecName("video"))
	assert.Equal(t, "VP8", codecName("unknown"))
}
