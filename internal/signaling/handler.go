// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package signaling

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{ //nolint:gochecknoglobals
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(_ *http.Request) bool { return true },
}

// RegisterRoutes mounts the websocket signaling upgrade at path on r.
func RegisterRoutes(r *gin.Engine, path string, manager *Manager, verifier *Verifier) {
	r.GET(path, func(c *gin.Context) {
		token := c.Query("token")
		userID, err := verifier.Verify(token)
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid access token"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "error", err)
			return
		}

		session := NewSession(uuid.NewString(), conn)
		session.UserID = userID
		_ = session.transition(StateAuthenticated)

		manager.Adopt(c.Request.Context(), session)
		go serve(c.Request.Context(), manager, session)
	})
}

func serve(ctx context.Context, manager *Manager, s *Session) {
	defer func() {
		manager.cleanup(ctx, s)
	}()

	for {
		_, raw, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		var env Envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Warn("malformed signaling envelope", "session_id", s.ID, "error", err)
			continue
		}
		manager.Dispatch(ctx, s, env, func(ack Ack) {
			if err := s.writeJSON(ack); err != nil {
				slog.Warn("failed to write signaling ack", "session_id", s.ID, "error", err)
			}
		})
	}
}
