// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package recording

import (
	"net/http"
	"strconv"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/gin-gonic/gin"
)

type startRequest struct {
	TrackKinds []string `json:"trackKinds"`
}

// RegisterRoutes mounts the host-facing recording control surface: starting
// and stopping a composite recording for a room. Room membership/host
// authorization is enforced upstream by the signaling session that issued
// the client its access token; these routes verify no token themselves and
// take hostUserID from the gin context key "userID", which no middleware in
// this repository sets.
func RegisterRoutes(r *gin.Engine, o *Orchestrator) {
	group := r.Group("/api/v1/rooms/:roomID/recording")

	group.POST("/start", func(c *gin.Context) {
		roomID, err := parseRoomID(c)
		if err != nil {
			return
		}
		var req startRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		hostUserID := c.GetString("userID")
		if err := o.Start(c.Request.Context(), roomID, hostUserID, req.TrackKinds); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusAccepted)
	})

	group.POST("/stop", func(c *gin.Context) {
		roomID, err := parseRoomID(c)
		if err != nil {
			return
		}
		if err := o.Stop(c.Request.Context(), roomID); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusAccepted)
	})
}

func parseRoomID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("roomID"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, err
	}
	return uint(id), nil
}

func writeError(c *gin.Context, err error) {
	switch apierrors.KindOf(err) {
	case apierrors.Validation:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apierrors.Unauthorized:
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
	case apierrors.NotFound:
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apierrors.Conflict:
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apierrors.CircuitOpen:
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
