// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package routing

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/cynayd/connect-core/internal/pubsub"
	"github.com/google/uuid"
)

// RPCOp names the operation a CrossNodeBus request asks the owning node to
// perform against a producer or consumer it doesn't have locally.
type RPCOp string

const (
	OpClose RPCOp = "close"
	OpPause RPCOp = "pause"
	OpResume RPCOp = "resume"
)

// RPCRequest is published on connect:rpc:node:<id> to ask a specific node to
// act on a local resource on the caller's behalf, since producers/consumers
// are only directly addressable from the node that created them.
type RPCRequest struct {
	Op RPCOp `json:"op"`
	ResourceID string `json:"resourceId"`
	ReplyTopic string `json:"replyTopic"`
	RequestID string `json:"requestId"`
	RequestedBy string `json:"requestedBy"`
}

// RPCReply is published on the request's ReplyTopic.
type RPCReply struct {
	RequestID string `json:"requestId"`
	Success bool `json:"success"`
	Error string `json:"error,omitempty"`
}

// RPCHandler performs the requested operation against a local resource,
// returning an error if the resource doesn't exist locally or the op fails.
type RPCHandler func(ctx context.Context, op RPCOp, resourceID string) error

// CrossNodeBus lets a node ask another node to close/pause/resume a
// producer or consumer it owns, used when the local registry only has a foreign marker
// for the resource.
type CrossNodeBus struct {
	ps pubsub.PubSub
	instanceID string
	handler RPCHandler
}

// NewCrossNodeBus subscribes to this node's own RPC topic and starts
// dispatching incoming requests to handler.
func NewCrossNodeBus(ps pubsub.PubSub, instanceID string, handler RPCHandler) *CrossNodeBus {
	b := &CrossNodeBus{ps: ps, instanceID: instanceID, handler: handler}
	sub := ps.Subscribe(nodeTopic(instanceID))
	go b.serve(sub)
	return b
}

func nodeTopic(instanceID string) string {
	return "connect:rpc:node:" + instanceID
}

func (b *CrossNodeBus) serve(sub pubsub.Subscription) {
	for msg := range sub.Channel() {
		var req RPCRequest
		if err := json.Unmarshal(msg, &req); err != nil {
			slog.Warn("cross-node bus: malformed request", "error", err)
			continue
		}
		b.handle(req)
	}
}

func (b *CrossNodeBus) handle(req RPCRequest) {
	err := b.handler(context.Background(), req.Op, req.ResourceID)
	reply := RPCReply{RequestID: req.RequestID, Success: err == nil}
	if err != nil {
		reply.Error = err.Error()
	}
	data, err := json.Marshal(reply)
	if err != nil {
		slog.Error("cross-node bus: failed to encode reply", "error", err)
		return
	}
	if err := b.ps.Publish(req.ReplyTopic, data); err != nil {
		slog.Warn("cross-node bus: failed to publish reply", "error", err)
	}
}

// Call sends op(resourceID) to targetInstanceID and waits for a reply or
// ctx's deadline, whichever comes first.
func (b *CrossNodeBus) Call(ctx context.Context, targetInstanceID string, op RPCOp, resourceID string) error {
	requestID := uuid.NewString()
	replyTopic := "connect:rpc:reply:" + requestID

	sub := b.ps.Subscribe(replyTopic)
	defer func() { _ = sub.Close() }()

	req := RPCRequest{
		Op: op,
		ResourceID: resourceID,
		ReplyTopic: replyTopic,
		RequestID: requestID,
		RequestedBy: b.instanceID,
	}
	data, err := json.Marshal(req)
	if err != nil {
		return apierrors.Wrap(apierrors.Transient, "failed to encode cross-node rpc request", err)
	}
	if err := b.ps.Publish(nodeTopic(targetInstanceID), data); err != nil {
		return apierrors.Wrap(apierrors.Transient, "failed to publish cross-node rpc request", err)
	}

	select {
	case <-ctx.Done():
		return apierrors.Wrap(apierrors.Transient, "cross-node rpc timed out", ctx.Err())
	case raw, ok := <-sub.Channel():
		if !ok {
			return apierrors.New(apierrors.Transient, "cross-node rpc reply channel closed")
		}
		var reply RPCReply
		if err := json.Unmarshal(raw, &reply); err != nil {
			return apierrors.Wrap(apierrors.Transient, "failed to decode cross-node rpc reply", err)
		}
		if !reply.Success {
			return apierrors.New(apierrors.NotFound, "cross-node rpc failed: "+reply.Error)
		}
		return nil
	}
}
