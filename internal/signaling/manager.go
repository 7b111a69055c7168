// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package signaling

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/cynayd/connect-core/internal/consumer"
	"github.com/cynayd/connect-core/internal/db/models"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/mirror"
	"github.com/cynayd/connect-core/internal/producer"
	"github.com/cynayd/connect-core/internal/pubsub"
	"github.com/cynayd/connect-core/internal/router"
	"github.com/cynayd/connect-core/internal/routing"
	"github.com/cynayd/connect-core/internal/sfu"
	"github.com/cynayd/connect-core/internal/transport"
	"github.com/puzpuzpuz/xsync/v4"
	"gorm.io/gorm"
)

// cleanupAttempts/cleanupBaseDelay implement the disconnect cleanup
// retry: up to 3 attempts, sleeping attempt*1s between them.
const (
	cleanupAttempts = 3
	cleanupBaseDelay = time.Second
)

// producerEntryMeta carries the fields a produce call knows that the
// registries don't track themselves (owner, display name, the client's
// appData), so later pause/resume/close/replace emissions can describe the
// producer without re-deriving who it belongs to.
type producerEntryMeta struct {
	userID string
	displayName string
	kind string
	appData map[string]any
	screen bool
}

// Manager owns every live Session on this node and wires signaling events to
// the per-node registries, the routing service, the cross-node bus, and the
// durable store.
type Manager struct {
	db *gorm.DB
	kv kv.KV
	ps pubsub.PubSub

	routingSvc *routing.Service
	bus *routing.CrossNodeBus
	routers *router.Registry
	transports *transport.Registry
	producers *producer.Registry
	consumers *consumer.Registry

	sessions *xsync.Map[string, *Session]
	producerMeta *xsync.Map[string, producerEntryMeta]
}

// NewManager wires a Manager over the node's registries, its cross-node RPC
// bus, and the pub-sub client used to fan a room's events out to any other
// node's subscribers.
func NewManager(
	db *gorm.DB,
	kvClient kv.KV,
	ps pubsub.PubSub,
	routingSvc *routing.Service,
	bus *routing.CrossNodeBus,
	routers *router.Registry,
	transports *transport.Registry,
	producers *producer.Registry,
	consumers *consumer.Registry,
) *Manager {
	return &Manager{
		db: db,
		kv: kvClient,
		ps: ps,
		routingSvc: routingSvc,
		bus: bus,
		routers: routers,
		transports: transports,
		producers: producers,
		consumers: consumers,
		sessions: xsync.NewMap[string, *Session](),
		producerMeta: xsync.NewMap[string, producerEntryMeta](),
	}
}

// Adopt registers a freshly connected session and starts its mailbox.
func (m *Manager) Adopt(ctx context.Context, s *Session) {
	m.sessions.Store(s.ID, s)
	go s.Run(ctx)
}

// Count reports the number of live sessions on this node, for metrics.
func (m *Manager) Count() int {
	n := 0
	m.sessions.Range(func(_ string, _ *Session) bool {
			n++
			return true
		})
	return n
}

// Dispatch routes an inbound envelope to the handler for its event, on the
// session's own mailbox goroutine to preserve per-socket ordering.
func (m *Manager) Dispatch(ctx context.Context, s *Session, env Envelope, reply func(Ack)) {
	s.Enqueue(func(ctx context.Context) {
			ack := m.handle(ctx, s, env)
			ack.RequestID = env.RequestID
			reply(ack)
		})
}

func (m *Manager) handle(ctx context.Context, s *Session, env Envelope) Ack {
	switch env.Event {
	case EventJoinRoom:
		return m.handleJoinRoom(ctx, s, env)
	case EventLeaveRoom:
		return m.handleLeaveRoom(ctx, s)
	case EventCreateTransport:
		return m.handleCreateTransport(ctx, s, env)
	case EventConnectTransport:
		return m.handleConnectTransport(ctx, s, env)
	case EventProduce:
		return m.handleProduce(ctx, s, env)
	case EventConsume:
		return m.handleConsume(ctx, s, env)
	case EventCloseProducer:
		return m.controlProducer(ctx, s, env, routing.OpClose)
	case EventPauseProducer:
		return m.controlProducer(ctx, s, env, routing.OpPause)
	case EventResumeProducer:
		return m.controlProducer(ctx, s, env, routing.OpResume)
	case EventReplaceTrack:
		return m.handleReplaceTrack(ctx, s, env)
	case EventChatSend:
		return m.handleChatSend(ctx, s, env)
	case EventChatHistory:
		return m.handleChatHistory(ctx, s, env)
	case EventAudioMute:
		return m.handleMute(ctx, s, env, true)
	case EventVideoMute:
		return m.handleMute(ctx, s, env, false)
	default:
		return errAck(apierrors.New(apierrors.Validation, "unknown event: "+string(env.Event)))
	}
}

func errAck(err error) Ack {
	return Ack{Success: false, Error: err.Error()}
}

func (m *Manager) handleJoinRoom(ctx context.Context, s *Session, env Envelope) Ack {
	payload, ok := env.Payload.(map[string]any)
	roomCode, _ := payload["roomCode"].(string)
	if !ok || !ValidRoomCode(roomCode) {
		return errAck(apierrors.New(apierrors.Validation, "invalid room code"))
	}
	name, _ := payload["name"].(string)
	email, _ := payload["email"].(string)
	picture, _ := payload["picture"].(string)

	room, err := models.FindRoomByCode(m.db, roomCode)
	if err != nil {
		return errAck(apierrors.Wrap(apierrors.NotFound, "room not found", err))
	}
	if room.ClosedAt != nil {
		return errAck(apierrors.New(apierrors.NotFound, "room is closed"))
	}

	roomID := strconv.FormatUint(uint64(room.ID), 10) // stable routing key shared by every session joining this room
	shouldHost, err := m.routingSvc.ShouldHandle(ctx, roomCode)
	if err != nil {
		slog.Warn("routing lookup failed, serving locally", "room_code", roomCode, "error", err)
		shouldHost = true
	}
	if !shouldHost {
		owner, _ := m.routingSvc.GetOrAssign(ctx, roomCode)
		return Ack{Success: false, Redirect: &Redirect{ServerInstanceID: owner}}
	}

	if err := s.transition(StateJoined); err != nil {
		return errAck(err)
	}
	s.RoomID = roomID
	s.RoomCode = roomCode
	s.DisplayName = name
	s.Email = email
	s.PictureURL = picture

	participant := &models.Participant{
		RoomID: room.ID,
		UserID: s.UserID,
		DisplayName: name,
		Email: email,
		PictureURL: picture,
		JoinedAt: time.Now(),
	}
	if err := models.UpsertParticipant(m.db, participant); err != nil {
		slog.Warn("failed to persist participant", "room_code", roomCode, "error", err)
	}

	if _, err := m.routers.GetOrCreate(ctx, roomID, shouldHost); err != nil {
		return errAck(err)
	}

	otherProducers := m.buildProducerSummaries(m.producers.ListByRoom(roomID))

	var existing []ParticipantSummary
	participants, err := models.ListActiveParticipants(m.db, room.ID)
	if err != nil {
		slog.Warn("failed to load active participants", "room_code", roomCode, "error", err)
	}
	for _, p := range participants {
		if p.UserID == s.UserID {
			continue
		}
		existing = append(existing, ParticipantSummary{UserID: p.UserID, DisplayName: p.DisplayName, PictureURL: p.PictureURL})
	}

	m.broadcastToRoom(ctx, roomCode, s.ID, Envelope{
		Event: EventUserJoined,
		Payload: ParticipantSummary{UserID: s.UserID, DisplayName: name, PictureURL: picture},
	})

	return Ack{Success: true, Payload: JoinAckPayload{
		RTPCapabilities: m.routers.Codecs(),
		OtherProducers: otherProducers,
		ExistingParticipants: existing,
	}}
}

func (m *Manager) buildProducerSummaries(list []producer.Summary) []ProducerSummary {
	out := make([]ProducerSummary, 0, len(list))
	for _, item := range list {
		meta, _ := m.producerMeta.Load(item.ID)
		out = append(out, ProducerSummary{
			ProducerID: item.ID,
			UserID: meta.userID,
			Kind: string(item.Kind),
			Name: meta.displayName,
			AppData: meta.appData,
		})
	}
	return out
}

func (m *Manager) handleLeaveRoom(ctx context.Context, s *Session) Ack {
	if s.RoomCode == "" {
		return errAck(apierrors.New(apierrors.Conflict, "session has not joined a room"))
	}
	m.cleanup(ctx, s)
	return Ack{Success: true}
}

func (m *Manager) handleCreateTransport(ctx context.Context, s *Session, env Envelope) Ack {
	if s.State() != StateJoined && s.State() != StateOperational {
		return errAck(apierrors.New(apierrors.Validation, "session has not joined a room"))
	}
	payload, _ := env.Payload.(map[string]any)
	producing, _ := payload["producing"].(bool)
	consuming, _ := payload["consuming"].(bool)

	if err := s.transition(StateOperational); err != nil {
		return errAck(err)
	}

	rtr, err := m.routers.GetOrCreate(ctx, s.RoomID, true)
	if err != nil {
		return errAck(err)
	}

	opts := sfu.TransportOptions{Producing: producing, Consuming: consuming}
	t, err := m.transports.Create(ctx, rtr, s.ID, s.RoomID, opts)
	if err != nil {
		return errAck(err)
	}
	return Ack{Success: true, Payload: map[string]string{"transportId": t.ID()}}
}

func (m *Manager) handleConnectTransport(_ context.Context, s *Session, env Envelope) Ack {
	if s.RoomCode == "" {
		return errAck(apierrors.New(apierrors.Conflict, "session has not joined a room"))
	}
	payload, _ := env.Payload.(map[string]any)
	transportID, _ := payload["transportId"].(string)

	t, err := m.ownedTransport(s, transportID)
	if err != nil {
		return errAck(err)
	}
	if err := t.Connect(payload["dtlsParameters"]); err != nil {
		return errAck(apierrors.Wrap(apierrors.FatalLocal, "failed to connect transport", err))
	}
	return Ack{Success: true, Payload: map[string]bool{"success": true}}
}

// ownedTransport looks up transportID and confirms it belongs to s,
// distinguishing "doesn't exist" from "belongs to someone else".
func (m *Manager) ownedTransport(s *Session, transportID string) (sfu.Transport, error) {
	t, socketID, ok := m.transports.Find(transportID)
	if !ok {
		return nil, apierrors.New(apierrors.NotFound, "transport not found: "+transportID)
	}
	if socketID != s.ID {
		return nil, apierrors.New(apierrors.Unauthorized, "transport not owned by this session")
	}
	return t, nil
}

func (m *Manager) handleProduce(ctx context.Context, s *Session, env Envelope) Ack {
	if s.RoomCode == "" {
		return errAck(apierrors.New(apierrors.Conflict, "session has not joined a room"))
	}
	payload, _ := env.Payload.(map[string]any)
	transportID, _ := payload["transportId"].(string)
	kind := sfu.MediaKind(stringField(payload, "kind"))
	appData, _ := payload["appData"].(map[string]any)

	t, err := m.ownedTransport(s, transportID)
	if err != nil {
		return errAck(err)
	}

	p, err := t.Produce(kind, payload["rtpParameters"])
	if err != nil {
		return errAck(apierrors.Wrap(apierrors.FatalLocal, "failed to produce", err))
	}

	m.producers.Add(ctx, p, s.ID, s.RoomID)
	isScreen, _ := appData["screen"].(bool)
	m.producerMeta.Store(p.ID(), producerEntryMeta{
		userID: s.UserID,
		displayName: s.DisplayName,
		kind: string(kind),
		appData: appData,
		screen: isScreen,
	})

	summary := ProducerSummary{ProducerID: p.ID(), UserID: s.UserID, Kind: string(kind), Name: s.DisplayName, AppData: appData}
	m.broadcastToRoom(ctx, s.RoomCode, s.ID, Envelope{Event: EventNewProducer, Payload: summary})
	if isScreen {
		m.broadcastToRoom(ctx, s.RoomCode, s.ID, Envelope{Event: EventScreenShareStarted, Payload: summary})
	}

	return Ack{Success: true, Payload: map[string]string{"id": p.ID()}}
}

func (m *Manager) handleConsume(ctx context.Context, s *Session, env Envelope) Ack {
	if s.RoomCode == "" {
		return errAck(apierrors.New(apierrors.Conflict, "session has not joined a room"))
	}
	payload, _ := env.Payload.(map[string]any)
	transportID, _ := payload["transportId"].(string)
	producerID, _ := payload["producerId"].(string)

	t, err := m.ownedTransport(s, transportID)
	if err != nil {
		return errAck(err)
	}

	p, foreign, ok := m.producers.FindByID(producerID)
	if !ok || foreign || p == nil {
		return errAck(apierrors.New(apierrors.NotFound, "Cannot consume"))
	}

	rtpCapabilities := payload["rtpCapabilities"]
	c, err := t.Consume(p, rtpCapabilities)
	if err != nil {
		return errAck(apierrors.Wrap(apierrors.FatalLocal, "Cannot consume", err))
	}
	m.consumers.Add(ctx, c, s.ID, transportID)

	return Ack{Success: true, Payload: map[string]any{
		"id": c.ID(),
		"producerId": p.ID(),
		"kind": string(p.Kind()),
		"rtpParameters": rtpCapabilities, // the real SFU worker negotiates this; this control plane echoes the client's own capabilities as a stand-in
	}}
}

func (m *Manager) handleReplaceTrack(ctx context.Context, s *Session, env Envelope) Ack {
	if s.RoomCode == "" {
		return errAck(apierrors.New(apierrors.Conflict, "session has not joined a room"))
	}
	payload, _ := env.Payload.(map[string]any)
	producerID, _ := payload["producerId"].(string)

	p, foreign, ok := m.producers.FindByID(producerID)
	if !ok || foreign || p == nil {
		return errAck(apierrors.New(apierrors.NotFound, "producer not found: "+producerID))
	}
	ownerSocket, _, _ := m.producers.Owner(producerID)
	if ownerSocket != s.ID {
		return errAck(apierrors.New(apierrors.Unauthorized, "producer not owned by this session"))
	}
	if err := p.ReplaceTrack(payload["rtpParameters"]); err != nil {
		return errAck(apierrors.Wrap(apierrors.FatalLocal, "failed to replace track", err))
	}

	meta, _ := m.producerMeta.Load(producerID)
	summary := ProducerSummary{ProducerID: producerID, UserID: meta.userID, Kind: meta.kind, Name: meta.displayName, AppData: meta.appData}
	m.broadcastToRoom(ctx, s.RoomCode, s.ID, Envelope{Event: EventProducerTrackReplaced, Payload: summary})

	return Ack{Success: true}
}

// controlProducer implements closeProducer/pauseProducer/resumeProducer: if
// the producer is local, it's applied directly after an ownership check; if
// the registry only holds a foreign marker for it, the call is routed to
// the room's owning node over the cross-node bus.
func (m *Manager) controlProducer(ctx context.Context, s *Session, env Envelope, op routing.RPCOp) Ack {
	if s.RoomCode == "" {
		return errAck(apierrors.New(apierrors.Conflict, "session has not joined a room"))
	}
	payload, _ := env.Payload.(map[string]any)
	producerID, _ := payload["producerId"].(string)

	p, foreign, ok := m.producers.FindByID(producerID)
	if !ok {
		return errAck(apierrors.New(apierrors.NotFound, "producer not found: "+producerID))
	}

	if foreign || p == nil {
		target, err := m.routingSvc.GetOrAssign(ctx, s.RoomCode)
		if err != nil {
			return errAck(apierrors.Wrap(apierrors.Transient, "failed to resolve owning node", err))
		}
		if err := m.bus.Call(ctx, target, op, producerID); err != nil {
			return errAck(err)
		}
		m.broadcastProducerEvent(ctx, s, producerID, op)
		return Ack{Success: true}
	}

	ownerSocket, _, _ := m.producers.Owner(producerID)
	if ownerSocket != s.ID {
		return errAck(apierrors.New(apierrors.Unauthorized, "producer not owned by this session"))
	}

	var err error
	switch op {
	case routing.OpClose:
		err = m.producers.Close(ctx, producerID)
	case routing.OpPause:
		err = p.Pause()
	case routing.OpResume:
		err = p.Resume()
	}
	if err != nil {
		return errAck(apierrors.Wrap(apierrors.FatalLocal, "producer control failed", err))
	}

	m.broadcastProducerEvent(ctx, s, producerID, op)
	return Ack{Success: true}
}

func (m *Manager) broadcastProducerEvent(ctx context.Context, s *Session, producerID string, op routing.RPCOp) {
	meta, _ := m.producerMeta.Load(producerID)
	summary := ProducerSummary{ProducerID: producerID, UserID: meta.userID, Kind: meta.kind, Name: meta.displayName, AppData: meta.appData}

	var event EventType
	switch op {
	case routing.OpClose:
		event = EventProducerClosed
	case routing.OpPause:
		event = EventProducerPaused
	case routing.OpResume:
		event = EventProducerResumed
	}
	m.broadcastToRoom(ctx, s.RoomCode, s.ID, Envelope{Event: event, Payload: summary})

	if op == routing.OpClose {
		m.producerMeta.Delete(producerID)
		if meta.screen {
			m.broadcastToRoom(ctx, s.RoomCode, s.ID, Envelope{Event: EventScreenShareStopped, Payload: summary})
		}
	}
}

func (m *Manager) handleChatSend(ctx context.Context, s *Session, env Envelope) Ack {
	if s.RoomCode == "" {
		return errAck(apierrors.New(apierrors.Conflict, "session has not joined a room"))
	}
	payload, _ := env.Payload.(map[string]any)
	content, _ := payload["content"].(string)
	if len(content) == 0 || len(content) > models.MaxChatContentLength {
		return errAck(apierrors.New(apierrors.Validation, "chat content length out of bounds"))
	}
	room, err := models.FindRoomByCode(m.db, s.RoomCode)
	if err != nil {
		return errAck(apierrors.Wrap(apierrors.NotFound, "room not found", err))
	}
	msg := models.ChatMessage{RoomID: room.ID, SenderUserID: s.UserID, Content: content, CreatedAt: time.Now()}
	if err := m.db.Create(&msg).Error; err != nil {
		return errAck(apierrors.Wrap(apierrors.Transient, "failed to persist chat message", err))
	}
	m.broadcastToRoom(ctx, s.RoomCode, "", Envelope{Event: EventChatMessage, Payload: msg})
	return Ack{Success: true}
}

func (m *Manager) handleChatHistory(_ context.Context, s *Session, _ Envelope) Ack {
	if s.RoomCode == "" {
		return errAck(apierrors.New(apierrors.Conflict, "session has not joined a room"))
	}
	room, err := models.FindRoomByCode(m.db, s.RoomCode)
	if err != nil {
		return errAck(apierrors.Wrap(apierrors.NotFound, "room not found", err))
	}
	const defaultPageSize = 50
	messages, err := models.ListRoomHistory(m.db, room.ID, "", 0, defaultPageSize)
	if err != nil {
		return errAck(apierrors.Wrap(apierrors.Transient, "failed to load chat history", err))
	}
	return Ack{Success: true, Payload: messages}
}

// handleMute implements audio-mute/video-mute: a read-modify-write against
// the durable MuteState row (so toggling one track never clobbers the
// other), a mirror write with a 1h TTL, and a room-wide broadcast. A
// request targeting another user's uid is only honored from the room's
// host.
func (m *Manager) handleMute(ctx context.Context, s *Session, env Envelope, audio bool) Ack {
	if s.RoomCode == "" {
		kind := "audio-mute"
		if !audio {
			kind = "video-mute"
		}
		return errAck(apierrors.New(apierrors.NotFound, kind+" requires an active room"))
	}
	payload, _ := env.Payload.(map[string]any)
	targetUID, _ := payload["uid"].(string)
	if targetUID == "" {
		targetUID = s.UserID
	}
	var muted bool
	if audio {
		muted, _ = payload["isAudioMuted"].(bool)
	} else {
		muted, _ = payload["isVideoMuted"].(bool)
	}

	room, err := models.FindRoomByCode(m.db, s.RoomCode)
	if err != nil {
		return errAck(apierrors.Wrap(apierrors.NotFound, "room not found", err))
	}
	hostForced := targetUID != s.UserID
	if hostForced && room.OwnerUserID != s.UserID {
		return errAck(apierrors.New(apierrors.Unauthorized, "only the host can mute another participant"))
	}

	state, err := models.GetMuteState(m.db, room.ID, targetUID)
	if err != nil {
		return errAck(apierrors.Wrap(apierrors.Transient, "failed to load mute state", err))
	}
	now := time.Now()
	if audio {
		state.AudioMuted = muted
		state.AudioMutedAt = &now
		state.HostForcedAudio = hostForced
	} else {
		state.VideoMuted = muted
		state.VideoMutedAt = &now
		state.HostForcedVideo = hostForced
	}
	state.RoomID = room.ID
	state.UserID = targetUID
	if err := models.UpsertMuteState(m.db, &state); err != nil {
		return errAck(apierrors.Wrap(apierrors.Transient, "failed to persist mute state", err))
	}

	if err := m.mirrorMuteState(ctx, s.RoomCode, state); err != nil {
		slog.Warn("failed to mirror mute state", "room_code", s.RoomCode, "user_id", targetUID, "error", err)
	}

	event := EventAudioMute
	if !audio {
		event = EventVideoMute
	}
	m.broadcastToRoom(ctx, s.RoomCode, "", Envelope{Event: event, Payload: MuteStatePayload{
		UserID: targetUID,
		AudioMuted: state.AudioMuted,
		VideoMuted: state.VideoMuted,
		HostForcedAudio: state.HostForcedAudio,
		HostForcedVideo: state.HostForcedVideo,
	}})

	return Ack{Success: true}
}

func (m *Manager) mirrorMuteState(ctx context.Context, roomCode string, state models.MuteState) error {
	if m.kv == nil {
		return nil
	}
	entry := MuteEntry{
		UserID: state.UserID,
		AudioMuted: state.AudioMuted,
		VideoMuted: state.VideoMuted,
		HostForcedAudio: state.HostForcedAudio,
		HostForcedVideo: state.HostForcedVideo,
		UpdatedAtUnixMs: time.Now().UnixMilli(),
	}
	data, err := mirror.Encode(&entry)
	if err != nil {
		return err
	}
	key := mirror.RoomMuteKey(roomCode, state.UserID)
	if err := m.kv.Set(ctx, key, data); err != nil {
		return err
	}
	return m.kv.Expire(ctx, key, mirror.MuteTTL)
}

// broadcastToRoom delivers env to every local session joined to roomCode
// other than excludeSessionID, and publishes it on the room's pub-sub topic
// for any other node's subscriber (e.g. a future recording orchestrator).
// A room is served entirely by one owning node, so the local fan-out alone
// reaches every live participant; the publish is for collaborators outside
// the session set.
func (m *Manager) broadcastToRoom(_ context.Context, roomCode, excludeSessionID string, env Envelope) {
	m.sessions.Range(func(id string, sess *Session) bool {
		if sess.RoomCode != roomCode || id == excludeSessionID {
			return true
		}
		if err := sess.Send(env); err != nil {
			slog.Warn("failed to push signaling event to session", "session_id", id, "event", env.Event, "error", err)
		}
		return true
	})

	if m.ps == nil {
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		slog.Error("failed to encode room broadcast event", "event", env.Event, "error", err)
		return
	}
	if err := m.ps.Publish(roomEventsTopic(roomCode), data); err != nil {
		slog.Warn("failed to publish room broadcast event", "room_code", roomCode, "error", err)
	}
}

func roomEventsTopic(roomCode string) string {
	return "connect:room:" + roomCode + ":events"
}

func stringField(payload map[string]any, key string) string {
	v, _ := payload[key].(string)
	return v
}

// cleanup tears down every resource a session owns, retrying mirror cleanup
// up to cleanupAttempts times before giving up and trusting TTL expiry, then
// announces the departure to the rest of the room.
func (m *Manager) cleanup(ctx context.Context, s *Session) {
	roomCode := s.RoomCode
	var closedProducers []producer.Summary
	if roomCode != "" {
		closedProducers = m.producers.ListBySocket(s.ID)
	}

	_ = s.transition(StateLeaving)

	var lastErr error
	for attempt := 1; attempt <= cleanupAttempts; attempt++ {
		lastErr = m.cleanupOnce(ctx, s)
		if lastErr == nil {
			break
		}
		if attempt < cleanupAttempts {
			time.Sleep(time.Duration(attempt) * cleanupBaseDelay)
		}
	}
	if lastErr != nil {
		slog.Warn("session cleanup did not fully converge, relying on TTL expiry", "session_id", s.ID, "error", lastErr)
	}

	if roomCode != "" {
		if room, err := models.FindRoomByCode(m.db, roomCode); err == nil {
			if err := models.MarkLeft(m.db, room.ID, s.UserID); err != nil {
				slog.Warn("failed to mark participant left", "room_code", roomCode, "error", err)
			}
		}

		for _, item := range closedProducers {
			meta, _ := m.producerMeta.Load(item.ID)
			summary := ProducerSummary{ProducerID: item.ID, UserID: s.UserID, Kind: string(item.Kind), Name: s.DisplayName, AppData: meta.appData}
			m.broadcastToRoom(ctx, roomCode, s.ID, Envelope{Event: EventProducerClosed, Payload: summary})
			m.producerMeta.Delete(item.ID)
		}

		m.broadcastToRoom(ctx, roomCode, s.ID, Envelope{
			Event: EventUserLeft,
			Payload: ParticipantSummary{UserID: s.UserID, DisplayName: s.DisplayName, PictureURL: s.PictureURL},
		})
	}

	_ = s.transition(StateClosed)
	m.sessions.Delete(s.ID)
}

func (m *Manager) cleanupOnce(ctx context.Context, s *Session) error {
	var lastErr error
	if err := m.consumers.CloseAllForSocket(ctx, s.ID); err != nil {
		lastErr = err
	}
	if err := m.producers.CloseAllForSocket(ctx, s.ID); err != nil {
		lastErr = err
	}
	if err := m.transports.CloseAllForSocket(ctx, s.ID); err != nil {
		lastErr = err
	}
	return lastErr
}
