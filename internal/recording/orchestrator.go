// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package recording

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/cynayd/connect-core/internal/apierrors"
	"github.com/cynayd/connect-core/internal/config"
	"github.com/cynayd/connect-core/internal/db/models"
	"github.com/cynayd/connect-core/internal/kv"
	"github.com/cynayd/connect-core/internal/mirror"
	"github.com/ulikunitz/xz"
	"gorm.io/gorm"
)

// active is the orchestrator's in-memory bookkeeping for one room's
// in-progress recording, mirrored into the shared store with a 15-minute
// refresh TTL.
type active struct {
	sessionID uint
	sessionKey string
	tracks []plainTrack
	proc *compositeProcess
}

// Orchestrator is the per-node composite recording orchestrator.
type Orchestrator struct {
	db *gorm.DB
	kv kv.KV
	cfg config.Recording
	aws config.AWS

	ports *portAllocator

	mu sync.Mutex
	byRoom map[uint]*active
}

// New builds an Orchestrator bound to the given recording and object
// storage configuration.
func New(db *gorm.DB, kvClient kv.KV, cfg config.Recording, awsCfg config.AWS) *Orchestrator {
	return &Orchestrator{
		db: db,
		kv: kvClient,
		cfg: cfg,
		aws: awsCfg,
		ports: newPortAllocator(cfg.PortRangeMin, cfg.PortRangeMax),
		byRoom: make(map[uint]*active),
	}
}

// Start begins a composite recording for roomID, requested by hostUserID.
// It persists a STARTING row, allocates one local port per entry of
// trackKinds, generates an SDP, launches ffmpeg, then flips to RECORDING and
// mirrors the snapshot.
func (o *Orchestrator) Start(ctx context.Context, roomID uint, hostUserID string, trackKinds []string) error {
	o.mu.Lock()
	if _, exists := o.byRoom[roomID]; exists {
		o.mu.Unlock()
		return apierrors.New(apierrors.Conflict, "a recording is already active for this room")
	}
	o.mu.Unlock()

	session := models.RecordingSession{
		RoomID: roomID,
		HostUserID: hostUserID,
		Status: models.RecordingStatusStarting,
		StartedAt: time.Now(),
	}
	if err := o.db.Create(&session).Error; err != nil {
		return apierrors.Wrap(apierrors.Transient, "failed to persist recording session", err)
	}

	tracks, err := o.allocateTracks(trackKinds)
	if err != nil {
		o.markFailed(session.ID)
		return apierrors.Wrap(apierrors.FatalLocal, "failed to allocate recording ports", err)
	}

	sessionKey := o.sessionKeyFor(session.ID)
	sdp := generateSDP(o.announcedIP(), tracks)

	proc, err := startComposite(o.cfg.FFmpegPath, o.cfg.OutputDir, sessionKey, sdp)
	if err != nil {
		o.releaseTracks(tracks)
		o.markFailed(session.ID)
		return apierrors.Wrap(apierrors.FatalLocal, "failed to start recording process", err)
	}

	a := &active{sessionID: session.ID, sessionKey: sessionKey, tracks: tracks, proc: proc}
	o.mu.Lock()
	o.byRoom[roomID] = a
	o.mu.Unlock()

	session.Status = models.RecordingStatusRecording
	if err := o.db.Save(&session).Error; err != nil {
		slog.Warn("failed to mark recording session as recording", "session_id", session.ID, "error", err)
	}
	o.mirrorSnapshot(ctx, roomID, session.ID, "RECORDING")

	go o.watchUnexpectedExit(ctx, roomID, a, session.ID)

	return nil
}

func (o *Orchestrator) watchUnexpectedExit(ctx context.Context, roomID uint, a *active, sessionID uint) {
	if clean := a.proc.waitUnexpected(); !clean {
		o.mu.Lock()
		current, ok := o.byRoom[roomID]
		owned := ok && current == a
		if owned {
			delete(o.byRoom, roomID)
		}
		o.mu.Unlock()
		if !owned {
			// Stop already took this recording over and finishes it itself.
			return
		}

		slog.Warn("recording process exited unexpectedly", "room_id", roomID, "session_id", sessionID)

		o.releaseTracks(a.tracks)
		o.finish(ctx, roomID, sessionID)
	}
}

func (o *Orchestrator) allocateTracks(kinds []string) ([]plainTrack, error) {
	tracks := make([]plainTrack, 0, len(kinds))
	for i, kind := range kinds {
		port, err := o.ports.acquire()
		if err != nil {
			o.releaseTracks(tracks)
			return nil, err
		}
		role := "pip"
		if i == 0 {
			role = "primary"
		}
		clockRate := uint32(90000)
		if kind == "audio" {
			clockRate = 48000
		}
		tracks = append(tracks, plainTrack{Kind: kind, Port: port, ClockRate: clockRate, PayloadID: 100 + i, Role: role})
	}
	return tracks, nil
}

func (o *Orchestrator) releaseTracks(tracks []plainTrack) {
	for _, t := range tracks {
		o.ports.release(t.Port)
	}
}

func (o *Orchestrator) announcedIP() string {
	// The SDP always names the loopback address; neither the workers'
	// announced IP nor any recording setting is consulted.
	return "127.0.0.1"
}

func (o *Orchestrator) markFailed(sessionID uint) {
	if err := o.db.Model(&models.RecordingSession{}).Where("id = ?", sessionID).
	Update("status", models.RecordingStatusFailed).Error; err != nil {
		slog.Warn("failed to mark recording session failed", "session_id", sessionID, "error", err)
	}
}

func (o *Orchestrator) mirrorSnapshot(ctx context.Context, roomID, sessionID uint, status string) {
	if o.kv == nil {
		return
	}
	key := mirror.RecordingKey(fmt.Sprintf("%d", roomID))
	payload := fmt.Sprintf(`{"sessionId":%d,"status":%q}`, sessionID, status)
	if err := o.kv.Set(ctx, key, []byte(payload)); err != nil {
		slog.Warn("failed to mirror recording snapshot", "room_id", roomID, "error", err)
		return
	}
	if err := o.kv.Expire(ctx, key, mirror.RecordingTTL); err != nil {
		slog.Warn("failed to set recording mirror ttl", "room_id", roomID, "error", err)
	}
}

// Stop ends roomID's active recording: SIGINT/SIGKILL the ffmpeg process,
// upload the result, and persist the final asset row.
func (o *Orchestrator) Stop(ctx context.Context, roomID uint) error {
	o.mu.Lock()
	a, ok := o.byRoom[roomID]
	if ok {
		delete(o.byRoom, roomID)
	}
	o.mu.Unlock()
	if !ok {
		return apierrors.New(apierrors.NotFound, "no active recording for this room")
	}

	a.proc.stop(ctx)
	o.releaseTracks(a.tracks)
	o.finish(ctx, roomID, a.sessionID)
	return nil
}

// finish transitions a session through UPLOADING to its terminal status,
// reached either from a requested Stop or from watchUnexpectedExit noticing
// ffmpeg died on its own.
func (o *Orchestrator) finish(ctx context.Context, roomID uint, sessionID uint) {
	now := time.Now()
	if err := o.db.Model(&models.RecordingSession{}).Where("id = ?", sessionID).
	Updates(map[string]any{"status": models.RecordingStatusUploading, "ended_at": now}).Error; err != nil {
		slog.Warn("failed to mark recording uploading", "session_id", sessionID, "error", err)
	}

	status := models.RecordingStatusCompleted
	if err := o.upload(ctx, sessionID); err != nil {
		slog.Error("failed to upload recording asset", "session_id", sessionID, "error", err)
		status = models.RecordingStatusFailed
	}

	if err := o.db.Model(&models.RecordingSession{}).Where("id = ?", sessionID).
	Update("status", status).Error; err != nil {
		slog.Warn("failed to finalize recording status", "session_id", sessionID, "error", err)
	}
	o.mirrorSnapshot(ctx, roomID, sessionID, string(status))
}

// upload compresses the ffmpeg log with xz, uploads both the composite
// output and the compressed log to object storage, records a
// RecordingAsset row, and unlinks the local files.
func (o *Orchestrator) upload(ctx context.Context, sessionID uint) error {
	var session models.RecordingSession
	if err := o.db.First(&session, sessionID).Error; err != nil {
		return fmt.Errorf("failed to load recording session: %w", err)
	}

	sessionKey := o.sessionKeyFor(sessionID)
	outputPath := o.cfg.OutputDir + "/" + sessionKey + ".mp4"
	logPath := o.cfg.OutputDir + "/" + sessionKey + ".log"
	compressedLogPath := logPath + ".xz"

	if err := compressFile(logPath, compressedLogPath); err != nil {
		slog.Warn("failed to compress recording log", "session_id", sessionID, "error", err)
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("failed to stat recording output: %w", err)
	}

	storageKey := fmt.Sprintf("recordings/%s/%s.mp4", sessionKey, sessionKey)
	if err := o.uploadToS3(ctx, outputPath, storageKey); err != nil {
		return err
	}
	if _, statErr := os.Stat(compressedLogPath); statErr == nil {
		logKey := fmt.Sprintf("recordings/%s/%s.log.xz", sessionKey, sessionKey)
		if err := o.uploadToS3(ctx, compressedLogPath, logKey); err != nil {
			slog.Warn("failed to upload recording log", "session_id", sessionID, "error", err)
		}
	}

	asset := models.RecordingAsset{
		RecordingSessionID: sessionID,
		Type: models.RecordingAssetTypeComposite,
		Format: "mp4",
		SizeBytes: info.Size(),
		StorageKey: storageKey,
	}
	if err := o.db.Create(&asset).Error; err != nil {
		return fmt.Errorf("failed to persist recording asset: %w", err)
	}

	_ = os.Remove(outputPath)
	_ = os.Remove(logPath)
	_ = os.Remove(compressedLogPath)
	_ = os.Remove(o.cfg.OutputDir + "/" + sessionKey + ".sdp")

	return nil
}

// sessionKeyFor names a recording session's files after its id. Start
// launches ffmpeg under this name, so upload can locate the files after Stop
// has removed the active entry.
func (o *Orchestrator) sessionKeyFor(sessionID uint) string {
	return fmt.Sprintf("session-%d", sessionID)
}

func (o *Orchestrator) uploadToS3(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath) //nolint:gosec
	if err != nil {
		return fmt.Errorf("failed to open file for upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	awsCfg := aws.Config{Region: o.aws.Region}
	if o.aws.AccessKeyID != "" {
		awsCfg.Credentials = credentials.NewStaticCredentialsProvider(o.aws.AccessKeyID, o.aws.SecretAccessKey, "")
	}
	client := s3.NewFromConfig(awsCfg, func(opt *s3.Options) {
		if o.aws.Endpoint != "" {
			opt.BaseEndpoint = aws.String(o.aws.Endpoint)
		}
		opt.UsePathStyle = o.aws.Endpoint != ""
	})
	uploader := manager.NewUploader(client)
	_, err = uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(o.aws.Bucket),
		Key:    aws.String(key),
		Body:   f,
	})
	if err != nil {
		return fmt.Errorf("failed to upload to object storage: %w", err)
	}
	return nil
}

func compressFile(srcPath, dstPath string) error {
	src, err := os.Open(srcPath) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec
	if err != nil {
		return err
	}
	defer func() { _ = dst.Close() }()

	w, err := xz.NewWriter(dst)
	if err != nil {
		return fmt.Errorf("failed to create xz writer: %w", err)
	}
	defer func() { _ = w.Close() }()

	buf := make([]byte, 32*1024)
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			if _, writeErr := w.Write(buf[:n]); writeErr != nil {
				return writeErr
			}
		}
		if readErr != nil {
			break
		}
	}
	return nil
}
