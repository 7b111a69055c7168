// SPDX-License-Identifier: AGPL-3.0-or-later
// connect-core - control plane for a horizontally scaled WebRTC conferencing service
// Copyright (C) 2026 Cynayd

package recording

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"time"
)

// sigkillGrace is how long stop waits after SIGINT before escalating to
// SIGKILL.
const sigkillGrace = 5 * time.Second

// compositeProcess supervises one ffmpeg invocation that muxes an SDP's
// worth of plain-RTP tracks into a single output file.
type compositeProcess struct {
	cmd *exec.Cmd
	outputPath string
	logPath string
	logFile *os.File
	done chan error
}

// startComposite writes sdp to a temp file, launches ffmpeg against it, and
// tees stdout/stderr to a log file next to the output.
func startComposite(ffmpegPath, outputDir, sessionKey, sdp string) (*compositeProcess, error) {
	if err := os.MkdirAll(outputDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create recording output dir: %w", err)
	}

	sdpPath := filepath.Join(outputDir, sessionKey+".sdp")
	if err := os.WriteFile(sdpPath, []byte(sdp), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write sdp file: %w", err)
	}

	outputPath := filepath.Join(outputDir, sessionKey+".mp4")
	logPath := filepath.Join(outputDir, sessionKey+".log")

	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to open recording log file: %w", err)
	}

	cmd := exec.Command(ffmpegPath, //nolint:gosec
		"-protocol_whitelist", "file,rtp,udp",
		"-i", sdpPath,
		"-c:v", "libx264",
		"-c:a", "aac",
		outputPath,
	)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	p := &compositeProcess{cmd: cmd, outputPath: outputPath, logPath: logPath, logFile: logFile, done: make(chan error, 1)}
	go func() {
		p.done <- cmd.Wait()
	}()
	return p, nil
}

// stop sends SIGINT, escalating to SIGKILL after sigkillGrace if the
// process hasn't exited, stop flow. A requested stop is never
// treated as a failed recording regardless of ffmpeg's exit code.
func (p *compositeProcess) stop(ctx context.Context) {
	defer func() { _ = p.logFile.Close() }()

	if err := p.cmd.Process.Signal(syscall.SIGINT); err != nil {
		slog.Warn("failed to send SIGINT to recording process", "error", err)
	}

	select {
	case err := <-p.done:
		p.done <- err // leave the exit value for waitUnexpected
		return
	case <-time.After(sigkillGrace):
		if err := p.cmd.Process.Kill(); err != nil {
			slog.Warn("failed to SIGKILL recording process", "error", err)
		}
		select {
		case <-p.done:
		case <-ctx.Done():
		}
	}
}

// waitUnexpected blocks until ffmpeg exits, for any reason, and reports
// whether the exit was clean. The exit value is put back on done so a
// concurrent stop still sees the process exit.
func (p *compositeProcess) waitUnexpected() (clean bool) {
	err := <-p.done
	p.done <- err
	return err == nil
}
