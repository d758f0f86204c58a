package session

import (
	"errors"
	"fmt"
)

// CaptureError is session-fatal: the capture source itself failed (device
// revoked, pw-record died). The controller force-drains and returns to Idle.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	if e == nil || e.Err == nil {
		return "capture error"
	}
	return "capture: " + e.Err.Error()
}

func (e *CaptureError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Stage names the phase a chunk failed in.
type Stage string

const (
	StageStore      Stage = "store"
	StageTranscribe Stage = "transcribe"
)

// ChunkError is chunk-fatal: one chunk's artifact could not be stored or its
// transcription call failed. The session keeps running; the chunk's slice of
// transcript is lost.
type ChunkError struct {
	Index uint64
	Stage Stage
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d %s: %v", e.Index, e.Stage, e.Err)
}

func (e *ChunkError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConfigError rejects invalid start options synchronously, including start
// while a session is already active.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "invalid session options: " + e.Reason
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

func IsCaptureError(err error) bool {
	var ce *CaptureError
	return errors.As(err, &ce)
}

// AsChunkError extracts a chunk-level error, if err is one.
func AsChunkError(err error) (*ChunkError, bool) {
	var ce *ChunkError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}
