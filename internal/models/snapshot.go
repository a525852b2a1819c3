package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// SnapshotVersion is the current snapshot envelope version. Bump when the
// session shape changes incompatibly; recovery discards versions it does not
// understand rather than failing startup.
const SnapshotVersion = 1

// ErrSnapshotInvalid marks snapshots that cannot be recovered: malformed
// payloads, unknown versions, or sessions in an unknown state. Callers treat
// these as "no snapshot" and discard the slot.
type ErrSnapshotInvalid struct {
	Reason string
}

func (e *ErrSnapshotInvalid) Error() string {
	return "invalid snapshot: " + e.Reason
}

type snapshotEnvelope struct {
	Version int             `json:"version"`
	SavedAt time.Time       `json:"saved_at"`
	Session *WorkoutSession `json:"session"`
}

// EncodeSnapshot serializes a session into the versioned snapshot envelope.
func EncodeSnapshot(s *WorkoutSession, savedAt time.Time) ([]byte, error) {
	data, err := json.Marshal(snapshotEnvelope{
		Version: SnapshotVersion,
		SavedAt: savedAt,
		Session: s,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// DecodeSnapshot parses a snapshot envelope back into a session. It returns
// *ErrSnapshotInvalid for anything that should be discarded instead of resumed.
func DecodeSnapshot(data []byte) (*WorkoutSession, error) {
	var env snapshotEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, &ErrSnapshotInvalid{Reason: "malformed JSON: " + err.Error()}
	}
	if env.Version != SnapshotVersion {
		return nil, &ErrSnapshotInvalid{Reason: fmt.Sprintf("unsupported version %d", env.Version)}
	}
	if env.Session == nil {
		return nil, &ErrSnapshotInvalid{Reason: "missing session"}
	}
	if !env.Session.Status.Valid() {
		return nil, &ErrSnapshotInvalid{Reason: "unknown status " + string(env.Session.Status)}
	}
	return env.Session, nil
}
