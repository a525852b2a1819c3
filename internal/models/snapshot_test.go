package models

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

func sampleSession() *WorkoutSession {
	reps := 10
	weight := 50.0
	restStart := time.Date(2026, 3, 14, 9, 20, 0, 0, time.UTC)
	return &WorkoutSession{
		RecordID:  uuid.New(),
		Name:      "Push Day",
		Status:    StatusInProgress,
		StartTime: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
		Exercises: []SessionExercise{
			{
				Exercise: Exercise{
					ID:           uuid.New(),
					Name:         "Barbell Bench Press",
					MuscleGroups: []string{"chest", "triceps"},
					Equipment:    "barbell",
				},
				OrderIndex:    0,
				RestSeconds:   90,
				RestStartedAt: &restStart,
				Sets: []SetEntry{
					{SetNumber: 1, Reps: &reps, WeightKg: &weight, Completed: true,
						CompletedAt: time.Date(2026, 3, 14, 9, 10, 0, 0, time.UTC)},
					{SetNumber: 2, Reps: &reps, Completed: true, Voided: true,
						CompletedAt: time.Date(2026, 3, 14, 9, 15, 0, 0, time.UTC)},
				},
			},
		},
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	sess := sampleSession()
	savedAt := time.Date(2026, 3, 14, 9, 21, 0, 0, time.UTC)

	data, err := EncodeSnapshot(sess, savedAt)
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}
	got, err := DecodeSnapshot(data)
	if err != nil {
		t.Fatalf("DecodeSnapshot: %v", err)
	}

	if got.RecordID != sess.RecordID {
		t.Errorf("record ID = %v, want %v", got.RecordID, sess.RecordID)
	}
	if got.Status != StatusInProgress {
		t.Errorf("status = %q, want in_progress", got.Status)
	}
	if len(got.Exercises) != 1 {
		t.Fatalf("exercises = %d, want 1", len(got.Exercises))
	}
	se := got.Exercises[0]
	if se.Exercise.Name != "Barbell Bench Press" || se.RestSeconds != 90 {
		t.Errorf("exercise round trip mismatch: %+v", se)
	}
	if se.RestStartedAt == nil || !se.RestStartedAt.Equal(*sess.Exercises[0].RestStartedAt) {
		t.Errorf("rest_started_at = %v, want %v", se.RestStartedAt, sess.Exercises[0].RestStartedAt)
	}
	if len(se.Sets) != 2 {
		t.Fatalf("sets = %d, want 2", len(se.Sets))
	}
	if se.Sets[0].Reps == nil || *se.Sets[0].Reps != 10 {
		t.Errorf("set 1 reps = %v, want 10", se.Sets[0].Reps)
	}
	if !se.Sets[1].Voided {
		t.Error("set 2 should stay voided")
	}
}

func TestDecodeSnapshotRejectsBadPayloads(t *testing.T) {
	sess := sampleSession()
	unknownStatus := *sess
	unknownStatus.Status = "resting"
	unknownData, err := EncodeSnapshot(&unknownStatus, time.Now())
	if err != nil {
		t.Fatalf("EncodeSnapshot: %v", err)
	}

	cases := []struct {
		name string
		data []byte
	}{
		{"truncated JSON", []byte(`{"version":1,"session":{`)},
		{"not JSON at all", []byte("corrupt")},
		{"unknown version", []byte(`{"version":99,"session":{"status":"in_progress"}}`)},
		{"missing session", []byte(`{"version":1}`)},
		{"unknown status", unknownData},
	}
	for _, tc := range cases {
		_, err := DecodeSnapshot(tc.data)
		var inv *ErrSnapshotInvalid
		if !errors.As(err, &inv) {
			t.Errorf("%s: got %v, want ErrSnapshotInvalid", tc.name, err)
		}
	}
}

func TestStatusPredicates(t *testing.T) {
	for _, s := range []Status{StatusInProgress, StatusPaused, StatusCompleted, StatusCancelled} {
		if !s.Valid() {
			t.Errorf("%q should be valid", s)
		}
	}
	if Status("resting").Valid() {
		t.Error(`"resting" should not be valid`)
	}

	terminal := map[Status]bool{
		StatusInProgress: false,
		StatusPaused:     false,
		StatusCompleted:  true,
		StatusCancelled:  true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("%q.Terminal() = %v, want %v", s, got, want)
		}
	}
}

func TestSnapshotVersionMismatchMessage(t *testing.T) {
	data := []byte(fmt.Sprintf(`{"version":%d,"session":null}`, SnapshotVersion+1))
	_, err := DecodeSnapshot(data)
	if err == nil {
		t.Fatal("expected error for future version")
	}
}
