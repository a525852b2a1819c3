package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/storage"
	"github.com/google/uuid"
)

// fakeClock drives engine time from tests. Advance fires due timers in
// deadline order, outside the clock lock so callbacks can re-enter the engine.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock    *fakeClock
	deadline time.Time
	f        func()
	stopped  bool
	fired    bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, deadline: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.deadline.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].deadline.Before(due[j].deadline) })
	for _, t := range due {
		t.f()
	}
}

// memRecords is an in-memory RecordStore.
type memRecords struct {
	mu         sync.Mutex
	created    []models.WorkoutRecord
	finalized  map[uuid.UUID]models.WorkoutRecord
	setRows    []models.WorkoutSetRow
	failCreate bool
	failFinal  bool
}

func newMemRecords() *memRecords {
	return &memRecords{finalized: map[uuid.UUID]models.WorkoutRecord{}}
}

func (m *memRecords) CreateWorkout(_ context.Context, rec models.WorkoutRecord) (uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCreate {
		return uuid.Nil, errors.New("record store down")
	}
	rec.ID = uuid.New()
	m.created = append(m.created, rec)
	return rec.ID, nil
}

func (m *memRecords) FinalizeWorkout(_ context.Context, rec models.WorkoutRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failFinal {
		return errors.New("record store down")
	}
	m.finalized[rec.ID] = rec
	return nil
}

func (m *memRecords) InsertWorkoutSets(_ context.Context, rows []models.WorkoutSetRow) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.setRows = append(m.setRows, rows...)
	return int64(len(rows)), nil
}

func (m *memRecords) QueryWorkouts(context.Context, time.Time, time.Time) ([]models.WorkoutRecord, error) {
	return nil, nil
}

func (m *memRecords) GetWorkout(context.Context, uuid.UUID) (*models.WorkoutRecord, error) {
	return nil, storage.ErrNotFound
}

// memCatalog is an in-memory CatalogStore preserving insertion order.
type memCatalog struct {
	mu        sync.Mutex
	exercises []models.Exercise
}

func (m *memCatalog) CreateExercise(_ context.Context, ex models.Exercise) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.exercises = append(m.exercises, ex)
	return nil
}

func (m *memCatalog) GetExercise(_ context.Context, id uuid.UUID) (*models.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ex := range m.exercises {
		if ex.ID == id {
			cp := ex
			return &cp, nil
		}
	}
	return nil, storage.ErrNotFound
}

func (m *memCatalog) ListExercises(context.Context) ([]models.Exercise, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Exercise(nil), m.exercises...), nil
}

func (m *memCatalog) UpdateExercise(context.Context, models.Exercise) error { return nil }
func (m *memCatalog) DeleteExercise(context.Context, uuid.UUID) error      { return nil }

// memSnapshots is an in-memory SnapshotStore with injectable failures.
type memSnapshots struct {
	mu         sync.Mutex
	data       []byte
	puts       int
	failPut    bool
	failDelete bool
}

func (m *memSnapshots) Get(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		return nil, nil
	}
	return append([]byte(nil), m.data...), nil
}

func (m *memSnapshots) Put(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errors.New("snapshot store down")
	}
	m.data = append([]byte(nil), data...)
	m.puts++
	return nil
}

func (m *memSnapshots) Delete(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failDelete {
		return errors.New("snapshot store down")
	}
	m.data = nil
	return nil
}

// testEnv bundles an engine with its fakes.
type testEnv struct {
	engine    *Engine
	clock     *fakeClock
	records   *memRecords
	catalog   *memCatalog
	snapshots *memSnapshots
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		clock:     newFakeClock(),
		records:   newMemRecords(),
		catalog:   &memCatalog{},
		snapshots: &memSnapshots{},
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.engine = New(env.records, env.catalog, env.snapshots, log, Options{
		AutosaveInterval: time.Hour, // tests trigger saves explicitly
		Clock:            env.clock,
	})
	t.Cleanup(env.engine.Close)
	return env
}

func (env *testEnv) addCatalog(t *testing.T, name string, groups ...string) uuid.UUID {
	t.Helper()
	ex := models.Exercise{
		ID:           uuid.New(),
		Name:         name,
		MuscleGroups: groups,
		CreatedAt:    env.clock.Now(),
	}
	if err := env.catalog.CreateExercise(context.Background(), ex); err != nil {
		t.Fatal(err)
	}
	return ex.ID
}

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
