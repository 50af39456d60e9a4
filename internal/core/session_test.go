package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionStore_Lifecycle(t *testing.T) {
	store := NewSessionStore(time.Hour)

	sess := store.Ensure("s1")
	assert.Equal(t, PhaseIdle, sess.Phase)
	assert.False(t, sess.Ready())

	run := store.Begin("s1", "book.xlsx", "key")
	store.SetPhase("s1", run, PhaseExtracting)
	sess, ok := store.Get("s1")
	require.True(t, ok)
	assert.Equal(t, PhaseExtracting, sess.Phase)
	assert.Equal(t, "book.xlsx", sess.FileName)
	assert.True(t, sess.HasCredential())

	tables := Relabel(numberedTables(2))
	assert.True(t, store.Publish("s1", run, &RunResult{Tables: tables, Report: NewValidationReport()}))
	sess, _ = store.Get("s1")
	assert.True(t, sess.Ready())
	assert.Same(t, tables, sess.Tables)
}

func TestSessionStore_BeginDropsPublishedTables(t *testing.T) {
	store := NewSessionStore(time.Hour)
	run := store.Begin("s1", "book.xlsx", "key")
	store.Publish("s1", run, &RunResult{Tables: Relabel(numberedTables(1))})

	store.Begin("s1", "other.xlsx", "key")
	sess, _ := store.Get("s1")
	assert.Nil(t, sess.Tables)
	assert.False(t, sess.Ready())
}

func TestSessionStore_FailClearsTables(t *testing.T) {
	store := NewSessionStore(time.Hour)
	run := store.Begin("s1", "book.xlsx", "key")
	store.Publish("s1", run, &RunResult{Tables: Relabel(numberedTables(1))})

	assert.True(t, store.Fail("s1", run, errors.New("extraction failed: boom")))
	sess, _ := store.Get("s1")
	assert.Equal(t, PhaseFailed, sess.Phase)
	assert.Equal(t, "extraction failed: boom", sess.Error)
	assert.Nil(t, sess.Tables)
}

func TestSessionStore_IsolatedSessions(t *testing.T) {
	store := NewSessionStore(time.Hour)
	run := store.Begin("a", "a.xlsx", "key")
	store.Publish("a", run, &RunResult{Tables: Relabel(numberedTables(1))})
	store.Begin("b", "b.xlsx", "key")

	a, _ := store.Get("a")
	b, _ := store.Get("b")
	assert.True(t, a.Ready())
	assert.False(t, b.Ready())
	assert.Equal(t, 2, store.Len())
}

func TestSessionStore_Sweep(t *testing.T) {
	store := NewSessionStore(time.Minute)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Ensure("old")
	run := store.Begin("running", "x.xlsx", "key")
	store.SetPhase("running", run, PhaseExtracting)

	now = now.Add(2 * time.Minute)
	store.Ensure("fresh")

	removed := store.Sweep()
	assert.Equal(t, 1, removed)

	_, ok := store.Get("old")
	assert.False(t, ok)
	_, ok = store.Get("running")
	assert.True(t, ok, "sessions mid-run are kept")
	_, ok = store.Get("fresh")
	assert.True(t, ok)
}

func TestSessionStore_GetReturnsCopy(t *testing.T) {
	store := NewSessionStore(time.Hour)
	store.Begin("s1", "book.xlsx", "key")

	sess, _ := store.Get("s1")
	sess.Phase = PhaseReady

	again, _ := store.Get("s1")
	assert.Equal(t, PhaseIdle, again.Phase)
}

func TestSessionStore_StaleRunCannotWrite(t *testing.T) {
	store := NewSessionStore(time.Hour)
	first := store.Begin("s1", "first.xlsx", "key")
	second := store.Begin("s1", "second.xlsx", "key")
	require.NotEqual(t, first, second)

	store.SetPhase("s1", second, PhaseExtracting)
	store.SetPhase("s1", first, PhaseTransforming)
	assert.False(t, store.Publish("s1", first, &RunResult{Tables: Relabel(numberedTables(1))}))
	assert.False(t, store.Fail("s1", first, errors.New("late failure")))

	sess, _ := store.Get("s1")
	assert.Equal(t, "second.xlsx", sess.FileName)
	assert.Equal(t, PhaseExtracting, sess.Phase)
	assert.Nil(t, sess.Tables)
	assert.Empty(t, sess.Error)

	tables := Relabel(numberedTables(2))
	assert.True(t, store.Publish("s1", second, &RunResult{Tables: tables}))
	sess, _ = store.Get("s1")
	assert.Same(t, tables, sess.Tables)
}

func TestSessionStore_UnknownSessionIgnored(t *testing.T) {
	store := NewSessionStore(time.Hour)
	assert.False(t, store.Publish("nope", 1, &RunResult{Tables: Relabel(numberedTables(1))}))
	assert.Equal(t, 0, store.Len())
}
