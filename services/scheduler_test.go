package services

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"paperscout/models"
	"paperscout/sources"
)

func newTestScheduler(t *testing.T, h *harness) *Scheduler {
	t.Helper()
	return NewScheduler(h.svc, h.questions, time.Minute, zap.NewNop())
}

func TestSchedulerTickDispatchesDueQuestions(t *testing.T) {
	adapters := map[string]sources.Source{
		"arxiv": &fakeSource{name: "arxiv", results: []models.ArticleCandidate{candidate("a", "10.1/a", "arxiv")}},
	}
	h := newHarness(t, adapters, &fakeScorer{})
	q1 := h.addQuestion(1, "arxiv")
	q2 := h.addQuestion(2, "arxiv")
	h.questions.due = []models.ResearchQuestion{*q1, *q2}

	s := newTestScheduler(t, h)
	s.tick()

	// One execution log per due question, triggered by the scheduler.
	require.Len(t, h.logs.created, 2)
	assert.Equal(t, models.TriggerScheduler, h.logs.created[0])
	assert.Equal(t, models.TriggerScheduler, h.logs.created[1])
	assert.Len(t, h.logs.completed, 2)
}

func TestSchedulerTickNothingDue(t *testing.T) {
	h := newHarness(t, map[string]sources.Source{}, &fakeScorer{})
	s := newTestScheduler(t, h)

	s.tick()

	assert.Empty(t, h.logs.created)
}

func TestSchedulerTickSurvivesPollFailure(t *testing.T) {
	h := newHarness(t, map[string]sources.Source{}, &fakeScorer{})
	h.questions.dueErr = errors.New("db gone")
	s := newTestScheduler(t, h)

	assert.NotPanics(t, func() { s.tick() })
	assert.Empty(t, h.logs.created)
}

func TestSchedulerTickSurvivesRunFailures(t *testing.T) {
	h := newHarness(t, map[string]sources.Source{}, &fakeScorer{})
	q := h.addQuestion(1, "arxiv")
	h.questions.due = []models.ResearchQuestion{*q}
	h.registry.listErr = errors.New("registry down")
	s := newTestScheduler(t, h)

	assert.NotPanics(t, func() { s.tick() })

	require.Len(t, h.logs.completed, 1)
	assert.Equal(t, models.StatusFailed, h.logs.completed[0].status)
}

func TestSchedulerStartStop(t *testing.T) {
	h := newHarness(t, map[string]sources.Source{}, &fakeScorer{})
	s := NewScheduler(h.svc, h.questions, time.Hour, zap.NewNop())

	assert.False(t, s.IsRunning())

	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	// Idempotent.
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())

	s.Stop()
	assert.False(t, s.IsRunning())

	// Stopping twice is harmless.
	s.Stop()
	assert.False(t, s.IsRunning())
}

func TestSchedulerRestart(t *testing.T) {
	h := newHarness(t, map[string]sources.Source{}, &fakeScorer{})
	s := NewScheduler(h.svc, h.questions, time.Hour, zap.NewNop())

	require.NoError(t, s.Start())
	s.Stop()
	require.NoError(t, s.Start())
	assert.True(t, s.IsRunning())
	s.Stop()
}
