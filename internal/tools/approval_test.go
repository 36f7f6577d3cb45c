package tools

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simhastha_samwad/backend/internal/config"
	"github.com/simhastha_samwad/backend/internal/db"
	"github.com/simhastha_samwad/backend/internal/models"
)

type memApprovals struct {
	mu      sync.Mutex
	records map[int64]models.Approval
	next    int64
}

func newMemApprovals() *memApprovals {
	return &memApprovals{records: map[int64]models.Approval{}}
}

func (m *memApprovals) CreateApproval(ctx context.Context, toolName string, args json.RawMessage) (models.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	a := models.Approval{ID: m.next, ToolName: toolName, Args: args, Status: models.ApprovalPending, CreatedAt: time.Now()}
	m.records[a.ID] = a
	return a, nil
}

func (m *memApprovals) ClaimApproval(ctx context.Context, id int64, status, actor string) (models.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.records[id]
	if !ok {
		return models.Approval{}, db.ErrNotFound
	}
	if a.Status != models.ApprovalPending {
		return models.Approval{}, db.ErrAlreadyDecided
	}
	now := time.Now()
	a.Status, a.DecidedAt, a.DecidedBy = status, &now, actor
	m.records[id] = a
	return a, nil
}

func (m *memApprovals) SetApprovalResult(ctx context.Context, id int64, result json.RawMessage) (models.Approval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.records[id]
	if !ok {
		return models.Approval{}, db.ErrNotFound
	}
	a.Result = result
	m.records[id] = a
	return a, nil
}

func (m *memApprovals) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type countingExecutor struct {
	calls atomic.Int32
	err   error
}

func (e *countingExecutor) Execute(ctx context.Context, name string, raw json.RawMessage) (any, error) {
	e.calls.Add(1)
	if e.err != nil {
		return nil, e.err
	}
	return map[string]any{"tool": name}, nil
}

type staticSettings struct{ s config.Settings }

func (s staticSettings) Settings() config.Settings { return s.s }

type eventLog struct {
	mu    sync.Mutex
	types []string
}

func (l *eventLog) Publish(ctx context.Context, eventType string, data any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.types = append(l.types, eventType)
}

func newGate(autoApprove bool) (*Gate, *memApprovals, *countingExecutor, *eventLog) {
	store := newMemApprovals()
	exec := &countingExecutor{}
	events := &eventLog{}
	g := &Gate{
		Store:    store,
		Executor: exec,
		Settings: staticSettings{config.Settings{AutoApproveHighRisk: autoApprove}},
		Events:   events,
		Logger:   zerolog.Nop(),
	}
	return g, store, exec, events
}

var broadcastArgs = json.RawMessage(`{"message":"Gate 5 closed","zones":["Zone 4"]}`)

func TestInvokeUnknownToolCreatesNothing(t *testing.T) {
	g, store, exec, _ := newGate(false)

	_, err := g.Invoke(context.Background(), "launch_rockets", nil, false)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Zero(t, store.count())
	assert.Zero(t, exec.calls.Load())
}

func TestInvokeDryRunHasNoEffect(t *testing.T) {
	g, store, exec, _ := newGate(false)

	res, err := g.Invoke(context.Background(), "broadcast_notice", broadcastArgs, true)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	out := res.Result.(map[string]any)
	assert.Equal(t, true, out["dry_run"])
	assert.Equal(t, "broadcast_notice", out["tool"])
	assert.Zero(t, store.count())
	assert.Zero(t, exec.calls.Load())
}

func TestInvokeLowRiskRunsImmediately(t *testing.T) {
	g, store, exec, _ := newGate(false)

	res, err := g.Invoke(context.Background(), "classify_intent", json.RawMessage(`{"text":"where is toilet"}`), false)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.EqualValues(t, 1, exec.calls.Load())
	assert.Zero(t, store.count())
}

func TestInvokeReportsExecutionFailure(t *testing.T) {
	g, _, exec, _ := newGate(false)
	exec.err = errors.New("feedback_not_found")

	res, err := g.Invoke(context.Background(), "update_issue_status", json.RawMessage(`{"id":99,"status":"resolved"}`), false)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.Equal(t, "feedback_not_found", res.Error)
}

func TestInvokeRejectsBadArgsBeforeParking(t *testing.T) {
	g, store, _, _ := newGate(false)

	res, err := g.Invoke(context.Background(), "broadcast_notice", json.RawMessage(`{"zones":["Zone 4"]}`), false)
	require.NoError(t, err)
	assert.Equal(t, StatusError, res.Status)
	assert.Contains(t, res.Error, "Message")
	assert.Zero(t, store.count())
}

func TestPendingApprovalExecutesOnce(t *testing.T) {
	g, store, exec, events := newGate(false)
	ctx := context.Background()

	res, err := g.Invoke(ctx, "broadcast_notice", broadcastArgs, false)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, res.Status)
	require.NotZero(t, res.ApprovalID)
	assert.Zero(t, exec.calls.Load())
	assert.Equal(t, 1, store.count())

	rec, err := g.Decide(ctx, res.ApprovalID, true, "ops")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, rec.Status)
	assert.Equal(t, "ops", rec.DecidedBy)
	assert.JSONEq(t, `{"tool":"broadcast_notice"}`, string(rec.Result))
	assert.EqualValues(t, 1, exec.calls.Load())

	_, err = g.Decide(ctx, res.ApprovalID, true, "ops")
	assert.ErrorIs(t, err, db.ErrAlreadyDecided)
	_, err = g.Decide(ctx, res.ApprovalID, false, "ops")
	assert.ErrorIs(t, err, db.ErrAlreadyDecided)
	assert.EqualValues(t, 1, exec.calls.Load())
	assert.Equal(t, []string{EventApproval, EventApproval}, events.types)
}

func TestConcurrentDecisionsExecuteOnce(t *testing.T) {
	g, _, exec, _ := newGate(false)
	ctx := context.Background()
	res, err := g.Invoke(ctx, "escalate_emergency", json.RawMessage(`{"message":"crowd crush"}`), false)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.Decide(ctx, res.ApprovalID, true, "ops"); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, 1, exec.calls.Load())
}

func TestDenyDoesNotExecute(t *testing.T) {
	g, _, exec, _ := newGate(false)
	ctx := context.Background()
	res, err := g.Invoke(ctx, "send_template", json.RawMessage(`{"phone_number":"+91","body":"hi"}`), false)
	require.NoError(t, err)

	rec, err := g.Decide(ctx, res.ApprovalID, false, "")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalDenied, rec.Status)
	assert.Zero(t, exec.calls.Load())
}

func TestDecideUnknownApproval(t *testing.T) {
	g, _, _, _ := newGate(false)
	_, err := g.Decide(context.Background(), 404, true, "ops")
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestApprovedFailureIsStoredInResult(t *testing.T) {
	g, _, exec, _ := newGate(false)
	ctx := context.Background()
	res, err := g.Invoke(ctx, "send_media", json.RawMessage(`{"phone_number":"+91","image_url":"https://example.com/a.png"}`), false)
	require.NoError(t, err)

	exec.err = errors.New("image_fetch_failed")
	rec, err := g.Decide(ctx, res.ApprovalID, true, "ops")
	require.NoError(t, err)
	assert.Equal(t, models.ApprovalApproved, rec.Status)
	assert.JSONEq(t, `{"error":"image_fetch_failed"}`, string(rec.Result))
}

func TestAutoApproveRunsHighRiskDirectly(t *testing.T) {
	g, store, exec, _ := newGate(true)

	res, err := g.Invoke(context.Background(), "broadcast_notice", broadcastArgs, false)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.EqualValues(t, 1, exec.calls.Load())
	assert.Zero(t, store.count())
}
