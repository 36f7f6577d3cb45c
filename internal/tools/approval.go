package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/simhastha_samwad/backend/internal/models"
	"github.com/simhastha_samwad/backend/internal/service"
)

const (
	StatusOK      = "ok"
	StatusPending = "pending"
	StatusError   = "error"

	EventApproval = "approval"
)

type ApprovalStore interface {
	CreateApproval(ctx context.Context, toolName string, args json.RawMessage) (models.Approval, error)
	ClaimApproval(ctx context.Context, id int64, status, actor string) (models.Approval, error)
	SetApprovalResult(ctx context.Context, id int64, result json.RawMessage) (models.Approval, error)
}

type Executor interface {
	Execute(ctx context.Context, name string, raw json.RawMessage) (any, error)
}

type InvokeResult struct {
	Status     string `json:"status"`
	Result     any    `json:"result,omitempty"`
	ApprovalID int64  `json:"approval_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Gate applies the risk policy in front of the dispatcher. High risk tools
// are parked as pending approvals unless auto-approve is on.
type Gate struct {
	Store    ApprovalStore
	Executor Executor
	Settings service.SettingsSource
	Events   service.Broadcaster
	Logger   zerolog.Logger
}

// Invoke runs or parks a tool call. Unknown tools are rejected with
// ErrUnknownTool before anything is stored. Argument and execution failures
// come back as a StatusError result.
func (g *Gate) Invoke(ctx context.Context, name string, args json.RawMessage, dryRun bool) (InvokeResult, error) {
	tool, ok := Lookup(name)
	if !ok {
		return InvokeResult{}, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}

	if dryRun {
		return InvokeResult{Status: StatusOK, Result: map[string]any{
			"dry_run": true,
			"tool":    name,
			"args":    args,
		}}, nil
	}

	if _, err := Decode(name, args); err != nil {
		return InvokeResult{Status: StatusError, Error: err.Error()}, nil
	}

	if tool.Risk == RiskHigh && !g.Settings.Settings().AutoApproveHighRisk {
		rec, err := g.Store.CreateApproval(ctx, name, args)
		if err != nil {
			return InvokeResult{}, fmt.Errorf("create approval: %w", err)
		}
		g.Logger.Info().Int64("approval_id", rec.ID).Str("tool", name).Msg("tool call awaiting approval")
		g.publish(ctx, rec)
		return InvokeResult{Status: StatusPending, ApprovalID: rec.ID}, nil
	}

	result, err := g.Executor.Execute(ctx, name, args)
	if err != nil {
		g.Logger.Warn().Err(err).Str("tool", name).Msg("tool call failed")
		return InvokeResult{Status: StatusError, Error: err.Error()}, nil
	}
	return InvokeResult{Status: StatusOK, Result: result}, nil
}

// Decide records the decision on a pending approval. The claim is a single
// conditional update, so an approved call executes at most once no matter
// how many deciders race. Failures of the executed tool are stored in the
// record's result; the approval itself stays approved.
func (g *Gate) Decide(ctx context.Context, id int64, approve bool, actor string) (models.Approval, error) {
	status := models.ApprovalDenied
	if approve {
		status = models.ApprovalApproved
	}
	rec, err := g.Store.ClaimApproval(ctx, id, status, actor)
	if err != nil {
		return models.Approval{}, err
	}
	if !approve {
		g.Logger.Info().Int64("approval_id", id).Str("actor", actor).Msg("approval denied")
		g.publish(ctx, rec)
		return rec, nil
	}

	var payload json.RawMessage
	result, execErr := g.Executor.Execute(ctx, rec.ToolName, rec.Args)
	if execErr != nil {
		payload = errorPayload(execErr)
	} else if payload, err = json.Marshal(result); err != nil {
		payload = errorPayload(err)
	}

	updated, err := g.Store.SetApprovalResult(ctx, id, payload)
	if err != nil {
		g.Logger.Error().Err(err).Int64("approval_id", id).Msg("approval result not stored")
		rec.Result = payload
		updated = rec
	}
	g.Logger.Info().
		Int64("approval_id", id).
		Str("tool", rec.ToolName).
		Str("actor", actor).
		Bool("failed", execErr != nil).
		Msg("approval executed")
	g.publish(ctx, updated)
	return updated, nil
}

func (g *Gate) publish(ctx context.Context, rec models.Approval) {
	if g.Events != nil {
		g.Events.Publish(ctx, EventApproval, rec)
	}
}

func errorPayload(err error) json.RawMessage {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	return b
}
