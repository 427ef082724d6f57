package flows

import (
	"context"
	"fmt"
)

// RunLogin persists token, marks the session logged in and loads the votes
// snapshot. A failed fetch leaves the login in place unless
// RollbackOnFetchFailure is set.
func RunLogin(ctx context.Context, token string, deps LoginDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitEvent == nil {
		deps.EmitEvent = noopEmit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Transition == nil ||
		deps.SaveToken == nil ||
		deps.MarkLoggedIn == nil ||
		deps.Fetch == nil {
		return deps.Errors.NotReady
	}
	if deps.RollbackOnFetchFailure && deps.Rollback == nil {
		return deps.Errors.NotReady
	}

	if token == "" {
		deps.MetricInc(deps.Metrics.InvalidCredential)
		deps.EmitEvent(ctx, deps.EventName, false, "", deps.Errors.InvalidCredential, reason("empty_token"))
		return deps.Errors.InvalidCredential
	}

	var generation uint64
	err := deps.Transition(ctx, func() error {
		if err := deps.SaveToken(ctx, token); err != nil {
			return fmt.Errorf("%w: %w", deps.Errors.Storage, err)
		}
		generation = deps.MarkLoggedIn()
		return nil
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.StorageFailure)
		deps.MetricInc(deps.Metrics.Failure)
		deps.Warn("goSession: token persist failed", "error", err)
		deps.EmitEvent(ctx, deps.EventName, false, "", err, reason("storage_write"))
		return err
	}

	if _, err := deps.Fetch(ctx); err != nil {
		deps.MetricInc(deps.Metrics.Failure)
		if deps.RollbackOnFetchFailure {
			undone, rbErr := deps.Rollback(ctx, generation)
			if rbErr != nil {
				deps.MetricInc(deps.Metrics.StorageFailure)
				deps.Warn("goSession: login rollback failed", "error", rbErr)
			}
			if undone {
				deps.MetricInc(deps.Metrics.RolledBack)
			}
			deps.EmitEvent(ctx, deps.EventName, false, "", err, func() map[string]string {
				return map[string]string{
					"reason":      "fetch_failed",
					"rolled_back": fmt.Sprint(undone),
				}
			})
			return err
		}
		deps.EmitEvent(ctx, deps.EventName, false, "", err, reason("fetch_failed"))
		return err
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitEvent(ctx, deps.EventName, true, "", nil, nil)
	return nil
}
