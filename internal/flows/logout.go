package flows

import (
	"context"
	"fmt"
)

// RunLogout removes the durable token and resets in-memory state in one
// transition. The reset happens even when removal fails; the storage error is
// still returned.
func RunLogout(ctx context.Context, deps LogoutDeps) error {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitEvent == nil {
		deps.EmitEvent = noopEmit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.Transition == nil || deps.RemoveToken == nil || deps.Reset == nil {
		return deps.Errors.NotReady
	}

	err := deps.Transition(ctx, func() error {
		removeErr := deps.RemoveToken(ctx)
		deps.Reset()
		if removeErr != nil {
			return fmt.Errorf("%w: %w", deps.Errors.Storage, removeErr)
		}
		return nil
	})

	deps.MetricInc(deps.Metrics.Logout)
	if err != nil {
		deps.MetricInc(deps.Metrics.StorageFailure)
		deps.Warn("goSession: token removal failed during logout", "error", err)
		deps.EmitEvent(ctx, deps.EventName, false, "", err, reason("storage_remove"))
		return err
	}
	deps.EmitEvent(ctx, deps.EventName, true, "", nil, nil)
	return nil
}
