package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/MrEthical07/goSession/tokenstore"
)

// RunCheckStatus derives the logged-in flag from durable storage. A present
// token triggers exactly one fetch; an absent token leaves the snapshot alone.
func RunCheckStatus(ctx context.Context, deps StatusDeps) error {
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
		deps.LoadToken == nil ||
		deps.SetLoggedIn == nil ||
		deps.Fetch == nil {
		return deps.Errors.NotReady
	}
	if deps.TokenExpired != nil && deps.RemoveToken == nil {
		return deps.Errors.NotReady
	}

	var (
		found   bool
		expired bool
	)
	err := deps.Transition(ctx, func() error {
		token, err := deps.LoadToken(ctx)
		if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
			return fmt.Errorf("%w: %w", deps.Errors.Storage, err)
		}
		found = err == nil && token != ""
		if found && deps.TokenExpired != nil && deps.TokenExpired(token) {
			if err := deps.RemoveToken(ctx); err != nil {
				return fmt.Errorf("%w: %w", deps.Errors.Storage, err)
			}
			found = false
			expired = true
		}
		deps.SetLoggedIn(found)
		return nil
	})
	if err != nil {
		deps.MetricInc(deps.Metrics.StorageFailure)
		deps.Warn("goSession: status check could not read storage", "error", err)
		deps.EmitEvent(ctx, deps.EventName, false, "", err, reason("storage"))
		return err
	}

	if !found {
		deps.MetricInc(deps.Metrics.LoggedOut)
		if expired {
			deps.MetricInc(deps.Metrics.ExpiredToken)
			deps.EmitEvent(ctx, deps.EventName, true, "", nil, reason("expired_token"))
			return nil
		}
		deps.EmitEvent(ctx, deps.EventName, true, "", nil, reason("no_token"))
		return nil
	}

	deps.MetricInc(deps.Metrics.LoggedIn)
	if _, err := deps.Fetch(ctx); err != nil {
		deps.EmitEvent(ctx, deps.EventName, false, "", err, reason("fetch_failed"))
		return err
	}
	deps.EmitEvent(ctx, deps.EventName, true, "", nil, nil)
	return nil
}
