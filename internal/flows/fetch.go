package flows

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goSession/internal/remote"
	"github.com/MrEthical07/goSession/tokenstore"
	"github.com/MrEthical07/goSession/votes"
)

// RunFetch reads the durable token, requests the votes snapshot and commits it
// when no transition happened while the request was in flight.
func RunFetch(ctx context.Context, deps FetchDeps) (votes.Snapshot, error) {
	if deps.MetricInc == nil {
		deps.MetricInc = noopMetric
	}
	if deps.EmitEvent == nil {
		deps.EmitEvent = noopEmit
	}
	if deps.Warn == nil {
		deps.Warn = noopWarn
	}
	if deps.ObserveLatency == nil {
		deps.ObserveLatency = func(time.Duration) {}
	}
	if deps.MapFetchError == nil {
		deps.MapFetchError = func(err error) error { return err }
	}
	if deps.Generation == nil ||
		deps.LoadToken == nil ||
		deps.Request == nil ||
		deps.Commit == nil {
		return votes.Snapshot{}, deps.Errors.NotReady
	}

	generation := deps.Generation()

	token, err := deps.LoadToken(ctx)
	if err != nil && !errors.Is(err, tokenstore.ErrNotFound) {
		deps.MetricInc(deps.Metrics.StorageFailure)
		deps.Warn("goSession: token read failed before fetch", "error", err)
		wrapped := fmt.Errorf("%w: %w", deps.Errors.Storage, err)
		deps.EmitEvent(ctx, deps.EventName, false, "", wrapped, reason("storage_read"))
		return votes.Snapshot{}, wrapped
	}
	if err != nil || token == "" {
		deps.MetricInc(deps.Metrics.Unauthenticated)
		deps.EmitEvent(ctx, deps.EventName, false, "", deps.Errors.Unauthenticated, reason("no_token"))
		return votes.Snapshot{}, deps.Errors.Unauthenticated
	}

	res, err := deps.Request(ctx, token)
	if err != nil {
		var requestID string
		var te *remote.TransportError
		var se *remote.StatusError
		switch {
		case errors.As(err, &se):
			requestID = se.RequestID
			deps.MetricInc(deps.Metrics.APIError)
		case errors.As(err, &te):
			requestID = te.RequestID
			deps.MetricInc(deps.Metrics.NetworkError)
		}
		mapped := deps.MapFetchError(err)
		deps.EmitEvent(ctx, deps.EventName, false, requestID, mapped, func() map[string]string {
			meta := map[string]string{"reason": "request_failed"}
			if se != nil {
				meta["status"] = strconv.Itoa(se.StatusCode)
			}
			return meta
		})
		return votes.Snapshot{}, mapped
	}

	deps.ObserveLatency(res.Latency)
	snap := res.Snapshot.Normalize()

	if !deps.Commit(generation, snap) {
		deps.MetricInc(deps.Metrics.Superseded)
		deps.Warn("goSession: discarding fetch result overtaken by a session transition", "request_id", res.RequestID)
		deps.EmitEvent(ctx, deps.EventName, false, res.RequestID, deps.Errors.Superseded, reason("superseded"))
		return votes.Snapshot{}, deps.Errors.Superseded
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitEvent(ctx, deps.EventName, true, res.RequestID, nil, func() map[string]string {
		return map[string]string{
			"status":  strconv.Itoa(res.StatusCode),
			"records": strconv.Itoa(snap.Len()),
		}
	})
	return snap.Clone(), nil
}

func reason(r string) func() map[string]string {
	return func() map[string]string {
		return map[string]string{"reason": r}
	}
}
