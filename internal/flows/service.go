package flows

import (
	"context"

	"github.com/MrEthical07/goSession/votes"
)

// Service is the centralized flow runner built once by the root Store.
type Service struct {
	deps Deps
}

// New returns a flow service with immutable dependency wiring.
func New(deps Deps) Service {
	return Service{deps: deps}
}

// Initialized reports whether the service has been wired with flow deps.
func (s Service) Initialized() bool {
	return s.deps.Fetch.Request != nil && s.deps.Login.Transition != nil
}

func (s Service) Login(ctx context.Context, token string) error {
	return RunLogin(ctx, token, s.deps.Login)
}

func (s Service) Logout(ctx context.Context) error {
	return RunLogout(ctx, s.deps.Logout)
}

func (s Service) CheckStatus(ctx context.Context) error {
	return RunCheckStatus(ctx, s.deps.Status)
}

func (s Service) Fetch(ctx context.Context) (votes.Snapshot, error) {
	return RunFetch(ctx, s.deps.Fetch)
}
