package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	goSession "github.com/MrEthical07/goSession"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

const maxLoginBody = 64 << 10

// Session is the subset of *goSession.Store the handler drives.
type Session interface {
	Login(ctx context.Context, token string) error
	Logout(ctx context.Context) error
	CheckLoginStatus(ctx context.Context) error
	FetchUserVotesAndRatings(ctx context.Context) (goSession.Snapshot, error)
	IsLoggedIn() bool
	Snapshot() goSession.Snapshot
}

// Handler serves the session routes.
type Handler struct {
	session Session
	logger  *zap.Logger
	timeout time.Duration
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithTimeout bounds each request. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) { h.timeout = d }
}

func New(session Session, opts ...Option) *Handler {
	h := &Handler{
		session: session,
		logger:  zap.NewNop(),
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	h.logger = h.logger.Named("httpapi")
	return h
}

// Register mounts the session routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/session", func(r chi.Router) {
		r.Use(chimw.RequestID)
		r.Use(chimw.Recoverer)
		if h.timeout > 0 {
			r.Use(chimw.Timeout(h.timeout))
		}
		r.Use(h.sessionContext)

		r.Get("/", h.handleState)
		r.With(RequireLoggedIn(h.session)).Get("/votes", h.handleVotes)
		r.Post("/login", h.handleLogin)
		r.Post("/logout", h.handleLogout)
		r.Post("/check", h.handleCheck)
		r.Post("/refresh", h.handleRefresh)
	})
}

// NewRouter returns a chi router with the session routes mounted.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

type stateResponse struct {
	IsLoggedIn          bool               `json:"isLoggedIn"`
	UserVotesAndRatings goSession.Snapshot `json:"userVotesAndRatings"`
}

type loginRequest struct {
	Token string `json:"token"`
}

func (h *Handler) state() stateResponse {
	return stateResponse{
		IsLoggedIn:          h.session.IsLoggedIn(),
		UserVotesAndRatings: h.session.Snapshot(),
	}
}

func (h *Handler) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleVotes(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.session.Snapshot())
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	token, err := loginToken(r)
	if err != nil {
		h.logger.Debug("login request rejected",
			zap.String("request_id", chimw.GetReqID(r.Context())),
			zap.Error(err))
		h.writeError(w, r, goSession.ErrInvalidCredential)
		return
	}
	if err := h.session.Login(r.Context(), token); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Logout(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.session.CheckLoginStatus(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.session.FetchUserVotesAndRatings(r.Context()); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.state())
}

// sessionContext tags store operations with the HTTP caller and client address.
func (h *Handler) sessionContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := goSession.WithCaller(r.Context(), "http")
		if ip := clientIP(r.RemoteAddr); ip != "" {
			ctx = goSession.WithClientIP(ctx, ip)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// loginToken reads the token from a JSON body, falling back to the
// Authorization header.
func loginToken(r *http.Request) (string, error) {
	if token, ok := bearerToken(r.Header.Get("Authorization")); ok {
		return token, nil
	}
	if r.Body == nil {
		return "", errors.New("missing token")
	}
	var req loginRequest
	dec := json.NewDecoder(io.LimitReader(r.Body, maxLoginBody))
	if err := dec.Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return "", errors.New("missing token")
		}
		return "", err
	}
	return req.Token, nil
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if len(value) < len(bearer) || !strings.EqualFold(value[:len(bearer)], bearer) {
		return "", false
	}

	token := strings.TrimSpace(value[len(bearer):])
	if token == "" {
		return "", false
	}

	return token, true
}

func clientIP(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
