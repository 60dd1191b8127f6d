// Package auth admits the single operator identity. Credentials are checked
// against bcrypt hashes; a successful login yields an opaque session token
// that grants write access until revoked. Everyone else is read-only.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/bcrypt"

	"github.com/jensholdgaard/auctionboard/internal/clock"
	"github.com/jensholdgaard/auctionboard/internal/store"
)

// ErrInvalidCredentials is returned for any failed login or token check. The
// reason (unknown user vs. wrong password) is deliberately not disclosed.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Session is a live operator session.
type Session struct {
	Token     string    `json:"token"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Gate authenticates operators and tracks their sessions in memory. Sessions
// do not expire; they end at logout or process restart.
type Gate struct {
	mu       sync.RWMutex
	sessions map[string]Session

	users  store.UserRepository
	logger *slog.Logger
	tracer trace.Tracer
	clock  clock.Clock
}

// NewGate returns a Gate over the given credential store.
func NewGate(users store.UserRepository, logger *slog.Logger, tp trace.TracerProvider, clk clock.Clock) *Gate {
	return &Gate{
		sessions: make(map[string]Session),
		users:    users,
		logger:   logger,
		tracer:   tp.Tracer("github.com/jensholdgaard/auctionboard/internal/auth"),
		clock:    clk,
	}
}

// EnsureOperator creates or updates the operator credential, hashing the
// password with bcrypt. Called at startup with the configured bootstrap
// operator.
func (g *Gate) EnsureOperator(ctx context.Context, username, password string) error {
	ctx, span := g.tracer.Start(ctx, "Gate.EnsureOperator",
		trace.WithAttributes(attribute.String("username", username)),
	)
	defer span.End()

	if username == "" || password == "" {
		return fmt.Errorf("operator username and password must be set")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	if err := g.users.Upsert(ctx, &store.User{Username: username, PasswordHash: string(hash)}); err != nil {
		return fmt.Errorf("storing operator credential: %w", err)
	}

	g.logger.InfoContext(ctx, "operator credential ensured", slog.String("username", username))
	return nil
}

// Authenticate checks a credential pair and opens a session on success.
func (g *Gate) Authenticate(ctx context.Context, username, password string) (*Session, error) {
	ctx, span := g.tracer.Start(ctx, "Gate.Authenticate",
		trace.WithAttributes(attribute.String("username", username)),
	)
	defer span.End()

	user, err := g.users.Get(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("looking up user: %w", err)
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		g.logger.WarnContext(ctx, "failed login attempt", slog.String("username", username))
		return nil, ErrInvalidCredentials
	}

	sess := Session{
		Token:     uuid.NewString(),
		Username:  username,
		CreatedAt: g.clock.Now().UTC(),
	}
	g.mu.Lock()
	g.sessions[sess.Token] = sess
	g.mu.Unlock()

	g.logger.InfoContext(ctx, "operator logged in", slog.String("username", username))
	return &sess, nil
}

// Verify resolves a session token. Unknown tokens fail with
// ErrInvalidCredentials.
func (g *Gate) Verify(token string) (*Session, error) {
	g.mu.RLock()
	sess, ok := g.sessions[token]
	g.mu.RUnlock()
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return &sess, nil
}

// Revoke ends a session. Revoking an unknown token is a no-op.
func (g *Gate) Revoke(token string) {
	g.mu.Lock()
	delete(g.sessions, token)
	g.mu.Unlock()
}
