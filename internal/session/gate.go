package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/nurpe/bonus-agreements/internal/auth"
	"github.com/nurpe/bonus-agreements/internal/backend"
	"github.com/nurpe/bonus-agreements/internal/model"
)

var (
	ErrUnauthenticated = errors.New("not authenticated")
	ErrInvalidLogin    = errors.New("username and password are required")
)

// AuthAPI is the part of the backend the gate needs.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*model.Token, error)
	CurrentUser(ctx context.Context) (*model.User, error)
}

// Authenticator is the capability the rest of the console sees.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*Issued, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	Resolve(ctx context.Context, cookie string) (*model.Principal, error)
}

type Config struct {
	TTL            time.Duration
	VerifyInterval time.Duration
}

// Issued is a freshly created session and the cookie value that names it.
type Issued struct {
	Cookie    string
	ExpiresAt time.Time
	Principal model.Principal
}

type Gate struct {
	store  Store
	api    AuthAPI
	parser *auth.Parser
	cfg    Config
	log    zerolog.Logger
	now    func() time.Time
}

func NewGate(store Store, api AuthAPI, parser *auth.Parser, cfg Config, log zerolog.Logger) *Gate {
	return &Gate{
		store:  store,
		api:    api,
		parser: parser,
		cfg:    cfg,
		log:    log,
		now:    time.Now,
	}
}

func (g *Gate) Login(ctx context.Context, username, password string) (*Issued, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidLogin
	}

	token, err := g.api.Login(ctx, username, password)
	if err != nil {
		return nil, err
	}

	user, err := g.api.CurrentUser(backend.WithAccessToken(ctx, token.AccessToken))
	if err != nil {
		return nil, err
	}

	now := g.now()
	s := &model.Session{
		ID:          uuid.New(),
		AccessToken: token.AccessToken,
		User:        *user,
		CreatedAt:   now,
		VerifiedAt:  now,
		ExpiresAt:   now.Add(g.cfg.TTL),
	}
	if err := g.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	cookie, err := g.parser.Issue(s.ID, s.ExpiresAt)
	if err != nil {
		_ = g.store.Delete(ctx, s.ID)
		return nil, err
	}

	g.log.Info().Str("username", user.Username).Str("session_id", s.ID.String()).Msg("user logged in")
	return &Issued{
		Cookie:    cookie,
		ExpiresAt: s.ExpiresAt,
		Principal: principalOf(s),
	}, nil
}

func (g *Gate) Logout(ctx context.Context, sessionID uuid.UUID) error {
	if err := g.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Resolve maps a session cookie to the current principal. The backend is
// asked again once the cached user is older than the verify interval; a 401
// answer clears the stored token.
func (g *Gate) Resolve(ctx context.Context, cookie string) (*model.Principal, error) {
	if cookie == "" {
		return nil, ErrUnauthenticated
	}
	id, err := g.parser.Parse(cookie)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	s, err := g.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}

	now := g.now()
	if s.Expired(now) {
		_ = g.store.Delete(ctx, s.ID)
		return nil, ErrUnauthenticated
	}

	if now.Sub(s.VerifiedAt) >= g.cfg.VerifyInterval {
		if err := g.verify(ctx, s, now); err != nil {
			return nil, err
		}
	}

	p := principalOf(s)
	return &p, nil
}

// Restore re-authenticates every persisted session at startup, dropping
// expired ones and those the backend no longer accepts.
func (g *Gate) Restore(ctx context.Context) (int, error) {
	sessions, err := g.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	now := g.now()
	restored := 0
	for i := range sessions {
		s := &sessions[i]
		if s.Expired(now) {
			_ = g.store.Delete(ctx, s.ID)
			continue
		}
		if err := g.verify(ctx, s, now); err != nil {
			if !errors.Is(err, ErrUnauthenticated) {
				g.log.Warn().Err(err).Str("session_id", s.ID.String()).Msg("session verification deferred")
			}
			continue
		}
		restored++
	}

	g.log.Info().Int("restored", restored).Int("total", len(sessions)).Msg("sessions restored")
	return restored, nil
}

func (g *Gate) verify(ctx context.Context, s *model.Session, now time.Time) error {
	user, err := g.api.CurrentUser(backend.WithAccessToken(ctx, s.AccessToken))
	if err != nil {
		if errors.Is(err, backend.ErrUnauthorized) {
			_ = g.store.Delete(ctx, s.ID)
			g.log.Info().Str("session_id", s.ID.String()).Msg("session rejected by backend")
			return ErrUnauthenticated
		}
		return err
	}
	s.User = *user
	s.VerifiedAt = now
	if err := g.store.Save(ctx, s); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func principalOf(s *model.Session) model.Principal {
	return model.Principal{
		SessionID:   s.ID,
		AccessToken: s.AccessToken,
		User:        s.User,
	}
}

type principalKey struct{}

func WithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	ctx = context.WithValue(ctx, principalKey{}, p)
	return backend.WithAccessToken(ctx, p.AccessToken)
}

func PrincipalFrom(ctx context.Context) (*model.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*model.Principal)
	return p, ok && p != nil
}

func IsAuthenticated(ctx context.Context) bool {
	_, ok := PrincipalFrom(ctx)
	return ok
}

func CurrentUser(ctx context.Context) (model.User, bool) {
	p, ok := PrincipalFrom(ctx)
	if !ok {
		return model.User{}, false
	}
	return p.User, true
}
