// Package auth owns the Spotify credential lifecycle: initial authorization,
// proactive and request-time refresh, and fallback to interactive
// re-authorization when a refresh token is revoked.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"

	"dynamite/internal/core"
)

const (
	triggerRequest   = "request"
	triggerProactive = "proactive"
	triggerForced    = "forced"
	triggerBootstrap = "bootstrap"
)

// TokenResponse is what the authorization server hands back.
type TokenResponse struct {
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Exchanger talks to the authorization server.
type Exchanger interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (TokenResponse, error)
	// Refresh may return an empty RefreshToken, meaning the old one stays valid.
	Refresh(ctx context.Context, refreshToken string) (TokenResponse, error)
}

// AuthorizationRequester tells an operator that interactive authorization is needed.
type AuthorizationRequester interface {
	RequestAuthorization(ctx context.Context, team, authURL string)
}

// Authorizer obtains an authorization code interactively.
type Authorizer interface {
	AuthorizationCode(ctx context.Context, authURL string) (string, error)
}

// Manager keeps one active credential per team.
type Manager struct {
	exchanger Exchanger
	store     core.CredentialStore
	requester AuthorizationRequester
	margin    time.Duration
	metrics   core.Metrics
	logger    *zap.Logger
	now       func() time.Time

	mu        sync.RWMutex
	creds     map[string]core.Credential
	needsAuth map[string]bool
	requested map[string]bool
	states    map[string]string

	flight singleflight.Group
}

// NewManager creates a manager. requester may be nil.
func NewManager(exchanger Exchanger, store core.CredentialStore, requester AuthorizationRequester,
	margin time.Duration, metrics core.Metrics, logger *zap.Logger) *Manager {
	if metrics == nil {
		metrics = core.NopMetrics{}
	}
	return &Manager{
		exchanger: exchanger,
		store:     store,
		requester: requester,
		margin:    margin,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
		creds:     make(map[string]core.Credential),
		needsAuth: make(map[string]bool),
		requested: make(map[string]bool),
		states:    make(map[string]string),
	}
}

// SetRequester replaces the authorization requester. Used to wire the chat
// notifier after the manager exists.
func (m *Manager) SetRequester(requester AuthorizationRequester) {
	m.mu.Lock()
	m.requester = requester
	m.mu.Unlock()
}

// EnsureValidCredential returns a credential that does not expire within the
// safety margin, refreshing it first when needed.
func (m *Manager) EnsureValidCredential(ctx context.Context, team string) (core.Credential, error) {
	m.mu.RLock()
	cred, ok := m.creds[team]
	needsAuth := m.needsAuth[team]
	m.mu.RUnlock()

	if needsAuth {
		m.requestAuthorization(ctx, team)
		return core.Credential{}, core.ErrAuthExpired
	}

	if ok && cred.HasAccess() && !cred.ExpiresWithin(m.margin, m.now()) {
		return cred, nil
	}

	return m.refresh(ctx, team, triggerRequest)
}

// RefreshNow refreshes unconditionally.
func (m *Manager) RefreshNow(ctx context.Context, team string) (core.Credential, error) {
	return m.refresh(ctx, team, triggerForced)
}

// HasValidCredential reports whether team currently holds an unexpired credential.
func (m *Manager) HasValidCredential(team string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cred, ok := m.creds[team]
	return ok && !m.needsAuth[team] && cred.HasAccess() && !cred.ExpiresWithin(0, m.now())
}

// NeedsAuthorization reports whether team waits for an interactive authorization.
func (m *Manager) NeedsAuthorization(team string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.needsAuth[team]
}

// refresh serializes refreshes per team; concurrent callers share the
// in-flight result.
func (m *Manager) refresh(ctx context.Context, team, trigger string) (core.Credential, error) {
	ch := m.flight.DoChan(team, func() (any, error) {
		return m.doRefresh(context.WithoutCancel(ctx), team, trigger)
	})

	select {
	case <-ctx.Done():
		return core.Credential{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return core.Credential{}, res.Err
		}
		return res.Val.(core.Credential), nil
	}
}

func (m *Manager) doRefresh(ctx context.Context, team, trigger string) (core.Credential, error) {
	m.mu.RLock()
	cred, ok := m.creds[team]
	needsAuth := m.needsAuth[team]
	m.mu.RUnlock()

	if needsAuth {
		return core.Credential{}, core.ErrAuthExpired
	}

	if !ok {
		stored, err := m.store.LoadCredential(ctx, team)
		if err != nil {
			m.metrics.RecordRefresh(trigger, "store_error")
			return core.Credential{}, fmt.Errorf("failed to load credential for team %s: %w", team, err)
		}
		if stored == nil {
			m.metrics.RecordRefresh(trigger, "no_credential")
			return core.Credential{}, core.ErrAuthExpired
		}
		cred = *stored
		m.mu.Lock()
		m.creds[team] = cred
		m.mu.Unlock()

		if trigger == triggerRequest && cred.HasAccess() && !cred.ExpiresWithin(m.margin, m.now()) {
			return cred, nil
		}
	}

	if cred.RefreshToken == "" {
		m.metrics.RecordRefresh(trigger, "no_refresh_token")
		return core.Credential{}, core.ErrAuthExpired
	}

	resp, err := m.exchanger.Refresh(ctx, cred.RefreshToken)
	if err != nil {
		if errors.Is(err, ErrTokenRejected) {
			m.metrics.RecordRefresh(trigger, "rejected")
			m.logger.Warn("Refresh token rejected, interactive authorization required",
				zap.String("team", team),
				zap.String("trigger", trigger),
				zap.Error(err))
			m.markNeedsAuth(ctx, team)
		} else {
			m.metrics.RecordRefresh(trigger, "error")
			m.logger.Warn("Credential refresh failed",
				zap.String("team", team),
				zap.String("trigger", trigger),
				zap.Error(err))
		}
		return core.Credential{}, fmt.Errorf("%w: %w", core.ErrRefreshFailed, err)
	}

	refreshToken := resp.RefreshToken
	if refreshToken == "" {
		refreshToken = cred.RefreshToken
	}
	fresh := core.NewCredential(resp.AccessToken, refreshToken, resp.ExpiresIn, m.now())

	if err := m.store.SaveCredential(ctx, team, fresh); err != nil {
		m.logger.Warn("Failed to persist refreshed credential", zap.String("team", team), zap.Error(err))
	}

	m.mu.Lock()
	m.creds[team] = fresh
	m.mu.Unlock()

	m.metrics.RecordRefresh(trigger, "ok")
	m.logger.Info("Refreshed credential",
		zap.String("team", team),
		zap.String("trigger", trigger),
		zap.Duration("expires_in", resp.ExpiresIn))
	return fresh, nil
}

// markNeedsAuth drops the in-memory credential so nothing keeps using a
// revoked token, then asks for interactive authorization once.
func (m *Manager) markNeedsAuth(ctx context.Context, team string) {
	m.mu.Lock()
	delete(m.creds, team)
	m.needsAuth[team] = true
	m.mu.Unlock()

	m.requestAuthorization(ctx, team)
}

func (m *Manager) requestAuthorization(ctx context.Context, team string) {
	m.mu.Lock()
	if m.requested[team] {
		m.mu.Unlock()
		return
	}
	m.requested[team] = true
	requester := m.requester
	m.mu.Unlock()

	authURL := m.AuthorizationURL(team)
	m.logger.Warn("Spotify authorization required",
		zap.String("team", team),
		zap.String("auth_url", authURL))
	if requester != nil {
		requester.RequestAuthorization(ctx, team, authURL)
	}
}

// AuthorizationURL returns the consent URL for team. The state embeds the
// team and a nonce checked by CompleteAuthorization.
func (m *Manager) AuthorizationURL(team string) string {
	state := team + ":" + uuid.NewString()
	m.mu.Lock()
	// Only the latest link per team stays valid.
	for pending, owner := range m.states {
		if owner == team {
			delete(m.states, pending)
		}
	}
	m.states[state] = team
	m.mu.Unlock()
	return m.exchanger.AuthURL(state)
}

// CompleteAuthorization resolves the callback state to its team and
// performs the exchange. The state is consumed only by a successful
// exchange, so a rejected code leaves the link usable.
func (m *Manager) CompleteAuthorization(ctx context.Context, state, code string) (string, core.Credential, error) {
	m.mu.Lock()
	team, ok := m.states[state]
	m.mu.Unlock()

	if !ok {
		return "", core.Credential{}, fmt.Errorf("%w: unknown authorization state %q", core.ErrInvalidAuthCode, state)
	}

	cred, err := m.PerformAuthorizationExchange(ctx, team, code)
	if err != nil {
		return team, core.Credential{}, err
	}

	m.mu.Lock()
	delete(m.states, state)
	m.mu.Unlock()
	return team, cred, nil
}

// PerformAuthorizationExchange trades a one-time code for a credential and
// stores it.
func (m *Manager) PerformAuthorizationExchange(ctx context.Context, team, code string) (core.Credential, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return core.Credential{}, fmt.Errorf("%w: empty code", core.ErrInvalidAuthCode)
	}

	resp, err := m.exchanger.Exchange(ctx, code)
	if err != nil {
		if errors.Is(err, ErrTokenRejected) {
			return core.Credential{}, fmt.Errorf("%w: %w", core.ErrInvalidAuthCode, err)
		}
		return core.Credential{}, fmt.Errorf("authorization exchange failed: %w", err)
	}

	cred := core.NewCredential(resp.AccessToken, resp.RefreshToken, resp.ExpiresIn, m.now())
	if err := m.store.SaveCredential(ctx, team, cred); err != nil {
		return core.Credential{}, fmt.Errorf("failed to save credential: %w", err)
	}

	m.mu.Lock()
	m.creds[team] = cred
	delete(m.needsAuth, team)
	delete(m.requested, team)
	m.mu.Unlock()

	m.logger.Info("Authorization completed",
		zap.String("team", team),
		zap.Time("expires_at", cred.ExpiresAt()))
	return cred, nil
}

// Bootstrap loads the stored credential and refreshes it. When nothing
// usable exists it runs the interactive authorizer until a code is
// accepted; with a nil authorizer it requests authorization and returns.
func (m *Manager) Bootstrap(ctx context.Context, team string, authorizer Authorizer) error {
	stored, err := m.store.LoadCredential(ctx, team)
	if err != nil {
		return fmt.Errorf("failed to load credential: %w", err)
	}

	if stored != nil {
		m.mu.Lock()
		m.creds[team] = *stored
		m.mu.Unlock()

		_, err := m.refresh(ctx, team, triggerBootstrap)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		m.logger.Warn("Stored credential could not be refreshed", zap.Error(err))
	}

	if authorizer == nil {
		m.markNeedsAuth(ctx, team)
		return nil
	}

	for {
		code, err := authorizer.AuthorizationCode(ctx, m.AuthorizationURL(team))
		if err != nil {
			return fmt.Errorf("interactive authorization failed: %w", err)
		}

		_, err = m.PerformAuthorizationExchange(ctx, team, code)
		if err == nil {
			return nil
		}
		if !errors.Is(err, core.ErrInvalidAuthCode) {
			return err
		}
		m.logger.Warn("Authorization code rejected, asking again", zap.Error(err))
	}
}

// RunProactiveRefresh refreshes team every interval until ctx is done.
// Failures are logged, never returned.
func (m *Manager) RunProactiveRefresh(ctx context.Context, team string, interval time.Duration) error {
	if interval <= 0 {
		interval = core.DefaultRefreshInterval
	}
	m.logger.Info("Starting proactive credential refresh",
		zap.String("team", team),
		zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Proactive credential refresh stopped")
			return nil
		case <-ticker.C:
			m.proactiveRefresh(ctx, team)
		}
	}
}

func (m *Manager) proactiveRefresh(ctx context.Context, team string) {
	if m.NeedsAuthorization(team) {
		m.logger.Debug("Skipping proactive refresh, waiting for authorization", zap.String("team", team))
		return
	}
	if _, err := m.refresh(ctx, team, triggerProactive); err != nil && ctx.Err() == nil {
		m.logger.Error("Proactive credential refresh failed", zap.String("team", team), zap.Error(err))
	}
}

// TokenSource exposes the team's credential to oauth2.Transport so expiry is
// checked again right before each API request.
func (m *Manager) TokenSource(ctx context.Context, team string) oauth2.TokenSource {
	return &teamTokenSource{ctx: ctx, manager: m, team: team}
}

type teamTokenSource struct {
	ctx     context.Context
	manager *Manager
	team    string
}

func (s *teamTokenSource) Token() (*oauth2.Token, error) {
	cred, err := s.manager.EnsureValidCredential(s.ctx, s.team)
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: cred.AccessToken,
		TokenType:   "Bearer",
		Expiry:      cred.ExpiresAt(),
	}, nil
}
