package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// defaultTokenLifetime is assumed when the server omits expires_in.
const defaultTokenLifetime = time.Hour

// ErrTokenRejected means the authorization server refused the code or
// refresh token, as opposed to a transport failure.
var ErrTokenRejected = errors.New("token rejected by authorization server")

// Scopes requested for the managed playlist and the now-playing lookup.
var Scopes = []string{
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopeUserReadCurrentlyPlaying,
	spotifyauth.ScopeUserReadPlaybackState,
}

// SpotifyExchanger implements Exchanger against the Spotify accounts service.
type SpotifyExchanger struct {
	config *oauth2.Config
}

// ExchangerOption customizes a SpotifyExchanger.
type ExchangerOption func(*oauth2.Config)

// WithEndpoint points the exchanger at another authorization server.
func WithEndpoint(authURL, tokenURL string) ExchangerOption {
	return func(c *oauth2.Config) {
		c.Endpoint.AuthURL = authURL
		c.Endpoint.TokenURL = tokenURL
	}
}

func NewSpotifyExchanger(clientID, clientSecret, redirectURL string, opts ...ExchangerOption) *SpotifyExchanger {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   spotifyauth.AuthURL,
			TokenURL:  spotifyauth.TokenURL,
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
	for _, opt := range opts {
		opt(config)
	}
	return &SpotifyExchanger{config: config}
}

func (e *SpotifyExchanger) AuthURL(state string) string {
	return e.config.AuthCodeURL(state)
}

func (e *SpotifyExchanger) Exchange(ctx context.Context, code string) (TokenResponse, error) {
	tok, err := e.config.Exchange(ctx, code)
	if err != nil {
		return TokenResponse{}, classify("exchange", err)
	}
	return tokenResponse(tok), nil
}

func (e *SpotifyExchanger) Refresh(ctx context.Context, refreshToken string) (TokenResponse, error) {
	// An expired seed forces the source to hit the token endpoint.
	seed := &oauth2.Token{RefreshToken: refreshToken, Expiry: time.Unix(1, 0)}
	tok, err := e.config.TokenSource(ctx, seed).Token()
	if err != nil {
		return TokenResponse{}, classify("refresh", err)
	}
	resp := tokenResponse(tok)
	if resp.RefreshToken == refreshToken {
		resp.RefreshToken = ""
	}
	return resp, nil
}

func tokenResponse(tok *oauth2.Token) TokenResponse {
	expiresIn := time.Duration(tok.ExpiresIn) * time.Second
	if expiresIn <= 0 && !tok.Expiry.IsZero() {
		expiresIn = time.Until(tok.Expiry).Round(time.Second)
	}
	if expiresIn <= 0 {
		expiresIn = defaultTokenLifetime
	}
	return TokenResponse{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresIn:    expiresIn,
	}
}

func classify(op string, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
		switch retrieveErr.Response.StatusCode {
		case http.StatusBadRequest, http.StatusUnauthorized:
			return fmt.Errorf("%s: %w (%s)", op, ErrTokenRejected, retrieveErr.ErrorCode)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}
