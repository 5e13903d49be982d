package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/UnknownOlympus/venuemap/internal/models"
	"github.com/UnknownOlympus/venuemap/internal/session"
	"golang.org/x/oauth2"
)

const refreshKey = "refresh"

func bearer(access string) *oauth2.Token {
	return &oauth2.Token{AccessToken: access, TokenType: "Bearer"}
}

// Login exchanges credentials for a token pair and stores it in the session.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var tokens models.Tokens
	err := c.call(ctx, request{
		endpoint: "auth_login",
		method:   http.MethodPost,
		path:     "/auth/login/",
		body:     map[string]string{"username": username, "password": password},
	}, &tokens)
	if err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}

	if tokens.Access == "" {
		return fmt.Errorf("failed to log in: %w", ErrUnauthorized)
	}

	if err = c.session.SetTokens(ctx, tokens.Access, tokens.Refresh); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	c.log.InfoContext(ctx, "Logged in to places API", "username", username)
	return nil
}

// Logout drops the stored tokens.
func (c *Client) Logout(ctx context.Context) error {
	return c.session.Clear(ctx)
}

// Profile returns the profile of the signed-in account.
func (c *Client) Profile(ctx context.Context) (*models.Profile, error) {
	var profile models.Profile
	err := c.call(ctx, request{
		endpoint: "auth_profile",
		method:   http.MethodGet,
		path:     "/auth/profile/",
		auth:     true,
	}, &profile)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

// refresh returns a fresh access token after stale was rejected.
// Concurrent callers share one refresh call; a caller that finds the stored token
// already replaced by someone else's refresh uses it without refreshing again.
func (c *Client) refresh(ctx context.Context, stale string) (string, error) {
	result, err, shared := c.refreshes.Do(refreshKey, func() (any, error) {
		current, err := c.session.AccessToken(ctx)
		if err == nil && current != stale {
			return current, nil
		}

		return c.refreshAccessToken(context.WithoutCancel(ctx))
	})
	if err != nil {
		return "", err
	}

	c.log.DebugContext(ctx, "Access token refreshed", "shared", shared)
	return result.(string), nil
}

// refreshAccessToken calls the refresh endpoint. Any failure clears the session.
func (c *Client) refreshAccessToken(ctx context.Context) (string, error) {
	refreshToken, err := c.session.RefreshToken(ctx)
	if err != nil {
		c.metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		c.clearSession(ctx)
		if errors.Is(err, session.ErrNoSession) {
			return "", fmt.Errorf("%w: %w", ErrUnauthorized, ErrNoRefreshToken)
		}
		return "", fmt.Errorf("failed to read refresh token: %w", err)
	}

	var tokens models.Tokens
	err = c.call(ctx, request{
		endpoint: "auth_refresh",
		method:   http.MethodPost,
		path:     "/auth/refresh/",
		body:     map[string]string{"refresh": refreshToken},
	}, &tokens)
	if err == nil && tokens.Access == "" {
		err = errors.New("refresh response without access token")
	}
	if err != nil {
		c.metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		c.clearSession(ctx)
		return "", fmt.Errorf("%w: token refresh failed: %w", ErrUnauthorized, err)
	}

	if err = c.session.SetTokens(ctx, tokens.Access, tokens.Refresh); err != nil {
		c.metrics.TokenRefreshes.WithLabelValues("failure").Inc()
		return "", fmt.Errorf("failed to save refreshed tokens: %w", err)
	}

	c.metrics.TokenRefreshes.WithLabelValues("success").Inc()
	c.log.InfoContext(ctx, "Access token refreshed")
	return tokens.Access, nil
}

func (c *Client) clearSession(ctx context.Context) {
	if err := c.session.Clear(ctx); err != nil {
		c.log.ErrorContext(ctx, "Failed to clear session", "error", err)
	}
}
