package supabase

import (
	"context"
	"errors"
	"net/http"
	"net/url"
)

// ErrConfirmationRequired is returned by SignUp when the backend requires
// email confirmation before issuing a session.
var ErrConfirmationRequired = errors.New("email confirmation required before sign-in")

const tokenRoute = "/auth/v1/token"

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	query := url.Values{"grant_type": {"password"}}

	var session Session
	if err := c.do(ctx, http.MethodPost, tokenRoute, query, passwordGrant{Email: email, Password: password}, "", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*Session, error) {
	const route = "/auth/v1/signup"

	var session Session
	if err := c.do(ctx, http.MethodPost, route, nil, signupRequest{Email: email, Password: password}, "", &session); err != nil {
		return nil, err
	}
	if session.AccessToken == "" {
		return nil, ErrConfirmationRequired
	}
	return &session, nil
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	query := url.Values{"grant_type": {"refresh_token"}}

	var session Session
	if err := c.do(ctx, http.MethodPost, tokenRoute, query, refreshGrant{RefreshToken: refreshToken}, "", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

// ExchangeCode completes the PKCE browser flow, trading the authorization
// code plus the original verifier for a session.
func (c *Client) ExchangeCode(ctx context.Context, code, verifier string) (*Session, error) {
	query := url.Values{"grant_type": {"pkce"}}

	var session Session
	if err := c.do(ctx, http.MethodPost, tokenRoute, query, pkceGrant{AuthCode: code, CodeVerifier: verifier}, "", &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	const route = "/auth/v1/logout"
	return c.do(ctx, http.MethodPost, route, nil, nil, accessToken, nil)
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	const route = "/auth/v1/user"

	var user User
	if err := c.do(ctx, http.MethodGet, route, nil, nil, accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// AuthorizeURL builds the browser URL that starts an OAuth provider flow.
// The redirect back carries a code for ExchangeCode.
func (c *Client) AuthorizeURL(provider, redirectTo, state, codeChallenge string) string {
	query := url.Values{
		"provider":              {provider},
		"redirect_to":           {redirectTo},
		"state":                 {state},
		"code_challenge":        {codeChallenge},
		"code_challenge_method": {"s256"},
	}
	return c.baseURL + "/auth/v1/authorize?" + query.Encode()
}
