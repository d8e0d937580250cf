package vital

import (
	"context"
	"fmt"
	"net/http"

	go_json "github.com/goccy/go-json"
)

type UserService interface {
	// Create registers clientUserID with the aggregator, using it as an
	// idempotency key. A duplicate-key error that carries the existing
	// user id resolves to OutcomeAlreadyExists instead of failing; any
	// other error (including a duplicate-key body in an unexpected
	// shape) is returned so the caller can fall back to Resolve.
	Create(ctx context.Context, clientUserID string) (*CreateUserResult, error)

	// Resolve looks up the aggregator user id for an existing client
	// user id.
	Resolve(ctx context.Context, clientUserID string) (*UserRef, error)

	// SignInToken issues a short-lived token that authenticates the
	// device SDK itself, distinct from the user's own session.
	SignInToken(ctx context.Context, userID string) (*SignInToken, error)
}

type userService struct {
	client *Client
}

type createUserRequest struct {
	ClientUserID string `json:"client_user_id"`
}

func (s *userService) Create(ctx context.Context, clientUserID string) (*CreateUserResult, error) {
	const route = "/v2/user/"

	status, body, err := s.client.doRaw(ctx, http.MethodPost, route, createUserRequest{ClientUserID: clientUserID})
	if err != nil {
		return nil, err
	}

	if status < 300 {
		var ref UserRef
		if err := go_json.Unmarshal(body, &ref); err != nil {
			return nil, fmt.Errorf("decoding create user response: %w\nbody: %s", err, string(body))
		}
		return &CreateUserResult{Outcome: OutcomeCreated, UserID: ref.UserID}, nil
	}

	if status == http.StatusBadRequest || status == http.StatusConflict {
		if detail := decodeErrorDetail(body); detail != nil && detail.UserID != "" {
			return &CreateUserResult{Outcome: OutcomeAlreadyExists, UserID: detail.UserID}, nil
		}
	}

	return nil, &APIError{StatusCode: status, Message: string(body)}
}

func (s *userService) Resolve(ctx context.Context, clientUserID string) (*UserRef, error) {
	route := "/v2/user/resolve/" + clientUserID

	var ref UserRef
	if err := s.client.do(ctx, http.MethodGet, route, nil, nil, &ref); err != nil {
		return nil, err
	}
	return &ref, nil
}

func (s *userService) SignInToken(ctx context.Context, userID string) (*SignInToken, error) {
	route := "/v2/user/" + userID + "/sign_in_token"

	var token SignInToken
	if err := s.client.do(ctx, http.MethodPost, route, nil, nil, &token); err != nil {
		return nil, err
	}
	return &token, nil
}
