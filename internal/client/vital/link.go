package vital

import (
	"context"
	"net/http"
	"strings"
)

type LinkService interface {
	// ConnectDemo establishes a data connection between an aggregator
	// user and one provider. Connections are additive: a duplicate
	// create reports created=false, never an error.
	ConnectDemo(ctx context.Context, userID string, provider ProviderSlug) (created bool, err error)
}

type linkService struct {
	client *Client
}

type connectRequest struct {
	UserID   string       `json:"user_id"`
	Provider ProviderSlug `json:"provider"`
}

func (s *linkService) ConnectDemo(ctx context.Context, userID string, provider ProviderSlug) (bool, error) {
	const route = "/v2/link/connect/demo"

	status, body, err := s.client.doRaw(ctx, http.MethodPost, route, connectRequest{UserID: userID, Provider: provider})
	if err != nil {
		return false, err
	}

	if status < 300 {
		return true, nil
	}

	if status == http.StatusBadRequest || status == http.StatusConflict {
		if isAlreadyConnected(body) {
			return false, nil
		}
	}

	return false, &APIError{StatusCode: status, Message: string(body)}
}

func isAlreadyConnected(body []byte) bool {
	if detail := decodeErrorDetail(body); detail != nil {
		msg := strings.ToLower(detail.ErrorMessage)
		return strings.Contains(msg, "already exists") || strings.Contains(msg, "already connected")
	}
	return strings.Contains(strings.ToLower(string(body)), "already exists")
}
