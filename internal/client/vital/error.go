package vital

import (
	"fmt"
	"io"
	"net/http"

	go_json "github.com/goccy/go-json"
)

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vital api: %d %s", e.StatusCode, e.Message)
}

// errorDetail is the aggregator's nested error payload. On duplicate-user
// and duplicate-connection errors it carries the ids needed to recover.
type errorDetail struct {
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
	UserID       string `json:"user_id"`
	CreatedOn    string `json:"created_on"`
}

type errorBody struct {
	Detail go_json.RawMessage `json:"detail"`
}

// decodeErrorDetail extracts the nested detail object when present.
// The detail field is sometimes a plain string; that shape yields nil.
func decodeErrorDetail(body []byte) *errorDetail {
	var outer errorBody
	if err := go_json.Unmarshal(body, &outer); err != nil || len(outer.Detail) == 0 {
		return nil
	}

	var detail errorDetail
	if err := go_json.Unmarshal(outer.Detail, &detail); err != nil {
		return nil
	}
	return &detail
}

func parseAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    resp.Status,
		}
	}

	if detail := decodeErrorDetail(body); detail != nil && detail.ErrorMessage != "" {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    detail.ErrorMessage,
		}
	}

	var flat struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	if err := go_json.Unmarshal(body, &flat); err == nil {
		msg := flat.Detail
		if msg == "" {
			msg = flat.Message
		}
		if msg != "" {
			return &APIError{StatusCode: resp.StatusCode, Message: msg}
		}
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
	}
}
