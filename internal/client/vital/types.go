package vital

import "time"

type UserRef struct {
	UserID       string `json:"user_id"`
	ClientUserID string `json:"client_user_id"`
}

type SignInToken struct {
	UserID      string `json:"user_id"`
	SignInToken string `json:"sign_in_token"`
}

// CreateUserOutcome tags how a user id was obtained from the create call.
type CreateUserOutcome string

const (
	// OutcomeCreated means the aggregator minted a new user.
	OutcomeCreated CreateUserOutcome = "created"
	// OutcomeAlreadyExists means the idempotency key was already taken
	// and the existing user id was recovered from the error payload.
	OutcomeAlreadyExists CreateUserOutcome = "already_exists"
)

type CreateUserResult struct {
	Outcome CreateUserOutcome
	UserID  string
}

type GlucoseReading struct {
	ID        string    `json:"id"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
	Type      string    `json:"type"`
}

type glucoseResponse struct {
	Glucose []GlucoseReading `json:"glucose"`
}
