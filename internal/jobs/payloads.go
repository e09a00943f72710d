package jobs

import (
	"encoding/json"
	"time"
)

// SendVerificationEmailPayload carries what the worker needs to build and send
// one verification mail. ID-based lookups are deliberately avoided: the token
// was already persisted on the user row in the same tx that enqueued this job.
type SendVerificationEmailPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Token       string    `json:"token"`
	Locale      string    `json:"locale"`
	RequestedAt time.Time `json:"requestedAt"`
}

// SendPasswordResetEmailPayload mirrors the verification payload for reset mail.
type SendPasswordResetEmailPayload struct {
	UserID      string    `json:"userId"`
	Email       string    `json:"email"`
	Token       string    `json:"token"`
	Locale      string    `json:"locale"`
	RequestedAt time.Time `json:"requestedAt"`
}

func (p SendVerificationEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}

func (p SendPasswordResetEmailPayload) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(p)

	if err != nil {
		return nil, err
	}
	return json.RawMessage(b), nil
}
