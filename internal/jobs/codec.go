package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/mhofmann/membersite/internal/domain/job"
)

// DecodePayload unmarshals a claimed job's payload into its typed struct.
func DecodePayload(j job.Job) (any, error) {
	t := JobType(j.Type)

	if !t.IsValid() {
		return nil, ErrInvalidJobType
	}
	if len(j.Payload) == 0 {
		return nil, ErrInvalidJobPayload
	}

	switch t {
	case JobSendVerificationEmail:
		var p SendVerificationEmailPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	case JobSendPasswordResetEmail:
		var p SendPasswordResetEmailPayload
		if err := json.Unmarshal(j.Payload, &p); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidJobPayload, err)
		}
		return p, nil

	default:
		return nil, ErrInvalidJobType
	}
}

// ValidatePayload performs minimal validation on decoded payloads before a
// worker commits a send attempt.
func ValidatePayload(t JobType, payload any) error {
	if !t.IsValid() {
		return ErrInvalidJobType
	}

	switch t {
	case JobSendVerificationEmail:
		var p SendVerificationEmailPayload
		switch v := payload.(type) {
		case SendVerificationEmailPayload:
			p = v
		case *SendVerificationEmailPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if p.UserID == "" || p.Email == "" || p.Token == "" {
			return ErrInvalidJobPayload
		}
		return nil

	case JobSendPasswordResetEmail:
		var p SendPasswordResetEmailPayload
		switch v := payload.(type) {
		case SendPasswordResetEmailPayload:
			p = v
		case *SendPasswordResetEmailPayload:
			p = *v
		default:
			return ErrPayloadTypeMismatch
		}
		if p.UserID == "" || p.Email == "" || p.Token == "" {
			return ErrInvalidJobPayload
		}
		return nil

	default:
		return ErrInvalidJobType
	}
}
