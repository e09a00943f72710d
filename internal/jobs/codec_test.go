package jobs

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/mhofmann/membersite/internal/domain/job"
)

func TestDecodePayloadVerification(t *testing.T) {
	p := SendVerificationEmailPayload{
		UserID:      "u-1",
		Email:       "ada@x.com",
		Token:       "tok",
		Locale:      "de",
		RequestedAt: time.Now().UTC(),
	}

	raw, err := p.JSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	j := job.New(job.CreateRequest{Type: string(JobSendVerificationEmail), Payload: raw})

	got, err := DecodePayload(j)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	decoded, ok := got.(SendVerificationEmailPayload)
	if !ok {
		t.Fatalf("decoded into %T, want SendVerificationEmailPayload", got)
	}

	if decoded.Email != "ada@x.com" || decoded.Token != "tok" || decoded.Locale != "de" {
		t.Errorf("round trip mismatch: %+v", decoded)
	}
}

func TestDecodePayloadRejectsUnknownType(t *testing.T) {
	j := job.New(job.CreateRequest{Type: "export_csv", Payload: json.RawMessage(`{}`)})

	_, err := DecodePayload(j)

	if !errors.Is(err, ErrInvalidJobType) {
		t.Fatalf("expected ErrInvalidJobType, got %v", err)
	}
}

func TestDecodePayloadRejectsEmptyPayload(t *testing.T) {
	j := job.New(job.CreateRequest{Type: string(JobSendPasswordResetEmail)})

	_, err := DecodePayload(j)

	if !errors.Is(err, ErrInvalidJobPayload) {
		t.Fatalf("expected ErrInvalidJobPayload, got %v", err)
	}
}

func TestValidatePayload(t *testing.T) {
	tests := []struct {
		name    string
		typ     JobType
		payload any
		wantErr error
	}{
		{
			name: "valid reset payload",
			typ:  JobSendPasswordResetEmail,
			payload: SendPasswordResetEmailPayload{
				UserID: "u-1", Email: "a@b.c", Token: "t",
			},
			wantErr: nil,
		},
		{
			name:    "missing token",
			typ:     JobSendVerificationEmail,
			payload: SendVerificationEmailPayload{UserID: "u-1", Email: "a@b.c"},
			wantErr: ErrInvalidJobPayload,
		},
		{
			name:    "wrong struct for type",
			typ:     JobSendVerificationEmail,
			payload: SendPasswordResetEmailPayload{UserID: "u", Email: "e", Token: "t"},
			wantErr: ErrPayloadTypeMismatch,
		},
		{
			name:    "unknown type",
			typ:     JobType("bogus"),
			payload: nil,
			wantErr: ErrInvalidJobType,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePayload(tc.typ, tc.payload)

			if tc.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if tc.wantErr != nil && !errors.Is(err, tc.wantErr) {
				t.Fatalf("got %v, want %v", err, tc.wantErr)
			}
		})
	}
}
