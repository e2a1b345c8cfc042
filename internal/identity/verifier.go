// Package identity confirms with the backend that the advocate logged in to
// the portal is the account the agent syncs for.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/channel"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
)

// ErrChannelUnavailable means the backend could not be asked at all, as
// opposed to answering "not verified".
var ErrChannelUnavailable = errors.New("identity verification unavailable")

// DefaultMismatchMessage is shown when the backend rejects without a reason.
const DefaultMismatchMessage = "The advocate logged in to the portal does not match your LawMate account"

// Verification is the backend's verdict.
type Verification struct {
	Verified bool
	Message  string
}

// Verifier sends the extracted identity to the backend.
type Verifier struct {
	requester channel.Requester
	logger    *logger.Logger
}

// NewVerifier creates a new identity verifier
func NewVerifier(requester channel.Requester, logger *logger.Logger) *Verifier {
	return &Verifier{requester: requester, logger: logger}
}

// Verify asks the backend to confirm identity. A transport failure returns
// an error wrapping ErrChannelUnavailable; a rejection returns
// Verified=false with the backend's message and a nil error.
func (v *Verifier) Verify(ctx context.Context, identity models.AdvocateIdentity) (Verification, error) {
	if len(strings.TrimSpace(identity.Name)) < models.MinNameLength {
		return Verification{}, fmt.Errorf("identity has no usable name")
	}

	var resp channel.VerifyResponse
	if err := v.requester.Request(ctx, channel.ActionVerifyIdentity, identity, &resp); err != nil {
		v.logger.Error("Identity verification request failed", "name", identity.Name, "error", err)
		return Verification{}, fmt.Errorf("%w: %w", ErrChannelUnavailable, err)
	}

	if !resp.Verified {
		msg := strings.TrimSpace(resp.Message)
		if msg == "" {
			msg = DefaultMismatchMessage
		}
		v.logger.Warn("Identity not verified", "name", identity.Name, "message", msg)
		return Verification{Verified: false, Message: msg}, nil
	}

	v.logger.Info("Identity verified", "name", identity.Name, "has_khc_id", identity.KhcID != nil)
	return Verification{Verified: true, Message: resp.Message}, nil
}
