// Package channel models the bidirectional message protocol between the
// agent and the LawMate backend: request/response calls plus a push stream
// of status updates.
package channel

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
)

// Action names a message type.
type Action string

const (
	ActionLogin              Action = "LOGIN"
	ActionVerifyIdentity     Action = "VERIFY_IDENTITY"
	ActionSyncCases          Action = "SYNC_CASES"
	ActionTriggerAutoSync    Action = "TRIGGER_AUTO_SYNC"
	ActionUpdateStatus       Action = "UPDATE_STATUS"
	ActionUpdateProgress     Action = "UPDATE_PROGRESS"
	ActionUpdateSyncProgress Action = "UPDATE_SYNC_PROGRESS"
	ActionSyncSelectedCase   Action = "SYNC_SELECTED_CASE"
	ActionShowError          Action = "SHOW_ERROR"
)

var (
	// ErrReceiverMissing means nothing is listening on the other end, e.g.
	// the backend is down or the route does not exist.
	ErrReceiverMissing = errors.New("receiving end does not exist")
	// ErrChannel covers every other transport or protocol failure.
	ErrChannel = errors.New("channel request failed")
)

// Envelope is one message on the wire.
type Envelope struct {
	ID      string          `json:"id,omitempty"`
	Action  Action          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Requester sends a request and decodes the response into out.
type Requester interface {
	Request(ctx context.Context, action Action, payload, out interface{}) error
}

// Subscriber delivers inbound envelopes until ctx is done.
type Subscriber interface {
	Subscribe(ctx context.Context) (<-chan Envelope, error)
}

// Sync response statuses
const (
	SyncStatusSuccess = "success"
	SyncStatusStarted = "sync_started"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	AccessToken string `json:"access_token"`
}

type VerifyResponse struct {
	Verified bool   `json:"verified"`
	Message  string `json:"message,omitempty"`
}

type SyncRequest struct {
	Identity models.AdvocateIdentity `json:"identity"`
	Cases    []models.CaseRecord     `json:"cases"`
}

type SyncResponse struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// Accepted reports whether the backend took the sync.
func (r SyncResponse) Accepted() bool {
	return r.Status == SyncStatusSuccess || r.Status == SyncStatusStarted
}

type StatusUpdate struct {
	CaseNumber string `json:"case_number"`
	DocumentID string `json:"document_id"`
	Status     string `json:"status"`
	S3Key      string `json:"s3_key,omitempty"`
	Error      string `json:"error,omitempty"`
}

type ProgressUpdate struct {
	CaseNumber string  `json:"case_number"`
	DocumentID string  `json:"document_id"`
	Progress   float64 `json:"progress"`
}

type SyncProgress struct {
	ProcessedCases int `json:"processed_cases"`
	TotalCases     int `json:"total_cases"`
}

type SelectedCase struct {
	SelectedText string `json:"selectedText"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}
