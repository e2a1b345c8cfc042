package channel

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/niranjanaambadi/lawmate-prod-sub000/internal/models"
	"github.com/niranjanaambadi/lawmate-prod-sub000/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeEnvelope(t *testing.T, r *http.Request) Envelope {
	t.Helper()
	data, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	env, err := Unmarshal(data)
	require.NoError(t, err)
	return env
}

func TestEnvelopeRoundTrip(t *testing.T) {
	env, err := NewEnvelope(ActionUpdateStatus, StatusUpdate{CaseNumber: "WP(C) 1/2026", DocumentID: "doc_1", Status: "completed"})
	require.NoError(t, err)
	assert.NotEmpty(t, env.ID)

	data, err := Marshal(env)
	require.NoError(t, err)
	back, err := Unmarshal(data)
	require.NoError(t, err)

	var update StatusUpdate
	require.NoError(t, back.Decode(&update))
	assert.Equal(t, "completed", update.Status)
	assert.Equal(t, "doc_1", update.DocumentID)
}

func TestUnmarshalRequiresAction(t *testing.T) {
	_, err := Unmarshal([]byte(`{"payload":{}}`))
	assert.Error(t, err)

	_, err = Unmarshal([]byte(`not json`))
	assert.Error(t, err)
}

func TestDecodeWithoutPayload(t *testing.T) {
	env := Envelope{Action: ActionShowError}
	var msg ErrorMessage
	assert.Error(t, env.Decode(&msg))
}

func TestSyncResponseAccepted(t *testing.T) {
	assert.True(t, SyncResponse{Status: "success"}.Accepted())
	assert.True(t, SyncResponse{Status: "sync_started"}.Accepted())
	assert.False(t, SyncResponse{Status: "failed"}.Accepted())
	assert.False(t, SyncResponse{}.Accepted())
}

func TestRequestDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, MessagesPath, r.URL.Path)
		env := decodeEnvelope(t, r)
		assert.Equal(t, ActionVerifyIdentity, env.Action)

		var identity models.AdvocateIdentity
		require.NoError(t, env.Decode(&identity))
		assert.Equal(t, "Jane Advocate", identity.Name)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"verified":false,"message":"name mismatch"}`))
	}))
	defer srv.Close()

	r := NewHTTPRequester(logger.NewNop(), HTTPOptions{BaseURL: srv.URL})
	var resp VerifyResponse
	err := r.Request(context.Background(), ActionVerifyIdentity, models.AdvocateIdentity{Name: "Jane Advocate"}, &resp)
	require.NoError(t, err)
	assert.False(t, resp.Verified)
	assert.Equal(t, "name mismatch", resp.Message)
}

func TestRequestNotFoundIsReceiverMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	r := NewHTTPRequester(logger.NewNop(), HTTPOptions{BaseURL: srv.URL})
	err := r.Request(context.Background(), ActionSyncCases, SyncRequest{}, nil)
	assert.ErrorIs(t, err, ErrReceiverMissing)
	assert.NotErrorIs(t, err, ErrChannel)
}

func TestRequestRefusedIsReceiverMissing(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	r := NewHTTPRequester(logger.NewNop(), HTTPOptions{BaseURL: url, Timeout: time.Second})
	err := r.Request(context.Background(), ActionSyncCases, SyncRequest{}, nil)
	assert.ErrorIs(t, err, ErrReceiverMissing)
}

func TestRequestServerErrorIsGeneric(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	r := NewHTTPRequester(logger.NewNop(), HTTPOptions{BaseURL: srv.URL})
	err := r.Request(context.Background(), ActionSyncCases, SyncRequest{}, nil)
	assert.ErrorIs(t, err, ErrChannel)
	assert.NotErrorIs(t, err, ErrReceiverMissing)
	assert.Contains(t, err.Error(), "500")
}

func TestRequestMalformedResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"verified":`))
	}))
	defer srv.Close()

	r := NewHTTPRequester(logger.NewNop(), HTTPOptions{BaseURL: srv.URL})
	var resp VerifyResponse
	err := r.Request(context.Background(), ActionVerifyIdentity, models.AdvocateIdentity{Name: "X Y"}, &resp)
	assert.ErrorIs(t, err, ErrChannel)
}

func TestRequestLogsInAndRetriesOnUnauthorized(t *testing.T) {
	var logins, calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		env := decodeEnvelope(t, r)
		if env.Action == ActionLogin {
			var creds LoginRequest
			require.NoError(t, env.Decode(&creds))
			assert.Equal(t, "advocate", creds.Username)
			assert.Empty(t, r.Header.Get("Authorization"))

			n := atomic.AddInt32(&logins, 1)
			_ = json.NewEncoder(w).Encode(LoginResponse{AccessToken: "token-" + string(rune('0'+n))})
			return
		}

		atomic.AddInt32(&calls, 1)
		// the first token is treated as expired
		if r.Header.Get("Authorization") != "Bearer token-2" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_ = json.NewEncoder(w).Encode(SyncResponse{Status: "sync_started"})
	}))
	defer srv.Close()

	r := NewHTTPRequester(logger.NewNop(), HTTPOptions{BaseURL: srv.URL, Username: "advocate", Password: "secret"})
	var resp SyncResponse
	err := r.Request(context.Background(), ActionSyncCases, SyncRequest{}, &resp)
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.Equal(t, int32(2), atomic.LoadInt32(&logins))
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
	assert.Equal(t, "token-2", r.Token())
	assert.Equal(t, "Bearer token-2", r.AuthHeader().Get("Authorization"))
}

func TestLoginWithoutCredentials(t *testing.T) {
	r := NewHTTPRequester(logger.NewNop(), HTTPOptions{BaseURL: "http://127.0.0.1:1"})
	assert.ErrorIs(t, r.Login(context.Background()), ErrChannel)
}

func TestStreamSubscriberDeliversMessages(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer abc", r.Header.Get("Authorization"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, []byte(`garbage`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"TRIGGER_AUTO_SYNC"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"UPDATE_SYNC_PROGRESS","payload":{"processed_cases":2,"total_cases":5}}`))
		// hold the connection until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	header := func() http.Header {
		h := http.Header{}
		h.Set("Authorization", "Bearer abc")
		return h
	}
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	sub := NewStreamSubscriber(logger.NewNop(), wsURL, header)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := sub.Subscribe(ctx)
	require.NoError(t, err)

	first := receive(t, ch)
	assert.Equal(t, ActionTriggerAutoSync, first.Action)

	second := receive(t, ch)
	var progress SyncProgress
	require.NoError(t, second.Decode(&progress))
	assert.Equal(t, SyncProgress{ProcessedCases: 2, TotalCases: 5}, progress)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("stream did not close after cancel")
	}
}

func TestStreamSubscriberDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	sub := NewStreamSubscriber(logger.NewNop(), wsURL, nil)
	_, err := sub.Subscribe(context.Background())
	assert.ErrorIs(t, err, ErrReceiverMissing)
}

func TestInboxPublishAndMerge(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, b := NewInbox(1), NewInbox(1)
	ch, err := Merge(ctx, a, b)
	require.NoError(t, err)

	require.NoError(t, a.Publish(Envelope{Action: ActionShowError}))
	assert.Equal(t, ActionShowError, receive(t, ch).Action)

	require.NoError(t, b.Publish(Envelope{Action: ActionTriggerAutoSync}))
	assert.Equal(t, ActionTriggerAutoSync, receive(t, ch).Action)
}

func TestMultiStopsAtFirstFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := NewInbox(1)
	_, err := Multi{NewStreamSubscriber(logger.NewNop(), wsURL, nil), in}.Subscribe(ctx)
	require.ErrorIs(t, err, ErrReceiverMissing)

	// the inbox was never subscribed, so it is still open for a later listener
	require.NoError(t, in.Publish(Envelope{Action: ActionShowError}))
	ch, err := in.Subscribe(ctx)
	require.NoError(t, err)
	assert.Equal(t, ActionShowError, receive(t, ch).Action)
}

func TestInboxFull(t *testing.T) {
	in := NewInbox(1)
	require.NoError(t, in.Publish(Envelope{Action: ActionShowError}))
	assert.ErrorIs(t, in.Publish(Envelope{Action: ActionShowError}), ErrInboxFull)
}

func receive(t *testing.T, ch <-chan Envelope) Envelope {
	t.Helper()
	select {
	case env, ok := <-ch:
		require.True(t, ok, "channel closed")
		return env
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for message")
	}
	return Envelope{}
}
