package client_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mdouchement/qrbridge/internal/client"
	"github.com/mdouchement/qrbridge/pkg/qrclient"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stub is a scripted qrbridge server: each status request pops the next
// scripted status.
type stub struct {
	statuses []string
	polls    int32
	redeems  int32
	creates  int32
}

func (s *stub) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/qr/sessions", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.creates, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"token":         "8Yn4mKxLpQ2rVsTdWbGcJhFe",
			"encoded_token": "encoded",
			"confirm_url":   "http://qrbridge.lan/qr/confirm?t=encoded",
			"expires_at":    time.Now().Add(3 * time.Minute),
		})
	})

	mux.HandleFunc("/qr/sessions/status", func(w http.ResponseWriter, r *http.Request) {
		i := int(atomic.AddInt32(&s.polls, 1)) - 1
		if i >= len(s.statuses) {
			i = len(s.statuses) - 1
		}

		payload := map[string]any{"status": s.statuses[i]}
		if s.statuses[i] == qrclient.StatusConfirmed {
			payload["login_url"] = "http://" + r.Host + "/auth/redeem?token=jwt"
		}
		json.NewEncoder(w).Encode(payload)
	})

	mux.HandleFunc("/auth/redeem", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.redeems, 1)
		json.NewEncoder(w).Encode(map[string]any{
			"user": map[string]any{"uuid": "u1", "email": "george.abitbol@nowhere.lan"},
			"session": map[string]any{
				"access_token":  "access",
				"refresh_token": "refresh",
				"expire_at":     time.Now().Add(time.Hour),
			},
		})
	})

	return mux
}

func setup(t *testing.T, statuses ...string) (*stub, *client.Flow, func()) {
	s := &stub{statuses: statuses}
	server := httptest.NewServer(s.handler())

	c, err := qrclient.NewDefaultClient(server.URL)
	require.NoError(t, err)

	return s, client.NewFlow(c, 10*time.Millisecond), server.Close
}

func TestFlowSuccess(t *testing.T) {
	s, flow, cleanup := setup(t,
		qrclient.StatusPending,
		qrclient.StatusPending,
		qrclient.StatusConfirmed,
	)
	defer cleanup()

	assert.Equal(t, client.StateIdle, flow.State())

	request, err := flow.Start(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, request.Token)
	assert.NotEmpty(t, request.ConfirmURL)
	assert.Equal(t, client.StatePending, flow.State())

	session, err := flow.Wait()
	require.NoError(t, err)
	assert.Equal(t, "access", session.AccessToken)
	assert.Equal(t, client.StateSuccess, flow.State())

	_, user := flow.Session()
	assert.Equal(t, "george.abitbol@nowhere.lan", user.Email)

	// Exactly one redemption whatever the poll count.
	assert.EqualValues(t, 1, atomic.LoadInt32(&s.redeems))
	assert.GreaterOrEqual(t, atomic.LoadInt32(&s.polls), int32(3))
}

func TestFlowExpired(t *testing.T) {
	s, flow, cleanup := setup(t, qrclient.StatusPending, qrclient.StatusExpired)
	defer cleanup()

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	_, err = flow.Wait()
	assert.Equal(t, client.ErrExpired, errors.Cause(err))
	assert.Equal(t, client.StateExpired, flow.State())
	assert.Zero(t, atomic.LoadInt32(&s.redeems))

	// Retry means a brand new session.
	flow.Reset()
	assert.Equal(t, client.StateIdle, flow.State())
	_, err = flow.Start(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt32(&s.creates))
}

func TestFlowInvalid(t *testing.T) {
	_, flow, cleanup := setup(t, qrclient.StatusInvalid)
	defer cleanup()

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	_, err = flow.Wait()
	assert.Error(t, err)
	assert.Equal(t, client.StateError, flow.State())
}

func TestFlowReset(t *testing.T) {
	s, flow, cleanup := setup(t, qrclient.StatusPending)
	defer cleanup()

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		_, err := flow.Wait()
		done <- err
	}()

	// Let it poll a bit then reset mid-flight.
	time.Sleep(35 * time.Millisecond)
	flow.Reset()

	select {
	case err := <-done:
		assert.Equal(t, context.Canceled, errors.Cause(err))
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Reset")
	}

	assert.Equal(t, client.StateIdle, flow.State())
	assert.Nil(t, flow.Request())
	assert.Zero(t, atomic.LoadInt32(&s.redeems))
}

func TestFlowStartTwice(t *testing.T) {
	_, flow, cleanup := setup(t, qrclient.StatusPending)
	defer cleanup()

	_, err := flow.Start(context.Background())
	require.NoError(t, err)

	_, err = flow.Start(context.Background())
	assert.Error(t, err)
}
