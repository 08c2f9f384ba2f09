package client

import (
	"context"
	"sync"
	"time"

	"github.com/mdouchement/qrbridge/pkg/qrclient"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// A State is the position of the initiator flow.
type State string

// States of the initiator flow.
const (
	StateIdle     State = "idle"
	StateCreating State = "creating"
	StatePending  State = "pending"
	StateSuccess  State = "success"
	StateExpired  State = "expired"
	StateError    State = "error"
)

// ErrExpired is returned by Wait when the login session's validity window
// passed before any device confirmed it. Retrying means a fresh session,
// never a resurrection of the old token.
var ErrExpired = errors.New("login session expired")

// A Flow drives the initiator side of a QR login: it creates the session,
// polls its status at a fixed interval and redeems the one-time credential
// exactly once on the first confirmed observation.
type Flow struct {
	client   qrclient.Client
	interval time.Duration

	mu       sync.Mutex
	state    State
	ctx      context.Context
	cancel   context.CancelFunc
	request  *qrclient.LoginRequest
	session  *qrclient.Session
	user     *qrclient.User
	redeemed bool
}

// NewFlow returns a new idle Flow polling at the given interval.
func NewFlow(client qrclient.Client, interval time.Duration) *Flow {
	return &Flow{
		client:   client,
		interval: interval,
		state:    StateIdle,
	}
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Request returns the login request created by Start.
func (f *Flow) Request() *qrclient.LoginRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.request
}

// Session returns the redeemed device session and its owner once the flow succeeded.
func (f *Flow) Session() (*qrclient.Session, *qrclient.User) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, f.user
}

// Start creates a new login session and moves the flow to pending.
// The returned request carries the URL to render as a QR code.
func (f *Flow) Start(ctx context.Context) (*qrclient.LoginRequest, error) {
	f.mu.Lock()
	if f.state != StateIdle {
		f.mu.Unlock()
		return nil, errors.Errorf("cannot start flow from state %q", f.state)
	}
	f.ctx, f.cancel = context.WithCancel(ctx)
	f.state = StateCreating
	fctx := f.ctx
	f.mu.Unlock()

	request, err := f.client.CreateLogin(fctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateCreating {
		// Reset raced the request, discard the response.
		return nil, context.Canceled
	}
	if err != nil {
		f.state = StateError
		return nil, errors.Wrap(err, "could not create login session")
	}

	f.request = request
	f.state = StatePending
	logrus.WithField("expires_at", request.ExpiresAt).Debug("login session created")
	return request, nil
}

// Wait polls the session status until a terminal state.
// It returns the redeemed device session on success, ErrExpired when the
// window passed, the context error after a Reset and any other error as is.
func (f *Flow) Wait() (*qrclient.Session, error) {
	f.mu.Lock()
	if f.state != StatePending {
		f.mu.Unlock()
		return nil, errors.Errorf("cannot wait from state %q", f.state)
	}
	ctx := f.ctx
	token := f.request.Token
	f.mu.Unlock()

	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		// One in-flight status request at a time, the next tick is consumed
		// only after this response resolves.
		status, err := f.client.LoginStatus(ctx, token)
		if ctx.Err() != nil {
			// Reset raced the request, discard the response.
			return nil, ctx.Err()
		}
		if err != nil {
			f.transition(StateError)
			return nil, errors.Wrap(err, "could not poll login session status")
		}

		logrus.WithField("status", status.Status).Debug("login session polled")

		switch status.Status {
		case qrclient.StatusPending:
			// keep polling
		case qrclient.StatusConfirmed:
			return f.redeem(ctx, status.LoginURL)
		case qrclient.StatusExpired:
			f.transition(StateExpired)
			return nil, ErrExpired
		default:
			f.transition(StateError)
			return nil, errors.Errorf("login session turned %s", status.Status)
		}
	}
}

// Reset stops any in-flight polling and returns the flow to idle without
// side effects on the server, an abandoned pending session expires naturally.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.state = StateIdle
	f.request = nil
	f.session = nil
	f.user = nil
	f.redeemed = false
}

func (f *Flow) redeem(ctx context.Context, loginURL string) (*qrclient.Session, error) {
	f.mu.Lock()
	if f.redeemed {
		session := f.session
		f.mu.Unlock()
		return session, nil
	}
	f.redeemed = true
	f.mu.Unlock()

	session, user, err := f.client.Redeem(ctx, loginURL)
	if err != nil {
		f.transition(StateError)
		return nil, errors.Wrap(err, "could not redeem login link")
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = StateSuccess
	f.session = session
	f.user = user
	return session, nil
}

func (f *Flow) transition(state State) {
	f.mu.Lock()
	defer f.mu.Unlock()
	// A Reset that raced the poll loop wins, the flow stays idle.
	if f.state == StatePending {
		f.state = state
	}
}
