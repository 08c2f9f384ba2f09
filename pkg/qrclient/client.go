package qrclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"path"

	"github.com/pkg/errors"
)

type (
	// A Client defines all interactions that can be performed on a qrbridge server.
	Client interface {
		// CreateLogin starts a new QR login session.
		CreateLogin(ctx context.Context) (*LoginRequest, error)
		// LoginStatus fetches the current state of a login session.
		LoginStatus(ctx context.Context, token string) (*Status, error)
		// Confirm approves a scanned login session as the authenticated user.
		Confirm(ctx context.Context, encodedToken string) error
		// Redeem exchanges a one-time login URL for a device session.
		Redeem(ctx context.Context, loginURL string) (*Session, *User, error)
		// SignIn authenticates with email and password.
		SignIn(ctx context.Context, email, password string) (*Session, *User, error)
		// SignOut terminates the current device session.
		SignOut(ctx context.Context) error
		// BearerToken returns the access token used for restricted requests.
		BearerToken() string
		// SetBearerToken sets the access token used for restricted requests.
		SetBearerToken(token string)
	}

	p      map[string]any
	client struct {
		http     *http.Client
		endpoint string
		bearer   string
	}
)

// NewDefaultClient returns a new Client with default HTTP client.
func NewDefaultClient(endpoint string) (Client, error) {
	return NewClient(http.DefaultClient, endpoint)
}

// NewClient returns a new Client.
func NewClient(c *http.Client, endpoint string) (Client, error) {
	_, err := url.Parse(endpoint)
	return &client{endpoint: endpoint, http: c}, errors.Wrap(err, "could not parse endpoint")
}

func (c *client) CreateLogin(ctx context.Context) (*LoginRequest, error) {
	res, err := c.perform(ctx, http.MethodPost, "/qr/sessions", p{})
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var request LoginRequest
	dec := json.NewDecoder(res.Body)
	return &request, errors.Wrap(dec.Decode(&request), "could not parse response")
}

func (c *client) LoginStatus(ctx context.Context, token string) (*Status, error) {
	u, err := c.url("/qr/sessions/status")
	if err != nil {
		return nil, err
	}
	query := url.Values{}
	query.Set("token", token)
	u.RawQuery = query.Encode()

	res, err := c.request(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	var status Status
	dec := json.NewDecoder(res.Body)
	return &status, errors.Wrap(dec.Decode(&status), "could not parse response")
}

func (c *client) Confirm(ctx context.Context, encodedToken string) error {
	res, err := c.perform(ctx, http.MethodPost, "/qr/sessions/confirm", p{"encoded_token": encodedToken})
	if err != nil {
		return err
	}
	res.Body.Close()
	return nil
}

func (c *client) Redeem(ctx context.Context, loginURL string) (*Session, *User, error) {
	res, err := c.request(ctx, http.MethodGet, loginURL, nil)
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	return parseSessionResponse(res)
}

func (c *client) SignIn(ctx context.Context, email, password string) (*Session, *User, error) {
	res, err := c.perform(ctx, http.MethodPost, "/auth/sign_in", p{"email": email, "password": password})
	if err != nil {
		return nil, nil, err
	}
	defer res.Body.Close()

	session, user, err := parseSessionResponse(res)
	if err == nil {
		c.bearer = session.AccessToken
	}
	return session, user, err
}

func (c *client) SignOut(ctx context.Context) error {
	res, err := c.perform(ctx, http.MethodPost, "/auth/sign_out", p{})
	if err != nil {
		return err
	}
	res.Body.Close()
	c.bearer = ""
	return nil
}

func (c *client) BearerToken() string {
	return c.bearer
}

func (c *client) SetBearerToken(token string) {
	c.bearer = token
}

func (c *client) url(endpoint string) (*url.URL, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, errors.Wrap(err, "could not parse endpoint")
	}
	u.Path = path.Join(u.Path, endpoint)
	return u, nil
}

func (c *client) perform(ctx context.Context, method, endpoint string, params p) (*http.Response, error) {
	u, err := c.url(endpoint)
	if err != nil {
		return nil, err
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, errors.Wrap(err, "could not serialize params")
	}

	return c.request(ctx, method, u.String(), bytes.NewReader(body))
}

func (c *client) request(ctx context.Context, method, url string, body *bytes.Reader) (*http.Response, error) {
	var req *http.Request
	var err error
	if body == nil {
		req, err = http.NewRequestWithContext(ctx, method, url, nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, url, body)
	}
	if err != nil {
		return nil, errors.Wrap(err, "could not build request")
	}
	req.Close = true
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	if c.bearer != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", c.bearer))
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "could not perform request")
	}

	if res.StatusCode >= 400 {
		defer res.Body.Close()
		return nil, parseAPIError(res.Body, res.StatusCode)
	}
	return res, nil
}

func parseSessionResponse(res *http.Response) (*Session, *User, error) {
	var payload struct {
		Session Session `json:"session"`
		User    User    `json:"user"`
	}
	dec := json.NewDecoder(res.Body)
	if err := dec.Decode(&payload); err != nil {
		return nil, nil, errors.Wrap(err, "could not parse response")
	}
	return &payload.Session, &payload.User, nil
}
