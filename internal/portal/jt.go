package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Credentials struct {
	Username string
	Password string
}

// JTClient drives the J&T merchant portal over plain HTTP with a cookie
// session. It satisfies Adapter.
type JTClient struct {
	base    string
	creds   Credentials
	mapping Mapping
	http    *http.Client
	log     zerolog.Logger
	authed  bool
}

var _ Adapter = (*JTClient)(nil)

var (
	// Tracking ids appear near a "tracking" label in the confirmation
	// body, or as a tracking segment in the confirmation URL. The id
	// itself is uppercase; only the label is matched case-insensitively.
	trackingBodyRe = regexp.MustCompile(`(?i:tracking(?:\s+(?:no|number|id))?)[^A-Za-z0-9]{0,16}([A-Z0-9][A-Z0-9-]{5,24})`)
	trackingURLRe  = regexp.MustCompile(`(?i)tracking[=/]([A-Za-z0-9-]+)`)
)

func NewJTClient(baseURL string, creds Credentials, mapping Mapping, timeout time.Duration, log zerolog.Logger) (*JTClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &JTClient{
		base:    strings.TrimRight(baseURL, "/"),
		creds:   creds,
		mapping: mapping,
		http:    &http.Client{Jar: jar, Timeout: timeout},
		log:     log.With().Str("component", "jt-portal").Logger(),
	}, nil
}

func (c *JTClient) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.creds.Username)
	form.Set("password", c.creds.Password)

	resp, err := c.postForm(ctx, c.base+"/login", form)
	if err != nil {
		return &AuthError{Reason: err.Error()}
	}
	defer drain(resp)

	// A rejected login lands back on the login page.
	if resp.StatusCode >= 400 || strings.Contains(resp.Request.URL.Path, "/login") {
		return &AuthError{Reason: fmt.Sprintf("login rejected (status %d)", resp.StatusCode)}
	}
	c.authed = true
	c.log.Debug().Msg("authenticated")
	return nil
}

func (c *JTClient) SubmitShipment(ctx context.Context, s Shipment) (string, error) {
	if !c.authed {
		return "", ErrSessionExpired
	}
	form, err := c.mapping.Values(s)
	if err != nil {
		return "", &SubmissionError{Op: "map fields", Err: err}
	}

	resp, err := c.postForm(ctx, c.base+"/booking/create", form)
	if err != nil {
		return "", &SubmissionError{Op: "submit", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		strings.Contains(resp.Request.URL.Path, "/login") {
		c.authed = false
		return "", ErrSessionExpired
	}
	if resp.StatusCode >= 400 {
		return "", &SubmissionError{Op: "submit", Err: fmt.Errorf("status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &SubmissionError{Op: "read confirmation", Err: err}
	}

	if m := trackingBodyRe.FindSubmatch(body); m != nil {
		return string(m[1]), nil
	}
	if m := trackingURLRe.FindStringSubmatch(resp.Request.URL.String()); m != nil {
		return m[1], nil
	}
	// The booking may exist on the courier side; never substitute a
	// placeholder here.
	return "", ErrTrackingUnconfirmed
}

func (c *JTClient) Close() error {
	c.authed = false
	c.http.CloseIdleConnections()
	return nil
}

func (c *JTClient) postForm(ctx context.Context, rawURL string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
