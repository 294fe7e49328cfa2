package calcapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const DefaultEndpoint = "http://127.0.0.1:5000"

type ClientOptions struct {
	Endpoint string  `toml:"url"`
	RPSLimit float64 `toml:"rps-limit"`
	RPSBurst int     `toml:"rps-burst"`
}

func (o *ClientOptions) FillDefaults() {
	if o.Endpoint == "" {
		o.Endpoint = DefaultEndpoint
	}
	if o.RPSLimit == 0.0 {
		o.RPSLimit = 50
	}
	if o.RPSBurst == 0 {
		o.RPSBurst = 100
	}
}

// ResolveURL joins base and path with exactly one slash between them.
func ResolveURL(base, path string) string {
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path
}

type idempotencyKey struct{}

// WithIdempotencyKey makes mutating requests issued with the returned context carry the given
// Idempotency-Key header.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKey{}, key)
}

func idempotencyKeyFrom(ctx context.Context) string {
	if s, ok := ctx.Value(idempotencyKey{}).(string); ok {
		return s
	}
	return ""
}

type FetchOptions struct {
	Method string
	Header http.Header
	Body   io.Reader
	// If set, a 401 response is returned as *Error instead of a response.
	Strict401 bool
}

type Client struct {
	o       ClientOptions
	log     *slog.Logger
	client  *http.Client
	limiter *rate.Limiter
}

var _ API = (*Client)(nil)

func NewClient(log *slog.Logger, o ClientOptions, httpClient *http.Client) (*Client, error) {
	o.FillDefaults()
	if _, err := url.Parse(o.Endpoint); err != nil {
		return nil, fmt.Errorf("bad endpoint: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		o:       o,
		log:     log,
		client:  httpClient,
		limiter: rate.NewLimiter(rate.Limit(o.RPSLimit), o.RPSBurst),
	}, nil
}

func (c *Client) Endpoint() string { return c.o.Endpoint }

// Fetch sends a request to the API and returns the response unread. The caller must close the
// response body. Cookies set by the response are merged into creds.
func (c *Client) Fetch(ctx context.Context, creds *Credentials, path string, o FetchOptions) (*http.Response, error) {
	method := o.Method
	if method == "" {
		method = http.MethodGet
	}
	u := ResolveURL(c.o.Endpoint, path)
	c.log.Debug("fetching url", slog.String("method", method), slog.String("url", u))

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait for limiter: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, o.Body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		if key := idempotencyKeyFrom(ctx); key != "" {
			req.Header.Set("Idempotency-Key", key)
		}
	}
	for k, vs := range o.Header {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	creds.apply(req)

	rsp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	creds.update(rsp, time.Now())
	if o.Strict401 && rsp.StatusCode == http.StatusUnauthorized {
		err := decodeError(rsp)
		closeBody(rsp)
		return nil, err
	}
	return rsp, nil
}

func closeBody(rsp *http.Response) {
	_, _ = io.Copy(io.Discard, rsp.Body)
	_ = rsp.Body.Close()
}

func decodeError(rsp *http.Response) error {
	if 200 <= rsp.StatusCode && rsp.StatusCode <= 299 {
		return nil
	}
	var b bytes.Buffer
	if _, err := io.Copy(&b, rsp.Body); err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	apiErr := &Error{Status: rsp.StatusCode}
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b.Bytes(), &body); err == nil {
		apiErr.Message = body.Error
		if apiErr.Message == "" {
			apiErr.Message = body.Message
		}
	} else {
		apiErr.Message = strings.TrimSpace(b.String())
	}
	return apiErr
}

func doRequest[Rsp any](ctx context.Context, c *Client, creds *Credentials, method, path string, req any) (*Rsp, error) {
	var body io.Reader
	if req != nil {
		data, err := json.Marshal(req)
		if err != nil {
			return nil, fmt.Errorf("marshal json: %w", err)
		}
		body = bytes.NewReader(data)
	}
	hRsp, err := c.Fetch(ctx, creds, path, FetchOptions{Method: method, Body: body, Strict401: true})
	if err != nil {
		return nil, err
	}
	defer closeBody(hRsp)
	if err := decodeError(hRsp); err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	rspBytes, err := io.ReadAll(hRsp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	var rsp Rsp
	if len(bytes.TrimSpace(rspBytes)) == 0 {
		return &rsp, nil
	}
	if err := json.Unmarshal(rspBytes, &rsp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	return &rsp, nil
}

// doAction performs a mutating request whose response is a plain acknowledgement. An "error"
// field in a successful response is treated as a failure.
func doAction(ctx context.Context, c *Client, creds *Credentials, path string, req any) error {
	rsp, err := doRequest[MessageResponse](ctx, c, creds, http.MethodPost, path, req)
	if err != nil {
		return err
	}
	if rsp.Error != "" {
		return &Error{Status: http.StatusOK, Message: rsp.Error}
	}
	return nil
}

func eventPath(eventID ID, rest ...string) string {
	p := "/api/events/" + url.PathEscape(eventID.String())
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func subEventPath(eventID, subEventID ID, rest string) string {
	return eventPath(eventID, "sub-events", url.PathEscape(subEventID.String()), rest)
}

func (c *Client) CurrentUser(ctx context.Context, creds *Credentials) (*AuthResponse, error) {
	rsp, err := doRequest[AuthResponse](ctx, c, creds, http.MethodGet, "/auth/current-user", nil)
	if err != nil {
		return nil, err
	}
	if rsp.User == nil {
		return nil, fmt.Errorf("no user in response")
	}
	return rsp, nil
}

func (c *Client) Login(ctx context.Context, creds *Credentials, req *LoginRequest) (*AuthResponse, error) {
	return doRequest[AuthResponse](ctx, c, creds, http.MethodPost, "/auth/login", req)
}

func (c *Client) Signup(ctx context.Context, creds *Credentials, req *SignupRequest) (*AuthResponse, error) {
	return doRequest[AuthResponse](ctx, c, creds, http.MethodPost, "/auth/signup", req)
}

func (c *Client) Logout(ctx context.Context, creds *Credentials) error {
	_, err := doRequest[MessageResponse](ctx, c, creds, http.MethodPost, "/logout", nil)
	return err
}

func (c *Client) ListEvents(ctx context.Context, creds *Credentials) ([]Event, error) {
	rsp, err := doRequest[EventList](ctx, c, creds, http.MethodGet, "/api/events", nil)
	if err != nil {
		return nil, err
	}
	return *rsp, nil
}

func (c *Client) GetEvent(ctx context.Context, creds *Credentials, eventID ID) (*Event, error) {
	return doRequest[Event](ctx, c, creds, http.MethodGet, eventPath(eventID), nil)
}

func (c *Client) CreateEvent(ctx context.Context, creds *Credentials, req *CreateEventRequest) error {
	return doAction(ctx, c, creds, "/api/events", req)
}

func (c *Client) UpdateEvent(ctx context.Context, creds *Credentials, eventID ID, req *UpdateEventRequest) error {
	_, err := doRequest[MessageResponse](ctx, c, creds, http.MethodPut, eventPath(eventID), req)
	return err
}

func (c *Client) CloseEvent(ctx context.Context, creds *Credentials, eventID ID) error {
	return doAction(ctx, c, creds, eventPath(eventID, "close"), nil)
}

func (c *Client) DeclareWinner(ctx context.Context, creds *Credentials, eventID ID, req *WinnerRequest) error {
	return doAction(ctx, c, creds, eventPath(eventID, "winner"), req)
}

func (c *Client) CloseSubEvent(ctx context.Context, creds *Credentials, eventID, subEventID ID) (*CloseSubEventResponse, error) {
	return doRequest[CloseSubEventResponse](ctx, c, creds, http.MethodPost, subEventPath(eventID, subEventID, "close"), nil)
}

func (c *Client) DeclareSubWinner(ctx context.Context, creds *Credentials, eventID, subEventID ID, req *WinnerRequest) error {
	return doAction(ctx, c, creds, subEventPath(eventID, subEventID, "winner"), req)
}

func (c *Client) PlaceBet(ctx context.Context, creds *Credentials, eventID ID, req *BetRequest) error {
	return doAction(ctx, c, creds, eventPath(eventID, "bets"), req)
}

func (c *Client) PlaceBid(ctx context.Context, creds *Credentials, eventID ID, req *BidRequest) error {
	return doAction(ctx, c, creds, eventPath(eventID, "bid"), req)
}
