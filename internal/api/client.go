package api

import (
	"context"
	"cpulse-tracker/internal/apperr"
	"cpulse-tracker/internal/config"
	"cpulse-tracker/internal/constants"
	"cpulse-tracker/internal/session"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/valyala/fasthttp"
)

// Client talks to the CPulse REST backend. It holds no identity of its own;
// every call names the session whose token should be attached.
type Client struct {
	baseURL     string
	client      *fasthttp.Client
	rateLimitMu sync.RWMutex
	rateLimit   RateLimitInfo
}

type RateLimitInfo struct {
	Limit     int `json:"limit"`
	Remaining int `json:"remaining"`

	// seconds until reset
	Reset int `json:"reset"`

	UpdatedAt time.Time `json:"updated_at"`
}

func NewClient(cfg *config.Config) *Client {
	return newClient(cfg.APIBaseURL)
}

func newClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client: &fasthttp.Client{
			MaxConnsPerHost:     constants.UpstreamMaxConnsPerHost,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: constants.UpstreamIdleConnTimeout,
		},
		rateLimit: RateLimitInfo{
			Limit:     constants.DefaultRateLimit,
			Remaining: constants.DefaultRateLimit,
			Reset:     constants.DefaultRateLimitReset,
			UpdatedAt: time.Now(),
		},
	}
}

func (c *Client) GetRateLimitInfo() RateLimitInfo {
	c.rateLimitMu.RLock()
	defer c.rateLimitMu.RUnlock()
	return c.rateLimit
}

func (c *Client) updateRateLimit(resp *fasthttp.Response) {
	c.rateLimitMu.Lock()
	defer c.rateLimitMu.Unlock()

	if limit := string(resp.Header.Peek("X-Ratelimit-Limit")); limit != "" {
		if val, err := strconv.Atoi(limit); err == nil {
			c.rateLimit.Limit = val
		}
	}
	if remaining := string(resp.Header.Peek("X-Ratelimit-Remaining")); remaining != "" {
		if val, err := strconv.Atoi(remaining); err == nil {
			c.rateLimit.Remaining = val
		}
	}
	if reset := string(resp.Header.Peek("X-Ratelimit-Reset")); reset != "" {
		if val, err := strconv.Atoi(reset); err == nil {
			c.rateLimit.Reset = val
		}
	}
	c.rateLimit.UpdatedAt = time.Now()
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func doRequest[T any](ctx context.Context, client *Client, sess session.Session, method, path string, body any) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Upstream("request_cancelled", fmt.Sprintf("%s %s", method, path), err)
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	handedOff := false
	defer func() {
		if !handedOff {
			fasthttp.ReleaseRequest(req)
			fasthttp.ReleaseResponse(resp)
		}
	}()

	req.SetRequestURI(client.baseURL + path)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if auth := sess.AuthorizationHeader(); auth != "" {
		req.Header.Set("Authorization", auth)
	}
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, apperr.Internal("encode_request", "failed to encode request body", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	// fasthttp does not observe ctx, so the call runs aside and a cancelled
	// caller returns immediately. The abandoned request keeps req/resp until
	// it finishes.
	done := make(chan error, 1)
	go func() {
		if deadline, ok := ctx.Deadline(); ok {
			done <- client.client.DoDeadline(req, resp, deadline)
			return
		}
		done <- client.client.Do(req, resp)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		handedOff = true
		go func() {
			<-done
			fasthttp.ReleaseRequest(req)
			fasthttp.ReleaseResponse(resp)
		}()
		return nil, apperr.Upstream("request_cancelled", fmt.Sprintf("%s %s", method, path), ctx.Err())
	}
	if err != nil {
		return nil, apperr.Upstream("upstream_unreachable", fmt.Sprintf("%s %s", method, path), err)
	}

	client.updateRateLimit(resp)

	if status := resp.StatusCode(); status < 200 || status > 299 {
		return nil, statusError(status, method, path, resp.Body())
	}

	var result T
	if len(resp.Body()) == 0 {
		return &result, nil
	}
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return nil, apperr.Upstream("decode_response", fmt.Sprintf("unexpected response from %s %s", method, path), err)
	}
	return &result, nil
}

func statusError(status int, method, path string, body []byte) error {
	msg := fmt.Sprintf("API error: %d on %s %s", status, method, path)
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		if eb.Message != "" {
			msg += ": " + eb.Message
		} else if eb.Error != "" {
			msg += ": " + eb.Error
		}
	}

	switch {
	case status == fasthttp.StatusBadRequest || status == fasthttp.StatusUnprocessableEntity:
		return apperr.Validation("upstream_rejected", msg)
	case status == fasthttp.StatusUnauthorized || status == fasthttp.StatusForbidden:
		return apperr.Unauthorized("upstream_unauthorized", msg)
	case status == fasthttp.StatusNotFound:
		return apperr.NotFound("upstream_not_found", msg)
	default:
		return apperr.Upstream("upstream_status", msg, fmt.Errorf("status %d", status))
	}
}
