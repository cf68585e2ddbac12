// Package api is the REST side of the platform boundary. Requests carry
// the ambient session cookie; responses are typed JSON envelopes. The
// realtime push side lives in internal/realtime.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"footysync/internal/config"
	"footysync/internal/constants"
	"footysync/internal/domain"
)

const sessionCookieName = "session"

// StatusError is an authoritative rejection from the backend: a non-OK
// status with (when present) a structured error body. It is surfaced, not
// retried.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Code)
	}
	return fmt.Sprintf("api: status %d: %s", e.Code, e.Message)
}

type Client struct {
	origin string
	client *fasthttp.Client
	logger zerolog.Logger

	sessionMu     sync.RWMutex
	sessionCookie string
}

func New(cfg *config.Config, logger zerolog.Logger) *Client {
	return &Client{
		origin: cfg.BackendOrigin,
		client: &fasthttp.Client{
			MaxConnsPerHost:     100,
			ReadTimeout:         constants.ExternalAPITimeout,
			WriteTimeout:        constants.ExternalAPITimeout,
			MaxIdleConnDuration: 1 * time.Minute,
		},
		logger:        logger,
		sessionCookie: cfg.SessionCookie,
	}
}

// SetSessionCookie swaps the ambient session credential, e.g. after a
// login completes.
func (c *Client) SetSessionCookie(v string) {
	c.sessionMu.Lock()
	c.sessionCookie = v
	c.sessionMu.Unlock()
}

func (c *Client) Authenticated() bool {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	return c.sessionCookie != ""
}

func (c *Client) ListMatches(ctx context.Context, leagueID string) ([]domain.MatchSnapshot, error) {
	u := fmt.Sprintf("%s/api/matches", c.origin)
	if leagueID != "" {
		u = fmt.Sprintf("%s?league=%s", u, url.QueryEscape(leagueID))
	}
	resp, err := doRequest[matchListResponse](ctx, c, fasthttp.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListConversations(ctx context.Context) ([]domain.ConversationSummary, error) {
	resp, err := doRequest[conversationListResponse](ctx, c, fasthttp.MethodGet, fmt.Sprintf("%s/api/chat/conversations", c.origin), nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListFriendRequests(ctx context.Context) ([]domain.FriendRequest, error) {
	resp, err := doRequest[friendRequestListResponse](ctx, c, fasthttp.MethodGet, fmt.Sprintf("%s/api/friends/requests", c.origin), nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) ListFriends(ctx context.Context) ([]domain.Friend, error) {
	resp, err := doRequest[friendListResponse](ctx, c, fasthttp.MethodGet, fmt.Sprintf("%s/api/friends", c.origin), nil)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

func (c *Client) SavePrediction(ctx context.Context, matchID int64, choice domain.Choice) error {
	body := predictionBody{Choice: choice}
	_, err := doRequest[ackResponse](ctx, c, fasthttp.MethodPost, fmt.Sprintf("%s/api/matches/%d/prediction", c.origin, matchID), &body)
	return err
}

func (c *Client) DeletePrediction(ctx context.Context, matchID int64) error {
	_, err := doRequest[ackResponse](ctx, c, fasthttp.MethodDelete, fmt.Sprintf("%s/api/matches/%d/prediction", c.origin, matchID), nil)
	return err
}

func doRequest[T any](ctx context.Context, client *Client, method, url string, body any) (*T, error) {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(url)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())

	client.sessionMu.RLock()
	if client.sessionCookie != "" {
		req.Header.SetCookie(sessionCookieName, client.sessionCookie)
	}
	client.sessionMu.RUnlock()

	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	deadline, ok := ctx.Deadline()
	if ok {
		if err := client.client.DoDeadline(req, resp, deadline); err != nil {
			return nil, err
		}
	} else {
		if err := client.client.Do(req, resp); err != nil {
			return nil, err
		}
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return nil, statusError(resp)
	}

	var result T
	if len(resp.Body()) > 0 {
		if err := json.Unmarshal(resp.Body(), &result); err != nil {
			return nil, fmt.Errorf("decode response: %w", err)
		}
	}
	return &result, nil
}

func statusError(resp *fasthttp.Response) *StatusError {
	se := &StatusError{Code: resp.StatusCode()}
	var body struct {
		Message string `json:"message"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		se.Message = body.Message
		if se.Message == "" {
			se.Message = body.Error.Message
		}
	}
	return se
}

type matchListResponse struct {
	Data []domain.MatchSnapshot `json:"data"`
}

type conversationListResponse struct {
	Data []domain.ConversationSummary `json:"data"`
}

type friendRequestListResponse struct {
	Data []domain.FriendRequest `json:"data"`
}

type friendListResponse struct {
	Data []domain.Friend `json:"data"`
}

type predictionBody struct {
	Choice domain.Choice `json:"choice"`
}

type ackResponse struct {
	Status string `json:"status"`
}
