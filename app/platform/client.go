package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"github.com/ddm-research/donation-monitor/app/blueprint"
	"github.com/ddm-research/donation-monitor/app/cfg"
)

// Client talks to the donation platform API. Every request waits on a
// shared limiter, so consecutive calls are at least RequestDelay apart
// no matter how many goroutines use the client.
type Client struct {
	http             *resty.Client
	overviewEndpoint string
	responseEndpoint string
	donationEndpoint string
}

func NewClient(c *cfg.Cfg) *Client {
	return &Client{
		http:             newHTTPClient(c),
		overviewEndpoint: c.OverviewEndpoint,
		responseEndpoint: c.ResponseEndpoint,
		donationEndpoint: c.DonationEndpoint,
	}
}

// newHTTPClient builds a resty client carrying the token, timeout and
// request pacing of the configuration.
func newHTTPClient(c *cfg.Cfg) *resty.Client {
	httpClient := resty.New()
	httpClient.SetBaseURL(c.BaseURL)
	httpClient.SetTimeout(c.RequestTimeout)
	httpClient.SetHeader("User-Agent", c.UserAgent)
	httpClient.SetHeader("Accept", "application/json")
	httpClient.SetAuthScheme(c.AuthScheme)
	httpClient.SetAuthToken(c.APIKey)

	limit := rate.Inf
	if c.RequestDelay > 0 {
		limit = rate.Every(c.RequestDelay)
	}
	limiter := rate.NewLimiter(limit, 1)

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})

	return httpClient
}

func (c *Client) GetOverview(ctx context.Context) (*Overview, error) {
	body, err := c.get(ctx, c.overviewEndpoint, nil)
	if err != nil {
		return nil, err
	}

	var overview Overview
	if err := json.Unmarshal(body, &overview); err != nil {
		return nil, &FetchError{Endpoint: c.overviewEndpoint, Err: fmt.Errorf("failed to decode overview: %w", err)}
	}
	if overview.Participants == nil {
		return nil, &FetchError{Endpoint: c.overviewEndpoint, Err: errors.New("overview has no participants list")}
	}

	slog.Debug("Overview fetched", "participants", len(overview.Participants), "blueprints", len(overview.Blueprints))

	return &overview, nil
}

func (c *Client) GetResponses(ctx context.Context) (*Responses, error) {
	body, err := c.get(ctx, c.responseEndpoint, nil)
	if err != nil {
		return nil, err
	}

	var responses Responses
	if err := json.Unmarshal(body, &responses); err != nil {
		return nil, &FetchError{Endpoint: c.responseEndpoint, Err: fmt.Errorf("failed to decode responses: %w", err)}
	}
	if responses.Responses == nil {
		return nil, &FetchError{Endpoint: c.responseEndpoint, Err: errors.New("body has no responses list")}
	}

	slog.Debug("Responses fetched", "responses", len(responses.Responses))

	return &responses, nil
}

// GetDonation returns the raw donation body of one participant. The body
// must carry a blueprints object but is otherwise passed through verbatim.
func (c *Client) GetDonation(ctx context.Context, participantID string) ([]byte, error) {
	body, err := c.get(ctx, c.donationEndpoint, map[string]string{"participants": participantID})
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, &FetchError{Endpoint: c.donationEndpoint, Err: errors.New("donation body is not valid JSON")}
	}
	if _, err := blueprint.ParseRawDonation(body); err != nil {
		return nil, &FetchError{Endpoint: c.donationEndpoint, Err: err}
	}

	return body, nil
}

func (c *Client) get(ctx context.Context, endpoint string, params map[string]string) ([]byte, error) {
	start := time.Now()

	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(params).
		Get(endpoint)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	if !resp.IsSuccess() {
		return nil, &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Err: errors.New(resp.Status())}
	}

	slog.Debug("Platform request completed", "endpoint", endpoint, "status", resp.StatusCode(), "duration", time.Since(start))

	return resp.Body(), nil
}
