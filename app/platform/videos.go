package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/ddm-research/donation-monitor/app/cfg"
	"github.com/ddm-research/donation-monitor/app/table"
)

// VideoClient reads and annotates the video metadata kept by the platform.
// Endpoints may be absolute URLs or relative to the base URL.
type VideoClient struct {
	http          *resty.Client
	listEndpoint  string
	getEndpoint   string
	patchEndpoint string
}

func NewVideoClient(c *cfg.Cfg) *VideoClient {
	return &VideoClient{
		http:          newHTTPClient(c),
		listEndpoint:  c.PoliticalVideosEndpoint,
		getEndpoint:   c.VideoGetEndpoint,
		patchEndpoint: c.VideoPatchEndpoint,
	}
}

// VideoFilter narrows the political video listing. Empty fields are not
// sent.
type VideoFilter struct {
	Date     string
	Username string
}

func (f VideoFilter) params() map[string]string {
	params := map[string]string{}
	if f.Date != "" {
		params["date"] = f.Date
	}
	if f.Username != "" {
		params["username"] = f.Username
	}
	return params
}

type videoPage struct {
	Count   int             `json:"count"`
	Next    *string         `json:"next"`
	Results []*table.Record `json:"results"`
}

// ListPoliticalVideos reads every page of the political video listing by
// following the absolute next links. When a later page fails, the videos
// read so far are returned together with the error.
func (c *VideoClient) ListPoliticalVideos(ctx context.Context, filter VideoFilter) ([]*table.Record, error) {
	page, err := c.page(ctx, c.listEndpoint, filter.params())
	if err != nil {
		return nil, err
	}

	videos := page.Results
	seen := map[string]bool{}
	for page.Next != nil && *page.Next != "" {
		next := *page.Next
		if seen[next] {
			return videos, &FetchError{Endpoint: next, Err: errors.New("pagination returned a page twice")}
		}
		seen[next] = true

		page, err = c.page(ctx, next, nil)
		if err != nil {
			return videos, err
		}
		videos = append(videos, page.Results...)
	}

	slog.Debug("Political videos fetched", "videos", len(videos), "pages", len(seen)+1)

	return videos, nil
}

func (c *VideoClient) page(ctx context.Context, endpoint string, params map[string]string) (*videoPage, error) {
	body, err := c.do(ctx, resty.MethodGet, endpoint, params, nil)
	if err != nil {
		return nil, err
	}

	var page videoPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode video page: %w", err)}
	}
	if page.Results == nil {
		return nil, &FetchError{Endpoint: endpoint, Err: errors.New("page has no results list")}
	}

	results := page.Results[:0]
	for _, video := range page.Results {
		if video != nil {
			results = append(results, video)
		}
	}
	page.Results = results

	return &page, nil
}

// GetVideo returns the metadata of one video.
func (c *VideoClient) GetVideo(ctx context.Context, videoID string) (*table.Record, error) {
	endpoint, err := videoURL(c.getEndpoint, videoID)
	if err != nil {
		return nil, err
	}

	body, err := c.do(ctx, resty.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}

	var video table.Record
	if err := json.Unmarshal(body, &video); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode video: %w", err)}
	}
	return &video, nil
}

// GetVideos fetches the metadata of several videos into one object keyed
// by video ID. Videos that cannot be fetched are logged and returned as
// failed.
func (c *VideoClient) GetVideos(ctx context.Context, videoIDs []string) (*table.Record, []string) {
	result := table.NewRecord()
	var failed []string

	for _, id := range videoIDs {
		if ctx.Err() != nil {
			failed = append(failed, id)
			continue
		}

		video, err := c.GetVideo(ctx, id)
		if err != nil {
			slog.Warn("Failed to fetch video metadata", "video", id, "error", err)
			failed = append(failed, id)
			continue
		}
		result.Set(id, video)
	}

	return result, failed
}

// UpdateVideo patches the given metadata fields of one video and returns
// the updated video. A response without a body yields a nil video.
func (c *VideoClient) UpdateVideo(ctx context.Context, videoID string, fields map[string]any) (*table.Record, error) {
	endpoint, err := videoURL(c.patchEndpoint, videoID)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, errors.New("no fields to update")
	}

	body, err := c.do(ctx, resty.MethodPatch, endpoint, nil, fields)
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	var video table.Record
	if err := json.Unmarshal(body, &video); err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: fmt.Errorf("failed to decode updated video: %w", err)}
	}

	slog.Info("Video metadata updated", "video", videoID, "fields", len(fields))

	return &video, nil
}

// FieldValues converts name:value pairs given on the command line into an
// update body. Values that parse as JSON keep their type, so true, 3 and
// null are sent as such; anything else is sent as text.
func FieldValues(fields map[string]string) map[string]any {
	values := make(map[string]any, len(fields))
	for name, text := range fields {
		dec := json.NewDecoder(strings.NewReader(text))
		dec.UseNumber()

		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			values[name] = text
			continue
		}
		values[name] = v
	}
	return values
}

func videoURL(endpoint, videoID string) (string, error) {
	if videoID == "" {
		return "", errors.New("video ID must not be empty")
	}
	return endpoint + url.PathEscape(videoID), nil
}

func (c *VideoClient) do(ctx context.Context, method, endpoint string, params map[string]string, payload any) ([]byte, error) {
	start := time.Now()

	req := c.http.R().
		SetContext(ctx).
		SetQueryParams(params)
	if payload != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(payload)
	}

	resp, err := req.Execute(method, endpoint)
	if err != nil {
		return nil, &FetchError{Endpoint: endpoint, Err: err}
	}

	if !resp.IsSuccess() {
		return nil, &FetchError{Endpoint: endpoint, StatusCode: resp.StatusCode(), Err: errors.New(resp.Status())}
	}

	slog.Debug("Video request completed", "method", method, "endpoint", endpoint, "status", resp.StatusCode(), "duration", time.Since(start))

	return resp.Body(), nil
}
