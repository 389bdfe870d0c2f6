// Package ingest fetches code-size telemetry and assignment metadata from
// the grading endpoint.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/penwyp/go-code-activity/internal/core/constants"
	"github.com/penwyp/go-code-activity/internal/core/model"
	"github.com/penwyp/go-code-activity/internal/util"
)

var (
	// ErrUnexpectedStatus wraps any non-200 response
	ErrUnexpectedStatus = errors.New("unexpected status from telemetry endpoint")
	// ErrEmptyBatch is returned when records arrived but none could be parsed
	ErrEmptyBatch = errors.New("every telemetry record was discarded")
)

// maxBodySize caps how much of a response is read
const maxBodySize = 32 << 20

// Query identifies one telemetry request
type Query struct {
	Target   model.Target
	Interval model.Interval
}

// Batch is the parsed result of one fetch
type Batch struct {
	Series    model.Series
	Received  int
	Discarded int
}

type trendRecord struct {
	Timestamp  string `json:"timestamp"`
	TotalSize  int64  `json:"total_size"`
	SizeChange int64  `json:"size_change"`
}

type trendsResponse struct {
	Trends []trendRecord `json:"trends"`
}

// assignmentResponse.ID is left untyped: backends send it as a string or
// as a number
type assignmentResponse struct {
	ID            interface{} `json:"id"`
	Name          string      `json:"name"`
	StartDateTime *string     `json:"startDateTime"`
	KickoffDate   *string     `json:"kickoffDate"`
	EndDateTime   *string     `json:"endDateTime"`
	DeadlineDate  *string     `json:"deadlineDate"`
}

// Client talks to the telemetry endpoint
type Client struct {
	baseURL    string
	httpClient *http.Client
	onDiscard  func(n int)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithDiscardHook is called with the number of records dropped per fetch
func WithDiscardHook(fn func(n int)) Option {
	return func(c *Client) { c.onDiscard = fn }
}

// NewClient creates a client for baseURL
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: constants.RequestTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTrends downloads one series. Records with an unparseable timestamp
// or a negative size are dropped and counted; the result is sorted by
// timestamp and duplicate timestamps keep the last record.
func (c *Client) FetchTrends(ctx context.Context, q Query) (Batch, error) {
	if !q.Interval.Valid() {
		return Batch{}, fmt.Errorf("%w: %d", model.ErrUnknownInterval, q.Interval)
	}

	params := url.Values{}
	params.Set("course", q.Target.Course)
	params.Set("assignment", q.Target.Assignment)
	params.Set("user", q.Target.User)
	endpoint := fmt.Sprintf("%s/graph_data/interval/%d?%s", c.baseURL, q.Interval.Minutes(), params.Encode())

	var resp trendsResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return Batch{}, err
	}

	batch := Batch{Received: len(resp.Trends), Series: make(model.Series, 0, len(resp.Trends))}
	for i, r := range resp.Trends {
		ts, err := util.ParseTelemetryTimestamp(r.Timestamp)
		if err != nil || r.TotalSize < 0 {
			batch.Discarded++
			util.LogDebug("Discard telemetry record",
				util.F("index", i), util.F("timestamp", r.Timestamp), util.F("total_size", r.TotalSize))
			continue
		}
		batch.Series = append(batch.Series, model.Sample{
			Timestamp:  ts,
			TotalBytes: uint64(r.TotalSize),
			Delta:      r.SizeChange,
		})
	}

	if batch.Discarded > 0 {
		if c.onDiscard != nil {
			c.onDiscard(batch.Discarded)
		}
		util.LogWarn("Telemetry records discarded",
			util.F("discarded", batch.Discarded), util.F("received", batch.Received))
	}
	if batch.Received > 0 && len(batch.Series) == 0 {
		return batch, fmt.Errorf("%w: %d records", ErrEmptyBatch, batch.Received)
	}

	batch.Series.SortByTime()
	batch.Series = batch.Series.Dedup()
	return batch, nil
}

// FetchAssignment downloads the assignment window
func (c *Client) FetchAssignment(ctx context.Context, id string) (model.Assignment, error) {
	endpoint := fmt.Sprintf("%s/assignments/%s", c.baseURL, url.PathEscape(id))

	var resp assignmentResponse
	if err := c.getJSON(ctx, endpoint, &resp); err != nil {
		return model.Assignment{}, err
	}

	start, err := parseDate(firstNonNil(resp.StartDateTime, resp.KickoffDate))
	if err != nil {
		return model.Assignment{}, fmt.Errorf("failed to parse assignment start: %w", err)
	}
	end, err := parseDate(firstNonNil(resp.EndDateTime, resp.DeadlineDate))
	if err != nil {
		return model.Assignment{}, fmt.Errorf("failed to parse assignment end: %w", err)
	}

	assignmentID := formatID(resp.ID)
	if assignmentID == "" {
		assignmentID = id
	}
	return model.Assignment{ID: assignmentID, Name: resp.Name, Start: start, End: end}, nil
}

func formatID(v interface{}) string {
	switch id := v.(type) {
	case nil:
		return ""
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return fmt.Sprint(id)
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	util.LogDebug("Telemetry request finished",
		util.F("url", endpoint), util.F("status", resp.StatusCode), util.F("duration", time.Since(start)))

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, endpoint, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if err := sonic.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

func parseDate(value *string) (time.Time, error) {
	if value == nil {
		return time.Time{}, errors.New("date missing")
	}
	for _, layout := range dateLayouts {
		if t, err := util.GetTimeProvider().ParseInLocation(layout, *value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", *value)
}

func firstNonNil(values ...*string) *string {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
