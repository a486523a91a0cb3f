package subgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pandaskiing/depositview/pkg/utils"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxBodyBytes caps how much of a response is read before decoding.
const maxBodyBytes = 16 << 20

// Client posts GraphQL queries to a subgraph endpoint.
type Client struct {
	endpoint   string
	token      string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Opts is the set of options for a new Client.
type Opts struct {
	Endpoint   string
	Token      string
	Timeout    time.Duration
	RPS        int
	Burst      int
	HTTPClient *http.Client
}

// New creates a new Client with a pooled http.Client.
func New(o Opts, logger *zap.Logger) *Client {
	if o.RPS <= 0 {
		o.RPS = 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{
			Timeout: o.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				MaxConnsPerHost:     50,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	return &Client{
		endpoint:   o.Endpoint,
		token:      o.Token,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(o.RPS), o.Burst),
		logger:     logger,
	}
}

// Endpoint returns the URL the client posts to.
func (c *Client) Endpoint() string { return c.endpoint }

type request struct {
	OperationName string         `json:"operationName,omitempty"`
	Query         string         `json:"query"`
	Variables     map[string]any `json:"variables,omitempty"`
}

type response struct {
	Data   map[string]json.RawMessage `json:"data"`
	Errors []gqlError                 `json:"errors"`
}

// do sends one query and returns the raw JSON of the requested root field.
func (c *Client) do(ctx context.Context, name, query, root string, vars map[string]any) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: KindTransport, Query: name, Message: "rate limiter", Cause: err}
	}

	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return nil, &Error{Kind: KindDecode, Query: name, Message: "encode request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindTransport, Query: name, Message: "build request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("subgraph request failed",
			zap.String("query", name),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err),
		)
		return nil, &Error{Kind: KindTransport, Query: name, Message: "request failed", Cause: err}
	}
	defer utils.DrainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{
			Kind:    KindStatus,
			Query:   name,
			Status:  resp.StatusCode,
			Message: "unexpected status: " + string(bytes.TrimSpace(snippet)),
		}
	}

	var out response
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out); err != nil {
		return nil, &Error{Kind: KindDecode, Query: name, Message: "malformed response", Cause: err}
	}
	if len(out.Errors) > 0 {
		return nil, &Error{Kind: KindGraphQL, Query: name, Message: joinMessages(out.Errors)}
	}

	raw, ok := out.Data[root]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return nil, &Error{Kind: KindDecode, Query: name, Message: "malformed response: missing " + root}
	}

	c.logger.Debug("subgraph request completed",
		zap.String("query", name),
		zap.Duration("elapsed", time.Since(start)),
	)
	return raw, nil
}

// list runs a `first: $first` list query and decodes its root field.
func list[T any](ctx context.Context, c *Client, name, query, root string, first int) ([]T, error) {
	raw, err := c.do(ctx, name, query, root, map[string]any{"first": first})
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, &Error{Kind: KindDecode, Query: name, Message: "malformed response", Cause: err}
	}
	if rows == nil {
		rows = []T{}
	}
	return rows, nil
}

// RecentDeposits returns the newest deposits, timestamp descending.
func (c *Client) RecentDeposits(ctx context.Context, first int) ([]DepositEvent, error) {
	return list[DepositEvent](ctx, c, "recentDeposits", recentDepositsQuery, "depositeds", first)
}

// DepositAmountSets returns the configured amounts, block number descending.
func (c *Client) DepositAmountSets(ctx context.Context, first int) ([]DepositAmountSet, error) {
	return list[DepositAmountSet](ctx, c, "depositAmountSets", depositAmountSetsQuery, "depositAmountSets", first)
}

// MinuteStats returns minute buckets, newest first.
func (c *Client) MinuteStats(ctx context.Context, first int) ([]AggregateBucket, error) {
	return list[AggregateBucket](ctx, c, "minuteStats", minuteStatsQuery, "minuteStats", first)
}

// HourlyStats returns hour buckets, newest first.
func (c *Client) HourlyStats(ctx context.Context, first int) ([]AggregateBucket, error) {
	return list[AggregateBucket](ctx, c, "hourlyStats", hourlyStatsQuery, "hourlyStats", first)
}

// AllDeposits returns deposits ordered by deposit number ascending.
func (c *Client) AllDeposits(ctx context.Context, first int) ([]DepositEvent, error) {
	return list[DepositEvent](ctx, c, "allDeposits", allDepositsQuery, "depositeds", first)
}

// GlobalStats returns the running totals. A subgraph that has not indexed any
// deposit yet returns (nil, nil).
func (c *Client) GlobalStats(ctx context.Context) (*GlobalStats, error) {
	rows, err := list[GlobalStats](ctx, c, "globalStats", globalStatsQuery, "globalStats", 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}
