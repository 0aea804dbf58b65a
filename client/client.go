// Package client provides the HTTP client for the Fireflies GraphQL API.
// It handles authentication, retry of transient failures and decoding of
// transcript pages.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/lamemustafa/Fireflies.ai-Download-Utility/config"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/buildinfo"
	fferrors "github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/errors"
	"github.com/lamemustafa/Fireflies.ai-Download-Utility/pkg/transcript"
)

// Default client settings.
const (
	DefaultEndpoint     = "https://api.fireflies.ai/graphql"
	DefaultTimeout      = 60 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryWaitMin = 1 * time.Second
	DefaultRetryWaitMax = 30 * time.Second
)

// TranscriptsQuery fetches one page of transcripts with everything the
// exporters use.
const TranscriptsQuery = `query Transcripts($limit: Int, $skip: Int) {
  transcripts(limit: $limit, skip: $skip) {
    id
    title
    date
    duration
    host_email
    organizer_email
    participants
    transcript_url
    audio_url
    video_url
    sentences {
      index
      speaker_name
      speaker_id
      text
      raw_text
      start_time
      end_time
    }
    summary {
      overview
      action_items
      outline
      shorthand_bullet
      keywords
      notes
    }
  }
}`

// Options configures the Client behavior.
type Options struct {
	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// MaxRetries is the maximum number of retries for transient failures.
	MaxRetries int

	// RetryWaitMin and RetryWaitMax bound the backoff between retries.
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// HTTPClient replaces the underlying transport client.
	HTTPClient *http.Client
}

// DefaultOptions returns the default client options.
func DefaultOptions() *Options {
	return &Options{
		Timeout:      DefaultTimeout,
		MaxRetries:   DefaultMaxRetries,
		RetryWaitMin: DefaultRetryWaitMin,
		RetryWaitMax: DefaultRetryWaitMax,
		UserAgent:    buildinfo.UserAgent(),
	}
}

// Client talks to the Fireflies GraphQL endpoint.
type Client struct {
	http      *retryablehttp.Client
	endpoint  string
	apiKey    string
	userAgent string
}

// New creates a client. The API key is sent as a bearer token.
func New(endpoint, apiKey string, opts *Options) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("%w: API key is required", fferrors.ErrNoCredentials)
	}
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if opts == nil {
		opts = DefaultOptions()
	}

	rc := retryablehttp.NewClient()
	rc.Logger = nil
	rc.RetryMax = opts.MaxRetries
	if opts.RetryWaitMin > 0 {
		rc.RetryWaitMin = opts.RetryWaitMin
	}
	if opts.RetryWaitMax > 0 {
		rc.RetryWaitMax = opts.RetryWaitMax
	}
	if opts.HTTPClient != nil {
		rc.HTTPClient = opts.HTTPClient
	}
	if opts.Timeout > 0 {
		rc.HTTPClient.Timeout = opts.Timeout
	}
	// Auth failures are final.
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if resp != nil && (resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden) {
			return false, nil
		}
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
	}
	// Hand the last response back instead of a generic error so its
	// status can be classified.
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	ua := opts.UserAgent
	if ua == "" {
		ua = buildinfo.UserAgent()
	}

	return &Client{
		http:      rc,
		endpoint:  endpoint,
		apiKey:    apiKey,
		userAgent: ua,
	}, nil
}

// NewFromConfig creates a client using the CLI configuration.
func NewFromConfig(cfg *config.CLIConfig, apiKey string) (*Client, error) {
	opts := DefaultOptions()
	opts.MaxRetries = cfg.RetryMax
	opts.Timeout = cfg.Timeout
	return New(cfg.APIEndpoint, apiKey, opts)
}

// Endpoint returns the GraphQL endpoint URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

// GraphQLError is one entry of a GraphQL errors array.
type GraphQLError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

type transcriptsData struct {
	Transcripts []*transcript.Record `json:"transcripts"`
}

// Transcripts fetches one page of transcripts, in the order the API returns
// them.
func (c *Client) Transcripts(ctx context.Context, limit, skip int) ([]*transcript.Record, error) {
	vars := map[string]interface{}{
		"limit": limit,
		"skip":  skip,
	}

	var data transcriptsData
	if err := c.do(ctx, TranscriptsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("fetching transcripts: %w", err)
	}
	return data.Transcripts, nil
}

func (c *Client) do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", fferrors.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("rate limit exceeded: status %d", resp.StatusCode)
	case resp.StatusCode >= 500:
		return fmt.Errorf("service unavailable: status %d", resp.StatusCode)
	}

	var gql graphQLResponse
	if err := json.Unmarshal(raw, &gql); err != nil {
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("unexpected status %d", resp.StatusCode)
		}
		return fmt.Errorf("decoding response: %w", err)
	}

	if len(gql.Errors) > 0 {
		return graphQLFailure(gql.Errors)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.Unmarshal(gql.Data, out); err != nil {
		return fmt.Errorf("decoding data: %w", err)
	}
	return nil
}

func graphQLFailure(errs []GraphQLError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
		switch strings.ToLower(e.Code) {
		case "forbidden", "unauthenticated", "unauthorized", "invalid_api_key":
			return fmt.Errorf("%w: %s", fferrors.ErrUnauthorized, e.Message)
		}
	}
	return fmt.Errorf("graphql errors: %s", strings.Join(msgs, "; "))
}
