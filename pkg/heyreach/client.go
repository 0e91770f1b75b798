// Package heyreach provides access to the HeyReach campaign list API.
package heyreach

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/resilience"
)

const (
	defaultBaseURL = "https://api.heyreach.io"

	// chunkSize caps leads per AddLeadsToListV2 call.
	chunkSize = 100
)

// Client defines the HeyReach API operations used by the pipeline.
type Client interface {
	AddLeadsToList(ctx context.Context, listID int, leads []Lead) (*UploadReport, error)
}

// Lead is the wire shape of a single lead.
type Lead struct {
	ProfileURL   string        `json:"profileUrl"`
	FirstName    string        `json:"firstName"`
	LastName     string        `json:"lastName"`
	CompanyName  string        `json:"companyName,omitempty"`
	Position     string        `json:"position,omitempty"`
	Location     string        `json:"location,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	CustomFields []CustomField `json:"customUserFields,omitempty"`
}

// CustomField is a name/value personalization field attached to a lead.
// Field names must match the campaign template byte for byte.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// CustomFieldValue returns the value of the named custom field, or "".
func (l Lead) CustomFieldValue(name string) string {
	for _, f := range l.CustomFields {
		if f.Name == name {
			return f.Value
		}
	}
	return ""
}

// addLeadsRequest is the body for POST /api/public/list/AddLeadsToListV2.
type addLeadsRequest struct {
	ListID int    `json:"listId"`
	Leads  []Lead `json:"leads"`
}

// addLeadsResponse is the per-chunk API response.
type addLeadsResponse struct {
	AddedLeadsCount int          `json:"addedLeadsCount"`
	UpdatedCount    int          `json:"updatedLeadsCount"`
	FailedLeads     []failedLead `json:"failedLeads"`
}

type failedLead struct {
	ProfileURL string `json:"profileUrl"`
	Reason     string `json:"reason"`
}

// UploadReport is the merged per-lead outcome across all chunks.
type UploadReport struct {
	// Accepted holds the profile URLs the list confirmed.
	Accepted []string
	// Rejected maps profile URL to the rejection reason.
	Rejected map[string]string
}

// Confirmed reports whether a profile URL was accepted by the list.
func (r *UploadReport) Confirmed(profileURL string) bool {
	for _, u := range r.Accepted {
		if u == profileURL {
			return true
		}
	}
	return false
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit sets a per-second request rate limit.
func WithRateLimit(rps float64) Option {
	return func(c *httpClient) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
		}
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// NewClient creates a HeyReach API client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retry: resilience.DefaultRetryConfig(),
	}
	c.retry.OnRetry = resilience.RetryLogger("heyreach", "add_leads")
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	return c.limiter.Wait(ctx)
}

// AddLeadsToList uploads leads to the given list in chunks of 100. Chunk
// failures are recorded per lead rather than aborting the upload: the report
// tells the caller exactly which leads the list confirmed.
func (c *httpClient) AddLeadsToList(ctx context.Context, listID int, leads []Lead) (*UploadReport, error) {
	report := &UploadReport{Rejected: map[string]string{}}

	for start := 0; start < len(leads); start += chunkSize {
		end := min(start+chunkSize, len(leads))
		chunk := leads[start:end]

		resp, err := c.addChunk(ctx, listID, chunk)
		if err != nil {
			if ctx.Err() != nil {
				return report, eris.Wrap(ctx.Err(), "heyreach: upload interrupted")
			}
			for _, lead := range chunk {
				report.Rejected[lead.ProfileURL] = err.Error()
			}
			continue
		}

		failed := make(map[string]string, len(resp.FailedLeads))
		for _, f := range resp.FailedLeads {
			failed[f.ProfileURL] = f.Reason
		}
		for _, lead := range chunk {
			if reason, ok := failed[lead.ProfileURL]; ok {
				report.Rejected[lead.ProfileURL] = reason
			} else {
				report.Accepted = append(report.Accepted, lead.ProfileURL)
			}
		}
	}

	return report, nil
}

func (c *httpClient) addChunk(ctx context.Context, listID int, chunk []Lead) (*addLeadsResponse, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*addLeadsResponse, error) {
		if err := c.wait(ctx); err != nil {
			return nil, eris.Wrap(err, "heyreach: rate limit")
		}

		body, err := json.Marshal(addLeadsRequest{ListID: listID, Leads: chunk})
		if err != nil {
			return nil, eris.Wrap(err, "heyreach: marshal request")
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/api/public/list/AddLeadsToListV2", bytes.NewReader(body))
		if err != nil {
			return nil, eris.Wrap(err, "heyreach: create request")
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Accept", "application/json")
		httpReq.Header.Set("X-API-KEY", c.apiKey)

		resp, err := c.http.Do(httpReq)
		if err != nil {
			return nil, eris.Wrap(err, "heyreach: send request")
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "heyreach: read response")
		}

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("heyreach: unexpected status %d: %s", resp.StatusCode, string(respBody))
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return nil, resilience.NewTransientError(err, resp.StatusCode)
			}
			return nil, err
		}

		var result addLeadsResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return nil, eris.Wrap(err, "heyreach: unmarshal response")
		}
		return &result, nil
	})
}
