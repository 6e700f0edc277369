package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIBaseURL        = "https://api.twilio.com"
	DefaultTaskRouterBaseURL = "https://taskrouter.twilio.com"
)

var (
	ErrNotFound           = errors.New("telephony: not found")
	ErrPreconditionFailed = errors.New("telephony: record changed since fetch")
)

// APIError is a non-2xx response from the Twilio REST API.
type APIError struct {
	Status  int    `json:"status"`
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telephony: twilio api status=%d code=%d: %s", e.Status, e.Code, e.Message)
}

type TwilioConfig struct {
	AccountSID   string
	AuthToken    string
	WorkspaceSID string

	APIBaseURL        string
	TaskRouterBaseURL string

	Timeout time.Duration
}

// TwilioClient talks to the Voice Conferences and TaskRouter Tasks REST resources.
type TwilioClient struct {
	cfg  TwilioConfig
	http *http.Client
}

func NewTwilioClient(cfg TwilioConfig, httpClient *http.Client) (*TwilioClient, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, errors.New("telephony: twilio credentials required")
	}
	if cfg.WorkspaceSID == "" {
		return nil, errors.New("telephony: twilio workspace sid required")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.TaskRouterBaseURL == "" {
		cfg.TaskRouterBaseURL = DefaultTaskRouterBaseURL
	}
	cfg.APIBaseURL = strings.TrimRight(cfg.APIBaseURL, "/")
	cfg.TaskRouterBaseURL = strings.TrimRight(cfg.TaskRouterBaseURL, "/")
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &TwilioClient{cfg: cfg, http: httpClient}, nil
}

func (c *TwilioClient) Name() string { return "twilio" }

func (c *TwilioClient) HealthCheck(ctx context.Context) error {
	u := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", c.cfg.APIBaseURL, url.PathEscape(c.cfg.AccountSID))
	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

type participantsPage struct {
	Participants []ConferenceParticipant `json:"participants"`
	NextPageURI  string                  `json:"next_page_uri"`
}

func (c *TwilioClient) ListConferenceParticipants(ctx context.Context, conferenceSID string) ([]ConferenceParticipant, error) {
	if conferenceSID == "" {
		return nil, errors.New("telephony: conference sid required")
	}
	next := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Conferences/%s/Participants.json?PageSize=50",
		c.cfg.APIBaseURL, url.PathEscape(c.cfg.AccountSID), url.PathEscape(conferenceSID))

	var out []ConferenceParticipant
	for next != "" {
		var page participantsPage
		if _, err := c.getJSON(ctx, next, &page); err != nil {
			return nil, err
		}
		out = append(out, page.Participants...)
		next = ""
		if page.NextPageURI != "" {
			next = c.cfg.APIBaseURL + page.NextPageURI
		}
	}
	return out, nil
}

type taskResource struct {
	SID          string `json:"sid"`
	WorkspaceSID string `json:"workspace_sid"`
	Attributes   string `json:"attributes"`
	DateUpdated  string `json:"date_updated"`
}

func (c *TwilioClient) FetchTask(ctx context.Context, taskSID string) (TaskRecord, error) {
	if taskSID == "" {
		return TaskRecord{}, errors.New("telephony: task sid required")
	}
	var res taskResource
	hdr, err := c.getJSON(ctx, c.taskURL(taskSID), &res)
	if err != nil {
		return TaskRecord{}, err
	}
	rec := TaskRecord{
		SID:          res.SID,
		WorkspaceSID: res.WorkspaceSID,
		Attributes:   res.Attributes,
		Revision:     hdr.Get("ETag"),
	}
	if t, err := time.Parse(time.RFC3339, res.DateUpdated); err == nil {
		rec.UpdatedAt = t
	}
	return rec, nil
}

func (c *TwilioClient) UpdateTaskAttributes(ctx context.Context, req UpdateTaskAttributesRequest) error {
	if req.TaskSID == "" {
		return errors.New("telephony: task sid required")
	}
	form := url.Values{}
	form.Set("Attributes", req.Attributes)

	hdr := http.Header{}
	hdr.Set("Content-Type", "application/x-www-form-urlencoded")
	if req.IfMatch != "" {
		hdr.Set("If-Match", req.IfMatch)
	}

	resp, err := c.do(ctx, http.MethodPost, c.taskURL(req.TaskSID), strings.NewReader(form.Encode()), hdr)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	return nil
}

func (c *TwilioClient) taskURL(taskSID string) string {
	return fmt.Sprintf("%s/v1/Workspaces/%s/Tasks/%s",
		c.cfg.TaskRouterBaseURL, url.PathEscape(c.cfg.WorkspaceSID), url.PathEscape(taskSID))
}

func (c *TwilioClient) getJSON(ctx context.Context, u string, dst any) (http.Header, error) {
	resp, err := c.do(ctx, http.MethodGet, u, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return nil, fmt.Errorf("telephony: decode response: %w", err)
	}
	return resp.Header, nil
}

// do issues an authenticated request and converts non-2xx responses to errors.
// On success the caller owns resp.Body.
func (c *TwilioClient) do(ctx context.Context, method, u string, body io.Reader, hdr http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, err
	}
	for k, vs := range hdr {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(c.cfg.AccountSID, c.cfg.AuthToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telephony: %s %s: %w", method, req.URL.Path, err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusPreconditionFailed:
		return nil, ErrPreconditionFailed
	}
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	apiErr.Status = resp.StatusCode
	return nil, apiErr
}
