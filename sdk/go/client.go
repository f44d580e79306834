package portariasdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is a minimal Portaria HTTP API client.
type Client struct {
	BaseURL     string
	BearerToken string
	// ActorID is sent as X-Actor-Id when no bearer token is set. Servers
	// only honor it when legacy actor headers are enabled.
	ActorID    string
	HTTPClient *http.Client
	Timeout    time.Duration
}

// New creates a client with sane defaults.
func New(baseURL string) *Client {
	return &Client{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

type Subject struct {
	SubjectID     string `json:"subject_id,omitempty"`
	FullName      string `json:"full_name"`
	TaxID         string `json:"tax_id,omitempty"`
	PositionLabel string `json:"position_label,omitempty"`
	PositionCode  string `json:"position_code,omitempty"`
}

type Gazette struct {
	Number string `json:"number"`
	Date   string `json:"date"`
}

// Act represents the API act model.
type Act struct {
	ID              string    `json:"id"`
	Number          string    `json:"number"`
	Year            int       `json:"year"`
	InstrumentKind  string    `json:"instrument_kind"`
	Category        string    `json:"category"`
	Status          string    `json:"status"`
	DocumentDate    string    `json:"document_date"`
	SummaryText     string    `json:"summary_text,omitempty"`
	Subjects        []Subject `json:"subjects"`
	RelatedPosition *string   `json:"related_position,omitempty"`
	RelatedUnit     *string   `json:"related_unit,omitempty"`
	Gazette         *Gazette  `json:"gazette,omitempty"`
	Supersedes      *string   `json:"supersedes,omitempty"`
	Revocation      *struct {
		Reason    string `json:"reason"`
		RevokedAt string `json:"revoked_at"`
	} `json:"revocation,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Version   int64  `json:"version"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// NewAct is the body for creating a draft or a collective act.
type NewAct struct {
	InstrumentKind  string    `json:"instrument_kind,omitempty"`
	Category        string    `json:"category"`
	DocumentDate    string    `json:"document_date"`
	SummaryText     string    `json:"summary_text,omitempty"`
	Subjects        []Subject `json:"subjects,omitempty"`
	RelatedPosition *string   `json:"related_position,omitempty"`
	RelatedUnit     *string   `json:"related_unit,omitempty"`
	Notes           string    `json:"notes,omitempty"`
}

type Corrections struct {
	Position      *string `json:"position,omitempty"`
	Unit          *string `json:"unit,omitempty"`
	SubjectName   *string `json:"subject_name,omitempty"`
	EffectiveDate *string `json:"effective_date,omitempty"`
	SubjectRow    *int    `json:"subject_row,omitempty"`
}

// Event represents a log entry.
type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

// APIError wraps non-2xx responses.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error: status=%d code=%s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("api error: status=%d body=%s", e.StatusCode, e.Body)
}

// IsCode reports whether err is an APIError with the given error code.
func IsCode(err error, code string) bool {
	var ae *APIError
	return errors.As(err, &ae) && ae.Code == code
}

type PaginatedActs struct {
	Items      []Act  `json:"items"`
	NextCursor string `json:"next_cursor"`
}

// PaginatedEvents wraps list responses with cursors.
type PaginatedEvents struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor"`
}

// ListOptions filter act listings. Zero values are ignored.
type ListOptions struct {
	Status         string
	Category       string
	InstrumentKind string
	Year           int
	Limit          int
	Cursor         string
}

func (c *Client) CreateAct(ctx context.Context, in NewAct) (Act, error) {
	var resp Act
	err := c.do(ctx, http.MethodPost, "acts", in, &resp)
	return resp, err
}

// ComposeCollective creates one act binding every subject in order.
func (c *Client) ComposeCollective(ctx context.Context, in NewAct) (Act, error) {
	var resp Act
	err := c.do(ctx, http.MethodPost, "acts/collective", in, &resp)
	return resp, err
}

func (c *Client) GetAct(ctx context.Context, id string) (Act, error) {
	var resp Act
	err := c.do(ctx, http.MethodGet, actPath(id), nil, &resp)
	return resp, err
}

// ListActs returns one page of acts, newest first.
func (c *Client) ListActs(ctx context.Context, opts ListOptions) (PaginatedActs, error) {
	q := url.Values{}
	setQuery(q, "status", opts.Status)
	setQuery(q, "category", opts.Category)
	setQuery(q, "instrument_kind", opts.InstrumentKind)
	if opts.Year > 0 {
		q.Set("year", strconv.Itoa(opts.Year))
	}
	if opts.Limit > 0 {
		q.Set("limit", strconv.Itoa(opts.Limit))
	}
	setQuery(q, "cursor", opts.Cursor)
	var resp PaginatedActs
	err := c.do(ctx, http.MethodGet, withQuery("acts", q), nil, &resp)
	return resp, err
}

// Transition moves the act one step. version 0 skips the staleness check.
func (c *Client) Transition(ctx context.Context, id, to string, version int64) (Act, error) {
	body := map[string]any{"to": to}
	if version > 0 {
		body["version"] = version
	}
	var resp Act
	err := c.do(ctx, http.MethodPost, actPath(id)+"/transitions", body, &resp)
	return resp, err
}

func (c *Client) SetGazette(ctx context.Context, id string, g Gazette, version int64) (Act, error) {
	body := map[string]any{"number": g.Number, "date": g.Date}
	if version > 0 {
		body["version"] = version
	}
	var resp Act
	err := c.do(ctx, http.MethodPut, actPath(id)+"/gazette", body, &resp)
	return resp, err
}

func (c *Client) Revoke(ctx context.Context, id, reason string, version int64) (Act, error) {
	body := map[string]any{"reason": reason}
	if version > 0 {
		body["version"] = version
	}
	var resp Act
	err := c.do(ctx, http.MethodPost, actPath(id)+"/revocation", body, &resp)
	return resp, err
}

// Retify creates a correction draft superseding id.
func (c *Client) Retify(ctx context.Context, id string, corrections Corrections, justification, documentDate string) (Act, error) {
	body := map[string]any{
		"corrections":   corrections,
		"justification": justification,
	}
	if documentDate != "" {
		body["document_date"] = documentDate
	}
	var resp Act
	err := c.do(ctx, http.MethodPost, actPath(id)+"/retifications", body, &resp)
	return resp, err
}

func (c *Client) Retifications(ctx context.Context, id string) ([]Act, error) {
	var resp struct {
		Items []Act `json:"items"`
	}
	err := c.do(ctx, http.MethodGet, actPath(id)+"/retifications", nil, &resp)
	return resp.Items, err
}

// Document returns the rendered text of a signed act.
func (c *Client) Document(ctx context.Context, id string) (string, error) {
	var buf bytes.Buffer
	err := c.do(ctx, http.MethodGet, actPath(id)+"/document", nil, &buf)
	return buf.String(), err
}

// EventsPage returns a paginated event listing.
func (c *Client) EventsPage(ctx context.Context, entityID string, limit int, cursor string) (PaginatedEvents, error) {
	q := url.Values{}
	setQuery(q, "entity_id", entityID)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	setQuery(q, "cursor", cursor)
	var resp PaginatedEvents
	err := c.do(ctx, http.MethodGet, withQuery("events", q), nil, &resp)
	return resp, err
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any, out any) error {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: c.Timeout}
	}
	target := c.base() + "/v0/" + strings.TrimLeft(endpoint, "/")
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, target, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	switch {
	case c.BearerToken != "":
		req.Header.Set("Authorization", "Bearer "+c.BearerToken)
	case c.ActorID != "":
		req.Header.Set("X-Actor-Id", c.ActorID)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(b)}
		var env struct {
			Error struct {
				Code    string `json:"code"`
				Message string `json:"message"`
			} `json:"error"`
		}
		if json.Unmarshal(b, &env) == nil {
			apiErr.Code = env.Error.Code
			apiErr.Message = env.Error.Message
		}
		return apiErr
	}
	switch dst := out.(type) {
	case nil:
		return nil
	case io.Writer:
		_, err := io.Copy(dst, resp.Body)
		return err
	default:
		return json.NewDecoder(resp.Body).Decode(out)
	}
}

func actPath(id string) string {
	return "acts/" + url.PathEscape(id)
}

func setQuery(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func withQuery(endpoint string, q url.Values) string {
	if len(q) == 0 {
		return endpoint
	}
	return endpoint + "?" + q.Encode()
}

func (c *Client) base() string {
	return strings.TrimRight(c.BaseURL, "/")
}
