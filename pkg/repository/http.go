package repository

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/carrel-io/ferry/pkg/types"
)

const defaultTimeout = 30 * time.Second

// HTTPClient talks to the upstream repository over its JSON CRUD API.
// Writes are ETag-conditioned: UpdateAndRead sends If-Match and maps a
// 412 response to ErrConflict.
type HTTPClient struct {
	baseURL   string
	userAgent string
	username  string
	password  string
	http      *http.Client
}

// HTTPConfig holds upstream connection parameters
type HTTPConfig struct {
	BaseURL   string
	UserAgent string
	Username  string
	Password  string
	Timeout   time.Duration
}

// NewHTTPClient creates a client for the upstream repository API
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("repository: base URL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("repository: invalid base URL: %w", err)
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &HTTPClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		username:  cfg.Username,
		password:  cfg.Password,
		http:      &http.Client{Timeout: timeout},
	}, nil
}

// Ping verifies the upstream repository is reachable
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/", nil)
	if err != nil {
		return err
	}
	c.decorate(req)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("repository: upstream unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("repository: upstream unhealthy: %s", resp.Status)
	}
	return nil
}

// Read implements Client
func (c *HTTPClient) Read(ctx context.Context, id string, t types.EntityType) (types.Entity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(id), nil)
	if err != nil {
		return nil, err
	}
	c.decorate(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repository: read %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("read %s: %w", id, ErrNotFound)
	default:
		return nil, fmt.Errorf("repository: read %s: unexpected status %s", id, resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("repository: read %s: %w", id, err)
	}
	entity, err := Unmarshal(body, t)
	if err != nil {
		return nil, fmt.Errorf("repository: read %s: %w", id, err)
	}
	entity.SetTag(resp.Header.Get("ETag"))
	return entity, nil
}

// Create implements Client
func (c *HTTPClient) Create(ctx context.Context, e types.Entity) (types.Entity, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("repository: marshal %s: %w", e.EntityType(), err)
	}
	target := c.baseURL + "/" + collection(e.EntityType())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repository: create %s: %w", e.EntityType(), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("repository: create %s: unexpected status %s", e.EntityType(), resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("repository: create %s: %w", e.EntityType(), err)
	}
	created, err := Unmarshal(data, e.EntityType())
	if err != nil {
		return nil, fmt.Errorf("repository: create %s: %w", e.EntityType(), err)
	}
	created.SetTag(resp.Header.Get("ETag"))
	return created, nil
}

// UpdateAndRead implements Client
func (c *HTTPClient) UpdateAndRead(ctx context.Context, e types.Entity) (types.Entity, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("repository: marshal %s: %w", e.EntityID(), err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.resolve(e.EntityID()), bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	c.decorate(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if e.Tag() != "" {
		req.Header.Set("If-Match", e.Tag())
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repository: update %s: %w", e.EntityID(), err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusPreconditionFailed, http.StatusConflict:
		return nil, fmt.Errorf("update %s: %w", e.EntityID(), ErrConflict)
	case http.StatusNotFound, http.StatusGone:
		return nil, fmt.Errorf("update %s: %w", e.EntityID(), ErrNotFound)
	default:
		return nil, fmt.Errorf("repository: update %s: unexpected status %s", e.EntityID(), resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("repository: update %s: %w", e.EntityID(), err)
	}
	fresh, err := Unmarshal(data, e.EntityType())
	if err != nil {
		return nil, fmt.Errorf("repository: update %s: %w", e.EntityID(), err)
	}
	fresh.SetTag(resp.Header.Get("ETag"))
	return fresh, nil
}

// Incoming implements Client
func (c *HTTPClient) Incoming(ctx context.Context, id string) (map[string][]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resolve(id)+"/incoming", nil)
	if err != nil {
		return nil, err
	}
	c.decorate(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repository: incoming %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("repository: incoming %s: unexpected status %s", id, resp.Status)
	}

	var out struct {
		Incoming map[string][]string `json:"incoming"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("repository: incoming %s: %w", id, err)
	}
	if out.Incoming == nil {
		return map[string][]string{}, nil
	}
	return out.Incoming, nil
}

// FindByAttribute implements Client
func (c *HTTPClient) FindByAttribute(ctx context.Context, t types.EntityType, attr, value string) ([]string, error) {
	q := url.Values{}
	q.Set("attribute", attr)
	q.Set("value", value)
	target := c.baseURL + "/" + collection(t) + "/search?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	c.decorate(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("repository: search %s by %s: %w", t, attr, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("repository: search %s by %s: unexpected status %s", t, attr, resp.Status)
	}

	var out struct {
		IDs []string `json:"ids"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("repository: search %s by %s: %w", t, attr, err)
	}
	return out.IDs, nil
}

// resolve turns an entity identifier into an absolute URL. Identifiers
// handed out by the upstream are already absolute; relative ones are
// resolved against the base URL.
func (c *HTTPClient) resolve(id string) string {
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	return c.baseURL + "/" + strings.TrimLeft(id, "/")
}

func (c *HTTPClient) decorate(req *http.Request) {
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
}

// collection maps an entity type to its collection path segment
func collection(t types.EntityType) string {
	switch t {
	case types.EntityTypeSubmission:
		return "submissions"
	case types.EntityTypeDeposit:
		return "deposits"
	case types.EntityTypeRepositoryCopy:
		return "repositoryCopies"
	case types.EntityTypeRepository:
		return "repositories"
	case types.EntityTypeFile:
		return "files"
	default:
		return strings.ToLower(string(t))
	}
}

// Unmarshal decodes an entity of the given type from JSON
func Unmarshal(data []byte, t types.EntityType) (types.Entity, error) {
	var e types.Entity
	switch t {
	case types.EntityTypeSubmission:
		e = &types.Submission{}
	case types.EntityTypeDeposit:
		e = &types.Deposit{}
	case types.EntityTypeRepositoryCopy:
		e = &types.RepositoryCopy{}
	case types.EntityTypeRepository:
		e = &types.Repository{}
	case types.EntityTypeFile:
		e = &types.File{}
	default:
		return nil, fmt.Errorf("unknown entity type %q", t)
	}
	if err := json.Unmarshal(data, e); err != nil {
		return nil, err
	}
	return e, nil
}
