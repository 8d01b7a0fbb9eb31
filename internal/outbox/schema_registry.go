package outbox

import (
	"bytes"
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

const registryContentType = "application/vnd.schemaregistry.v1+json"

// RegistryError is a non-2xx answer from the schema registry.
type RegistryError struct {
	Status int
	Code   int    `json:"error_code"`
	Detail string `json:"message"`
}

func (e *RegistryError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("schema registry: status %d code %d: %s", e.Status, e.Code, e.Detail)
	}
	return fmt.Sprintf("schema registry: status %d", e.Status)
}

func (e *RegistryError) notFound() bool { return e.Status == http.StatusNotFound }

// SchemaRegistryClient resolves subject schema ids over the Confluent REST API.
type SchemaRegistryClient struct {
	base   *url.URL
	client *http.Client
}

// NewSchemaRegistryClient builds a client for the registry at baseURL.
func NewSchemaRegistryClient(baseURL string) *SchemaRegistryClient {
	base, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		base = &url.URL{Path: baseURL}
	}
	return &SchemaRegistryClient{
		base:   base,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// EnsureSchema returns the id of the latest version of subject. Unknown subjects get schema registered as JSON.
func (c *SchemaRegistryClient) EnsureSchema(ctx context.Context, subject, schema string) (int, error) {
	id, err := c.call(ctx, http.MethodGet, subject, "versions/latest", nil)
	var regErr *RegistryError
	if !errors.As(err, &regErr) || !regErr.notFound() {
		return id, err
	}

	body, err := json.Marshal(struct {
		SchemaType string `json:"schemaType"`
		Schema     string `json:"schema"`
	}{"JSON", schema})
	if err != nil {
		return 0, err
	}
	return c.call(ctx, http.MethodPost, subject, "versions", body)
}

func (c *SchemaRegistryClient) call(ctx context.Context, method, subject, suffix string, body []byte) (int, error) {
	endpoint := c.base.JoinPath("subjects", subject, suffix)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint.String(), reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", registryContentType)
	if body != nil {
		req.Header.Set("Content-Type", registryContentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%s %s: %w", method, endpoint.Path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		regErr := &RegistryError{Status: resp.StatusCode}
		_ = json.NewDecoder(io.LimitReader(resp.Body, 4<<10)).Decode(regErr)
		return 0, regErr
	}

	var out struct {
		ID int `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return 0, fmt.Errorf("decode %s response: %w", endpoint.Path, err)
	}
	return out.ID, nil
}
