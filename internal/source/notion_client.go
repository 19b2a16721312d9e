package source

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Activ8-AI/maosec/internal/secure"
)

const (
	notionDefaultBaseURL = "https://api.notion.com/v1"
	notionVersion        = "2022-06-28"
	notionPageSize       = 100
)

// notionClient is a minimal Notion REST client covering database queries.
type notionClient struct {
	httpClient *http.Client
	baseURL    string
	token      *secure.Buffer
}

func newNotionClient(baseURL string, token *secure.Buffer, timeout time.Duration) *notionClient {
	if baseURL == "" {
		baseURL = notionDefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &notionClient{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      token,
	}
}

// notionPage is one row of a database query response. Properties keeps the
// raw JSON shape; extraction happens in extractText.
type notionPage struct {
	ID         string                            `json:"id"`
	Properties map[string]map[string]interface{} `json:"properties"`
}

type queryResponse struct {
	Results    []notionPage `json:"results"`
	NextCursor string       `json:"next_cursor"`
	HasMore    bool         `json:"has_more"`
}

func (c *notionClient) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	token, err := c.token.String()
	if err != nil {
		return fmt.Errorf("failed to read source token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Notion-Version", notionVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Notion error bodies carry a machine-readable code worth surfacing.
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		_ = json.Unmarshal(raw, &apiErr)
		if apiErr.Code != "" {
			return fmt.Errorf("notion API returned status %d (%s): %s", resp.StatusCode, apiErr.Code, apiErr.Message)
		}
		return fmt.Errorf("notion API returned status %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// queryDatabase returns all pages of a database, following cursor pagination.
func (c *notionClient) queryDatabase(ctx context.Context, databaseID string) ([]notionPage, error) {
	var pages []notionPage
	payload := map[string]interface{}{"page_size": notionPageSize}

	for {
		var resp queryResponse
		if err := c.do(ctx, http.MethodPost, "/databases/"+databaseID+"/query", payload, &resp); err != nil {
			return nil, err
		}
		pages = append(pages, resp.Results...)

		if resp.NextCursor == "" {
			break
		}
		payload["start_cursor"] = resp.NextCursor
	}
	return pages, nil
}

// retrieveDatabase fetches database metadata; used as a cheap auth check.
func (c *notionClient) retrieveDatabase(ctx context.Context, databaseID string) error {
	return c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, nil)
}

// extractText pulls plain text out of a Notion property value. Notion returns
// several shapes for text depending on the column type and API age; this
// mirrors all of them: title arrays, rich_text arrays, a top-level
// plain_text, and nested text.content fallbacks.
func extractText(prop map[string]interface{}) string {
	if prop == nil {
		return ""
	}

	if ptype, _ := prop["type"].(string); ptype == "title" || ptype == "rich_text" {
		if s, ok := firstPlainText(prop[ptype]); ok {
			return s
		}
		return ""
	}

	if s, ok := prop["plain_text"].(string); ok {
		return s
	}

	for _, key := range []string{"rich_text", "title", "text"} {
		if s, ok := firstPlainText(prop[key]); ok {
			return s
		}
	}
	return ""
}

func firstPlainText(v interface{}) (string, bool) {
	arr, ok := v.([]interface{})
	if !ok || len(arr) == 0 {
		return "", false
	}
	first, ok := arr[0].(map[string]interface{})
	if !ok {
		return "", false
	}
	if s, ok := first["plain_text"].(string); ok && s != "" {
		return s, true
	}
	if text, ok := first["text"].(map[string]interface{}); ok {
		if s, ok := text["content"].(string); ok {
			return s, true
		}
	}
	return "", false
}
