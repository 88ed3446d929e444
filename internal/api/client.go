package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/ideas"
	"github.com/MattiaPichierri/creative-muse-ai-sub000/internal/logging"
)

var (
	ErrRequestFailed = errors.New("API request failed")
	ErrNoBody        = errors.New("response body missing")
	log              = logging.Get()
)

// Client handles communication with the idea generation service.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a new generation API client.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{},
	}
}

func (c *Client) newJSONRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

// OpenStream issues a streaming generation request and returns the raw
// response body for the caller's read loop. A non-2xx status or missing
// body is reported as a connection failure; the caller owns closing the
// returned reader.
func (c *Client) OpenStream(ctx context.Context, genReq ideas.GenerationRequest) (io.ReadCloser, error) {
	genReq.Stream = true

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/generate/stream", genReq)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/event-stream")

	log.Debug("HTTP POST %s/generate/stream (category: %s, creativity: %d)",
		c.baseURL, genReq.Category, genReq.CreativityLevel)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("HTTP request failed: %v", err)
		return nil, err
	}

	log.Debug("HTTP response status: %d", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		log.Error("API error %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, string(body))
	}
	if resp.Body == nil {
		return nil, ErrNoBody
	}

	return resp.Body, nil
}

// Generate issues a non-streaming generation request and returns the
// finished idea. Used directly and as the streaming fallback.
func (c *Client) Generate(ctx context.Context, genReq ideas.GenerationRequest) (*ideas.Idea, error) {
	genReq.Stream = false

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/generate", genReq)
	if err != nil {
		return nil, err
	}

	log.Debug("HTTP POST %s/generate (category: %s)", c.baseURL, genReq.Category)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("HTTP request failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		log.Error("API error %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	var idea ideas.Idea
	if err := json.NewDecoder(resp.Body).Decode(&idea); err != nil {
		return nil, err
	}
	if idea.ID == "" {
		return nil, errors.New("generation response missing idea id")
	}

	return &idea, nil
}

// GenerateBatch issues a batch generation request (max 10 prompts).
func (c *Client) GenerateBatch(ctx context.Context, batchReq ideas.BatchRequest) (*ideas.BatchResult, error) {
	if err := batchReq.Validate(); err != nil {
		return nil, err
	}

	req, err := c.newJSONRequest(ctx, http.MethodPost, "/generate/batch", batchReq)
	if err != nil {
		return nil, err
	}

	log.Debug("HTTP POST %s/generate/batch (prompts: %d, parallel: %v)",
		c.baseURL, len(batchReq.Prompts), batchReq.Parallel)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("HTTP request failed: %v", err)
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		log.Error("API error %d: %s", resp.StatusCode, string(body))
		return nil, fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	var result ideas.BatchResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

type ratingRequest struct {
	Rating int `json:"rating"`
}

// RateIdea submits a 1-5 rating for an idea.
func (c *Client) RateIdea(ctx context.Context, id string, rating int) error {
	if rating < 1 || rating > 5 {
		return ideas.ErrInvalidRating
	}
	if id == "" {
		return ideas.ErrIdeaNotFound
	}

	req, err := c.newJSONRequest(ctx, http.MethodPut, "/ideas/"+id+"/rating", ratingRequest{Rating: rating})
	if err != nil {
		return err
	}

	log.Debug("HTTP PUT %s/ideas/%s/rating (rating: %d)", c.baseURL, id, rating)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("HTTP request failed: %v", err)
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		log.Error("API error %d: %s", resp.StatusCode, string(body))
		return fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	return nil
}

type listResponse struct {
	Ideas []ideas.Idea `json:"ideas"`
	Total int          `json:"total"`
}

// ListIdeas fetches the remote idea collection.
func (c *Client) ListIdeas(ctx context.Context) ([]ideas.Idea, int, error) {
	req, err := c.newJSONRequest(ctx, http.MethodGet, "/ideas", nil)
	if err != nil {
		return nil, 0, err
	}

	log.Debug("HTTP GET %s/ideas", c.baseURL)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error("HTTP request failed: %v", err)
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		log.Error("API error %d: %s", resp.StatusCode, string(body))
		return nil, 0, fmt.Errorf("%w: %d - %s", ErrRequestFailed, resp.StatusCode, string(body))
	}

	var list listResponse
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, 0, err
	}

	return list.Ideas, list.Total, nil
}
