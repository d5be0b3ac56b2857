package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/SaiNageswarS/go-api-boot/logger"
)

type TavilyClient struct {
	apiKey     string
	httpClient *http.Client
	url        string
}

func NewTavilyClient() Client {
	apiKey := os.Getenv("TAVILY_API_KEY")
	if apiKey == "" {
		// Providers are designed for dependency injection.
		// If the API key is not set, we log a fatal error.
		logger.Fatal("TAVILY_API_KEY environment variable is not set")
		return nil
	}

	return &TavilyClient{
		apiKey:     apiKey,
		httpClient: &http.Client{},
		url:        "https://api.tavily.com/search",
	}
}

func (c *TavilyClient) Search(ctx context.Context, query string, opts Options) (*Response, error) {
	request := tavilyRequest{
		Query:            query,
		SearchDepth:      "basic",
		MaxResults:       opts.MaxResults,
		IncludeImages:    opts.IncludeImages,
		IncludeImageDesc: opts.IncludeImages,
	}

	jsonData, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API request failed with status %d: %s", resp.StatusCode, string(body))
	}

	var response tavilyResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("error unmarshaling response: %w", err)
	}

	out := &Response{
		Results: make([]Result, 0, len(response.Results)),
		Images:  make([]Image, 0, len(response.Images)),
	}
	for _, r := range response.Results {
		out.Results = append(out.Results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: r.Content,
			Author:  r.Author,
			Image:   r.Image,
		})
	}
	for _, img := range response.Images {
		out.Images = append(out.Images, Image{
			URL:         img.URL,
			Description: img.Description,
		})
	}

	return out, nil
}

// Tavily API types
type tavilyRequest struct {
	Query            string `json:"query"`
	SearchDepth      string `json:"search_depth,omitempty"`
	MaxResults       int    `json:"max_results,omitempty"`
	IncludeImages    bool   `json:"include_images,omitempty"`
	IncludeImageDesc bool   `json:"include_image_descriptions,omitempty"`
}

type tavilyResponse struct {
	Query   string         `json:"query"`
	Results []tavilyResult `json:"results"`
	Images  []tavilyImage  `json:"images"`
}

type tavilyResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Image   string `json:"image"`
}

type tavilyImage struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}
