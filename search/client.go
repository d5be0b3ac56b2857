package search

import "context"

// Options bound a search request.
type Options struct {
	MaxResults    int  `json:"maxResults"`
	IncludeImages bool `json:"includeImages"`
}

// Result is one web hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
	Author  string `json:"author"`
	Image   string `json:"image"`
}

// Image is one image hit, returned when Options.IncludeImages is set.
type Image struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

type Response struct {
	Results []Result `json:"results"`
	Images  []Image  `json:"images"`
}

type Client interface {
	Search(ctx context.Context, query string, opts Options) (*Response, error)
}
