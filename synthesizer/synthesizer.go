package synthesizer

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/SaiNageswarS/go-collection-boot/linq"
	"github.com/burrowworks/rabbithole/db"
	"github.com/burrowworks/rabbithole/llm"
	"github.com/burrowworks/rabbithole/prompts"
	"github.com/burrowworks/rabbithole/search"
)

const searchResultLimit = 3

// PriorTurn is the condensed view of an earlier exchange used to build
// conversational context for the next query.
type PriorTurn struct {
	Query         string
	AnswerSummary string
}

type Request struct {
	Query      string
	PriorTurns []PriorTurn
	Concept    string
	Mode       db.FollowUpMode
}

// Synthesizer turns a raw query plus prior context into a structured answer:
// web search, prompt rendering, model inference, response parsing. It is pure
// over its two upstream calls; persisting the result is the caller's job.
type Synthesizer struct {
	searcher search.Client
	llm      llm.LLMClient
	model    string
}

func New(searcher search.Client, llmClient llm.LLMClient, model string) *Synthesizer {
	return &Synthesizer{
		searcher: searcher,
		llm:      llmClient,
		model:    model,
	}
}

func (s *Synthesizer) Synthesize(ctx context.Context, req Request) (db.AnswerModel, error) {
	if strings.TrimSpace(req.Query) == "" {
		return db.AnswerModel{}, fmt.Errorf("query cannot be empty")
	}

	searchResults, err := s.searcher.Search(ctx, req.Query, search.Options{
		MaxResults:    searchResultLimit,
		IncludeImages: true,
	})
	if err != nil {
		return db.AnswerModel{}, &SearchUpstreamError{Err: err}
	}

	systemPrompt, userPrompt, err := renderPrompt(req, searchResults)
	if err != nil {
		return db.AnswerModel{}, err
	}

	var response strings.Builder
	err = s.llm.GenerateInference(ctx,
		[]llm.Message{{Role: "user", Content: userPrompt}},
		func(chunk string) error {
			response.WriteString(chunk)
			return nil
		},
		llm.WithLLMModel(s.model),
		llm.WithSystemPrompt(systemPrompt),
		llm.WithTemperature(0.7),
		llm.WithMaxTokens(4096),
	)
	if err != nil {
		return db.AnswerModel{}, &ModelUpstreamError{Err: err, RateLimited: llm.IsRateLimit(err)}
	}

	mainText, followUps := splitResponse(response.String())

	// Missing provider fields stay as empty strings rather than being
	// omitted, so every source and image carries the full field set.
	answer := db.AnswerModel{
		MainText:          mainText,
		FollowUpQuestions: followUps,
		Sources: linq.Map(searchResults.Results, func(r search.Result) db.SourceModel {
			return db.SourceModel{
				Title:        r.Title,
				URL:          r.URL,
				Author:       r.Author,
				PreviewImage: r.Image,
			}
		}),
		Images: linq.Map(searchResults.Images, func(img search.Image) db.ImageModel {
			return db.ImageModel{
				URL:          img.URL,
				ThumbnailURL: img.URL,
				Description:  img.Description,
			}
		}),
	}

	return answer, nil
}

func renderPrompt(req Request, searchResults *search.Response) (systemPrompt, userPrompt string, err error) {
	searchJSON, err := json.Marshal(searchResults)
	if err != nil {
		return "", "", fmt.Errorf("error marshaling search results: %w", err)
	}

	concept := req.Concept
	if concept == "" {
		concept = req.Query
	}

	framing := "broad and exploratory"
	if req.Mode == db.ModeFocused {
		framing = "focused and specific"
	}

	return prompts.RenderExplorePrompt(prompts.ExplorePromptData{
		ConversationContext: conversationContext(req.PriorTurns),
		Query:               req.Query,
		SearchResultsJSON:   string(searchJSON),
		Concept:             concept,
		ModeFraming:         framing,
	})
}

func conversationContext(turns []PriorTurn) string {
	var out strings.Builder
	for _, t := range turns {
		if t.Query != "" {
			fmt.Fprintf(&out, "User: %s\n", t.Query)
		}
		if t.AnswerSummary != "" {
			fmt.Fprintf(&out, "Assistant: %s\n", t.AnswerSummary)
		}
		out.WriteString("\n")
	}
	return strings.TrimSpace(out.String())
}
