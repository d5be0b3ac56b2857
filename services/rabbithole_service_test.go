package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/burrowworks/rabbithole/db"
	"github.com/burrowworks/rabbithole/llm"
	"github.com/burrowworks/rabbithole/search"
	"github.com/burrowworks/rabbithole/session"
	"github.com/burrowworks/rabbithole/synthesizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSearchClient struct {
	response *search.Response
	err      error
}

func (s *stubSearchClient) Search(ctx context.Context, query string, opts search.Options) (*search.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.response, nil
}

type stubLLMClient struct {
	response string
	err      error
}

func (s *stubLLMClient) GenerateInference(ctx context.Context, messages []llm.Message, callback func(chunk string) error, opts ...llm.LLMOption) error {
	if s.err != nil {
		return s.err
	}
	return callback(s.response)
}

func (s *stubLLMClient) GetModel() string { return "stub" }

type memoryRepository struct {
	mu      sync.Mutex
	saved   map[string]db.SearchModel
	findErr error
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{saved: make(map[string]db.SearchModel)}
}

func (m *memoryRepository) FindOneByID(ctx context.Context, id string) (*db.SearchModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.findErr != nil {
		return nil, m.findErr
	}
	model, ok := m.saved[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	copied := model
	return &copied, nil
}

func (m *memoryRepository) Save(ctx context.Context, model db.SearchModel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[model.ID] = model
	return nil
}

func (m *memoryRepository) FindRecentSuccessful(ctx context.Context, limit int64) ([]db.SearchModel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.SearchModel
	for _, model := range m.saved {
		if model.Status == db.StatusSuccess {
			out = append(out, model)
		}
	}
	if int64(len(out)) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memoryRepository) errorRecords() []db.SearchModel {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []db.SearchModel
	for _, model := range m.saved {
		if model.Status == db.StatusError {
			out = append(out, model)
		}
	}
	return out
}

const modelOutput = "#### Intro\nSome text.\n\nFollow-up Questions:\n1. What about X?\n2. Is Y true?\n3. Could Z happen?"

func newTestServer(searcher search.Client, model llm.LLMClient, repo session.Repository) http.Handler {
	synth := synthesizer.New(searcher, model, "stub")
	store := session.NewStore(repo)
	return NewRouter(ProvideRabbitholeService(synth, store))
}

func postSearch(t *testing.T, handler http.Handler, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/rabbitholes/search", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestSearchEndpoint(t *testing.T) {
	searcher := &stubSearchClient{response: &search.Response{
		Results: []search.Result{{Title: "Hit", URL: "https://example.com"}},
	}}

	t.Run("starts a new rabbit hole", func(t *testing.T) {
		repo := newMemoryRepository()
		handler := newTestServer(searcher, &stubLLMClient{response: modelOutput}, repo)

		rec := postSearch(t, handler, map[string]any{"query": "why do cats purr"})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Response            string         `json:"response"`
			FollowUpQuestions   []string       `json:"followUpQuestions"`
			SearchID            string         `json:"searchId"`
			ConversationHistory []db.TurnModel `json:"conversationHistory"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		assert.Equal(t, "#### Intro\nSome text.", resp.Response)
		assert.Len(t, resp.FollowUpQuestions, 3)
		assert.NotEmpty(t, resp.SearchID)
		require.Len(t, resp.ConversationHistory, 1)
		assert.Equal(t, 0, resp.ConversationHistory[0].SequenceIndex)
	})

	t.Run("appends to an existing rabbit hole", func(t *testing.T) {
		repo := newMemoryRepository()
		handler := newTestServer(searcher, &stubLLMClient{response: modelOutput}, repo)

		first := postSearch(t, handler, map[string]any{"query": "why do cats purr"})
		require.Equal(t, http.StatusOK, first.Code)
		var firstResp struct {
			SearchID string `json:"searchId"`
		}
		require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))

		second := postSearch(t, handler, map[string]any{
			"query":          "Do big cats purr?",
			"parentSearchId": firstResp.SearchID,
		})
		require.Equal(t, http.StatusOK, second.Code)

		var secondResp struct {
			ConversationHistory []db.TurnModel `json:"conversationHistory"`
		}
		require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))
		require.Len(t, secondResp.ConversationHistory, 2)
		assert.Equal(t, 1, secondResp.ConversationHistory[1].SequenceIndex)
	})

	t.Run("unknown parent is a 404", func(t *testing.T) {
		handler := newTestServer(searcher, &stubLLMClient{response: modelOutput}, newMemoryRepository())

		rec := postSearch(t, handler, map[string]any{
			"query":          "anything",
			"parentSearchId": "no-such-hole",
		})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("parent lookup failure is a 500", func(t *testing.T) {
		repo := newMemoryRepository()
		repo.findErr = errors.New("connection reset")
		handler := newTestServer(searcher, &stubLLMClient{response: modelOutput}, repo)

		rec := postSearch(t, handler, map[string]any{
			"query":          "anything",
			"parentSearchId": "some-hole",
		})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("session header and source snapshot are persisted", func(t *testing.T) {
		repo := newMemoryRepository()
		handler := newTestServer(searcher, &stubLLMClient{response: modelOutput}, repo)

		payload, err := json.Marshal(map[string]any{"query": "why do cats purr"})
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodPost, "/api/rabbitholes/search", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Session-Id", "browser-session-7")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			SearchID string `json:"searchId"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

		persisted, err := repo.FindOneByID(context.Background(), resp.SearchID)
		require.NoError(t, err)
		assert.Equal(t, "browser-session-7", persisted.SessionID)
		require.Len(t, persisted.SearchResults, 1)
		assert.Equal(t, "Hit", persisted.SearchResults[0].Title)
	})

	t.Run("missing query is a 400", func(t *testing.T) {
		handler := newTestServer(searcher, &stubLLMClient{response: modelOutput}, newMemoryRepository())

		rec := postSearch(t, handler, map[string]any{"concept": "cats"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("search failure persists an error record", func(t *testing.T) {
		repo := newMemoryRepository()
		handler := newTestServer(&stubSearchClient{err: errors.New("tavily down")}, &stubLLMClient{response: modelOutput}, repo)

		rec := postSearch(t, handler, map[string]any{"query": "doomed"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)

		records := repo.errorRecords()
		require.Len(t, records, 1)
		assert.Equal(t, "doomed", records[0].Query)
		assert.Empty(t, records[0].Turns)
	})

	t.Run("rate limited model maps to 429", func(t *testing.T) {
		repo := newMemoryRepository()
		rateLimited := &llm.RateLimitError{Provider: "openai", Err: errors.New("429")}
		handler := newTestServer(searcher, &stubLLMClient{err: rateLimited}, repo)

		rec := postSearch(t, handler, map[string]any{"query": "busy"})
		require.Equal(t, http.StatusTooManyRequests, rec.Code)

		var resp map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, "5 seconds", resp["retryAfter"])
		assert.Len(t, repo.errorRecords(), 1)
	})
}

func TestRecentSearchesEndpoint(t *testing.T) {
	repo := newMemoryRepository()
	handler := newTestServer(&stubSearchClient{response: &search.Response{}}, &stubLLMClient{response: modelOutput}, repo)

	for _, q := range []string{"one", "two"} {
		rec := postSearch(t, handler, map[string]any{"query": q})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/rabbitholes/recent-searches", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var searches []db.SearchModel
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &searches))
	assert.Len(t, searches, 2)
}

func TestGetSearchEndpoint(t *testing.T) {
	repo := newMemoryRepository()
	handler := newTestServer(&stubSearchClient{response: &search.Response{}}, &stubLLMClient{response: modelOutput}, repo)

	created := postSearch(t, handler, map[string]any{"query": "cats"})
	require.Equal(t, http.StatusOK, created.Code)
	var resp struct {
		SearchID string `json:"searchId"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	t.Run("found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/rabbitholes/search/"+resp.SearchID, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/rabbitholes/search/nope", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestGetGraphEndpoint(t *testing.T) {
	repo := newMemoryRepository()
	handler := newTestServer(&stubSearchClient{response: &search.Response{}}, &stubLLMClient{response: modelOutput}, repo)

	created := postSearch(t, handler, map[string]any{"query": "cats"})
	require.Equal(t, http.StatusOK, created.Code)
	var resp struct {
		SearchID string `json:"searchId"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	req := httptest.NewRequest(http.MethodGet, "/api/rabbitholes/search/"+resp.SearchID+"/graph", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var graphResp struct {
		Nodes []json.RawMessage `json:"nodes"`
		Edges []json.RawMessage `json:"edges"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &graphResp))

	// one answer node plus three question leaves from the fixture output
	assert.Len(t, graphResp.Nodes, 4)
	assert.Len(t, graphResp.Edges, 3)
}
