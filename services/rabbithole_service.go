package services

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/SaiNageswarS/go-api-boot/logger"
	"github.com/SaiNageswarS/go-collection-boot/linq"
	"github.com/burrowworks/rabbithole/db"
	"github.com/burrowworks/rabbithole/graph"
	"github.com/burrowworks/rabbithole/session"
	"github.com/burrowworks/rabbithole/synthesizer"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const recentSearchLimit = 5

// RabbitholeService exposes the exploration operations over HTTP: run a
// search (starting or continuing a rabbit hole), list recent successful
// holes, fetch one by id and fetch its positioned graph.
type RabbitholeService struct {
	synth    *synthesizer.Synthesizer
	store    *session.Store
	validate *validator.Validate
}

func ProvideRabbitholeService(synth *synthesizer.Synthesizer, store *session.Store) *RabbitholeService {
	return &RabbitholeService{
		synth:    synth,
		store:    store,
		validate: validator.New(),
	}
}

func (s *RabbitholeService) RegisterRoutes(r chi.Router) {
	r.Post("/rabbitholes/search", s.Search)
	r.Get("/rabbitholes/recent-searches", s.RecentSearches)
	r.Get("/rabbitholes/search/{searchID}", s.GetSearch)
	r.Get("/rabbitholes/search/{searchID}/graph", s.GetGraph)
}

type conversationMessage struct {
	User      string `json:"user"`
	Assistant string `json:"assistant"`
}

type searchRequest struct {
	Query                string                `json:"query" validate:"required"`
	PreviousConversation []conversationMessage `json:"previousConversation"`
	Concept              string                `json:"concept"`
	FollowUpMode         db.FollowUpMode       `json:"followUpMode" validate:"omitempty,oneof=expansive focused"`
	ParentSearchID       string                `json:"parentSearchId"`
}

type searchResponse struct {
	Response            string           `json:"response"`
	FollowUpQuestions   []string         `json:"followUpQuestions"`
	ContextualQuery     string           `json:"contextualQuery"`
	Sources             []db.SourceModel `json:"sources"`
	Images              []db.ImageModel  `json:"images"`
	SearchID            string           `json:"searchId"`
	ConversationHistory []db.TurnModel   `json:"conversationHistory"`
}

// Search synthesizes an answer for the query and appends it to the rabbit
// hole named by parentSearchId, or starts a new one. Synthesis failures are
// persisted as terminal error records before being reported.
func (s *RabbitholeService) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request", err.Error())
		return
	}

	mode := req.FollowUpMode
	if mode == "" {
		mode = db.ModeExpansive
	}

	priorTurns := linq.Map(req.PreviousConversation, func(m conversationMessage) synthesizer.PriorTurn {
		return synthesizer.PriorTurn{Query: m.User, AnswerSummary: m.Assistant}
	})

	answer, err := s.synth.Synthesize(r.Context(), synthesizer.Request{
		Query:      req.Query,
		PriorTurns: priorTurns,
		Concept:    req.Concept,
		Mode:       mode,
	})
	if err != nil {
		s.recordFailure(r, req, mode, err)
		respondSynthesisError(w, err)
		return
	}

	var model *db.SearchModel
	if req.ParentSearchID != "" {
		model, err = s.store.AppendTurn(r.Context(), req.ParentSearchID, req.Query, answer)
	} else {
		fresh := db.NewSearchModel(req.Query, mode)
		fresh.Concept = req.Concept
		fresh.IPHash = hashIP(clientIP(r))
		fresh.UserAgent = r.UserAgent()
		fresh.SessionID = r.Header.Get("X-Session-Id")
		fresh.SearchResults = answer.Sources
		model, err = s.store.StartSession(r.Context(), fresh, answer)
	}
	if err != nil {
		if errors.Is(err, session.ErrSessionNotFound) {
			respondError(w, http.StatusNotFound, "Parent search not found", "")
			return
		}
		logger.Error("Failed to persist search", zap.String("query", req.Query), zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to process search request", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, searchResponse{
		Response:            answer.MainText,
		FollowUpQuestions:   answer.FollowUpQuestions,
		ContextualQuery:     req.Query,
		Sources:             answer.Sources,
		Images:              answer.Images,
		SearchID:            model.ID,
		ConversationHistory: model.Turns,
	})
}

// RecentSearches returns the latest successful rabbit holes, newest first.
func (s *RabbitholeService) RecentSearches(w http.ResponseWriter, r *http.Request) {
	searches, err := s.store.FindRecentSuccessful(r.Context(), recentSearchLimit)
	if err != nil {
		logger.Error("Failed to fetch recent searches", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "Failed to fetch recent searches", err.Error())
		return
	}

	respondJSON(w, http.StatusOK, searches)
}

func (s *RabbitholeService) GetSearch(w http.ResponseWriter, r *http.Request) {
	searchID := chi.URLParam(r, "searchID")

	model, err := s.store.FindByID(r.Context(), searchID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Search not found", "")
		return
	}

	respondJSON(w, http.StatusOK, model)
}

// GetGraph returns the render-ready node/edge diagram for one rabbit hole.
// Selecting a question node on the client posts back to Search with this
// search's id as parentSearchId, which appends the next turn.
func (s *RabbitholeService) GetGraph(w http.ResponseWriter, r *http.Request) {
	searchID := chi.URLParam(r, "searchID")

	model, err := s.store.FindByID(r.Context(), searchID)
	if err != nil {
		respondError(w, http.StatusNotFound, "Search not found", "")
		return
	}

	nodes, edges := graph.Build(model)
	respondJSON(w, http.StatusOK, map[string]any{
		"nodes": graph.Layout(nodes, edges),
		"edges": graph.StyleEdges(edges),
	})
}

func (s *RabbitholeService) recordFailure(r *http.Request, req searchRequest, mode db.FollowUpMode, cause error) {
	model := db.NewSearchModel(req.Query, mode)
	model.Concept = req.Concept
	model.IPHash = hashIP(clientIP(r))
	model.UserAgent = r.UserAgent()
	model.SessionID = r.Header.Get("X-Session-Id")

	if err := s.store.RecordFailure(r.Context(), model, cause); err != nil {
		logger.Error("Failed to record failed search", zap.String("query", req.Query), zap.Error(err))
	}
}

func respondSynthesisError(w http.ResponseWriter, err error) {
	var modelErr *synthesizer.ModelUpstreamError
	if errors.As(err, &modelErr) && modelErr.RateLimited {
		respondJSON(w, http.StatusTooManyRequests, map[string]string{
			"error":      "Service is temporarily busy. Please try again in a few seconds.",
			"retryAfter": "5 seconds",
		})
		return
	}

	respondError(w, http.StatusInternalServerError, "Failed to process search request", err.Error())
}

func hashIP(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return hex.EncodeToString(sum[:])
}

func clientIP(r *http.Request) string {
	// middleware.RealIP has already folded X-Forwarded-For into RemoteAddr.
	if r.RemoteAddr == "" {
		return "unknown"
	}
	return r.RemoteAddr
}
