package db

import "github.com/google/uuid"

type FollowUpMode string

const (
	ModeExpansive FollowUpMode = "expansive"
	ModeFocused   FollowUpMode = "focused"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// SourceModel is one web source backing an answer.
type SourceModel struct {
	Title        string `json:"title" bson:"title"`
	URL          string `json:"url" bson:"url"`
	Author       string `json:"author" bson:"author"`
	PreviewImage string `json:"previewImage" bson:"previewImage"`
}

// ImageModel is one image attached to an answer.
type ImageModel struct {
	URL          string `json:"url" bson:"url"`
	ThumbnailURL string `json:"thumbnailUrl" bson:"thumbnailUrl"`
	Description  string `json:"description" bson:"description"`
}

// AnswerModel is the synthesized answer for a single turn: markdown prose
// plus at most three follow-up questions and the web material it was
// grounded on.
type AnswerModel struct {
	MainText          string        `json:"mainText" bson:"mainText"`
	FollowUpQuestions []string      `json:"followUpQuestions" bson:"followUpQuestions"`
	Sources           []SourceModel `json:"sources" bson:"sources"`
	Images            []ImageModel  `json:"images" bson:"images"`
}

// TurnModel is a single query/answer exchange. Turns are immutable once
// appended; SequenceIndex is their 0-based position in the search's turn list.
type TurnModel struct {
	Query         string      `json:"query" bson:"query"`
	Answer        AnswerModel `json:"answer" bson:"answer"`
	SequenceIndex int         `json:"sequenceIndex" bson:"sequenceIndex"`
}

// SearchModel is one rabbit-hole exploration: the root query, the mode it
// was started in and the append-only conversation history. A record with
// StatusError carries the failing query and error message and zero turns.
type SearchModel struct {
	ID        string       `json:"searchId" bson:"_id"`
	Query     string       `json:"query" bson:"query"`
	Mode      FollowUpMode `json:"followUpMode" bson:"followUpMode"`
	Concept   string       `json:"concept,omitempty" bson:"concept"`
	Status    string       `json:"status" bson:"status"`
	Error     string       `json:"error,omitempty" bson:"error"`
	IPHash    string       `json:"-" bson:"ipHash"`
	UserAgent string       `json:"-" bson:"userAgent"`
	SessionID string       `json:"sessionId,omitempty" bson:"sessionId"`
	// SearchResults snapshots the web sources behind the root turn, kept
	// top-level so a hole can be listed without unpacking its turns.
	SearchResults []SourceModel `json:"searchResults" bson:"searchResults"`
	Turns         []TurnModel   `json:"conversationHistory" bson:"turns"`
	CreatedOn     int64         `json:"createdOn" bson:"createdOn"`
}

func NewSearchModel(query string, mode FollowUpMode) *SearchModel {
	return &SearchModel{
		ID:     uuid.New().String(),
		Query:  query,
		Mode:   mode,
		Status: StatusSuccess,
		Turns:  []TurnModel{},
	}
}

func (m SearchModel) Id() string {
	if len(m.ID) == 0 {
		return uuid.New().String()
	}
	return m.ID
}

func (m SearchModel) CollectionName() string {
	return "searches"
}
