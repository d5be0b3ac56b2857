package graph

import "github.com/burrowworks/rabbithole/db"

type NodeKind string

const (
	KindAnswer   NodeKind = "answer"
	KindQuestion NodeKind = "question"
)

// Node is one vertex of the derived exploration graph. Answer nodes carry the
// full turn and render expanded; question nodes carry only the question text
// and stay collapsed until explored.
type Node struct {
	ID       string        `json:"id"`
	Kind     NodeKind      `json:"kind"`
	Label    string        `json:"label"`
	Turn     *db.TurnModel `json:"turn,omitempty"`
	Expanded bool          `json:"expanded"`
}

type Edge struct {
	ID     string `json:"id"`
	Source string `json:"source"`
	Target string `json:"target"`
}
