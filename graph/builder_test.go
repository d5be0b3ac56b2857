package graph

import (
	"testing"

	"github.com/burrowworks/rabbithole/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sessionFixture() *db.SearchModel {
	return &db.SearchModel{
		ID:    "hole-1",
		Query: "why do cats purr",
		Mode:  db.ModeExpansive,
		Turns: []db.TurnModel{
			{
				Query:         "why do cats purr",
				SequenceIndex: 0,
				Answer: db.AnswerModel{
					MainText:          "#### Purring\nBecause reasons.",
					FollowUpQuestions: []string{"Do big cats purr?", "Is purring healing?"},
				},
			},
			{
				Query:         "Do big cats purr?",
				SequenceIndex: 1,
				Answer: db.AnswerModel{
					MainText:          "#### Big cats\nSome do.",
					FollowUpQuestions: []string{},
				},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	t.Run("node and edge counts", func(t *testing.T) {
		nodes, edges := Build(sessionFixture())

		// 2 answer nodes + 2 question leaves, 1 chain edge + 2 question edges
		assert.Len(t, nodes, 4)
		assert.Len(t, edges, 3)

		answers, questions := 0, 0
		for _, n := range nodes {
			switch n.Kind {
			case KindAnswer:
				answers++
				assert.True(t, n.Expanded)
				require.NotNil(t, n.Turn)
			case KindQuestion:
				questions++
				assert.False(t, n.Expanded)
				assert.Nil(t, n.Turn)
			}
		}
		assert.Equal(t, 2, answers)
		assert.Equal(t, 2, questions)
	})

	t.Run("chain links consecutive turns", func(t *testing.T) {
		_, edges := Build(sessionFixture())

		assert.Equal(t, "hole-1-turn-0", edges[0].Source)
		assert.Equal(t, "hole-1-turn-1", edges[0].Target)
	})

	t.Run("question leaves hang off their turn", func(t *testing.T) {
		nodes, edges := Build(sessionFixture())

		assert.Equal(t, "hole-1-turn-0-q-0", nodes[2].ID)
		assert.Equal(t, "Do big cats purr?", nodes[2].Label)
		assert.Equal(t, "hole-1-turn-0", edges[1].Source)
		assert.Equal(t, "hole-1-turn-0-q-0", edges[1].Target)
	})

	t.Run("derived graph is a tree", func(t *testing.T) {
		nodes, edges := Build(sessionFixture())

		incoming := make(map[string]int)
		for _, e := range edges {
			incoming[e.Target]++
		}
		for _, n := range nodes {
			if n.ID == "hole-1-turn-0" {
				assert.Zero(t, incoming[n.ID], "root must have no incoming edge")
				continue
			}
			assert.Equal(t, 1, incoming[n.ID], "node %s must have exactly one parent", n.ID)
		}
	})

	t.Run("deterministic across calls", func(t *testing.T) {
		s := sessionFixture()

		nodesA, edgesA := Build(s)
		nodesB, edgesB := Build(s)

		require.Equal(t, len(nodesA), len(nodesB))
		for i := range nodesA {
			assert.Equal(t, nodesA[i].ID, nodesB[i].ID)
			assert.Equal(t, nodesA[i].Kind, nodesB[i].Kind)
		}
		assert.Equal(t, edgesA, edgesB)
	})

	t.Run("single turn has no chain edges", func(t *testing.T) {
		s := &db.SearchModel{
			ID: "solo",
			Turns: []db.TurnModel{{
				Query:  "root",
				Answer: db.AnswerModel{FollowUpQuestions: []string{}},
			}},
		}

		nodes, edges := Build(s)
		assert.Len(t, nodes, 1)
		assert.Empty(t, edges)
	})

	t.Run("nil session panics", func(t *testing.T) {
		assert.Panics(t, func() { Build(nil) })
	})
}
