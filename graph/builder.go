package graph

import (
	"fmt"

	"github.com/burrowworks/rabbithole/db"
)

// Build derives the render graph from a session's turn history. It is a pure
// function of the turn list: ids are derived from the session id and turn
// indexes, so repeated calls on the same session produce identical output.
//
// Turn i's answer node is chained to turn i+1's, and every follow-up question
// becomes a leaf hanging off its turn. The result is a tree rooted at turn 0.
func Build(s *db.SearchModel) ([]Node, []Edge) {
	if s == nil {
		panic("graph: Build called with nil session")
	}

	nodes := make([]Node, 0, len(s.Turns))
	chainEdges := make([]Edge, 0)
	questionNodes := make([]Node, 0)
	questionEdges := make([]Edge, 0)

	for i := range s.Turns {
		turn := s.Turns[i]
		answerID := answerNodeID(s.ID, i)

		nodes = append(nodes, Node{
			ID:       answerID,
			Kind:     KindAnswer,
			Label:    turn.Query,
			Turn:     &turn,
			Expanded: true,
		})

		if i > 0 {
			chainEdges = append(chainEdges, Edge{
				ID:     chainEdgeID(s.ID, i),
				Source: answerNodeID(s.ID, i-1),
				Target: answerID,
			})
		}
	}

	for i := range s.Turns {
		for q, question := range s.Turns[i].Answer.FollowUpQuestions {
			questionID := questionNodeID(s.ID, i, q)

			questionNodes = append(questionNodes, Node{
				ID:       questionID,
				Kind:     KindQuestion,
				Label:    question,
				Expanded: false,
			})
			questionEdges = append(questionEdges, Edge{
				ID:     "edge-" + questionID,
				Source: answerNodeID(s.ID, i),
				Target: questionID,
			})
		}
	}

	nodes = append(nodes, questionNodes...)
	edges := append(chainEdges, questionEdges...)
	return nodes, edges
}

func answerNodeID(searchID string, turn int) string {
	return fmt.Sprintf("%s-turn-%d", searchID, turn)
}

func questionNodeID(searchID string, turn, question int) string {
	return fmt.Sprintf("%s-turn-%d-q-%d", searchID, turn, question)
}

func chainEdgeID(searchID string, turn int) string {
	return fmt.Sprintf("%s-chain-%d", searchID, turn)
}
