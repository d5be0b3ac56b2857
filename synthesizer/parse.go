package synthesizer

import (
	"regexp"
	"strings"
)

// FollowUpMarker is the literal string the system prompt instructs the model
// to emit before its follow-up questions. Parsing keys off this exact text.
const FollowUpMarker = "Follow-up Questions:"

const maxFollowUps = 3

var ordinalPrefix = regexp.MustCompile(`^\d+\.\s+`)

// splitResponse divides raw model output into the main answer and at most
// three follow-up questions. Everything before the marker is the answer,
// trimmed. Lines after the marker survive only if they are non-blank and
// contain a question mark; leading ordinals ("1. ") are stripped. A missing
// marker means no follow-ups and the whole trimmed response is the answer.
func splitResponse(raw string) (mainText string, followUps []string) {
	before, after, found := strings.Cut(raw, FollowUpMarker)
	mainText = strings.TrimSpace(before)

	followUps = []string{}
	if !found {
		return mainText, followUps
	}

	for _, line := range strings.Split(after, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		line = strings.TrimSpace(ordinalPrefix.ReplaceAllString(line, ""))
		if !strings.Contains(line, "?") {
			continue
		}

		followUps = append(followUps, line)
		if len(followUps) == maxFollowUps {
			break
		}
	}

	return mainText, followUps
}
