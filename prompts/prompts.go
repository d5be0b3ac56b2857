package prompts

import (
	"bytes"
	"embed"
	"text/template"
)

//go:embed templates/*
var templatesFS embed.FS

type ExplorePromptData struct {
	ConversationContext string
	Query               string
	SearchResultsJSON   string
	Concept             string
	ModeFraming         string
}

// RenderExplorePrompt renders the exploration prompt pair. The system half is
// fixed instruction text; the user half embeds prior-turn context, the raw
// search results and the concept being explored.
func RenderExplorePrompt(data ExplorePromptData) (systemPrompt, userPrompt string, err error) {
	systemPrompt, err = loadPrompt("templates/explore_system.md", data)
	if err != nil {
		return "", "", err
	}

	userPrompt, err = loadPrompt("templates/explore_user.md", data)
	if err != nil {
		return "", "", err
	}

	return systemPrompt, userPrompt, nil
}

func loadPrompt(templatePath string, data interface{}) (string, error) {
	tmpl, err := template.ParseFS(templatesFS, templatePath)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, data)
	if err != nil {
		return "", err
	}

	return buf.String(), nil
}
