package content

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GenAIGenerator generates follow-up text using Google's Gemini API.
type GenAIGenerator struct {
	client *genai.Client
	model  string
}

func NewGenAIGenerator(ctx context.Context, apiKey, model string) (*GenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("content: GenAI API key is required")
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("content: create GenAI client: %w", err)
	}
	return &GenAIGenerator{client: client, model: model}, nil
}

func (g *GenAIGenerator) Generate(ctx context.Context, prompt string, contact ContactContext) (string, error) {
	full := composePrompt(prompt, contact)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(full), nil)
	if err != nil {
		return "", fmt.Errorf("content: generate failed: %w", err)
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", errors.New("content: model returned empty text")
	}
	return text, nil
}

func composePrompt(prompt string, contact ContactContext) string {
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\n")
	if contact.Name != "" {
		fmt.Fprintf(&b, "Contact name: %s\n", contact.Name)
	}
	fmt.Fprintf(&b, "Follow-up number: %d\n", contact.StepNumber+1)
	if contact.LastInbound != "" {
		fmt.Fprintf(&b, "Their last message: %s\n", contact.LastInbound)
	}
	b.WriteString("Reply with the message text only, no preamble.")
	return b.String()
}
