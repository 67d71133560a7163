// Package ocr turns a receipt image into raw text via a vision model.
// Consumers depend on TextExtractor so tests can stub the provider.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// DefaultModelName is the vision model used for receipt transcription.
const DefaultModelName = "gemini-2.0-flash"

// TextExtractor is the external OCR collaborator.
type TextExtractor interface {
	ExtractText(ctx context.Context, image []byte, mimeType string) (string, error)
}

const transcriptionPrompt = "You are an OCR engine for bank transfer receipt screenshots " +
	"(Thai and Myanmar banks).\n\n" +
	"Task:\n" +
	"- Transcribe ALL visible text from the attached receipt image.\n" +
	"- Keep the original line structure; one receipt line per output line.\n" +
	"- Include amounts, bank names, account names, masked account numbers, " +
	"dates and reference numbers exactly as printed.\n" +
	"- Output plain text ONLY. No commentary, no Markdown, no code fences.\n"

// GenAIExtractor calls the Gemini vision API.
type GenAIExtractor struct {
	client *genai.Client
	model  string
}

func NewGenAIExtractor(ctx context.Context) (*GenAIExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		HTTPOptions: genai.HTTPOptions{APIVersion: "v1"},
	})
	if err != nil {
		return nil, fmt.Errorf("ocr: create genai client: %w", err)
	}
	return &GenAIExtractor{client: client, model: DefaultModelName}, nil
}

func (e *GenAIExtractor) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: transcriptionPrompt},
				{
					InlineData: &genai.Blob{
						MIMEType: mimeType,
						Data:     image,
					},
				},
			},
		},
	}

	resp, err := e.client.Models.GenerateContent(ctx, e.model, contents, nil)
	if err != nil {
		return "", fmt.Errorf("ocr: generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return "", fmt.Errorf("ocr: empty response from model")
	}
	return cleanModelText(raw), nil
}

// cleanModelText strips Markdown fences if the model ignored instructions.
func cleanModelText(raw string) string {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
		if idx := strings.LastIndex(s, "```"); idx != -1 {
			s = s[:idx]
		}
		s = strings.TrimSpace(s)
	}
	return s
}
