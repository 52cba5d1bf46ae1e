// Package ocr extracts structured fields from receipt images and embeds
// receipt text for semantic search, both through Gemini.
package ocr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dvloznov/ministry-backoffice/internal/domain"
	"google.golang.org/genai"
)

const (
	DefaultModelName     = "gemini-2.5-flash"
	DefaultEmbeddingName = "text-embedding-004"
)

// ErrNotConfigured is returned by the fallback client when no API key is set.
var ErrNotConfigured = errors.New("GEMINI_API_KEY not configured")

const receiptPrompt = "Extract the following from this receipt image and return ONLY valid JSON:\n" +
	"{\n" +
	"  \"merchant_name\": \"string\",\n" +
	"  \"transaction_date\": \"YYYY-MM-DD\",\n" +
	"  \"total_amount\": number,\n" +
	"  \"subtotal\": number or null,\n" +
	"  \"tax\": number or null,\n" +
	"  \"items\": [{\"name\": \"string\", \"quantity\": number, \"price\": number}],\n" +
	"  \"payment_method\": \"string or null\",\n" +
	"  \"category_suggestion\": \"string\"\n" +
	"}\n" +
	"If a field is unreadable, set it to null.\n" +
	"Do NOT wrap the response in code fences.\n"

// Extractor reads receipt fields out of an image.
type Extractor interface {
	Extract(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptExtraction, error)
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// GeminiClient implements Extractor and Embedder.
type GeminiClient struct {
	client         *genai.Client
	model          string
	embeddingModel string
}

// NewGeminiClient creates a client for the Gemini API.
func NewGeminiClient(ctx context.Context, apiKey, model, embeddingModel string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewGeminiClient: create genai client: %w", err)
	}
	if model == "" {
		model = DefaultModelName
	}
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingName
	}
	return &GeminiClient{client: client, model: model, embeddingModel: embeddingModel}, nil
}

// Extract sends the image to the vision model and decodes its JSON answer.
func (g *GeminiClient) Extract(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptExtraction, error) {
	contents := []*genai.Content{
		{
			Role: "user",
			Parts: []*genai.Part{
				{Text: receiptPrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: image}},
			},
		},
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("Extract: generate content: %w", err)
	}
	raw := resp.Text()
	if raw == "" {
		return nil, fmt.Errorf("Extract: empty response from model")
	}

	out, err := DecodeExtraction(raw)
	if err != nil {
		return nil, fmt.Errorf("Extract: %w", err)
	}
	return out, nil
}

// Embed returns the embedding vector of text.
func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := g.client.Models.EmbedContent(ctx, g.embeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("Embed: %w", err)
	}
	if len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, fmt.Errorf("Embed: empty embedding")
	}
	return resp.Embeddings[0].Values, nil
}

// DecodeExtraction parses a model answer, tolerating code fences and prose
// around the JSON object.
func DecodeExtraction(raw string) (*domain.ReceiptExtraction, error) {
	clean := cleanModelJSON(raw)
	var out domain.ReceiptExtraction
	if err := json.Unmarshal([]byte(clean), &out); err != nil {
		return nil, fmt.Errorf("unmarshal JSON: %w", err)
	}
	return &out, nil
}

func cleanModelJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		idx := strings.Index(s, "\n")
		if idx == -1 {
			return s
		}
		s = strings.TrimSpace(s[idx+1:])
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	if start := strings.Index(s, "{"); start != -1 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return s
}

// Unconfigured stands in when no API key is available. Extraction returns
// an empty result carrying the error; embedding fails.
type Unconfigured struct{}

func (Unconfigured) Extract(ctx context.Context, image []byte, mimeType string) (*domain.ReceiptExtraction, error) {
	category := "expense"
	return &domain.ReceiptExtraction{
		CategorySuggestion: &category,
		Error:              ErrNotConfigured.Error(),
	}, nil
}

func (Unconfigured) Embed(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrNotConfigured
}

var (
	_ Extractor = (*GeminiClient)(nil)
	_ Embedder  = (*GeminiClient)(nil)
	_ Extractor = Unconfigured{}
	_ Embedder  = Unconfigured{}
)
