// Package oracle implements a core.Classifier backed by Gemini.
//
// The model receives the header list, one sample row and the registered
// schemas, and must answer with a single JSON object. The answer is only
// decoded here; core.TypeClassifier sanitises it and falls back to the
// keyword heuristic on any failure.
package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/JonMunkholm/finimport/internal/core"
)

// DefaultModel is used when Config.Model is empty.
const DefaultModel = "gemini-2.5-flash"

// Config configures the Gemini client.
type Config struct {
	APIKey string
	Model  string
}

// generator is the subset of *genai.Models used by Gemini.
type generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini classifies uploads by asking a Gemini model.
type Gemini struct {
	models generator
	model  string
}

var _ core.Classifier = (*Gemini)(nil)

// New creates a Gemini classifier using the Gemini API backend.
func New(ctx context.Context, cfg Config) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("oracle: API key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("oracle: create genai client: %w", err)
	}
	return newGemini(client.Models, cfg.Model), nil
}

func newGemini(models generator, model string) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{models: models, model: model}
}

// answer is the JSON object the model is asked to return.
type answer struct {
	DataType       string            `json:"dataType"`
	ColumnMappings map[string]string `json:"columnMappings"`
	Confidence     float64           `json:"confidence"`
	Suggestions    []string          `json:"suggestions"`
	Warnings       []string          `json:"warnings"`
}

// Classify sends headers and sample to the model and decodes its answer.
func (g *Gemini) Classify(ctx context.Context, headers []string, sample core.Row) (core.Classification, error) {
	prompt, err := buildPrompt(headers, sample)
	if err != nil {
		return core.Classification{}, err
	}

	contents := []*genai.Content{
		{
			Role:  "user",
			Parts: []*genai.Part{{Text: prompt}},
		},
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return core.Classification{}, fmt.Errorf("oracle: generate content: %w", err)
	}

	if resp == nil {
		return core.Classification{}, errors.New("oracle: empty response from model")
	}
	raw := resp.Text()
	if strings.TrimSpace(raw) == "" {
		return core.Classification{}, errors.New("oracle: empty response from model")
	}

	var a answer
	if err := json.Unmarshal([]byte(cleanJSON(raw)), &a); err != nil {
		return core.Classification{}, fmt.Errorf("oracle: decode response: %w", err)
	}
	return a.classification(), nil
}

func (a answer) classification() core.Classification {
	mapping := make(core.ColumnMapping, len(a.ColumnMappings))
	for h, f := range a.ColumnMappings {
		if f == "" || strings.EqualFold(f, "none") {
			continue
		}
		mapping[h] = core.Field(f)
	}

	// Models answer in either 0-1 or 0-100.
	conf := a.Confidence
	if conf > 0 && conf <= 1 {
		conf *= 100
	}

	return core.Classification{
		DataType:       core.DataType(strings.ToLower(strings.TrimSpace(a.DataType))),
		ColumnMappings: mapping,
		Confidence:     int(conf + 0.5),
		Suggestions:    a.Suggestions,
		Warnings:       a.Warnings,
		Source:         core.SourceOracle,
	}
}

type schemaDoc struct {
	DataType string   `json:"dataType"`
	Required []string `json:"requiredFields"`
	Optional []string `json:"optionalFields"`
}

type request struct {
	Headers   []string    `json:"headers"`
	SampleRow core.Row    `json:"sampleRow"`
	Schemas   []schemaDoc `json:"schemas"`
}

func buildPrompt(headers []string, sample core.Row) (string, error) {
	req := request{Headers: headers, SampleRow: sample}
	for _, s := range core.Schemas() {
		doc := schemaDoc{DataType: string(s.DataType), Required: []string{}, Optional: []string{}}
		for _, f := range s.Fields {
			if f.Required {
				doc.Required = append(doc.Required, string(f.Name))
			} else {
				doc.Optional = append(doc.Optional, string(f.Name))
			}
		}
		req.Schemas = append(req.Schemas, doc)
	}

	body, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("oracle: encode request: %w", err)
	}

	return "You classify spreadsheet uploads for a personal finance application.\n\n" +
		"Given the column headers and one sample row below, decide which schema the file matches " +
		"and map each header to at most one field of that schema.\n\n" +
		"Rules:\n" +
		"- dataType must be one of the schema dataType values, or \"unknown\".\n" +
		"- Only use headers exactly as given. Leave unrelated headers out of columnMappings.\n" +
		"- Never map two headers to the same field.\n" +
		"- confidence is an integer from 0 to 100.\n" +
		"- Return ONLY one JSON object with keys dataType, columnMappings, confidence, suggestions, warnings.\n" +
		"- Do NOT wrap the response in code fences.\n\n" +
		"Input:\n" + string(body) + "\n", nil
}

// cleanJSON strips Markdown fences and surrounding text from a model answer.
func cleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		}
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
