package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

// DefaultModel is the Gemini model used for table titles.
const DefaultModel = "gemini-2.5-flash"

// contentGenerator is the part of genai.Models the titler uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiTitler asks Gemini for a short title per table. The API key comes
// from the upload, so a client is created per call.
type GeminiTitler struct {
	model       string
	previewRows int
	connect     func(ctx context.Context, apiKey string) (contentGenerator, error)
}

// NewGeminiTitler creates a titler for model, sending previewRows sample rows
// of each table in the prompt.
func NewGeminiTitler(model string, previewRows int) *GeminiTitler {
	if model == "" {
		model = DefaultModel
	}
	if previewRows <= 0 {
		previewRows = 5
	}
	return &GeminiTitler{
		model:       model,
		previewRows: previewRows,
		connect:     connectGemini,
	}
}

func connectGemini(ctx context.Context, apiKey string) (contentGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create GenAI client: %w", err)
	}
	return client.Models, nil
}

// Titles implements Titler.
func (g *GeminiTitler) Titles(ctx context.Context, apiKey, sourceFilename string, tables []*core.Table) ([]string, error) {
	if apiKey == "" {
		return nil, core.ErrMissingCredential
	}

	gen, err := g.connect(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	temperature := float32(0.1)
	resp, err := gen.GenerateContent(ctx, g.model, genai.Text(g.prompt(sourceFilename, tables)), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		Temperature:      &temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("GenAI generate failed: %w", err)
	}
	if resp == nil {
		return nil, errors.New("GenAI returned no response")
	}

	return parseTitles(resp.Text())
}

// prompt describes every table by sheet, header and a few sample rows.
func (g *GeminiTitler) prompt(sourceFilename string, tables []*core.Table) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The spreadsheet %q contains %d tables.\n", sourceFilename, len(tables))
	b.WriteString("Give each table a short descriptive title (at most 8 words).\n")
	b.WriteString(`Answer with JSON only: {"titles": ["...", ...]} with exactly one title per table, in order.` + "\n\n")

	for i, t := range tables {
		fmt.Fprintf(&b, "Table %d (sheet %q, range %s", i+1, t.Sheet, t.Range)
		if t.Title != "" {
			fmt.Fprintf(&b, ", caption %q", t.Title)
		}
		b.WriteString(")\n")
		b.WriteString("Columns: " + strings.Join(t.Columns, " | ") + "\n")
		for r := 0; r < len(t.Rows) && r < g.previewRows; r++ {
			vals := make([]string, len(t.Rows[r]))
			for c, v := range t.Rows[r] {
				if v != nil {
					vals[c] = fmt.Sprint(v)
				}
			}
			b.WriteString("  " + strings.Join(vals, " | ") + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// parseTitles reads the model answer, tolerating a markdown code fence.
func parseTitles(text string) ([]string, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)

	var out struct {
		Titles []string `json:"titles"`
	}
	if err := json.Unmarshal([]byte(text), &out); err != nil {
		// Some answers are a bare array.
		var titles []string
		if err2 := json.Unmarshal([]byte(text), &titles); err2 != nil {
			return nil, fmt.Errorf("parse titles: %w", err)
		}
		return titles, nil
	}
	return out.Titles, nil
}
