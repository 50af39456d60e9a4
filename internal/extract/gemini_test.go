package extract

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"

	"github.com/JonMunkholm/sheetflow/internal/core"
)

type fakeGenerator struct {
	model  string
	prompt string
	answer string
	err    error
}

func (f *fakeGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: f.answer}}},
		}},
	}, nil
}

func testTitler(gen *fakeGenerator) (*GeminiTitler, *string) {
	var key string
	g := NewGeminiTitler("", 2)
	g.connect = func(ctx context.Context, apiKey string) (contentGenerator, error) {
		key = apiKey
		return gen, nil
	}
	return g, &key
}

func sampleTables() []*core.Table {
	return []*core.Table{
		{Sheet: "Beds", Range: "A1:B4", Columns: []string{"Facility", "Beds"}, Rows: [][]any{{"North", "40"}, {"South", nil}, {"East", "12"}}},
		{Sheet: "Staff", Range: "A1:A2", Title: "Headcount", Columns: []string{"Role"}, Rows: [][]any{{"Nurse"}}},
	}
}

func TestGeminiTitler_Titles(t *testing.T) {
	gen := &fakeGenerator{answer: "```json\n{\"titles\": [\"Beds by facility\", \"Staff roles\"]}\n```"}
	g, key := testTitler(gen)

	titles, err := g.Titles(context.Background(), "k-123", "intake.xlsx", sampleTables())
	require.NoError(t, err)
	assert.Equal(t, []string{"Beds by facility", "Staff roles"}, titles)
	assert.Equal(t, "k-123", *key)
	assert.Equal(t, DefaultModel, gen.model)

	assert.Contains(t, gen.prompt, `"intake.xlsx"`)
	assert.Contains(t, gen.prompt, "Facility | Beds")
	assert.Contains(t, gen.prompt, `caption "Headcount"`)
	assert.NotContains(t, gen.prompt, "East", "only previewRows sample rows are sent")
}

func TestGeminiTitler_Errors(t *testing.T) {
	g, _ := testTitler(&fakeGenerator{err: errors.New("API key not valid")})
	_, err := g.Titles(context.Background(), "bad", "x.xlsx", sampleTables())
	assert.ErrorContains(t, err, "API key not valid")

	_, err = g.Titles(context.Background(), "", "x.xlsx", sampleTables())
	assert.ErrorIs(t, err, core.ErrMissingCredential)

	g, _ = testTitler(&fakeGenerator{answer: "not json"})
	_, err = g.Titles(context.Background(), "k", "x.xlsx", sampleTables())
	assert.ErrorContains(t, err, "parse titles")
}

func TestParseTitles(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"object", `{"titles": ["a", "b"]}`, []string{"a", "b"}},
		{"bare array", `["a"]`, []string{"a"}},
		{"fenced", "```\n[\"x\"]\n```", []string{"x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTitles(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
