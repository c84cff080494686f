package analysis

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/lexdesk/expedientes-cli/internal/model"
	"github.com/lexdesk/expedientes-cli/pkg/gemini"
)

type mockGeminiClient struct {
	mock.Mock
}

func (m *mockGeminiClient) GenerateContent(ctx context.Context, req gemini.GenerateContentRequest) (*gemini.GenerateContentResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.GenerateContentResponse), args.Error(1)
}

func geminiResponse(text string) *gemini.GenerateContentResponse {
	return &gemini.GenerateContentResponse{
		Candidates: []gemini.Candidate{
			{Content: gemini.Content{Parts: []gemini.Part{{Text: text}}}},
		},
		Raw: []byte(`{"candidates":[{"content":{"parts":[{"text":"omitted"}]}}]}`),
	}
}

func TestAnalyze_NoCredential(t *testing.T) {
	a := NewDocumentAnalyzer(nil)

	res := a.Analyze(context.Background(), "ACUERDO: se admite la demanda...")

	assert.Equal(t, model.Category(""), res.Category)
	assert.Equal(t, "Documento", res.Title)
	assert.Equal(t, unavailableSummary, res.Summary)
	assert.Nil(t, res.Raw)
}

func TestAnalyze_StructuredResponse(t *testing.T) {
	client := &mockGeminiClient{}
	client.On("GenerateContent", mock.Anything, mock.Anything).
		Return(geminiResponse(`{"category":"judgment","title":"Sentencia definitiva","summary":"Se condena al demandado."}`), nil)

	a := NewDocumentAnalyzer(client)
	res := a.Analyze(context.Background(), "texto del documento")

	assert.Equal(t, model.CategoryJudgment, res.Category)
	assert.Equal(t, "Sentencia definitiva", res.Title)
	assert.Equal(t, "Se condena al demandado.", res.Summary)
	assert.NotNil(t, res.Raw)
	client.AssertExpectations(t)
}

func TestAnalyze_PromptEmbedsText(t *testing.T) {
	client := &mockGeminiClient{}
	client.On("GenerateContent", mock.Anything, mock.MatchedBy(func(req gemini.GenerateContentRequest) bool {
		if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 {
			return false
		}
		// text travels inside the prompt body, not a separate field
		prompt := req.Contents[0].Parts[0].Text
		return strings.Contains(prompt, "DOCUMENTO A ANALIZAR") &&
			strings.Contains(prompt, "texto insertado") &&
			req.GenerationConfig != nil &&
			req.GenerationConfig.Temperature == 0.3 &&
			req.GenerationConfig.MaxOutputTokens == 2048
	})).Return(geminiResponse(`{"category":"auto","title":"t","summary":"s"}`), nil)

	a := NewDocumentAnalyzer(client)
	res := a.Analyze(context.Background(), "texto insertado")

	assert.Equal(t, model.CategoryAuto, res.Category)
	client.AssertExpectations(t)
}

func TestAnalyze_FencedJSON(t *testing.T) {
	client := &mockGeminiClient{}
	client.On("GenerateContent", mock.Anything, mock.Anything).
		Return(geminiResponse("```json\n{\"category\":\"resolution\",\"title\":\"Interlocutoria\",\"summary\":\"Se resuelve incidente.\"}\n```"), nil)

	a := NewDocumentAnalyzer(client)
	res := a.Analyze(context.Background(), "texto")

	assert.Equal(t, model.CategoryResolution, res.Category)
	assert.Equal(t, "Interlocutoria", res.Title)
}

func TestAnalyze_InvalidCategoryCoercedToNull(t *testing.T) {
	client := &mockGeminiClient{}
	client.On("GenerateContent", mock.Anything, mock.Anything).
		Return(geminiResponse(`{"category":"not-a-real-category","title":"Escrito","summary":"Resumen."}`), nil)

	a := NewDocumentAnalyzer(client)
	res := a.Analyze(context.Background(), "texto")

	assert.Equal(t, model.Category(""), res.Category)
	assert.Equal(t, "Escrito", res.Title)
	assert.Equal(t, "Resumen.", res.Summary)
	assert.NotNil(t, res.Raw)
}

func TestAnalyze_MissingFieldsDefaulted(t *testing.T) {
	client := &mockGeminiClient{}
	client.On("GenerateContent", mock.Anything, mock.Anything).
		Return(geminiResponse(`{"category":"promotion"}`), nil)

	a := NewDocumentAnalyzer(client)
	res := a.Analyze(context.Background(), "texto")

	assert.Equal(t, model.CategoryPromotion, res.Category)
	assert.Equal(t, missingTitle, res.Title)
	assert.Equal(t, missingSummary, res.Summary)
}

func TestAnalyze_UnparsableOutputKeepsRaw(t *testing.T) {
	client := &mockGeminiClient{}
	client.On("GenerateContent", mock.Anything, mock.Anything).
		Return(geminiResponse("Lo siento, no puedo analizar este documento."), nil)

	a := NewDocumentAnalyzer(client)
	res := a.Analyze(context.Background(), "texto")

	assert.Equal(t, model.Category(""), res.Category)
	assert.Equal(t, "Documento", res.Title)
	assert.Equal(t, unparsableSummary, res.Summary)
	// raw payload preserved for audit on any completed round-trip
	assert.NotNil(t, res.Raw)
}

func TestAnalyze_UpstreamError(t *testing.T) {
	client := &mockGeminiClient{}
	client.On("GenerateContent", mock.Anything, mock.Anything).
		Return(nil, assert.AnError)

	a := NewDocumentAnalyzer(client)
	res := a.Analyze(context.Background(), "texto")

	assert.Equal(t, model.Category(""), res.Category)
	assert.Equal(t, "Documento", res.Title)
	assert.Equal(t, unavailableSummary, res.Summary)
	assert.Nil(t, res.Raw)
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"category":"auto"}`, `{"category":"auto"}`},
		{"json_fence", "```json\n{\"category\":\"auto\"}\n```", `{"category":"auto"}`},
		{"plain_fence", "```\n{\"category\":\"auto\"}\n```", `{"category":"auto"}`},
		{"surrounding_prose", `Claro: {"category":"auto"} eso es todo.`, `{"category":"auto"}`},
		{"no_object", "sin json aquí", "sin json aquí"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSON(tt.in))
		})
	}
}
