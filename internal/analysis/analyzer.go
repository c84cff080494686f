// Package analysis classifies and summarizes court-document text through the
// Gemini API. The AI step is advisory: configuration absence, upstream
// failures, and unparseable output all degrade to a default result so record
// keeping never blocks on the model.
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lexdesk/expedientes-cli/internal/model"
	"github.com/lexdesk/expedientes-cli/pkg/gemini"
)

const (
	temperature     = 0.3
	maxOutputTokens = 2048

	defaultTitle       = "Documento"
	missingTitle       = "Documento sin título"
	missingSummary     = "Sin síntesis disponible"
	unavailableSummary = "Análisis de IA no disponible. Por favor, complete la información manualmente."
	unparsableSummary  = "No se pudo generar una síntesis automática."
)

const promptTemplate = `Eres un asistente legal especializado en el sistema judicial mexicano. Analiza el siguiente documento judicial y proporciona:

1. **CATEGORY**: Clasifica el documento en una de estas categorías:
   - "auto" - Autos del juzgado (acuerdos, proveídos, órdenes internas)
   - "promotion" - Promociones o escritos de las partes (demanda, contestación, alegatos)
   - "resolution" - Resoluciones del juzgado (interlocutorias, autos con trascendencia)
   - "judgment" - Sentencias (definitivas, interlocutorias con fuerza de definitiva)

2. **TITLE**: Un título breve y descriptivo del documento (máximo 100 caracteres)

3. **SUMMARY**: Un resumen ejecutivo del documento en español, máximo 3 párrafos, destacando:
   - Qué se resuelve o solicita
   - Puntos clave o argumentos principales
   - Consecuencias o efectos legales

Responde ÚNICAMENTE en el siguiente formato JSON (sin markdown, sin bloques de código):
{"category": "auto|promotion|resolution|judgment", "title": "título breve", "summary": "resumen del documento"}

DOCUMENTO A ANALIZAR:
---
%s
---`

// Result is the outcome of one analysis attempt. Title and Summary are
// always non-empty; Category is "" when the document could not be
// classified. Raw is the full upstream payload of a completed round-trip,
// or nil when no response was received.
type Result struct {
	Category model.Category  `json:"tipo"`
	Title    string          `json:"titulo"`
	Summary  string          `json:"sintesis"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// Analyzer classifies and summarizes document text.
type Analyzer interface {
	Analyze(ctx context.Context, text string) Result
}

// DocumentAnalyzer implements Analyzer on top of the Gemini client. A nil
// client means no API credential is configured; analysis then short-circuits
// to the default result without a network call.
type DocumentAnalyzer struct {
	client gemini.Client
}

// NewDocumentAnalyzer creates an analyzer. client may be nil.
func NewDocumentAnalyzer(client gemini.Client) *DocumentAnalyzer {
	return &DocumentAnalyzer{client: client}
}

// Analyze runs the classification prompt against the document text. It never
// returns an error: failures yield the default result.
func (a *DocumentAnalyzer) Analyze(ctx context.Context, text string) Result {
	if a.client == nil {
		zap.L().Warn("analysis: gemini api key not configured, skipping ai analysis")
		return unavailableResult()
	}

	resp, err := a.client.GenerateContent(ctx, gemini.GenerateContentRequest{
		Contents: []gemini.Content{
			{Parts: []gemini.Part{{Text: fmt.Sprintf(promptTemplate, text)}}},
		},
		GenerationConfig: &gemini.GenerationConfig{
			Temperature:      temperature,
			MaxOutputTokens:  maxOutputTokens,
			ResponseMIMEType: "application/json",
		},
	})
	if err != nil {
		zap.L().Error("analysis: gemini call failed", zap.Error(err))
		return unavailableResult()
	}

	return parseResponse(resp)
}

// parseResponse maps the model's output onto a Result. Three outcomes:
// a structured parse (possibly with an invalid category coerced to null), a
// total parse failure keeping only the raw payload, or — handled by the
// caller — no payload at all.
func parseResponse(resp *gemini.GenerateContentResponse) Result {
	cleaned := cleanJSON(resp.Text())

	var parsed struct {
		Category string `json:"category"`
		Title    string `json:"title"`
		Summary  string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		zap.L().Error("analysis: unparsable gemini output",
			zap.Error(err),
			zap.String("text", firstN(cleaned, 200)),
		)
		return Result{
			Title:   defaultTitle,
			Summary: unparsableSummary,
			Raw:     resp.Raw,
		}
	}

	category, ok := model.ParseCategory(parsed.Category)
	if !ok && parsed.Category != "" {
		zap.L().Warn("analysis: invalid category from model", zap.String("category", parsed.Category))
	}

	title := parsed.Title
	if title == "" {
		title = missingTitle
	}
	summary := parsed.Summary
	if summary == "" {
		summary = missingSummary
	}

	return Result{
		Category: category,
		Title:    title,
		Summary:  summary,
		Raw:      resp.Raw,
	}
}

func unavailableResult() Result {
	return Result{
		Title:   defaultTitle,
		Summary: unavailableSummary,
	}
}

// cleanJSON strips markdown code fences and surrounding prose from model
// output that should be a bare JSON object.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)

	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		if idx := strings.LastIndex(text, "```"); idx >= 0 {
			text = text[:idx]
		}
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func firstN(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
