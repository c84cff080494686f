// Package ocr turns stored PDF documents into plain text suitable for
// prompting a language model. Extraction is best-effort: every failure mode
// yields a fixed sentinel string so the ingestion pipeline can continue with
// degraded input instead of aborting.
package ocr

import (
	"context"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

const (
	// maxTextChars bounds the text sent to the analysis prompt.
	maxTextChars = 50000

	truncationMarker = "... [texto truncado]"
)

// FallbackText is returned whenever extraction fails for any reason
// (missing file, corrupt PDF, parser panic).
const FallbackText = "No se pudo extraer el texto del documento PDF."

// Extractor converts a locally accessible PDF into cleaned plain text.
// Implementations never fail: they return FallbackText instead.
type Extractor interface {
	ExtractText(ctx context.Context, path string) string
}

// Native extracts text in-process using the ledongthuc/pdf parser.
type Native struct{}

// NewNative creates the in-process extractor.
func NewNative() *Native {
	return &Native{}
}

// ExtractText parses the PDF at path and returns its cleaned text. The pdf
// parser is known to panic on some malformed inputs, so the call is wrapped
// in recover.
func (n *Native) ExtractText(ctx context.Context, path string) (text string) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("ocr: recovered from pdf parser panic",
				zap.String("path", path),
				zap.Any("panic", r),
			)
			text = FallbackText
		}
	}()

	if err := ctx.Err(); err != nil {
		return FallbackText
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		zap.L().Warn("ocr: open pdf failed", zap.String("path", path), zap.Error(err))
		return FallbackText
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		zap.L().Warn("ocr: extract text failed", zap.String("path", path), zap.Error(err))
		return FallbackText
	}

	raw, err := io.ReadAll(plain)
	if err != nil {
		zap.L().Warn("ocr: read text failed", zap.String("path", path), zap.Error(err))
		return FallbackText
	}

	return CleanText(string(raw))
}

// CleanText collapses all whitespace runs (including newlines) to single
// spaces, trims, and truncates to maxTextChars with a marker so downstream
// consumers and reviewers know the text was cut.
func CleanText(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) > maxTextChars {
		cut := maxTextChars
		// never split a rune at the boundary
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + truncationMarker
	}
	return s
}
