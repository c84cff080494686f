package ocr

import (
	"bytes"
	"context"
	"os/exec"

	"go.uber.org/zap"
)

// PdfToText extracts text by shelling out to the poppler pdftotext tool.
// Useful for PDFs the native parser chokes on.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText extractor. If binPath is empty,
// "pdftotext" is resolved from PATH.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// ExtractText runs pdftotext -layout on the given PDF and returns the
// cleaned stdout, or FallbackText when the tool fails.
func (p *PdfToText) ExtractText(ctx context.Context, path string) string {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		zap.L().Warn("ocr: pdftotext failed",
			zap.String("path", path),
			zap.String("stderr", stderr.String()),
			zap.Error(err),
		)
		return FallbackText
	}

	return CleanText(stdout.String())
}
