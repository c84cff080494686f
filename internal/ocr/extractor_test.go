package ocr

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanText_CollapsesWhitespace(t *testing.T) {
	in := "ACUERDO:\n\n  se   admite\tla\r\ndemanda   "
	assert.Equal(t, "ACUERDO: se admite la demanda", CleanText(in))
}

func TestCleanText_Truncation(t *testing.T) {
	in := strings.Repeat("a", maxTextChars+500)
	out := CleanText(in)

	assert.Len(t, out, maxTextChars+len(truncationMarker))
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.Equal(t, strings.Repeat("a", maxTextChars), strings.TrimSuffix(out, truncationMarker))
}

func TestCleanText_TruncationKeepsRunesIntact(t *testing.T) {
	// place a two-byte rune straddling the limit so a byte-index cut would
	// leave invalid UTF-8 before the marker
	in := strings.Repeat("a", maxTextChars-1) + "á" + strings.Repeat("a", 200)
	out := CleanText(in)

	assert.True(t, utf8.ValidString(out))
	assert.True(t, strings.HasSuffix(out, truncationMarker))
	assert.Equal(t, strings.Repeat("a", maxTextChars-1), strings.TrimSuffix(out, truncationMarker))
}

func TestCleanText_ExactLimitNotTruncated(t *testing.T) {
	in := strings.Repeat("b", maxTextChars)
	assert.Equal(t, in, CleanText(in))
}

func TestNative_MissingFile(t *testing.T) {
	n := NewNative()
	got := n.ExtractText(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"))
	assert.Equal(t, FallbackText, got)
}

func TestNative_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\nthis is not a real pdf"), 0o644))

	n := NewNative()
	got := n.ExtractText(context.Background(), path)
	assert.Equal(t, FallbackText, got)
}

func TestNative_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n := NewNative()
	assert.Equal(t, FallbackText, n.ExtractText(ctx, "whatever.pdf"))
}

func TestPdfToText_MissingBinary(t *testing.T) {
	p := NewPdfToText(filepath.Join(t.TempDir(), "no-such-binary"))
	got := p.ExtractText(context.Background(), "doc.pdf")
	assert.Equal(t, FallbackText, got)
}
