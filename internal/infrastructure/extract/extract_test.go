package extract

import (
	"context"
	"errors"
	"testing"

	"JobMatcher/internal/domain"
)

func TestExtractPlainText(t *testing.T) {
	e := NewDocumentExtractor()

	text, err := e.ExtractText(context.Background(), []byte("  Go   engineer\nwith Postgres \t experience  "))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Go engineer with Postgres experience"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}

func TestExtractHTMLStripsMarkup(t *testing.T) {
	e := NewDocumentExtractor()

	page := []byte(`<!DOCTYPE html><html><head><style>p{color:red}</style></head>` +
		`<body><p>Senior Go engineer.</p><script>alert(1)</script><p>Kubernetes, Docker.</p></body></html>`)

	text, err := e.ExtractText(context.Background(), page)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "Senior Go engineer. Kubernetes, Docker."
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
}

func TestExtractRejectsBinary(t *testing.T) {
	e := NewDocumentExtractor()

	cases := map[string][]byte{
		"empty":  nil,
		"binary": {0x25, 0x50, 0x44, 0x46, 0xff, 0x00, 0xfe},
	}
	for name, file := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := e.ExtractText(context.Background(), file)
			var exErr *domain.ExtractionError
			if !errors.As(err, &exErr) {
				t.Fatalf("expected ExtractionError, got %v", err)
			}
		})
	}
}
