package insight

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func docxBytes(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("create document.xml: %v", err)
	}
	var body strings.Builder
	body.WriteString(`<?xml version="1.0"?><w:document><w:body>`)
	for _, p := range paragraphs {
		body.WriteString(`<w:p><w:r><w:t>` + p + `</w:t></w:r></w:p>`)
	}
	body.WriteString(`</w:body></w:document>`)
	if _, err := w.Write([]byte(body.String())); err != nil {
		t.Fatalf("write document.xml: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	return buf.Bytes()
}

func TestExtractText_DOCX(t *testing.T) {
	data := docxBytes(t, "This agreement terminates", "per Section 9.")
	text, err := ExtractText("contract.docx", data)
	if err != nil {
		t.Fatalf("ExtractText: %v", err)
	}
	if !strings.Contains(text, "This agreement terminates") || !strings.Contains(text, "per Section 9.") {
		t.Errorf("extracted text = %q", text)
	}
}

func TestExtractText_Unsupported(t *testing.T) {
	if _, err := ExtractText("notes.txt", []byte("hello")); err == nil {
		t.Fatal("expected error for unsupported extension")
	}
	if Supported("notes.txt") {
		t.Error("Supported must reject .txt")
	}
	if !Supported("contract.PDF") {
		t.Error("Supported must be case-insensitive")
	}
}

func TestQueryFromArgs(t *testing.T) {
	if q := QueryFromArgs([]string{"What", "is", "the", "termination", "clause?"}); q != "What is the termination clause?" {
		t.Errorf("QueryFromArgs = %q", q)
	}
	if q := QueryFromArgs(nil); q != defaultQuery {
		t.Errorf("empty args must fall back to the default query, got %q", q)
	}
}

type staticAnalyzer struct {
	answer string
}

func (a *staticAnalyzer) Analyze(_ context.Context, documentText, query string) (string, error) {
	return a.answer, nil
}

func (a *staticAnalyzer) Name() string { return "static" }

func testApp(t *testing.T, answer string) *App {
	t.Helper()
	return &App{
		InputDir:  t.TempDir(),
		OutputDir: t.TempDir(),
		Analyzer:  &staticAnalyzer{answer: answer},
		Logger:    slog.Default(),
	}
}

func TestApp_Run(t *testing.T) {
	app := testApp(t, "The termination clause is Section 9.")
	docx := docxBytes(t, "Termination: per Section 9 either party may exit.")
	if err := os.WriteFile(filepath.Join(app.InputDir, "contract.docx"), docx, 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	if err := app.Run(context.Background(), "What is the termination clause?"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	result, err := os.ReadFile(filepath.Join(app.OutputDir, "result.txt"))
	if err != nil {
		t.Fatalf("read result.txt: %v", err)
	}
	if string(result) != "The termination clause is Section 9." {
		t.Errorf("result.txt = %q", result)
	}

	var report analysisReport
	raw, err := os.ReadFile(filepath.Join(app.OutputDir, "analysis.json"))
	if err != nil {
		t.Fatalf("read analysis.json: %v", err)
	}
	if err := json.Unmarshal(raw, &report); err != nil {
		t.Fatalf("parse analysis.json: %v", err)
	}
	if report.Query != "What is the termination clause?" || len(report.ProcessedFiles) != 1 {
		t.Errorf("report = %+v", report)
	}

	var computed map[string]string
	raw, err = os.ReadFile(filepath.Join(app.OutputDir, "computed.json"))
	if err != nil {
		t.Fatalf("read computed.json: %v", err)
	}
	if err := json.Unmarshal(raw, &computed); err != nil {
		t.Fatalf("parse computed.json: %v", err)
	}
	if computed["deterministic-output-path"] == "" {
		t.Error("computed.json missing deterministic-output-path")
	}
}

func TestApp_Run_NoDocuments(t *testing.T) {
	app := testApp(t, "should not be used")
	// Only an unsupported file in the input dir.
	if err := os.WriteFile(filepath.Join(app.InputDir, "notes.txt"), []byte("hi"), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	if err := app.Run(context.Background(), "query"); err != nil {
		t.Fatalf("Run: %v", err)
	}
	result, err := os.ReadFile(filepath.Join(app.OutputDir, "result.txt"))
	if err != nil {
		t.Fatalf("read result.txt: %v", err)
	}
	if string(result) != noDocumentsResult {
		t.Errorf("result.txt = %q", result)
	}
}

func TestMockAnalyzer(t *testing.T) {
	a := NewAnalyzer("openai", "gpt-4o-mini", "", "")
	if a.Name() != "mock" {
		t.Fatalf("analyzer without keys must be the mock, got %s", a.Name())
	}
	out, err := a.Analyze(context.Background(), "document text", "the query")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if !strings.Contains(out, "Mock Analysis") || !strings.Contains(out, "the query") {
		t.Errorf("mock output = %q", out)
	}
}
