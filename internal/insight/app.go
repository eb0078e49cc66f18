// Package insight implements the confidential compute application that
// the protection service runs inside its sandbox against a protected
// legal document. It reads input files from the task's input
// directory, extracts their text, answers the requested query with an
// LLM provider, and writes the task outputs the service expects.
package insight

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const defaultQuery = "Please provide a summary of this legal document."

const noDocumentsResult = "No legal documents found or unable to extract text from provided files. " +
	"Please ensure you've uploaded PDF, DOC, or DOCX files."

// App is one confidential task execution.
type App struct {
	InputDir  string
	OutputDir string
	Analyzer  Analyzer
	Logger    *slog.Logger
}

type analysisReport struct {
	Query          string    `json:"query"`
	ProcessedFiles []string  `json:"processed_files"`
	Analysis       string    `json:"analysis"`
	Timestamp      time.Time `json:"timestamp"`
}

// QueryFromArgs joins the task arguments into the user query, falling
// back to a document summary when none were given.
func QueryFromArgs(args []string) string {
	q := strings.TrimSpace(strings.Join(args, " "))
	if q == "" {
		return defaultQuery
	}
	return q
}

// Run executes the task. Failures are written into the task output so
// the run still completes from the service's point of view.
func (a *App) Run(ctx context.Context, query string) error {
	result, report, err := a.analyze(ctx, query)
	if err != nil {
		a.Logger.Error("analysis failed", "error", err)
		return a.writeError(err)
	}

	if err := os.WriteFile(filepath.Join(a.OutputDir, "result.txt"), []byte(result), 0o644); err != nil {
		return fmt.Errorf("write result: %w", err)
	}
	if err := writeJSONFile(filepath.Join(a.OutputDir, "analysis.json"), report); err != nil {
		return fmt.Errorf("write analysis: %w", err)
	}
	if err := writeJSONFile(filepath.Join(a.OutputDir, "computed.json"), map[string]string{
		"deterministic-output-path": filepath.Join(a.OutputDir, "result.txt"),
		"analysis-output-path":      filepath.Join(a.OutputDir, "analysis.json"),
	}); err != nil {
		return fmt.Errorf("write computed: %w", err)
	}

	a.Logger.Info("results written", "output_dir", a.OutputDir)
	return nil
}

func (a *App) analyze(ctx context.Context, query string) (string, *analysisReport, error) {
	a.Logger.Info("processing legal document analysis request", "query", query)

	var documentText strings.Builder
	var processed []string

	err := filepath.WalkDir(a.InputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !Supported(d.Name()) {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			a.Logger.Warn("unreadable input file", "file", d.Name(), "error", err)
			return nil
		}
		text, err := ExtractText(d.Name(), data)
		if err != nil {
			a.Logger.Warn("extraction failed", "file", d.Name(), "error", err)
			return nil
		}
		if strings.TrimSpace(text) == "" {
			return nil
		}
		fmt.Fprintf(&documentText, "\n--- Content from %s ---\n%s\n", d.Name(), text)
		processed = append(processed, d.Name())
		return nil
	})
	if err != nil {
		return "", nil, fmt.Errorf("walk input dir: %w", err)
	}

	var result string
	if strings.TrimSpace(documentText.String()) == "" {
		result = noDocumentsResult
	} else {
		a.Logger.Info("extracted text", "files", len(processed), "provider", a.Analyzer.Name())
		result, err = a.Analyzer.Analyze(ctx, documentText.String(), query)
		if err != nil {
			return "", nil, err
		}
	}

	return result, &analysisReport{
		Query:          query,
		ProcessedFiles: processed,
		Analysis:       result,
		Timestamp:      time.Now().UTC(),
	}, nil
}

// writeError records the failure as the task result and still declares
// the computation completed.
func (a *App) writeError(runErr error) error {
	msg := "Error in legal document analysis: " + runErr.Error()
	if err := os.WriteFile(filepath.Join(a.OutputDir, "result.txt"), []byte(msg), 0o644); err != nil {
		return fmt.Errorf("write error result: %w", err)
	}
	return writeJSONFile(filepath.Join(a.OutputDir, "computed.json"), map[string]string{
		"deterministic-output-path": filepath.Join(a.OutputDir, "result.txt"),
		"error":                     msg,
	})
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	return os.WriteFile(path, data, 0o644)
}
