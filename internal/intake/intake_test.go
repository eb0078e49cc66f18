package intake

import (
	"testing"

	"github.com/privylex/privylex/internal/models"
)

func TestIngest_AllowList(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		accepted bool
	}{
		{"pdf", "application/pdf", true},
		{"legacy word", "application/msword", true},
		{"ooxml word", "application/vnd.openxmlformats-officedocument.wordprocessingml.document", true},
		{"plain text", "text/plain", false},
		{"html", "text/html", false},
		{"empty type", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs := Ingest([]RawFile{{Name: "file", MimeType: tt.mimeType, Data: []byte("content")}})
			if tt.accepted && len(docs) != 1 {
				t.Fatalf("expected 1 document, got %d", len(docs))
			}
			if !tt.accepted && len(docs) != 0 {
				t.Fatalf("expected silent drop, got %d documents", len(docs))
			}
		})
	}
}

func TestIngest_DisallowedDroppedSilently(t *testing.T) {
	docs := Ingest([]RawFile{
		{Name: "contract.pdf", MimeType: "application/pdf", Data: []byte("pdf bytes")},
		{Name: "notes.txt", MimeType: "text/plain", Data: []byte("notes")},
		{Name: "old.doc", MimeType: "application/msword", Data: []byte("doc bytes")},
	})
	if len(docs) != 2 {
		t.Fatalf("expected 2 accepted documents, got %d", len(docs))
	}
	for _, d := range docs {
		if d.State != models.StateUploaded {
			t.Errorf("document %s in state %s, want %s", d.Name, d.State, models.StateUploaded)
		}
		if len(d.Payload) == 0 {
			t.Errorf("document %s has no payload", d.Name)
		}
	}
}

func TestIngest_NoDedup(t *testing.T) {
	file := RawFile{Name: "contract.pdf", MimeType: "application/pdf", Data: []byte("same bytes")}
	first := Ingest([]RawFile{file})
	second := Ingest([]RawFile{file})

	if len(first) != 1 || len(second) != 1 {
		t.Fatalf("expected 1 document per ingest, got %d and %d", len(first), len(second))
	}
	if first[0].ID == second[0].ID {
		t.Error("re-ingesting the same bytes must produce a new independent document")
	}
}

func TestIngest_MetadataCaptured(t *testing.T) {
	docs := Ingest([]RawFile{{Name: "contract.pdf", MimeType: "application/pdf", Data: []byte("12345")}})
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	d := docs[0]
	if d.Name != "contract.pdf" || d.MimeType != "application/pdf" || d.SizeBytes != 5 {
		t.Errorf("metadata mismatch: %+v", d)
	}
	if d.UploadedAt.IsZero() {
		t.Error("UploadedAt not set")
	}
}
