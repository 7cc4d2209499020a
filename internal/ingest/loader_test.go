package ingest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDir_TextAndMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "b.md", "# Status\n\nAll green.")
	writeFile(t, dir, "a.txt", "FAQ content here.")

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	// Sorted by name.
	if docs[0].Source != "a.txt" || docs[1].Source != "b.md" {
		t.Errorf("unexpected order: %s, %s", docs[0].Source, docs[1].Source)
	}
	if docs[0].Text != "FAQ content here." {
		t.Errorf("a.txt text = %q", docs[0].Text)
	}
}

func TestLoadDir_SkipsUnsupportedAndEmpty(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "notes.txt", "keep me")
	writeFile(t, dir, "image.png", "\x89PNG")
	writeFile(t, dir, "blank.md", "   \n  ")
	if err := os.Mkdir(filepath.Join(dir, "subdir"), 0o755); err != nil {
		t.Fatal(err)
	}

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 || docs[0].Source != "notes.txt" {
		t.Errorf("docs = %v, want only notes.txt", docs)
	}
}

func TestLoadDir_MissingDir(t *testing.T) {
	docs, err := LoadDir(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("got %d documents from missing dir, want 0", len(docs))
	}
}

func TestLoadDir_MalformedPDF(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.pdf", "not a pdf at all")

	_, err := LoadDir(dir)
	if err == nil {
		t.Fatal("expected error for malformed pdf")
	}
	if !strings.Contains(err.Error(), "broken.pdf") {
		t.Errorf("error %q does not name the file", err)
	}
}

func TestLoadDir_HTML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page.html", `<html><head>
<style>body { color: red }</style>
<script>alert("hi")</script>
</head><body><h1>Title</h1><p>Body text.</p></body></html>`)

	docs, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if len(docs) != 1 {
		t.Fatalf("got %d documents, want 1", len(docs))
	}
	text := docs[0].Text
	if !strings.Contains(text, "Title") || !strings.Contains(text, "Body text.") {
		t.Errorf("html text missing content: %q", text)
	}
	if strings.Contains(text, "alert") || strings.Contains(text, "color") {
		t.Errorf("html text contains script/style content: %q", text)
	}
}
