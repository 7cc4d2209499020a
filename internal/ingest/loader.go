package ingest

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
	"golang.org/x/net/html"
)

// Document is one source file's extracted text.
type Document struct {
	Source string // file name relative to the docs dir
	Text   string
}

// LoadDir extracts text from every supported file under dir, sorted by
// name. Unsupported extensions are skipped silently; a missing or empty
// directory yields an empty slice, not an error.
func LoadDir(dir string) ([]Document, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading docs directory: %w", err)
	}

	var docs []Document
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		path := filepath.Join(dir, e.Name())
		text, ok, err := loadFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading %s: %w", e.Name(), err)
		}
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		docs = append(docs, Document{Source: e.Name(), Text: text})
	}

	sort.Slice(docs, func(i, j int) bool { return docs[i].Source < docs[j].Source })
	return docs, nil
}

// loadFile dispatches on extension. The second return value is false for
// unsupported extensions.
func loadFile(path string) (string, bool, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md":
		b, err := os.ReadFile(path)
		if err != nil {
			return "", true, err
		}
		return string(b), true, nil
	case ".pdf":
		text, err := loadPDF(path)
		return text, true, err
	case ".html", ".htm":
		text, err := loadHTML(path)
		return text, true, err
	default:
		return "", false, nil
	}
}

func loadPDF(path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extracting pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return "", fmt.Errorf("reading pdf text: %w", err)
	}
	return buf.String(), nil
}

// loadHTML parses the file and concatenates visible text nodes, skipping
// script and style subtrees.
func loadHTML(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	root, err := html.Parse(f)
	if err != nil {
		return "", fmt.Errorf("parsing html: %w", err)
	}

	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style") {
			return
		}
		if n.Type == html.TextNode {
			if t := strings.TrimSpace(n.Data); t != "" {
				if sb.Len() > 0 {
					sb.WriteByte('\n')
				}
				sb.WriteString(t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return sb.String(), nil
}
