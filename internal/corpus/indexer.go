package corpus

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
)

const (
	chunkSize    = 900
	chunkOverlap = 140

	// defaultSectionTitle labels text that appears before the first heading.
	defaultSectionTitle = "Overview"
)

// load resolves the document set and splits every readable document into
// chunks. A document that cannot be read or extracted is logged and skipped;
// load fails only when the document set itself cannot be resolved.
func (l *Library) load(ctx context.Context) ([]Chunk, error) {
	files, err := l.resolveFiles()
	if err != nil {
		return nil, err
	}

	var chunks []Chunk
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := extractText(path)
		if err != nil {
			l.logger.Warn("skipping unreadable document", "path", path, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			l.logger.Warn("skipping empty document", "path", path)
			continue
		}

		name := filepath.Base(path)
		if isPDF(path) {
			// PDFs carry no heading structure after extraction, so the whole
			// document becomes one section titled by its file name.
			chunks = append(chunks, chunkSection(section{title: name, body: text}, name)...)
			continue
		}

		for _, sec := range splitSections(text) {
			chunks = append(chunks, chunkSection(sec, name)...)
		}
	}

	return chunks, nil
}

// resolveFiles returns the absolute paths of the documents to index: the
// configured preferred names that exist under dir, or, when none of them do,
// every file in dir with a recognized extension.
func (l *Library) resolveFiles() ([]string, error) {
	var files []string
	for _, name := range l.preferred {
		path := filepath.Join(l.dir, name)
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	if len(files) > 0 {
		return files, nil
	}

	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read docs dir %s: %w", l.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".md", ".txt", ".pdf":
			files = append(files, filepath.Join(l.dir, entry.Name()))
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no documents found in %s", l.dir)
	}
	return files, nil
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// extractText returns the plain text of the document at path.
func extractText(path string) (string, error) {
	if !isPDF(path) {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}

	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	r, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(r); err != nil {
		return "", fmt.Errorf("read pdf text: %w", err)
	}
	return buf.String(), nil
}

type section struct {
	title string
	body  string
}

// splitSections divides markdown text at #, ## and ### headings. The section
// title is the path through the heading hierarchy; text before the first
// heading falls under the default title.
func splitSections(text string) []section {
	lines := strings.Split(text, "\n")

	var sections []section
	var body []string
	stack := make([]string, 0, 3)
	title := defaultSectionTitle

	flush := func() {
		trimmed := strings.TrimSpace(strings.Join(body, "\n"))
		if trimmed != "" {
			sections = append(sections, section{title: title, body: trimmed})
		}
		body = body[:0]
	}

	for _, line := range lines {
		level, heading := parseHeading(line)
		if level == 0 {
			body = append(body, line)
			continue
		}

		flush()

		if level <= len(stack) {
			stack = stack[:level-1]
		}
		stack = append(stack, heading)
		title = strings.Join(stack, " > ")
	}
	flush()

	return sections
}

// parseHeading reports the heading level (1..3) and title of line, or 0 when
// the line is not a heading. Deeper headings stay inside their section body.
func parseHeading(line string) (int, string) {
	trimmed := strings.TrimSpace(line)
	level := 0
	for level < len(trimmed) && trimmed[level] == '#' {
		level++
	}
	if level == 0 || level > 3 || level >= len(trimmed) || trimmed[level] != ' ' {
		return 0, ""
	}
	return level, strings.TrimSpace(trimmed[level:])
}

// chunkSection windows the section body into overlapping chunks, each
// prefixed with the section title so lexical matches on the title score even
// when the query hits a mid-document window.
func chunkSection(sec section, source string) []Chunk {
	prefix := "Section: " + sec.title + "\n"
	body := sec.body
	step := chunkSize - chunkOverlap

	var chunks []Chunk
	for start := 0; ; start += step {
		end := start + chunkSize
		if end > len(body) {
			end = len(body)
		}
		chunks = append(chunks, Chunk{
			Content: prefix + body[start:end],
			Source:  source,
			Title:   sec.title,
		})
		if end == len(body) {
			break
		}
	}
	return chunks
}
