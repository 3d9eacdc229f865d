package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Kind is the output format of a written report, chosen by file extension.
type Kind string

const (
	KindMarkdown Kind = "markdown"
	KindHTML     Kind = "html"
)

// KindFromPath maps .md/.markdown to Markdown and .html/.htm to HTML.
func KindFromPath(path string) (Kind, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return KindMarkdown, nil
	case ".html", ".htm":
		return KindHTML, nil
	default:
		return "", fmt.Errorf("unsupported report extension %q (want .md or .html)", filepath.Ext(path))
	}
}

// WriteFile writes through a temp file in the target directory and renames
// it into place, so readers never observe a partial file.
func WriteFile(path string, write func(w io.Writer) error) error {
	tmpPath := path + ".tmp"

	file, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	writer := bufio.NewWriter(file)
	if err := write(writer); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := writer.Flush(); err != nil {
		file.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("failed to flush writer: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to move %s into place: %w", path, err)
	}
	return nil
}
