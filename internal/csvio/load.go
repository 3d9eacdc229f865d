package csvio

import (
	"fmt"
	"io"
	"os"

	"mcs-portfolio/internal/portfolio"
)

// Decode reads a portfolio document in any supported format. CSV documents
// carry no due date.
func Decode(r io.Reader, format portfolio.Format) (*portfolio.Portfolio, error) {
	if format != portfolio.FormatCSV {
		return portfolio.Decode(r, format)
	}
	teams, err := Import(r)
	if err != nil {
		return nil, err
	}
	return &portfolio.Portfolio{Teams: teams}, nil
}

// Encode writes a portfolio document in any supported format.
func Encode(w io.Writer, format portfolio.Format, p *portfolio.Portfolio) error {
	if format != portfolio.FormatCSV {
		return portfolio.Encode(w, format, p)
	}
	return WritePortfolio(w, p.Teams)
}

// LoadFile reads a portfolio document, picking the format from the extension.
func LoadFile(path string) (*portfolio.Portfolio, error) {
	format, err := portfolio.FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open portfolio: %w", err)
	}
	defer f.Close()
	return Decode(f, format)
}
