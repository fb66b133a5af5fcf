// Package parser extracts plain text from documents on disk.
package parser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/kailas-cloud/readdigest/internal/domain"
)

// Parser dispatches on file extension.
type Parser struct {
	logger *zap.Logger
}

// New creates a Parser.
func New(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Supported lists the handled extensions.
func Supported() []string {
	return []string{".txt", ".md", ".html", ".htm", ".xhtml", ".epub", ".pdf"}
}

// Parse returns the text content of the document at path.
// Errors wrap domain.ErrUnsupportedFormat or domain.ErrReadError.
func (p *Parser) Parse(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		text string
		err  error
	)
	switch ext {
	case ".txt", ".md":
		text, err = parseText(path)
	case ".html", ".htm", ".xhtml":
		text, err = parseHTMLFile(path)
	case ".epub":
		text, err = parseEPUB(path)
	case ".pdf":
		text, err = parsePDF(path)
	default:
		return "", fmt.Errorf("%s: %q: %w", path, ext, domain.ErrUnsupportedFormat)
	}
	if err != nil {
		return "", fmt.Errorf("%s: %w: %w", path, domain.ErrReadError, err)
	}

	p.logger.Debug("Document parsed",
		zap.String("path", path),
		zap.String("format", ext),
		zap.Int("chars", utf8.RuneCountInString(text)),
	)
	return text, nil
}

// parseText reads UTF-8 text, dropping invalid byte sequences.
func parseText(path string) (string, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return strings.ToValidUTF8(string(data), ""), nil
}

func parseHTMLFile(path string) (string, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return htmlText(f)
}

// htmlText returns the visible text of an HTML or XHTML document.
func htmlText(r io.Reader) (string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}
	doc.Find("script,style,noscript").Remove()

	body := doc.Find("body")
	if body.Length() > 0 {
		return body.Text(), nil
	}
	return doc.Text(), nil
}
