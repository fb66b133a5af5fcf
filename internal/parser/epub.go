package parser

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
)

const containerPath = "META-INF/container.xml"

type epubContainer struct {
	Rootfiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	Manifest []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	Spine []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

// parseEPUB concatenates the text of the XHTML content documents in reading order.
func parseEPUB(p string) (string, error) {
	zr, err := zip.OpenReader(p)
	if err != nil {
		return "", fmt.Errorf("open epub: %w", err)
	}
	defer func() { _ = zr.Close() }()

	files := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		files[f.Name] = f
	}

	docs, err := contentDocuments(files)
	if err != nil {
		return "", err
	}

	parts := make([]string, 0, len(docs))
	for _, name := range docs {
		f, ok := files[name]
		if !ok {
			continue
		}
		text, err := zipHTMLText(f)
		if err != nil {
			return "", fmt.Errorf("%s: %w", name, err)
		}
		parts = append(parts, text)
	}
	return strings.Join(parts, "\n"), nil
}

// contentDocuments returns archive paths of XHTML documents, spine order first.
// Archives without a readable package document fall back to archive order.
func contentDocuments(files map[string]*zip.File) ([]string, error) {
	opfPath, err := rootfile(files)
	if err != nil {
		return fallbackDocuments(files), nil //nolint:nilerr // malformed container, read what is there
	}

	var pkg epubPackage
	if err := decodeXML(files[opfPath], &pkg); err != nil {
		return nil, fmt.Errorf("package document: %w", err)
	}

	base := path.Dir(opfPath)
	hrefs := make(map[string]string, len(pkg.Manifest))
	var ordered []string
	for _, item := range pkg.Manifest {
		if !isXHTML(item.MediaType) {
			continue
		}
		full := path.Join(base, item.Href)
		hrefs[item.ID] = full
		ordered = append(ordered, full)
	}

	if len(pkg.Spine) == 0 {
		return ordered, nil
	}
	out := make([]string, 0, len(pkg.Spine))
	for _, ref := range pkg.Spine {
		if full, ok := hrefs[ref.IDRef]; ok {
			out = append(out, full)
		}
	}
	return out, nil
}

func rootfile(files map[string]*zip.File) (string, error) {
	f, ok := files[containerPath]
	if !ok {
		return "", fmt.Errorf("missing %s", containerPath)
	}
	var c epubContainer
	if err := decodeXML(f, &c); err != nil {
		return "", err
	}
	for _, rf := range c.Rootfiles {
		if _, ok := files[rf.FullPath]; ok {
			return rf.FullPath, nil
		}
	}
	return "", fmt.Errorf("no rootfile in %s", containerPath)
}

func fallbackDocuments(files map[string]*zip.File) []string {
	var out []string
	for name := range files {
		switch strings.ToLower(path.Ext(name)) {
		case ".xhtml", ".html", ".htm":
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

func isXHTML(mediaType string) bool {
	return mediaType == "application/xhtml+xml" || mediaType == "text/html"
}

func decodeXML(f *zip.File, v any) error {
	if f == nil {
		return fmt.Errorf("missing file")
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", f.Name, err)
	}
	return nil
}

func zipHTMLText(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open: %w", err)
	}
	defer func() { _ = rc.Close() }()
	return htmlText(io.LimitReader(rc, maxEntrySize))
}

// maxEntrySize caps a single decompressed archive entry.
const maxEntrySize = 64 << 20
