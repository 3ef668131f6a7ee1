// Package export renders finished transcripts as .docx documents
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomutex/godocx"
	"github.com/gomutex/godocx/docx"

	"github.com/nguyentantai21042004/folder-scribe/internal/logger"
	"github.com/nguyentantai21042004/folder-scribe/internal/progress"
)

const (
	fontName  = "Times New Roman"
	fontSize  = 13
	titleSize = 16
)

// Namer hands out the per-path transcript file name
type Namer interface {
	TranscriptName(path string) string
}

// Docx writes one .docx per finished transcript into dir
type Docx struct {
	dir    string
	names  Namer
	logger logger.Logger
}

// NewDocx creates a Docx exporter writing into dir. Documents follow the
// transcript names of names, so files sharing a base name do not collide.
// names may be nil, in which case only the media base name is used.
func NewDocx(dir string, names Namer, log logger.Logger) *Docx {
	return &Docx{dir: dir, names: names, logger: log}
}

// Export renders transcript, one paragraph per stored chunk line
func (d *Docx) Export(ctx context.Context, mediaPath, transcript string) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}

	name := filepath.Base(mediaPath)
	title := strings.TrimSuffix(name, filepath.Ext(name))
	outputPath := d.Path(mediaPath)

	doc, err := godocx.NewDocument()
	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	addStyledRun(doc.AddParagraph(""), title, true, titleSize)
	doc.AddParagraph("")

	for _, line := range Paragraphs(transcript) {
		addStyledRun(doc.AddParagraph(""), line, false, fontSize)
	}

	if err := doc.SaveTo(outputPath); err != nil {
		return fmt.Errorf("save document: %w", err)
	}

	d.logger.Info(ctx, "Transcript exported: %s", outputPath)
	return nil
}

// Path is where Export writes the document for mediaPath: the media name
// without extension, plus whatever suffix its transcript name carries
func (d *Docx) Path(mediaPath string) string {
	name := filepath.Base(mediaPath)
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if d.names != nil {
		transcript := strings.TrimSuffix(d.names.TranscriptName(mediaPath), progress.TranscriptSuffix)
		if strings.HasPrefix(transcript, name) {
			stem += strings.TrimPrefix(transcript, name)
		}
	}
	return filepath.Join(d.dir, stem+".docx")
}

// Paragraphs splits a stored transcript into non-empty trimmed lines
func Paragraphs(transcript string) []string {
	var out []string
	for _, line := range strings.Split(transcript, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func addStyledRun(p *docx.Paragraph, text string, bold bool, size uint64) {
	run := p.AddText(text).Font(fontName).Size(size).Color("000000")
	if bold {
		run.Bold(true)
	}
}
