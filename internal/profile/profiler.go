package profile

import (
	"bytes"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"parsemill/internal/domain"
)

// Confidence levels assigned by how much of the probe succeeded.
const (
	confidenceStatFailed = 0.1
	confidenceStatOnly   = 0.5
	confidenceMismatch   = 0.3
	confidenceProbed     = 0.9
)

// Page estimation heuristics per document family.
const (
	pdfPagesPerMB    = 12
	officePagesPerMB = 30
	bytesPerTextPage = 3200
	imageHeavyPDFMB  = 2.0
)

var imageExtensions = map[string]bool{
	"png": true, "jpg": true, "jpeg": true, "tif": true, "tiff": true, "bmp": true,
}

var officeExtensions = map[string]bool{
	"doc": true, "docx": true, "odt": true, "rtf": true, "pptx": true,
}

var tabularExtensions = map[string]bool{
	"csv": true, "xls": true, "xlsx": true, "tsv": true,
}

var textExtensions = map[string]bool{
	"txt": true, "md": true, "log": true, "json": true, "xml": true, "html": true, "htm": true,
}

// Config controls how much of a document the profiler reads.
type Config struct {
	ProbeBytes int
}

// Profiler inspects documents cheaply: one stat plus a bounded head read.
type Profiler struct {
	probeBytes int
}

func NewProfiler(cfg Config) *Profiler {
	pb := cfg.ProbeBytes
	if pb <= 0 {
		pb = 4096
	}
	return &Profiler{probeBytes: pb}
}

// Profile characterizes a document without parsing it. It never fails: when
// the file cannot be inspected the returned profile carries low confidence
// and conservative defaults.
func (p *Profiler) Profile(path string) domain.Profile {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(path), "."))
	prof := domain.Profile{
		Path:       path,
		Extension:  ext,
		Confidence: confidenceStatFailed,
		ProfiledAt: time.Now(),
	}

	info, err := os.Stat(path)
	if err != nil {
		log.Printf("profile: stat %s failed: %v", path, err)
		prof.EstimatedPages = 1
		return prof
	}
	prof.SizeMB = float64(info.Size()) / (1 << 20)
	prof.Confidence = confidenceStatOnly
	prof.EstimatedPages = estimatePages(ext, info.Size())

	switch {
	case imageExtensions[ext]:
		prof.NeedsOCR = true
		prof.HasImages = true
	case tabularExtensions[ext]:
		prof.NeedsTableExtraction = true
	case ext == "pdf":
		prof.HasImages = prof.SizeMB >= imageHeavyPDFMB
		prof.NeedsTableExtraction = true
	}

	head, err := p.readHead(path)
	if err != nil {
		log.Printf("profile: probe %s failed: %v", path, err)
		return prof
	}
	if headMatchesExtension(ext, head) {
		prof.Confidence = confidenceProbed
	} else {
		prof.Confidence = confidenceMismatch
	}
	return prof
}

func (p *Profiler) readHead(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	buf := make([]byte, p.probeBytes)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf[:n], nil
}

func estimatePages(ext string, sizeBytes int64) int {
	sizeMB := float64(sizeBytes) / (1 << 20)
	var pages int
	switch {
	case ext == "pdf":
		pages = int(sizeMB * pdfPagesPerMB)
	case officeExtensions[ext]:
		pages = int(sizeMB * officePagesPerMB)
	case imageExtensions[ext]:
		pages = 1
	default:
		pages = int(sizeBytes / bytesPerTextPage)
	}
	if pages < 1 {
		pages = 1
	}
	return pages
}

// headMatchesExtension cross-checks the file's leading bytes against what the
// extension claims. An empty head counts as a match for text-like files.
func headMatchesExtension(ext string, head []byte) bool {
	switch {
	case ext == "pdf":
		return bytes.HasPrefix(head, []byte("%PDF"))
	case ext == "docx" || ext == "xlsx" || ext == "pptx" || ext == "odt":
		return bytes.HasPrefix(head, []byte("PK\x03\x04"))
	case ext == "png":
		return bytes.HasPrefix(head, []byte("\x89PNG"))
	case ext == "jpg" || ext == "jpeg":
		return bytes.HasPrefix(head, []byte{0xFF, 0xD8})
	case textExtensions[ext] || tabularExtensions[ext] || ext == "":
		return printableRatio(head) >= 0.9
	default:
		return true
	}
}

func printableRatio(b []byte) float64 {
	if len(b) == 0 {
		return 1.0
	}
	printable := 0
	for _, c := range b {
		if c >= 0x20 || c == '\t' || c == '\n' || c == '\r' {
			printable++
		}
	}
	return float64(printable) / float64(len(b))
}
