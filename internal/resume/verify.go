package resume

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"cvscreen/internal/api"
)

// VerifyPDF checks that data parses as a PDF with at least one page.
// Corrupt or truncated files fail here instead of after the upload.
func VerifyPDF(data []byte) (err error) {
	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return fmt.Errorf("parsing pdf: %w", err)
	}
	if r.NumPage() < 1 {
		return fmt.Errorf("pdf has no pages")
	}
	return nil
}

// Verify runs VerifyPDF over the PDFs in files and moves failures into
// rejections. Non-PDF files pass through untouched.
func Verify(files []api.FileUpload) ([]api.FileUpload, []Rejection) {
	var (
		ok       []api.FileUpload
		rejected []Rejection
	)
	for _, f := range files {
		if strings.ToLower(filepath.Ext(f.Filename)) != ".pdf" {
			ok = append(ok, f)
			continue
		}
		if err := VerifyPDF(f.Data); err != nil {
			rejected = append(rejected, Rejection{Path: f.Filename, Reason: err.Error()})
			continue
		}
		ok = append(ok, f)
	}
	return ok, rejected
}
