// Package resume prepares local resume files for upload: it filters
// candidate paths down to the supported formats and can verify that a
// PDF is structurally readable before it is sent.
package resume

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cvscreen/internal/api"
)

// Supported upload formats, matched case-insensitively on the extension.
var supportedExtensions = map[string]bool{
	".pdf":  true,
	".docx": true,
}

// Rejection explains why a candidate file was skipped.
type Rejection struct {
	Path   string
	Reason string
}

// Selection is the outcome of filtering a set of candidate paths.
type Selection struct {
	Files    []api.FileUpload
	Rejected []Rejection
}

// Collect reads the candidate paths and returns the uploadable ones.
// Unsupported extensions, unreadable files and directories are reported
// in Rejected rather than failing the whole selection.
func Collect(paths []string) Selection {
	var sel Selection
	for _, p := range paths {
		ext := strings.ToLower(filepath.Ext(p))
		if !supportedExtensions[ext] {
			sel.Rejected = append(sel.Rejected, Rejection{Path: p, Reason: fmt.Sprintf("unsupported format %q (want .pdf or .docx)", ext)})
			continue
		}

		info, err := os.Stat(p)
		if err != nil {
			sel.Rejected = append(sel.Rejected, Rejection{Path: p, Reason: err.Error()})
			continue
		}
		if info.IsDir() {
			sel.Rejected = append(sel.Rejected, Rejection{Path: p, Reason: "is a directory"})
			continue
		}

		data, err := os.ReadFile(p)
		if err != nil {
			sel.Rejected = append(sel.Rejected, Rejection{Path: p, Reason: err.Error()})
			continue
		}
		if len(data) == 0 {
			sel.Rejected = append(sel.Rejected, Rejection{Path: p, Reason: "file is empty"})
			continue
		}

		sel.Files = append(sel.Files, api.FileUpload{
			Filename: filepath.Base(p),
			Data:     data,
		})
	}
	return sel
}
