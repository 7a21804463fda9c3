package inject

import (
	"fmt"

	"github.com/minios-linux/locbridge/i18n"
)

// Report summarizes one platform run.
type Report struct {
	Platform string
	// Documents is the number of documents processed.
	Documents int
	// Skipped lists documents that could not be processed.
	Skipped []*DocumentError
	// Written lists files created or changed, relative to the project root.
	Written []string
	// Unchanged counts files whose content was already up to date.
	Unchanged int
	// Registered counts file references added to the Xcode project.
	Registered int
	// ProjectWritten reports whether project.pbxproj was rewritten.
	ProjectWritten bool
}

func (r *Report) record(path string, changed bool) {
	if changed {
		r.Written = append(r.Written, path)
	} else {
		r.Unchanged++
	}
}

func (r *Report) skip(err *DocumentError) {
	r.Skipped = append(r.Skipped, err)
}

// String returns a one-line summary.
func (r *Report) String() string {
	written := fmt.Sprintf(i18n.N("%d file written", "%d files written", len(r.Written)), len(r.Written))
	s := fmt.Sprintf("%s: %d documents, %s, %d unchanged", r.Platform, r.Documents, written, r.Unchanged)
	if r.Registered > 0 {
		s += fmt.Sprintf(", %d files registered", r.Registered)
	}
	if len(r.Skipped) > 0 {
		s += fmt.Sprintf(", %d skipped", len(r.Skipped))
	}
	return s
}
