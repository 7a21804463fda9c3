package inject

import (
	"github.com/minios-linux/locbridge/i18n"
	"github.com/minios-linux/locbridge/translation"
)

// Result is the outcome of Run.
type Result struct {
	// Documents are the documents that parsed.
	Documents []*translation.Document
	// Skipped are the documents that failed to parse.
	Skipped []*DocumentError
	// Reports hold one entry per platform that ran.
	Reports []*Report
}

// Run injects the translation documents into each platform in order.
// Unknown platforms are logged and ignored. A PreconditionError stops the
// run; reports of platforms that already ran are returned with it.
func Run(c *Context, platforms []string) (*Result, error) {
	docs, skipped, err := c.Documents()
	if err != nil {
		return nil, err
	}
	res := &Result{Documents: docs, Skipped: skipped}
	if len(docs) == 0 {
		return res, nil
	}

	for _, p := range platforms {
		var r *Report
		switch p {
		case translation.PlatformAndroid:
			r, err = RunAndroid(c, docs)
		case translation.PlatformIOS:
			r, err = RunIOS(c, docs)
		default:
			c.log().Warn(i18n.T("Unsupported platform"), "platform", p)
			continue
		}
		if r != nil {
			r.Skipped = append(append([]*DocumentError(nil), skipped...), r.Skipped...)
			res.Reports = append(res.Reports, r)
		}
		if err != nil {
			return res, err
		}
	}
	return res, nil
}
