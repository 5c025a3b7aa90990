package render

import (
	"html/template"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// notesPolicy sanitizes rendered notes before they reach a page. The UGC
// policy keeps everything the status page needs (headings, lists, inline
// code, links) and strips scripts and event handlers. Policies are safe for
// concurrent use, so one instance serves all requests.
var notesPolicy = bluemonday.UGCPolicy()

// Markdown converts markdown text to sanitized HTML for templates.
func Markdown(markdown string) template.HTML {
	unsafe := blackfriday.Run([]byte(markdown))
	return template.HTML(notesPolicy.SanitizeBytes(unsafe))
}
