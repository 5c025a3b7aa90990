package handlers

import (
	"net/http"
	"time"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
)

// usageNotes is rendered as markdown on the status page
const usageNotes = `## API usage

- **List patients**: ` + "`GET /api/patients?lname=Smith`" + ` (filters: ` + "`fname`, `lname`, `DOB`" + `)
- **Create a patient**: ` + "`POST /api/patients`" + ` with a JSON body
- Tokens are fetched on demand and refreshed automatically on a 401

The proxy holds one upstream credential set; clients never see the EMR token.`

// Home handles the status page
func (h *Handler) Home(w http.ResponseWriter, r *http.Request) {
	// Only handle root path
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := h.newTemplateData(r, w)
	data["CurrentPage"] = "home"
	data["UpstreamBase"] = h.upstreamBase
	data["FHIRBase"] = h.fhirBase
	data["UsageNotes"] = usageNotes

	// Report on the cached token without spending an upstream call. A nil
	// cache just means no request has needed a token yet.
	if tok := h.tokens.Cached(); tok != nil {
		data["TokenCached"] = true
		data["TokenExpiry"] = tok.Expiry.Format(time.RFC1123)
		data["TokenValid"] = tok.Expiry.After(time.Now())

		if claims, err := openemr.TokenClaims(tok.AccessToken); err == nil {
			data["Claims"] = claims
		}
	}

	h.renderTemplate(w, "home.html", data)
}
