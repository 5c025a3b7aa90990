package urlutil

import (
	"fmt"
	"strings"
)

// TokenEndpoint builds the OAuth2 token URL for an OpenEMR site.
// Returns a URL like: {baseURL}/oauth2/{site}/token
// Ensures no double slashes by trimming trailing slash from baseURL.
func TokenEndpoint(baseURL, site string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	return fmt.Sprintf("%s/oauth2/%s/token", baseURL, site)
}

// APIBase builds the standard REST API root for an OpenEMR site.
// Returns a URL like: {baseURL}/apis/{site}/api
func APIBase(baseURL, site string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	return fmt.Sprintf("%s/apis/%s/api", baseURL, site)
}

// FHIRBase builds the FHIR R4 API root for an OpenEMR site.
// Returns a URL like: {baseURL}/apis/{site}/fhir
func FHIRBase(baseURL, site string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	return fmt.Sprintf("%s/apis/%s/fhir", baseURL, site)
}
