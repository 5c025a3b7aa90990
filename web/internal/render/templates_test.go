package render

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"
)

// Tests run from web/internal/render; the real templates live three levels up.
func testTemplatesPath() string {
	return filepath.Join("..", "..", "..", "web", "templates")
}

func TestLoadTemplates(t *testing.T) {
	ts, err := LoadTemplates(testTemplatesPath())
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}

	for _, page := range []string{"home.html", "patients.html", "patient_new.html"} {
		if !ts.Has(page) {
			t.Errorf("page %q not loaded", page)
		}
	}

	names := ts.Names()
	if len(names) < 3 {
		t.Fatalf("Names() = %v, want at least the three pages", names)
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] > names[i] {
			t.Errorf("Names() not sorted: %v", names)
			break
		}
	}
}

func TestLoadTemplatesEmptyDir(t *testing.T) {
	if _, err := LoadTemplates(t.TempDir()); err == nil {
		t.Fatal("LoadTemplates on an empty dir should fail, got nil")
	}
}

func TestExecuteUnknownPage(t *testing.T) {
	ts, err := LoadTemplates(testTemplatesPath())
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}

	var buf bytes.Buffer
	if err := ts.Execute(&buf, "nope.html", nil); err == nil {
		t.Fatal("Execute on an unknown page should fail, got nil")
	}
}

func TestTemplateIsolation(t *testing.T) {
	// Every page defines "title" and "content", so pages parsed into a
	// shared template would silently render each other's blocks. Each page
	// must execute with its OWN definitions.
	ts, err := LoadTemplates(testTemplatesPath())
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}

	var buf bytes.Buffer
	testData := map[string]interface{}{
		"Version":     "test",
		"Flashes":     nil,
		"CurrentPage": "patients",
		"Patients":    nil,
		"Total":       0,
		"Query":       map[string]string{},
	}
	if err := ts.Execute(&buf, "patients.html", testData); err != nil {
		t.Fatalf("Failed to execute patients.html template: %v", err)
	}
	rendered := buf.String()

	// Roster page blocks must be present
	for _, want := range []string{
		"Patients - EMR Proxy", // title block
		"No patients matched",  // empty state
		"0 shown",              // total count
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("patients.html output missing %q", want)
		}
	}

	// Intake page blocks must NOT leak in
	for _, unexpected := range []string{
		"New patient - EMR Proxy", // title from patient_new.html
		"Register patient",        // header from patient_new.html
	} {
		if strings.Contains(rendered, unexpected) {
			t.Errorf("patients.html output contains %q from patient_new.html; page definitions collided", unexpected)
		}
	}
}

func TestHomeTemplateRenders(t *testing.T) {
	ts, err := LoadTemplates(testTemplatesPath())
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}

	var buf bytes.Buffer
	testData := map[string]interface{}{
		"Version":      "test",
		"Flashes":      nil,
		"CurrentPage":  "home",
		"UpstreamBase": "https://emr.example.com/apis/default/api",
		"FHIRBase":     "https://emr.example.com/apis/default/fhir",
		"UsageNotes":   "## API usage\n\n- `GET /api/patients`",
		"TokenCached":  false,
	}
	if err := ts.Execute(&buf, "home.html", testData); err != nil {
		t.Fatalf("Failed to execute home.html template: %v", err)
	}
	rendered := buf.String()

	for _, want := range []string{
		"Status - EMR Proxy",
		"https://emr.example.com/apis/default/api",
		"https://emr.example.com/apis/default/fhir",
		"No token cached yet",
		"API usage", // markdown heading made it through rendering
	} {
		if !strings.Contains(rendered, want) {
			t.Errorf("home.html output missing %q", want)
		}
	}
}

func TestFlashComponentRenders(t *testing.T) {
	ts, err := LoadTemplates(testTemplatesPath())
	if err != nil {
		t.Fatalf("LoadTemplates: %v", err)
	}

	var buf bytes.Buffer
	testData := map[string]interface{}{
		"Version":     "test",
		"CurrentPage": "patients",
		"Patients":    nil,
		"Total":       0,
		"Query":       map[string]string{},
		"Flashes": []map[string]string{
			{"Level": "success", "Message": "Patient created (pid 42)"},
			{"Level": "error", "Message": "The EMR rejected the record"},
		},
	}
	if err := ts.Execute(&buf, "patients.html", testData); err != nil {
		t.Fatalf("Failed to execute patients.html template: %v", err)
	}

	rendered := buf.String()
	for _, want := range []string{"Patient created (pid 42)", "The EMR rejected the record"} {
		if !strings.Contains(rendered, want) {
			t.Errorf("flash message %q missing from output", want)
		}
	}
}

func TestInitials(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"two names", "Jane Doe", "JD"},
		{"single name", "Cher", "C"},
		{"three names keeps two", "Mary Jane Watson", "MJ"},
		{"empty", "", "?"},
		{"whitespace only", "   ", "?"},
		{"non-ascii", "Åsa Öberg", "ÅÖ"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := initials(tt.in); got != tt.want {
				t.Errorf("initials(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestAvatarColor(t *testing.T) {
	a := avatarColor("Jane Doe")
	if b := avatarColor("jane doe"); b != a {
		t.Errorf("avatar color should ignore case: %q vs %q", a, b)
	}
	if got := avatarColor(""); got != "from-gray-400 to-gray-600" {
		t.Errorf("empty name color = %q, want the gray fallback", got)
	}
	if !strings.HasPrefix(avatarColor("Someone Else"), "from-") {
		t.Error("avatar colors should be tailwind gradient classes")
	}
}
