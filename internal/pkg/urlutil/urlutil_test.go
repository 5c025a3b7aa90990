package urlutil

import "testing"

func TestTokenEndpoint(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		site    string
		want    string
	}{
		{
			name:    "basic URL",
			baseURL: "https://emr.example.com",
			site:    "default",
			want:    "https://emr.example.com/oauth2/default/token",
		},
		{
			name:    "trailing slash on base",
			baseURL: "https://emr.example.com/",
			site:    "default",
			want:    "https://emr.example.com/oauth2/default/token",
		},
		{
			name:    "custom site",
			baseURL: "https://emr.example.com",
			site:    "clinic_b",
			want:    "https://emr.example.com/oauth2/clinic_b/token",
		},
		{
			name:    "base with port",
			baseURL: "http://localhost:8300",
			site:    "default",
			want:    "http://localhost:8300/oauth2/default/token",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TokenEndpoint(tt.baseURL, tt.site)
			if got != tt.want {
				t.Errorf("TokenEndpoint() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAPIBase(t *testing.T) {
	tests := []struct {
		name    string
		baseURL string
		site    string
		want    string
	}{
		{
			name:    "basic URL",
			baseURL: "https://emr.example.com",
			site:    "default",
			want:    "https://emr.example.com/apis/default/api",
		},
		{
			name:    "trailing slash on base",
			baseURL: "https://emr.example.com/",
			site:    "default",
			want:    "https://emr.example.com/apis/default/api",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := APIBase(tt.baseURL, tt.site)
			if got != tt.want {
				t.Errorf("APIBase() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFHIRBase(t *testing.T) {
	got := FHIRBase("https://emr.example.com/", "default")
	want := "https://emr.example.com/apis/default/fhir"
	if got != want {
		t.Errorf("FHIRBase() = %v, want %v", got, want)
	}
}
