package openemr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
)

func newTestPatientAPI(t *testing.T, handler http.HandlerFunc) (*PatientAPI, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	fw, err := NewForwarder(server.URL, &fakeTokenSource{token: "tok-abc"})
	if err != nil {
		t.Fatalf("NewForwarder: %v", err)
	}
	return NewPatientAPI(fw), server
}

func TestPatientAPIList(t *testing.T) {
	var gotPath, gotQuery string
	api, server := newTestPatientAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{
			"validationErrors": [],
			"internalErrors": [],
			"data": [
				{"id": "1", "pid": 1, "fname": "Ada", "lname": "Lovelace", "DOB": "1815-12-10", "sex": "Female"},
				{"id": "2", "pid": 2, "fname": "Alan", "lname": "Turing", "DOB": "1912-06-23", "sex": "Male"}
			]
		}`))
	})
	defer server.Close()

	patients, err := api.List(context.Background(), PatientQuery{Lname: "Lovelace"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if gotPath != "/patient" {
		t.Errorf("expected /patient, got %q", gotPath)
	}
	if gotQuery != "lname=Lovelace" {
		t.Errorf("expected lname filter in query, got %q", gotQuery)
	}
	if len(patients) != 2 {
		t.Fatalf("expected 2 patients, got %d", len(patients))
	}
	if patients[0].Fname != "Ada" || patients[0].DOB != "1815-12-10" {
		t.Errorf("unexpected first patient: %+v", patients[0])
	}
	if patients[1].Pid.String() != "2" {
		t.Errorf("expected pid 2, got %s", patients[1].Pid)
	}
}

func TestPatientAPIListEmptyData(t *testing.T) {
	api, server := newTestPatientAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"validationErrors": [], "internalErrors": [], "data": []}`))
	})
	defer server.Close()

	patients, err := api.List(context.Background(), PatientQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(patients) != 0 {
		t.Errorf("expected no patients, got %d", len(patients))
	}
}

func TestPatientAPICreate(t *testing.T) {
	var gotMethod string
	var gotBody map[string]interface{}
	api, server := newTestPatientAPI(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"validationErrors": [], "internalErrors": [], "data": {"pid": 42}}`))
	})
	defer server.Close()

	pid, err := api.Create(context.Background(), NewPatient{
		Fname: "Grace",
		Lname: "Hopper",
		DOB:   "1906-12-09",
		Sex:   "Female",
		City:  "Arlington",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if pid != "42" {
		t.Errorf("expected pid 42, got %q", pid)
	}
	if gotMethod != http.MethodPost {
		t.Errorf("expected POST, got %s", gotMethod)
	}
	if gotBody["fname"] != "Grace" || gotBody["DOB"] != "1906-12-09" {
		t.Errorf("unexpected request body: %v", gotBody)
	}
}

func TestPatientAPICreateRejectsInvalid(t *testing.T) {
	var calls int32
	api, server := newTestPatientAPI(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})
	defer server.Close()

	tests := []struct {
		name    string
		patient NewPatient
	}{
		{"missing first name", NewPatient{Lname: "Hopper", DOB: "1906-12-09", Sex: "Female"}},
		{"missing last name", NewPatient{Fname: "Grace", DOB: "1906-12-09", Sex: "Female"}},
		{"missing birth date", NewPatient{Fname: "Grace", Lname: "Hopper", Sex: "Female"}},
		{"missing sex", NewPatient{Fname: "Grace", Lname: "Hopper", DOB: "1906-12-09"}},
		{"malformed birth date", NewPatient{Fname: "Grace", Lname: "Hopper", DOB: "12/09/1906", Sex: "Female"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := api.Create(context.Background(), tt.patient); err == nil {
				t.Error("expected a validation error")
			}
		})
	}

	if got := atomic.LoadInt32(&calls); got != 0 {
		t.Errorf("expected invalid records to be rejected before any upstream call, got %d", got)
	}
}

func TestPatientAPIValidationErrorsSurface(t *testing.T) {
	api, server := newTestPatientAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"validationErrors": [{"DOB": "invalid date format"}],
			"internalErrors": [],
			"data": []
		}`))
	})
	defer server.Close()

	_, err := api.Create(context.Background(), NewPatient{
		Fname: "Grace", Lname: "Hopper", DOB: "1906-12-09", Sex: "Female",
	})
	if err == nil {
		t.Fatal("expected the envelope's validation errors to surface")
	}
	if !strings.Contains(err.Error(), "invalid date format") {
		t.Errorf("expected the upstream detail in the error, got %v", err)
	}
}

func TestPatientQueryEncode(t *testing.T) {
	tests := []struct {
		name  string
		query PatientQuery
		want  string
	}{
		{"empty", PatientQuery{}, ""},
		{"single field", PatientQuery{Lname: "Hopper"}, "?lname=Hopper"},
		{"all fields", PatientQuery{Fname: "Grace", Lname: "Hopper", DOB: "1906-12-09"},
			"?DOB=1906-12-09&fname=Grace&lname=Hopper"},
		{"escaped value", PatientQuery{Lname: "O'Brien Smith"}, "?lname=O%27Brien+Smith"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.encode(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestHasEntries(t *testing.T) {
	tests := []struct {
		raw  string
		want bool
	}{
		{"", false},
		{"null", false},
		{"[]", false},
		{"{}", false},
		{`[{"DOB":"bad"}]`, true},
		{`{"error":"x"}`, true},
	}
	for _, tt := range tests {
		if got := hasEntries(json.RawMessage(tt.raw)); got != tt.want {
			t.Errorf("hasEntries(%q): expected %v, got %v", tt.raw, tt.want, got)
		}
	}
}
