package openemr

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"
)

// Patient is an OpenEMR patient record as returned by the standard API.
// Field names follow the upstream JSON exactly (DOB is capitalized there).
type Patient struct {
	ID         string      `json:"id,omitempty"`
	UUID       string      `json:"uuid,omitempty"`
	Pid        json.Number `json:"pid,omitempty"`
	Pubpid     string      `json:"pubpid,omitempty"`
	Fname      string      `json:"fname"`
	Mname      string      `json:"mname,omitempty"`
	Lname      string      `json:"lname"`
	DOB        string      `json:"DOB"`
	Sex        string      `json:"sex"`
	Street     string      `json:"street,omitempty"`
	City       string      `json:"city,omitempty"`
	State      string      `json:"state,omitempty"`
	PostalCode string      `json:"postal_code,omitempty"`
	Phone      string      `json:"phone_contact,omitempty"`
	Email      string      `json:"email,omitempty"`
}

// NewPatient carries the fields accepted by the create endpoint.
type NewPatient struct {
	Fname      string `json:"fname"`
	Mname      string `json:"mname,omitempty"`
	Lname      string `json:"lname"`
	DOB        string `json:"DOB"`
	Sex        string `json:"sex"`
	Street     string `json:"street,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Phone      string `json:"phone_contact,omitempty"`
	Email      string `json:"email,omitempty"`
}

// Validate checks the fields OpenEMR requires before spending an upstream
// call. DOB must be an ISO date.
func (p *NewPatient) Validate() error {
	switch {
	case p.Fname == "":
		return fmt.Errorf("first name is required")
	case p.Lname == "":
		return fmt.Errorf("last name is required")
	case p.DOB == "":
		return fmt.Errorf("date of birth is required")
	case p.Sex == "":
		return fmt.Errorf("sex is required")
	}
	if _, err := time.Parse("2006-01-02", p.DOB); err != nil {
		return fmt.Errorf("date of birth must be YYYY-MM-DD: %q", p.DOB)
	}
	return nil
}

// PatientQuery holds the optional list filters the standard API understands.
type PatientQuery struct {
	Fname string
	Lname string
	DOB   string
}

// encode renders the query as a URL query string, empty when no filter is set.
func (q PatientQuery) encode() string {
	values := url.Values{}
	if q.Fname != "" {
		values.Set("fname", q.Fname)
	}
	if q.Lname != "" {
		values.Set("lname", q.Lname)
	}
	if q.DOB != "" {
		values.Set("DOB", q.DOB)
	}
	if len(values) == 0 {
		return ""
	}
	return "?" + values.Encode()
}

// apiEnvelope is the response wrapper the standard API puts around every
// payload: {validationErrors, internalErrors, data}.
type apiEnvelope struct {
	ValidationErrors json.RawMessage `json:"validationErrors"`
	InternalErrors   json.RawMessage `json:"internalErrors"`
	Data             json.RawMessage `json:"data"`
}

// hasEntries reports whether a raw JSON field holds anything beyond an empty
// array/object. OpenEMR sometimes answers 200 with validationErrors filled in
// instead of a 400.
func hasEntries(raw json.RawMessage) bool {
	switch string(raw) {
	case "", "null", "[]", "{}":
		return false
	}
	return true
}

// decodeEnvelope unwraps the standard API envelope into out, surfacing
// validation and internal errors the upstream chose to report with a 2xx.
func decodeEnvelope(body []byte, out interface{}) error {
	var env apiEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("parsing upstream response: %w", err)
	}
	if hasEntries(env.ValidationErrors) {
		return fmt.Errorf("upstream validation errors: %s", env.ValidationErrors)
	}
	if hasEntries(env.InternalErrors) {
		return fmt.Errorf("upstream internal errors: %s", env.InternalErrors)
	}
	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("parsing upstream data: %w", err)
	}
	return nil
}

// PatientAPI exposes the patient resource on top of the forwarder. Every call
// inherits the forwarder's bearer handling and 401 refresh-and-retry.
type PatientAPI struct {
	fw *Forwarder
}

// NewPatientAPI wraps a forwarder.
func NewPatientAPI(fw *Forwarder) *PatientAPI {
	return &PatientAPI{fw: fw}
}

// List fetches patients matching the query (all patients when empty).
func (p *PatientAPI) List(ctx context.Context, query PatientQuery) ([]Patient, error) {
	body, err := p.fw.Get(ctx, "/patient"+query.encode())
	if err != nil {
		return nil, err
	}

	var patients []Patient
	if err := decodeEnvelope(body, &patients); err != nil {
		return nil, err
	}
	return patients, nil
}

// Create registers a new patient and returns the upstream-assigned pid.
func (p *PatientAPI) Create(ctx context.Context, patient NewPatient) (string, error) {
	if err := patient.Validate(); err != nil {
		return "", err
	}

	payload, err := json.Marshal(patient)
	if err != nil {
		return "", fmt.Errorf("encoding patient: %w", err)
	}

	body, err := p.fw.Post(ctx, "/patient", payload)
	if err != nil {
		return "", err
	}

	var created struct {
		Pid json.Number `json:"pid"`
	}
	if err := decodeEnvelope(body, &created); err != nil {
		return "", err
	}
	return created.Pid.String(), nil
}
