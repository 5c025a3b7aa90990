package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/oriarh/OpenEMR-EHR-Integration-System/internal/openemr"
)

// patientQueryFromRequest pulls the supported filters off the query string
func patientQueryFromRequest(r *http.Request) openemr.PatientQuery {
	return openemr.PatientQuery{
		Fname: strings.TrimSpace(r.URL.Query().Get("fname")),
		Lname: strings.TrimSpace(r.URL.Query().Get("lname")),
		DOB:   strings.TrimSpace(r.URL.Query().Get("DOB")),
	}
}

// PatientsPage displays the patient roster with optional name and DOB filters
func (h *Handler) PatientsPage(w http.ResponseWriter, r *http.Request) {
	query := patientQueryFromRequest(r)

	patients, err := h.patients.List(r.Context(), query)
	if err != nil {
		h.htmlError(w, r, err, "Failed to fetch patients from the EMR")
		return
	}

	data := h.newTemplateData(r, w)
	data["CurrentPage"] = "patients"
	data["Patients"] = patients
	data["Total"] = len(patients)
	data["Query"] = query

	h.renderTemplate(w, "patients.html", data)
}

// PatientNewPage displays the intake form
func (h *Handler) PatientNewPage(w http.ResponseWriter, r *http.Request) {
	data := h.newTemplateData(r, w)
	data["CurrentPage"] = "patients"

	h.renderTemplate(w, "patient_new.html", data)
}

// patientFromForm builds a NewPatient from the intake form fields
func patientFromForm(r *http.Request) openemr.NewPatient {
	return openemr.NewPatient{
		Fname:      strings.TrimSpace(r.FormValue("fname")),
		Mname:      strings.TrimSpace(r.FormValue("mname")),
		Lname:      strings.TrimSpace(r.FormValue("lname")),
		DOB:        strings.TrimSpace(r.FormValue("DOB")),
		Sex:        strings.TrimSpace(r.FormValue("sex")),
		Street:     strings.TrimSpace(r.FormValue("street")),
		City:       strings.TrimSpace(r.FormValue("city")),
		State:      strings.TrimSpace(r.FormValue("state")),
		PostalCode: strings.TrimSpace(r.FormValue("postal_code")),
		Phone:      strings.TrimSpace(r.FormValue("phone")),
		Email:      strings.TrimSpace(r.FormValue("email")),
	}
}

// PatientCreate handles the intake form POST. Redirect-after-post either way:
// back to the form with an error flash, or to the roster with the new pid.
func (h *Handler) PatientCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.log.Error("failed to parse intake form", slog.String("error", err.Error()))
		http.Error(w, "Invalid form data", http.StatusBadRequest)
		return
	}

	patient := patientFromForm(r)
	if err := patient.Validate(); err != nil {
		h.flashAndRedirect(w, r, "error", err.Error(), "/patients/new")
		return
	}

	pid, err := h.patients.Create(r.Context(), patient)
	if err != nil {
		h.log.Error("patient create failed",
			slog.String("lname", patient.Lname),
			slog.String("error", err.Error()))
		h.flashAndRedirect(w, r, "error", "The EMR rejected the record: "+err.Error(), "/patients/new")
		return
	}

	h.log.Info("patient created", slog.String("pid", pid))
	h.flashAndRedirect(w, r, "success", fmt.Sprintf("Patient created (pid %s)", pid), "/patients")
}

func (h *Handler) flashAndRedirect(w http.ResponseWriter, r *http.Request, level, message, target string) {
	if err := h.sessionManager.AddFlash(r, w, level, message); err != nil {
		h.log.Error("failed to save flash", slog.String("error", err.Error()))
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// APIPatientsList handles GET /api/patients
func (h *Handler) APIPatientsList(w http.ResponseWriter, r *http.Request) {
	query := patientQueryFromRequest(r)

	patients, err := h.patients.List(r.Context(), query)
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}

	// Keep the data envelope the upstream uses so clients can switch between
	// direct and proxied access without re-parsing
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data":  patients,
		"total": len(patients),
	})
}

// APIPatientCreate handles POST /api/patients
func (h *Handler) APIPatientCreate(w http.ResponseWriter, r *http.Request) {
	var patient openemr.NewPatient
	if err := json.NewDecoder(r.Body).Decode(&patient); err != nil {
		h.writeJSON(w, http.StatusBadRequest, apiError{
			Error:  "invalid_json",
			Detail: err.Error(),
		})
		return
	}

	if err := patient.Validate(); err != nil {
		h.writeJSON(w, http.StatusBadRequest, apiError{
			Error:  "invalid_patient",
			Detail: err.Error(),
		})
		return
	}

	pid, err := h.patients.Create(r.Context(), patient)
	if err != nil {
		h.writeJSONError(w, r, err)
		return
	}

	h.log.Info("patient created via API", slog.String("pid", pid))
	h.writeJSON(w, http.StatusCreated, map[string]interface{}{
		"data": map[string]string{"pid": pid},
	})
}
