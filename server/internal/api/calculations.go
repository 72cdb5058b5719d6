package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"github.com/herolab/signaldash/server/internal/compute"
	"github.com/herolab/signaldash/server/internal/telemetry"
)

// maxCalcBody bounds calculation request bodies.
const maxCalcBody = 64 << 10

// fileNameField names the optional recording file a calculation was picked from.
const fileNameField = "file_name"

// errBadBody reports a body that could not be decoded at all.
var errBadBody = errors.New("invalid request body")

// calculate handles POST /api/v1/calculate: validates and computes without
// saving. Values are rounded for display.
func (h *Handler) calculate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	in, fileName, err := readInput(w, r)
	if err != nil {
		h.inputErr(w, err)
		return
	}
	res, err := compute.Calculate(in)
	if err != nil {
		h.inputErr(w, err)
		return
	}
	jsonResp(w, http.StatusOK, CalculationResult{Result: res.Rounded(), FileName: fileName})
}

// calculations serves /api/v1/calculations: GET lists newest first, POST
// saves a new record.
func (h *Handler) calculations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, http.StatusOK, h.d.Store.Calculations.List())
	case http.MethodPost:
		h.createCalculation(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *Handler) createCalculation(w http.ResponseWriter, r *http.Request) {
	in, fileName, err := readInput(w, r)
	if err != nil {
		h.inputErr(w, err)
		return
	}
	rec, err := h.d.Store.Calculations.Create(in, fileName)
	if err != nil {
		h.inputErr(w, err)
		return
	}

	h.d.Metrics.Inc(telemetry.CalculationsCreated)
	slog.Info("api: calculation saved",
		"id", rec.ID,
		"hr", compute.Round(rec.HR, 2),
		"mbp", compute.Round(rec.MBP, 2),
	)
	if h.d.Alerts != nil {
		h.d.Alerts.Evaluate(rec)
	}
	h.d.Notify()
	jsonResp(w, http.StatusCreated, rec)
}

// calculation serves /api/v1/calculations/{id}: GET returns one record,
// DELETE removes it.
func (h *Handler) calculation(w http.ResponseWriter, r *http.Request) {
	id, action := subpath(r, "/api/v1/calculations/")
	if id == "" {
		h.calculations(w, r)
		return
	}
	if action != "" {
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}

	switch r.Method {
	case http.MethodGet:
		rec, ok := h.d.Store.Calculations.Get(id)
		if !ok {
			jsonErr(w, http.StatusNotFound, "calculation not found")
			return
		}
		jsonResp(w, http.StatusOK, rec)
	case http.MethodDelete:
		if err := h.d.Store.Calculations.Delete(id); err != nil {
			jsonErr(w, http.StatusNotFound, "calculation not found")
			return
		}
		slog.Info("api: calculation deleted", "id", id)
		h.d.Notify()
		w.WriteHeader(http.StatusNoContent)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// inputErr writes a 400 for a body or validation error. Validation errors
// name the offending field.
func (h *Handler) inputErr(w http.ResponseWriter, err error) {
	var ve *compute.ValidationError
	if errors.As(err, &ve) {
		h.d.Metrics.IncLabel(telemetry.ValidationFailures, "kind", string(ve.Kind))
		jsonResp(w, http.StatusBadRequest, errorResponse{
			Error: ve.Message,
			Field: ve.Field,
			Kind:  string(ve.Kind),
		})
		return
	}
	jsonErr(w, http.StatusBadRequest, err.Error())
}

// readInput reads the five calculation inputs and the optional file name
// from a JSON or form-encoded body. JSON values may be numbers or numeric
// strings.
func readInput(w http.ResponseWriter, r *http.Request) (compute.Input, string, error) {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/x-www-form-urlencoded" {
		r.Body = http.MaxBytesReader(w, r.Body, maxCalcBody)
		if err := r.ParseForm(); err != nil {
			return compute.Input{}, "", errBadBody
		}
		raw := make(map[string]string, len(compute.Fields))
		for _, f := range compute.Fields {
			raw[f] = r.PostFormValue(f)
		}
		in, err := compute.ParseInput(raw)
		return in, r.PostFormValue(fileNameField), err
	}

	var body map[string]json.RawMessage
	if err := decodeJSON(w, r, maxCalcBody, &body); err != nil {
		return compute.Input{}, "", errBadBody
	}
	raw := make(map[string]string, len(compute.Fields))
	for _, f := range compute.Fields {
		if v, ok := body[f]; ok {
			raw[f] = jsonScalar(v)
		}
	}
	var fileName string
	if v, ok := body[fileNameField]; ok {
		fileName = jsonScalar(v)
	}
	in, err := compute.ParseInput(raw)
	return in, fileName, err
}

// jsonScalar renders a JSON number or string as its text. Other values give
// the empty string, which the calculator reports as missing.
func jsonScalar(v json.RawMessage) string {
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return s
	}
	var f json.Number
	if err := json.Unmarshal(v, &f); err == nil {
		if _, err := strconv.ParseFloat(f.String(), 64); err == nil {
			return f.String()
		}
	}
	return ""
}
