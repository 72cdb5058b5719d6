package api

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"

	"github.com/herolab/signaldash/pkg/types"
	"github.com/herolab/signaldash/server/internal/processor"
	"github.com/herolab/signaldash/server/internal/store"
	"github.com/herolab/signaldash/server/internal/telemetry"
)

// uploadField is the multipart field carrying the recording file.
const uploadField = "file"

// multipartOverhead is allowed on top of the file size limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

// maxDataBody bounds PUT /api/v1/recordings/{id}/data bodies.
const maxDataBody = 512 << 20

// recordings serves /api/v1/recordings: GET lists, POST uploads.
func (h *Handler) recordings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		jsonResp(w, http.StatusOK, h.d.Store.Recordings.List())
	case http.MethodPost:
		h.upload(w, r)
	default:
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// recording serves /api/v1/recordings/{id}[/process|/data].
func (h *Handler) recording(w http.ResponseWriter, r *http.Request) {
	id, action := subpath(r, "/api/v1/recordings/")
	if id == "" {
		h.recordings(w, r)
		return
	}

	switch {
	case action == "" && r.Method == http.MethodGet:
		h.getRecording(w, id)
	case action == "" && r.Method == http.MethodDelete:
		h.deleteRecording(w, id)
	case action == "process" && r.Method == http.MethodPost:
		h.processRecording(w, r, id)
	case action == "data" && r.Method == http.MethodPut:
		h.putRecordingData(w, r, id)
	case action == "" || action == "process" || action == "data":
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
	default:
		jsonErr(w, http.StatusNotFound, "not found")
	}
}

// upload handles POST /api/v1/recordings (multipart field "file").
func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	cfg := h.d.Config().Upload
	limit := cfg.MaxBytes()

	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	file, hdr, err := r.FormFile(uploadField)
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			h.rejectUpload(w, http.StatusRequestEntityTooLarge, "size",
				fmt.Sprintf("file exceeds the %s limit", humanize.Bytes(uint64(limit))))
			return
		}
		h.rejectUpload(w, http.StatusBadRequest, "missing", "no file provided")
		return
	}
	defer file.Close()

	name := filepath.Base(hdr.Filename)
	if !cfg.Allowed(name) {
		h.rejectUpload(w, http.StatusBadRequest, "extension",
			fmt.Sprintf("only %s files are allowed", strings.Join(cfg.Extensions, ", ")))
		return
	}

	raw, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		h.rejectUpload(w, http.StatusBadRequest, "read", "could not read file")
		return
	}
	if int64(len(raw)) > limit {
		h.rejectUpload(w, http.StatusRequestEntityTooLarge, "size",
			fmt.Sprintf("file exceeds the %s limit", humanize.Bytes(uint64(limit))))
		return
	}

	rec := h.d.Store.Recordings.Add(name, raw)
	h.d.Metrics.Inc(telemetry.UploadsAccepted)
	slog.Info("api: recording uploaded",
		"id", rec.ID,
		"file", name,
		"size", humanize.Bytes(uint64(len(raw))),
	)
	jsonResp(w, http.StatusCreated, rec.Summary())
}

func (h *Handler) rejectUpload(w http.ResponseWriter, code int, reason, msg string) {
	h.d.Metrics.IncLabel(telemetry.UploadsRejected, "reason", reason)
	slog.Debug("api: upload rejected", "reason", reason)
	jsonErr(w, code, msg)
}

// getRecording returns GET /api/v1/recordings/{id}: processed data with
// statistics and quality hints.
func (h *Handler) getRecording(w http.ResponseWriter, id string) {
	rec, err := h.d.Store.Recordings.Data(id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonErr(w, http.StatusNotFound, "recording not found")
		return
	case errors.Is(err, store.ErrNotProcessed):
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	jsonResp(w, http.StatusOK, recordingResponse(rec))
}

// deleteRecording handles DELETE /api/v1/recordings/{id}. Chart sessions of
// the recording are closed with it.
func (h *Handler) deleteRecording(w http.ResponseWriter, id string) {
	if err := h.d.Store.Recordings.Delete(id); err != nil {
		jsonErr(w, http.StatusNotFound, "recording not found")
		return
	}
	n := h.d.Store.Sessions.DeleteRecording(id)
	slog.Info("api: recording deleted", "id", id, "sessions_closed", n)
	w.WriteHeader(http.StatusNoContent)
}

// processRecording handles POST /api/v1/recordings/{id}/process. The raw
// file is sent to the processing service and the result stored.
func (h *Handler) processRecording(w http.ResponseWriter, r *http.Request, id string) {
	rec, ok := h.d.Store.Recordings.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "recording not found")
		return
	}
	if !h.processorEnabled() {
		jsonErr(w, http.StatusServiceUnavailable, "processing service not configured")
		return
	}

	h.d.Metrics.Inc(telemetry.ProcessingRuns)
	data, err := h.d.Processor.Process(r.Context(), rec.FileName, rec.Raw)
	if err != nil {
		h.d.Metrics.Inc(telemetry.ProcessingFailures)
		slog.Error("api: processing failed", "id", id, "file", rec.FileName, "err", err)
		if errors.Is(err, processor.ErrDisabled) {
			jsonErr(w, http.StatusServiceUnavailable, "processing service not configured")
			return
		}
		jsonErr(w, http.StatusBadGateway, fmt.Sprintf("processing failed: %v", err))
		return
	}

	h.storeData(w, id, data)
}

// putRecordingData handles PUT /api/v1/recordings/{id}/data: the processing
// service pushes its result directly.
func (h *Handler) putRecordingData(w http.ResponseWriter, r *http.Request, id string) {
	if _, ok := h.d.Store.Recordings.Get(id); !ok {
		jsonErr(w, http.StatusNotFound, "recording not found")
		return
	}
	var data types.ProcessedData
	if err := decodeJSON(w, r, maxDataBody, &data); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid processed data")
		return
	}
	if err := processor.Check(data); err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	h.storeData(w, id, data)
}

// storeData saves data for recording id and closes chart sessions built from
// the previous data.
func (h *Handler) storeData(w http.ResponseWriter, id string, data types.ProcessedData) {
	rec, err := h.d.Store.Recordings.SetData(id, data)
	if err != nil {
		jsonErr(w, http.StatusNotFound, "recording not found")
		return
	}
	h.d.Store.Sessions.DeleteRecording(id)
	slog.Info("api: recording processed",
		"id", id,
		"file", rec.FileName,
		"samples", humanize.Comma(int64(data.Len())),
	)
	jsonResp(w, http.StatusOK, recordingResponse(rec))
}

func recordingResponse(rec *store.Recording) RecordingResponse {
	m := computeMetrics(*rec.Data)
	return RecordingResponse{
		RecordingSummary: rec.Summary(),
		ProcessedData:    *rec.Data,
		Metrics:          m,
		Diagnostics:      computeDiagnostics(*rec.Data, m),
	}
}
