package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"slices"
	"strconv"

	"github.com/herolab/signaldash/pkg/types"
	"github.com/herolab/signaldash/server/internal/render"
	"github.com/herolab/signaldash/server/internal/store"
	"github.com/herolab/signaldash/server/internal/viewport"
)

// maxViewBody bounds chart session request bodies.
const maxViewBody = 4 << 10

// views handles POST /api/v1/views: opens a chart session over one channel
// of a processed recording.
func (h *Handler) views(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req CreateViewRequest
	if err := decodeJSON(w, r, maxViewBody, &req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid request body")
		return
	}
	ch, err := types.ParseChannel(req.Channel)
	if err != nil {
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}
	rec, err := h.d.Store.Recordings.Data(req.RecordingID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonErr(w, http.StatusNotFound, "recording not found")
		return
	case errors.Is(err, store.ErrNotProcessed):
		jsonErr(w, http.StatusBadRequest, err.Error())
		return
	}

	v := h.d.Config().Viewer
	series, stride := viewport.Prepare(*rec.Data, v.TargetPoints, viewport.Scale{
		Time:      v.TimeScale,
		Amplitude: v.AmplitudeScale,
	})
	engine := viewport.NewEngine(series, ch, viewport.Settings{
		GridSpacingX: v.GridSpacingX,
		GridSpacingY: v.GridSpacingY,
		MinSelection: v.MinSelection,
	})
	sess := h.d.Store.Sessions.Create(rec.ID, ch, stride, engine)
	slog.Debug("api: chart session opened",
		"id", sess.ID,
		"recording", rec.ID,
		"channel", ch.Key(),
		"points", len(series),
		"stride", stride,
	)

	jsonResp(w, http.StatusCreated, h.viewState(sess, nil))
}

// view serves /api/v1/views/{id}[/{action}].
func (h *Handler) view(w http.ResponseWriter, r *http.Request) {
	id, action := subpath(r, "/api/v1/views/")
	if id == "" {
		h.views(w, r)
		return
	}
	sess, ok := h.d.Store.Sessions.Get(id)
	if !ok {
		jsonErr(w, http.StatusNotFound, "view not found")
		return
	}

	method := http.MethodPost
	switch action {
	case "", "points", "plot.png":
		method = http.MethodGet
	}
	if action == "" && r.Method == http.MethodDelete {
		h.d.Store.Sessions.Delete(id) //nolint:errcheck
		w.WriteHeader(http.StatusNoContent)
		return
	}

	switch action {
	case "", "points", "plot.png", "brush", "drag/begin", "drag/update", "drag/end", "reset":
	default:
		jsonErr(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != method {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	switch action {
	case "":
		jsonResp(w, http.StatusOK, h.viewState(sess, nil))
	case "points":
		h.viewPoints(w, sess)
	case "plot.png":
		h.viewPlot(w, sess)
	case "brush":
		var req BrushRequest
		if err := decodeJSON(w, r, maxViewBody, &req); err != nil {
			jsonErr(w, http.StatusBadRequest, "invalid request body")
			return
		}
		sess.Do(func(e *viewport.Engine) {
			e.ApplyBrushSelection(indexOrAbsent(req.StartIndex), indexOrAbsent(req.EndIndex))
		})
		jsonResp(w, http.StatusOK, h.viewState(sess, nil))
	case "drag/begin", "drag/update":
		var req DragRequest
		if err := decodeJSON(w, r, maxViewBody, &req); err != nil || req.Time == nil {
			jsonErr(w, http.StatusBadRequest, "time is required")
			return
		}
		var changed bool
		sess.Do(func(e *viewport.Engine) {
			if action == "drag/begin" {
				changed = e.BeginDragSelection(*req.Time)
			} else {
				changed = e.UpdateDragSelection(*req.Time)
			}
		})
		jsonResp(w, http.StatusOK, h.viewState(sess, &changed))
	case "drag/end":
		var changed bool
		sess.Do(func(e *viewport.Engine) { changed = e.EndDragSelection() })
		jsonResp(w, http.StatusOK, h.viewState(sess, &changed))
	case "reset":
		sess.Do(func(e *viewport.Engine) { e.Reset() })
		jsonResp(w, http.StatusOK, h.viewState(sess, nil))
	}
}

// viewState snapshots sess under its lock.
func (h *Handler) viewState(sess *store.Session, changed *bool) ViewResponse {
	resp := ViewResponse{
		ID:          sess.ID,
		RecordingID: sess.RecordingID,
		Channel:     sess.Channel.Key(),
		ChannelName: sess.Channel.Name(),
		Stride:      sess.Stride,
		Changed:     changed,
	}
	sess.Do(func(e *viewport.Engine) {
		resp.State = e.State()
		resp.GridX = slices.Collect(e.GridLines(viewport.AxisX))
		resp.GridY = slices.Collect(e.GridLines(viewport.AxisY))
		resp.PointCount = len(e.Series())
	})
	return resp
}

// viewPoints returns GET /api/v1/views/{id}/points: the display samples of
// the session's channel inside the current X domain.
func (h *Handler) viewPoints(w http.ResponseWriter, sess *store.Session) {
	resp := PointsResponse{ID: sess.ID}
	sess.Do(func(e *viewport.Engine) {
		resp.Domain = e.Domain()
		vis := e.Visible()
		resp.Time = make([]float64, len(vis))
		resp.Values = make([]float64, len(vis))
		for i, s := range vis {
			resp.Time[i] = s.Time
			resp.Values[i] = sess.Channel.Value(s)
		}
	})
	jsonResp(w, http.StatusOK, resp)
}

// viewPlot returns GET /api/v1/views/{id}/plot.png.
func (h *Handler) viewPlot(w http.ResponseWriter, sess *store.Session) {
	if h.d.Renderer == nil {
		jsonErr(w, http.StatusServiceUnavailable, "plot rendering not available")
		return
	}

	var (
		buf bytes.Buffer
		err error
	)
	sess.Do(func(e *viewport.Engine) {
		v := render.View{
			Title:   sess.Channel.Name(),
			Channel: sess.Channel,
			Domain:  e.Domain(),
			XLines:  e.GridLines(viewport.AxisX),
			YLines:  e.GridLines(viewport.AxisY),
			Points:  e.Visible(),
		}
		if g, ok := e.Gesture(); ok {
			v.Selection = &g
		}
		err = h.d.Renderer.PNG(&buf, v)
	})
	if err != nil {
		slog.Error("api: plot rendering failed", "id", sess.ID, "err", err)
		jsonErr(w, http.StatusInternalServerError, "plot rendering failed")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck
}

// indexOrAbsent maps a missing brush index to -1, which resets the view.
func indexOrAbsent(i *int) int {
	if i == nil {
		return -1
	}
	return *i
}
