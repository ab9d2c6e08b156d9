package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jacksnnn/fabublox-process-selector/internal/apperr"
	"github.com/jacksnnn/fabublox-process-selector/internal/proxy"
	"github.com/jacksnnn/fabublox-process-selector/internal/reference"
	"github.com/jacksnnn/fabublox-process-selector/internal/topicservice"
)

// Handler holds API route handlers.
type Handler struct {
	proxy  *proxy.Service
	topics *topicservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(proxySvc *proxy.Service, topics *topicservice.Service) *Handler {
	return &Handler{proxy: proxySvc, topics: topics}
}

// Token handles GET /api/token: the current user's delegated credential.
func (h *Handler) Token(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	cred, err := h.proxy.Token(r.Context(), sess)
	if err != nil {
		if errors.Is(err, apperr.ErrTokenUnavailable) {
			writeJSON(w, http.StatusNotFound, errorBody("no token found for user"))
			return
		}
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TokenResponse{Token: string(cred)})
}

// Proxy handles POST /api/proxy: the authenticated-request passthrough.
func (h *Handler) Proxy(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req ProxyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Endpoint == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("endpoint is required"))
		return
	}

	sess := SessionFrom(r.Context())
	out, err := h.proxy.Authenticated(r.Context(), sess, proxy.Call{Endpoint: req.Endpoint, Params: req.Params})
	if err != nil {
		writeProxyError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

// UserProcesses handles GET /api/processes.
func (h *Handler) UserProcesses(w http.ResponseWriter, r *http.Request) {
	sess := SessionFrom(r.Context())
	procs, err := h.proxy.UserProcesses(r.Context(), sess)
	if err != nil {
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ProcessListResponse{Processes: procs})
}

// ProcessByID handles GET /api/processes/{id}.
func (h *Handler) ProcessByID(w http.ResponseWriter, r *http.Request) {
	id, ok := processID(w, r)
	if !ok {
		return
	}
	sess := SessionFrom(r.Context())
	md, err := h.proxy.ProcessByID(r.Context(), sess, id)
	if err != nil {
		writeProxyError(w, err)
		return
	}
	// md is nil when the upstream has no such process; serialize as null.
	writeJSON(w, http.StatusOK, md)
}

// ProcessSVG handles GET /api/processes/{id}/svg.
func (h *Handler) ProcessSVG(w http.ResponseWriter, r *http.Request) {
	id, ok := processID(w, r)
	if !ok {
		return
	}
	sess := SessionFrom(r.Context())
	svg, err := h.proxy.ProcessSVG(r.Context(), sess, id)
	if err != nil {
		writeProxyError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SVGResponse{SVGContent: svg})
}

// TopicFields handles GET /api/topics/{id}/fields.
func (h *Handler) TopicFields(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	if docID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("topic id is required"))
		return
	}
	vals, _, err := h.topics.Committed(r.Context(), docID)
	if err != nil {
		slog.Error("read topic fields failed", slog.String("doc", docID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, topicFieldsResponse(docID, vals.Primary, vals.Preview))
}

// CommitTopicFields handles PUT /api/topics/{id}/fields.
func (h *Handler) CommitTopicFields(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "id")
	if docID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("topic id is required"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 10<<20)
	var req CommitFieldsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Surface == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("surface is required"))
		return
	}

	vals, ref, err := h.topics.CommitEdit(r.Context(), topicservice.EditRequest{
		DocID:    docID,
		Surface:  req.Surface,
		ParentID: req.ParentID,
		RawInput: req.RawInput,
		Preview:  req.Preview,
	})
	if err != nil {
		slog.Error("commit topic fields failed", slog.String("doc", docID), slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	resp := topicFieldsResponse(docID, vals.Primary, vals.Preview)
	if req.RawInput != nil {
		valid := ref.Valid()
		resp.Valid = &valid
		if !valid {
			resp.RawInput = *req.RawInput
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// processID validates and canonicalizes the {id} path parameter.
func processID(w http.ResponseWriter, r *http.Request) (string, bool) {
	ref := reference.Normalize(chi.URLParam(r, "id"))
	if !ref.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid process reference"))
		return "", false
	}
	return ref.CanonicalID, true
}

// topicFieldsResponse derives the display link: canonical references get
// an editor URL, legacy opaque URL values pass through unchanged.
func topicFieldsResponse(docID, primary, preview string) TopicFieldsResponse {
	resp := TopicFieldsResponse{DocID: docID, Reference: primary, Preview: preview}
	if primary == "" {
		return resp
	}
	if ref := reference.Normalize(primary); ref.Valid() {
		resp.Reference = ref.CanonicalID
		resp.EditorURL = reference.EditorURL(ref.CanonicalID)
	} else {
		resp.EditorURL = primary
	}
	return resp
}

// writeProxyError maps proxy-layer failures to sanitized responses. The
// upstream status and message are logged server-side only.
func writeProxyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, apperr.ErrAuthorizationRequired), errors.Is(err, apperr.ErrTokenUnavailable):
		writeJSON(w, http.StatusUnauthorized, errorBody("authorization required"))
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusBadRequest, errorBody("endpoint is required"))
	default:
		if _, ok := apperr.AsUpstream(err); ok {
			writeJSON(w, http.StatusBadGateway, errorBody("upstream request failed"))
			return
		}
		slog.Error("proxy request failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}
