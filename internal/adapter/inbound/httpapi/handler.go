package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jonny/serviceops-ai/internal/domain/model"
	"github.com/jonny/serviceops-ai/internal/domain/port/inbound"
	"github.com/jonny/serviceops-ai/internal/domain/port/outbound"
	"github.com/jonny/serviceops-ai/internal/domain/service"
	"github.com/jonny/serviceops-ai/pkg/apierror"
	"github.com/jonny/serviceops-ai/pkg/version"
)

// RecommendationLister is the read side of the recommendation archive.
type RecommendationLister interface {
	List(ctx context.Context, filter outbound.RecommendationFilter, page outbound.PageRequest) (outbound.PageResult[model.Recommendation], error)
}

// CycleLister is the read side of the polling cycle log.
type CycleLister interface {
	List(ctx context.Context, filter outbound.CycleFilter, page outbound.PageRequest) (outbound.PageResult[model.CycleReport], error)
}

// Handler serves the REST API on top of the agent. archive and cycles may be
// nil, in which case their routes answer 404.
type Handler struct {
	agent   inbound.AgentPort
	inbox   inbound.RecommendationReceiverPort
	archive RecommendationLister
	cycles  CycleLister
	logger  *slog.Logger
}

func NewHandler(
	agent inbound.AgentPort,
	inbox inbound.RecommendationReceiverPort,
	archive RecommendationLister,
	cycles CycleLister,
	logger *slog.Logger,
) *Handler {
	return &Handler{
		agent:   agent,
		inbox:   inbox,
		archive: archive,
		cycles:  cycles,
		logger:  logger,
	}
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type recommendationRequest struct {
	Recommendation string `json:"recommendation"`
}

type historyResponse struct {
	Turns []model.ChatTurn `json:"turns"`
}

type pageResponse[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Page       int   `json:"page"`
	Size       int   `json:"size"`
}

// GetMetrics handles GET /api/metrics.
func (h *Handler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.agent.Metrics(r.Context())
	if err != nil {
		h.logger.Error("fetching metrics failed", "error", err)
		apierror.Write(w, apierror.BadGateway("metrics unavailable", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// GetRecommendation handles GET /api/recommendation: a one-shot analysis of
// the current snapshot.
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, err := h.agent.Recommend(r.Context())
	switch {
	case errors.Is(err, model.ErrNoData):
		apierror.Write(w, apierror.Unavailable(model.ErrNoData.Error()))
		return
	case err != nil:
		h.logger.Error("one-shot recommendation failed", "error", err)
		apierror.Write(w, apierror.BadGateway("recommendation failed", err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// PostRecommendation handles POST /api/recommendation, the delivery target of
// the HTTP sink.
func (h *Handler) PostRecommendation(w http.ResponseWriter, r *http.Request) {
	var req recommendationRequest
	if !decodeBody(w, r, &req) {
		return
	}
	rec, err := h.inbox.Accept(r.Context(), req.Recommendation)
	switch {
	case errors.Is(err, service.ErrEmptyRecommendation):
		apierror.Write(w, apierror.BadRequest("Recommendation is required"))
		return
	case err != nil:
		h.logger.Error("storing recommendation failed", "error", err)
		apierror.Write(w, apierror.Internal("failed to store recommendation"))
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// GetLatestRecommendation handles GET /api/recommendations/latest.
func (h *Handler) GetLatestRecommendation(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.inbox.Latest()
	if !ok {
		apierror.Write(w, apierror.NotFound("recommendation"))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListRecommendations handles GET /api/recommendations?page=&size=&failed=.
func (h *Handler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	if h.archive == nil {
		apierror.Write(w, apierror.NotFound("recommendation archive"))
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	var filter outbound.RecommendationFilter
	if v := r.URL.Query().Get("failed"); v != "" {
		failed, err := strconv.ParseBool(v)
		if err != nil {
			apierror.Write(w, apierror.BadRequest("failed must be true or false"))
			return
		}
		filter.Failed = &failed
	}
	since, ok := parseSince(w, r)
	if !ok {
		return
	}
	filter.Since = since

	res, err := h.archive.List(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("listing recommendations failed", "error", err)
		apierror.Write(w, apierror.Internal("failed to list recommendations"))
		return
	}
	writeJSON(w, http.StatusOK, toPage(res))
}

// ListCycles handles GET /api/cycles?page=&size=&outcome=.
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	if h.cycles == nil {
		apierror.Write(w, apierror.NotFound("cycle log"))
		return
	}
	page, ok := parsePage(w, r)
	if !ok {
		return
	}
	filter := outbound.CycleFilter{Outcome: r.URL.Query().Get("outcome")}
	since, ok := parseSince(w, r)
	if !ok {
		return
	}
	filter.Since = since

	res, err := h.cycles.List(r.Context(), filter, page)
	if err != nil {
		h.logger.Error("listing cycles failed", "error", err)
		apierror.Write(w, apierror.Internal("failed to list cycles"))
		return
	}
	writeJSON(w, http.StatusOK, toPage(res))
}

// Chat handles POST /api/chat. The agent always produces text, so the only
// error responses are for malformed input.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		apierror.Write(w, apierror.BadRequest("Message is required"))
		return
	}
	writeJSON(w, http.StatusOK, chatResponse{Response: h.agent.Chat(r.Context(), req.Message)})
}

// GetHistory handles GET /api/chat/history.
func (h *Handler) GetHistory(w http.ResponseWriter, r *http.Request) {
	turns := h.agent.History()
	if turns == nil {
		turns = []model.ChatTurn{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Turns: turns})
}

// ResetHistory handles DELETE /api/chat/history.
func (h *Handler) ResetHistory(w http.ResponseWriter, r *http.Request) {
	h.agent.ResetHistory()
	w.WriteHeader(http.StatusNoContent)
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
	})
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apierror.Write(w, apierror.New(http.StatusRequestEntityTooLarge, "request body too large"))
			return false
		}
		apierror.Write(w, apierror.WithDetail(http.StatusBadRequest, "invalid JSON body", err.Error()))
		return false
	}
	return true
}

func parsePage(w http.ResponseWriter, r *http.Request) (outbound.PageRequest, bool) {
	q := r.URL.Query()
	page := outbound.PageRequest{Desc: true}
	for key, dst := range map[string]*int{"page": &page.Page, "size": &page.Size} {
		v := q.Get(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			apierror.Write(w, apierror.BadRequest(key+" must be a non-negative integer"))
			return page, false
		}
		*dst = n
	}
	if page.Size > 100 {
		page.Size = 100
	}
	return page, true
}

func parseSince(w http.ResponseWriter, r *http.Request) (*time.Time, bool) {
	v := r.URL.Query().Get("since")
	if v == "" {
		return nil, true
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		apierror.Write(w, apierror.BadRequest("since must be an RFC3339 timestamp"))
		return nil, false
	}
	return &t, true
}

func toPage[T any](res outbound.PageResult[T]) pageResponse[T] {
	items := res.Items
	if items == nil {
		items = []T{}
	}
	return pageResponse[T]{Items: items, TotalCount: res.TotalCount, Page: res.Page, Size: res.Size}
}
