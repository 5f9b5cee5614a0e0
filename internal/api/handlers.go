package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "ideaflow/internal/common/errors"
	"ideaflow/internal/common/logger"
	"ideaflow/internal/common/validation"
	"ideaflow/internal/models"
	"ideaflow/internal/workflow"
)

var statusChangeSchema = validation.MustCompile(validation.StatusChangeRequestSchema)

type handlers struct {
	cfg    RouterConfig
	logger logger.Logger
}

func newHandlers(cfg RouterConfig, log logger.Logger) *handlers {
	return &handlers{cfg: cfg, logger: log}
}

type stageEdge struct {
	From       models.Status        `json:"fromStatus"`
	To         models.Status        `json:"toStatus"`
	Thresholds []workflow.Threshold `json:"thresholds"`
}

type stagesResponse struct {
	Stages []models.Status `json:"stages"`
	Edges  []stageEdge     `json:"edges"`
}

// StatusChangeRequest is the body of POST /api/ideas/:id/status.
type StatusChangeRequest struct {
	NewStatus          models.Status  `json:"newStatus"`
	Reason             *string        `json:"reason"`
	ExpectedFromStatus *models.Status `json:"expectedFromStatus"`
}

func (h *handlers) ready(c *gin.Context) {
	if h.cfg.Ready != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.cfg.Ready(ctx); err != nil {
			h.logger.Warn("readiness check failed", map[string]interface{}{"error": err})
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

func (h *handlers) stages(c *gin.Context) {
	resp := stagesResponse{Stages: workflow.Stages()}
	for _, e := range workflow.CanonicalEdges() {
		resp.Edges = append(resp.Edges, stageEdge{From: e.From, To: e.To, Thresholds: workflow.Thresholds(e)})
	}
	c.JSON(http.StatusOK, resp)
}

// loadIdea validates the path id and fetches the idea, responding on failure.
func (h *handlers) loadIdea(c *gin.Context) (*models.Idea, bool) {
	id := c.Param("id")
	if err := validation.ValidateID("id", id); err != nil {
		respondError(c, apperrors.NewValidationFailedError(err.Error()))
		return nil, false
	}
	idea, err := h.cfg.Ideas.GetIdea(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, workflow.ErrIdeaNotFound) {
			respondError(c, apperrors.NewIdeaNotFoundError(id, err))
			return nil, false
		}
		h.logger.Error("failed to load idea", map[string]interface{}{"ideaId": id, "error": err})
		respondError(c, apperrors.NewInternalError(err))
		return nil, false
	}
	return idea, true
}

// progression serves GET /api/ideas/:id/progression?from=&to=.
// from defaults to the idea's current status; an empty to evaluates the next stage.
func (h *handlers) progression(c *gin.Context) {
	idea, ok := h.loadIdea(c)
	if !ok {
		return
	}

	from := idea.Status
	if raw := c.Query("from"); raw != "" {
		s, err := workflow.ParseStatus(raw)
		if err != nil {
			respondError(c, apperrors.NewInvalidStatusError(raw, err))
			return
		}
		from = s
	}

	var report workflow.CriteriaReport
	if raw := c.Query("to"); raw != "" {
		to, err := workflow.ParseStatus(raw)
		if err != nil {
			respondError(c, apperrors.NewInvalidStatusError(raw, err))
			return
		}
		report = h.cfg.Evaluator.EvaluateProgression(c.Request.Context(), idea.ID, from, to)
	} else {
		report = h.cfg.Evaluator.EvaluateNext(c.Request.Context(), idea.ID, from)
	}
	c.JSON(http.StatusOK, report)
}

func (h *handlers) transitions(c *gin.Context) {
	idea, ok := h.loadIdea(c)
	if !ok {
		return
	}
	history, err := h.cfg.Executor.History(c.Request.Context(), idea.ID)
	if err != nil {
		h.logger.Error("failed to fetch transition history", map[string]interface{}{"ideaId": idea.ID, "error": err})
		respondError(c, apperrors.NewHistoryFetchFailedError(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"transitions": history})
}

func (h *handlers) changeStatus(c *gin.Context) {
	principal, ok := principalFrom(c)
	if !ok {
		respondError(c, apperrors.NewAuthenticationError("missing principal", nil))
		return
	}
	grant, err := principal.RequireAdmin(h.cfg.Verifier.AdminRole())
	if err != nil {
		respondError(c, apperrors.NewAdminRequiredError("only administrators can change idea status", err))
		return
	}

	id := c.Param("id")
	if err := validation.ValidateID("id", id); err != nil {
		respondError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		respondError(c, apperrors.NewValidationFailedError("unreadable request body"))
		return
	}
	var doc interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		respondError(c, apperrors.NewValidationFailedError("request body must be a JSON object"))
		return
	}
	if result := statusChangeSchema.Validate(doc); !result.Valid {
		respondError(c, apperrors.NewValidationFailedError(result.Error()))
		return
	}
	var req StatusChangeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(c, apperrors.NewValidationFailedError(err.Error()))
		return
	}

	change := workflow.StatusChange{
		IdeaID:       id,
		NewStatus:    req.NewStatus,
		ExpectedFrom: req.ExpectedFromStatus,
	}
	if req.Reason != nil {
		change.Reason = *req.Reason
	}

	transition, err := h.cfg.Executor.ApplyStatusChange(c.Request.Context(), grant, change)
	if err != nil {
		respondError(c, workflow.ToStandardError(err))
		return
	}
	c.JSON(http.StatusOK, transition)
}
