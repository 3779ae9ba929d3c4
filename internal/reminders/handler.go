package reminders

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/billfold/billfold/internal/platform/httpx"
	"github.com/billfold/billfold/internal/shared"
)

// Handler exposes the reminder engine over JSON for on-demand callers
// (dashboard, manual reminder runs). The scheduled scans live in jobs/.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	idempotency *shared.IdempotencyStore
	validator   *validator.Validate
}

// NewHandler constructs the HTTP handler. idempotency may be nil; mark-sent
// requests carrying a key are then rejected.
func NewHandler(logger *slog.Logger, service *Service, idempotency *shared.IdempotencyStore) *Handler {
	return &Handler{
		logger:      logger,
		service:     service,
		idempotency: idempotency,
		validator:   validator.New(),
	}
}

func (h *Handler) Overdue(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := pathID(r, "workspaceID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid workspace ID")
		return
	}
	suggestions, err := h.service.OverdueReminders(r.Context(), workspaceID)
	if err != nil {
		h.logger.Error("overdue reminders failed", slog.Int64("workspace_id", workspaceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, SuggestionListResponse{
		WorkspaceID: workspaceID,
		Count:       len(suggestions),
		Reminders:   suggestions,
	})
}

func (h *Handler) PreDue(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := pathID(r, "workspaceID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid workspace ID")
		return
	}
	suggestions, err := h.service.PreDueReminders(r.Context(), workspaceID)
	if err != nil {
		h.logger.Error("pre-due reminders failed", slog.Int64("workspace_id", workspaceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, SuggestionListResponse{
		WorkspaceID: workspaceID,
		Count:       len(suggestions),
		Reminders:   suggestions,
	})
}

func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	workspaceID, err := pathID(r, "workspaceID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid workspace ID")
		return
	}
	stats, err := h.service.DashboardStats(r.Context(), workspaceID)
	if err != nil {
		h.logger.Error("dashboard stats failed", slog.Int64("workspace_id", workspaceID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) Prediction(w http.ResponseWriter, r *http.Request) {
	invoiceID, err := pathID(r, "invoiceID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice ID")
		return
	}
	prediction, err := h.service.PredictPaymentDate(r.Context(), invoiceID)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("payment prediction failed", slog.Int64("invoice_id", invoiceID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, prediction)
}

func (h *Handler) MarkSent(w http.ResponseWriter, r *http.Request) {
	h.markSent(w, r, "reminders", h.service.MarkReminderSent)
}

func (h *Handler) MarkPreDueSent(w http.ResponseWriter, r *http.Request) {
	h.markSent(w, r, "reminders.predue", h.service.MarkPreDueReminderSent)
}

func (h *Handler) markSent(w http.ResponseWriter, r *http.Request, module string, mark func(ctx context.Context, invoiceID int64) error) {
	invoiceID, err := pathID(r, "invoiceID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice ID")
		return
	}

	var req MarkSentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && err != io.EOF {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "malformed JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	if req.IdempotencyKey != "" {
		if h.idempotency == nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "idempotency keys not supported")
			return
		}
		if err := h.idempotency.CheckAndInsert(r.Context(), req.IdempotencyKey, module); err != nil {
			if errors.Is(err, shared.ErrIdempotencyConflict) {
				httpx.RespondError(w, err)
				return
			}
			h.logger.Error("idempotency check failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
			return
		}
	}

	if err := mark(r.Context(), invoiceID); err != nil {
		if req.IdempotencyKey != "" && h.idempotency != nil {
			// Roll back so the caller can retry with the same key.
			if delErr := h.idempotency.Delete(r.Context(), req.IdempotencyKey); delErr != nil {
				h.logger.Warn("idempotency rollback failed", slog.Any("error", delErr))
			}
		}
		if !errors.Is(err, shared.ErrNotFound) {
			h.logger.Error("mark reminder sent failed", slog.Int64("invoice_id", invoiceID), slog.Any("error", err))
		}
		httpx.RespondError(w, err)
		return
	}

	httpx.JSON(w, http.StatusOK, MarkSentResponse{InvoiceID: invoiceID, Status: "recorded"})
}

func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
