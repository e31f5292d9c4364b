// Package handler routes protocol requests to the sync service and owns
// the error boundary: every failure below it is logged once and converted
// into the structured JSON error envelope.
package handler

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/frotaops/sheetgate/internal/model"
	"github.com/frotaops/sheetgate/internal/server/middleware"
	"github.com/frotaops/sheetgate/internal/service"
)

// SyncProvider resolves the sync service. Resolution is deferred to first
// use so missing credentials surface as a per-request configuration error
// rather than a startup crash.
type SyncProvider func(ctx context.Context) (*service.Sync, error)

// SyncHandler serves the action-tagged protocol endpoint.
type SyncHandler struct {
	provider SyncProvider
	logger   *slog.Logger
}

// NewSyncHandler creates a SyncHandler.
func NewSyncHandler(provider SyncProvider, logger *slog.Logger) *SyncHandler {
	return &SyncHandler{provider: provider, logger: logger}
}

// Dispatch is the protocol entry point.
// POST /api/v1/sync
func (h *SyncHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	var req model.SyncRequest
	if err := readJSON(r, &req); err != nil {
		h.fail(w, r, &model.BadRequestError{Reason: "invalid JSON body: " + err.Error()})
		return
	}

	svc, err := h.provider(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	result, err := h.route(r.Context(), svc, &req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// route validates per-action preconditions and executes the action.
func (h *SyncHandler) route(ctx context.Context, svc *service.Sync, req *model.SyncRequest) (interface{}, error) {
	switch req.Action {
	case model.ActionListSheetNames:
		return svc.ListSheetNames(ctx)

	case model.ActionGetData:
		if req.SheetName == "" {
			return nil, missingField(req.Action, "sheetName")
		}
		return svc.GetData(ctx, req.SheetName, req.Range, req.NoCache)

	case model.ActionCreate:
		if req.SheetName == "" {
			return nil, missingField(req.Action, "sheetName")
		}
		if req.Data == nil {
			return nil, missingField(req.Action, "data")
		}
		if err := svc.Create(ctx, req.SheetName, req.Data); err != nil {
			return nil, err
		}
		return mutationOK(fmt.Sprintf("row appended to %s", req.SheetName)), nil

	case model.ActionUpdate:
		if req.SheetName == "" {
			return nil, missingField(req.Action, "sheetName")
		}
		if req.Data == nil {
			return nil, missingField(req.Action, "data")
		}
		if req.RowIndex < 2 {
			return nil, &model.BadRequestError{Reason: "update requires rowIndex of a data row (2 or greater)"}
		}
		if err := svc.Update(ctx, req.SheetName, req.Data, req.RowIndex); err != nil {
			return nil, err
		}
		return mutationOK(fmt.Sprintf("row %d of %s updated", req.RowIndex, req.SheetName)), nil

	case model.ActionDelete:
		if req.SheetName == "" {
			return nil, missingField(req.Action, "sheetName")
		}
		if req.RowIndex < 2 {
			return nil, &model.BadRequestError{Reason: "delete requires rowIndex of a data row (2 or greater)"}
		}
		if err := svc.Delete(ctx, req.SheetName, req.RowIndex); err != nil {
			return nil, err
		}
		return mutationOK(fmt.Sprintf("row %d of %s deleted", req.RowIndex, req.SheetName)), nil

	default:
		return nil, &model.BadRequestError{Reason: fmt.Sprintf("unknown action %q", req.Action)}
	}
}

// fail logs the error and writes the envelope the caller can branch on:
// 400 for protocol violations, 502 for upstream failures (original status
// in context), 500 for configuration and anything unclassified.
func (h *SyncHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	reqID := middleware.GetRequestID(r.Context())

	if be, ok := model.AsBadRequest(err); ok {
		h.logger.Warn("rejected request", "error", be.Reason, "request_id", reqID)
		writeError(w, http.StatusBadRequest, be.Reason)
		return
	}
	if te, ok := model.AsTransport(err); ok {
		h.logger.Error("upstream failure", "op", te.Op, "status", te.Status, "request_id", reqID)
		writeError(w, http.StatusBadGateway, te.Error(), map[string]interface{}{
			"upstream_status": te.Status,
			"op":              te.Op,
		})
		return
	}
	if ce, ok := model.AsConfiguration(err); ok {
		h.logger.Error("configuration error", "error", ce.Error(), "request_id", reqID)
		writeError(w, http.StatusInternalServerError, ce.Error())
		return
	}

	h.logger.Error("request failed", "error", err.Error(), "request_id", reqID)
	writeError(w, http.StatusInternalServerError, err.Error())
}

func missingField(action, field string) error {
	return &model.BadRequestError{Reason: fmt.Sprintf("%s requires %s", action, field)}
}

func mutationOK(msg string) model.MutationResponse {
	return model.MutationResponse{Success: true, Message: msg}
}
