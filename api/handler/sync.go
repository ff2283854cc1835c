package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/agentsync/api/transport"
	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/pkg/httpcontext"
	"github.com/fastygo/agentsync/usecase/agentsync"
)

// SyncHandler receives agent pushes.
type SyncHandler struct {
	baseHandler
	uc *agentsync.UseCase
}

func NewSyncHandler(uc *agentsync.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *SyncHandler {
	return &SyncHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Sync business partners with their contracts
// @Tags agent
// @Router /api/v1/agent/sync/bpartners [post]
func (h *SyncHandler) SyncBPartners(ctx *fasthttp.RequestCtx) {
	var req domain.SyncBPartnersRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	h.log(stdCtx).Debug("bpartner batch received",
		zap.String("agent_id", httpcontext.AgentID(stdCtx)),
		zap.Int("bpartners", len(req.BPartners)))

	result, err := h.uc.SyncBPartners(stdCtx, &req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	meta := transport.BatchMeta{
		Total:    len(result.BPartners),
		Synced:   result.Count(agentsync.StatusSynced),
		Rejected: result.Count(agentsync.StatusRejected),
		Failed:   result.Count(agentsync.StatusFailed),
		Buffered: result.Count(agentsync.StatusBuffered),
		Skipped:  result.Count(agentsync.StatusSkipped),
	}
	if meta.Synced == meta.Total {
		h.respondJSON(ctx, http.StatusOK, transport.NewSuccess(result, meta))
		return
	}
	h.respondJSON(ctx, http.StatusOK, transport.NewPartial(result, meta))
}

// @Summary Sync product master data
// @Tags agent
// @Router /api/v1/agent/sync/products [post]
func (h *SyncHandler) SyncProducts(ctx *fasthttp.RequestCtx) {
	var req domain.SyncProductsRequest
	if !h.decode(ctx, &req) {
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	stats, err := h.uc.SyncProducts(stdCtx, &req)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, stats)
}
