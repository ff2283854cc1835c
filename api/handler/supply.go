package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/agentsync/api/transport"
	"github.com/fastygo/agentsync/pkg/httpcontext"
	supplyUC "github.com/fastygo/agentsync/usecase/supply"
)

type SupplyHandler struct {
	baseHandler
	uc *supplyUC.UseCase
}

func NewSupplyHandler(uc *supplyUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *SupplyHandler {
	return &SupplyHandler{
		baseHandler: newBaseHandler(adapter, logger),
		uc:          uc,
	}
}

// @Summary Report a product supply
// @Tags supplies
// @Router /api/v1/supplies [post]
func (h *SupplyHandler) ReportSupply(ctx *fasthttp.RequestCtx) {
	var req transport.SupplyRequest
	if !h.decode(ctx, &req) {
		return
	}
	report, err := req.ToReport()
	if err != nil {
		h.respondError(ctx, err)
		return
	}

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	supply, err := h.uc.ReportSupply(stdCtx, report)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusCreated, supply)
}
