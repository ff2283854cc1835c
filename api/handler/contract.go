package handler

import (
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/agentsync/domain"
	"github.com/fastygo/agentsync/pkg/httpcontext"
	"github.com/fastygo/agentsync/usecase/agentsync"
	supplyUC "github.com/fastygo/agentsync/usecase/supply"
)

type ContractHandler struct {
	baseHandler
	sync     *agentsync.UseCase
	supplies *supplyUC.UseCase
}

func NewContractHandler(sync *agentsync.UseCase, supplies *supplyUC.UseCase, adapter *httpcontext.Adapter, logger *zap.Logger) *ContractHandler {
	return &ContractHandler{
		baseHandler: newBaseHandler(adapter, logger),
		sync:        sync,
		supplies:    supplies,
	}
}

type contractLineDetail struct {
	*agentsync.ContractLineView
	Supplies []domain.ProductSupply `json:"supplies"`
}

// @Summary List active lines of a contract
// @Tags contracts
// @Router /api/v1/contracts/{uuid}/lines [get]
func (h *ContractHandler) ActiveLines(ctx *fasthttp.RequestCtx) {
	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	lines, err := h.sync.ActiveContractLines(stdCtx, h.pathParam(ctx, "uuid"))
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	h.respondSuccess(ctx, http.StatusOK, lines)
}

// @Summary Get a contract line with its supplies, tombstoned or not
// @Tags contracts
// @Router /api/v1/contract-lines/{uuid} [get]
func (h *ContractHandler) GetLine(ctx *fasthttp.RequestCtx) {
	uuid := h.pathParam(ctx, "uuid")

	stdCtx, cancel := h.requestContext(ctx)
	defer cancel()

	view, err := h.sync.ContractLine(stdCtx, uuid)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	supplies, err := h.supplies.ListByContractLine(stdCtx, uuid)
	if err != nil {
		h.respondError(ctx, err)
		return
	}
	if supplies == nil {
		supplies = []domain.ProductSupply{}
	}
	h.respondSuccess(ctx, http.StatusOK, contractLineDetail{ContractLineView: view, Supplies: supplies})
}
