package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/agentsync/api/handler"
)

type Handlers struct {
	Sync     *apiHandler.SyncHandler
	Supply   *apiHandler.SupplyHandler
	Contract *apiHandler.ContractHandler
	Health   *apiHandler.HealthHandler
}

func New(handlers Handlers, authMiddleware func(fasthttp.RequestHandler) fasthttp.RequestHandler) *router.Router {
	r := router.New()

	r.GET("/health", handlers.Health.Check)

	// Agent push
	r.POST("/api/v1/agent/sync/bpartners", authMiddleware(handlers.Sync.SyncBPartners))
	r.POST("/api/v1/agent/sync/products", authMiddleware(handlers.Sync.SyncProducts))

	// Supplies and contract views
	r.POST("/api/v1/supplies", authMiddleware(handlers.Supply.ReportSupply))
	r.GET("/api/v1/contracts/{uuid}/lines", authMiddleware(handlers.Contract.ActiveLines))
	r.GET("/api/v1/contract-lines/{uuid}", authMiddleware(handlers.Contract.GetLine))

	return r
}
