package handler_test

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/fastygo/agentsync/api/handler"
	"github.com/fastygo/agentsync/internal/infrastructure/monitor"
	"github.com/fastygo/agentsync/internal/middleware"
	"github.com/fastygo/agentsync/internal/router"
	"github.com/fastygo/agentsync/pkg/httpcontext"
	"github.com/fastygo/agentsync/repository/memory"
	"github.com/fastygo/agentsync/usecase/agentsync"
	"github.com/fastygo/agentsync/usecase/supply"
)

type fakeMonitor struct{ online bool }

func (m fakeMonitor) GetStatus() monitor.Status {
	return monitor.Status{Buffer: true, LastCheck: time.Now()}
}
func (m fakeMonitor) IsOnline() bool { return m.online }

type envelope struct {
	Status string          `json:"status"`
	Code   string          `json:"code"`
	Data   json.RawMessage `json:"data"`
	Error  json.RawMessage `json:"error"`
	Meta   json.RawMessage `json:"meta"`
}

func newServer(online bool) fasthttp.RequestHandler {
	store := memory.New()
	adapter := httpcontext.NewAdapter(time.Second)
	syncUC := agentsync.New(store, memory.NewLocker(), nil, nil, nil)
	supplyUC := supply.New(store, nil)

	r := router.New(router.Handlers{
		Sync:     handler.NewSyncHandler(syncUC, adapter, nil),
		Supply:   handler.NewSupplyHandler(supplyUC, adapter, nil),
		Contract: handler.NewContractHandler(syncUC, supplyUC, adapter, nil),
		Health:   handler.NewHealthHandler(fakeMonitor{online: online}, "memory", adapter, nil),
	}, middleware.JWTAuth("", nil))
	return r.Handler
}

func do(t *testing.T, h fasthttp.RequestHandler, method, uri, body string) (int, envelope) {
	t.Helper()
	ctx := &fasthttp.RequestCtx{}
	ctx.Request.Header.SetMethod(method)
	ctx.Request.SetRequestURI(uri)
	if body != "" {
		ctx.Request.Header.SetContentType("application/json")
		ctx.Request.SetBodyString(body)
	}
	h(ctx)

	var env envelope
	require.NoError(t, json.Unmarshal(ctx.Response.Body(), &env), string(ctx.Response.Body()))
	return ctx.Response.StatusCode(), env
}

const batch = `{"bpartners":[
  {"uuid":"bp-1","name":"Farm","sync_contracts":true,"contracts":[
    {"uuid":"c-1","date_from":"2015-04-01T00:00:00Z","date_to":"2016-03-31T00:00:00Z","contract_lines":[
      {"uuid":"l-1","product":{"uuid":"p-1","name":"Carrots"}},
      {"uuid":"l-2","product":{"uuid":"p-2","name":"Leeks"}}
    ]}
  ]},
  {"uuid":"bp-2","name":"Broken","sync_contracts":true,"contracts":[{"uuid":"c-2"}]}
]}`

func TestSyncBPartnersEndpoint(t *testing.T) {
	h := newServer(true)

	status, env := do(t, h, http.MethodPost, "/api/v1/agent/sync/bpartners", batch)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "partial", env.Status)

	var result agentsync.BatchResult
	require.NoError(t, json.Unmarshal(env.Data, &result))
	require.Len(t, result.BPartners, 2)
	assert.Equal(t, agentsync.StatusSynced, result.BPartners[0].Status)
	assert.Equal(t, agentsync.StatusRejected, result.BPartners[1].Status)
	assert.Equal(t, "c-2", result.BPartners[1].Error.UUID)
	assert.JSONEq(t, `{"total":2,"synced":1,"rejected":1,"failed":0,"buffered":0,"skipped":0}`, string(env.Meta))

	status, env = do(t, h, http.MethodGet, "/api/v1/contracts/c-1/lines", "")
	require.Equal(t, http.StatusOK, status)
	var lines []agentsync.ContractLineView
	require.NoError(t, json.Unmarshal(env.Data, &lines))
	assert.Len(t, lines, 2)
}

func TestSyncBPartnersEndpointRejectsMalformedBody(t *testing.T) {
	h := newServer(true)

	status, env := do(t, h, http.MethodPost, "/api/v1/agent/sync/bpartners", `{"bpartners":`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "INVALID", env.Code)

	status, _ = do(t, h, http.MethodPost, "/api/v1/agent/sync/bpartners", "")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSupplyAndContractLineEndpoints(t *testing.T) {
	h := newServer(true)
	status, _ := do(t, h, http.MethodPost, "/api/v1/agent/sync/bpartners", batch)
	require.Equal(t, http.StatusOK, status)

	status, env := do(t, h, http.MethodPost, "/api/v1/supplies",
		`{"bpartner_uuid":"bp-1","product_uuid":"p-2","contract_line_uuid":"l-2","day":"2015-06-15","qty":"4.25"}`)
	require.Equal(t, http.StatusCreated, status, string(env.Error))

	// the agent drops l-2; its supply stays attached
	status, _ = do(t, h, http.MethodPost, "/api/v1/agent/sync/bpartners", `{"bpartners":[
	  {"uuid":"bp-1","name":"Farm","sync_contracts":true,"contracts":[
	    {"uuid":"c-1","date_from":"2015-04-01T00:00:00Z","date_to":"2016-03-31T00:00:00Z","contract_lines":[
	      {"uuid":"l-1","product":{"uuid":"p-1","name":"Carrots"}}
	    ]}
	  ]}]}`)
	require.Equal(t, http.StatusOK, status)

	status, env = do(t, h, http.MethodGet, "/api/v1/contract-lines/l-2", "")
	require.Equal(t, http.StatusOK, status)
	var detail struct {
		UUID         string `json:"uuid"`
		Deleted      bool   `json:"deleted"`
		ContractUUID string `json:"contract_uuid"`
		Supplies     []struct {
			Qty string `json:"qty"`
		} `json:"supplies"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, "l-2", detail.UUID)
	assert.True(t, detail.Deleted)
	assert.Equal(t, "c-1", detail.ContractUUID)
	require.Len(t, detail.Supplies, 1)
	assert.Equal(t, "4.25", detail.Supplies[0].Qty)

	status, env = do(t, h, http.MethodPost, "/api/v1/supplies",
		`{"bpartner_uuid":"bp-1","product_uuid":"p-2","contract_line_uuid":"l-2","day":"2015-06-16","qty":1}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(env.Error), `"kind":"contract_line"`)

	status, _ = do(t, h, http.MethodGet, "/api/v1/contract-lines/nope", "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = do(t, h, http.MethodPost, "/api/v1/supplies", `{"bpartner_uuid":"bp-1","product_uuid":"p-1","day":"15/06/2015"}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestSyncProductsEndpoint(t *testing.T) {
	h := newServer(true)
	status, env := do(t, h, http.MethodPost, "/api/v1/agent/sync/products", `{"products":[{"uuid":"p-9","name":"Beans"}]}`)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(env.Data), `"created":1`)
}

func TestHealthEndpoint(t *testing.T) {
	status, env := do(t, newServer(true), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "success", env.Status)

	status, env = do(t, newServer(false), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "DEGRADED", env.Code)
}
