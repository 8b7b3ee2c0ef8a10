// Package rpcserver exposes a Store over HTTP using valyala/fasthttp,
// matching micheleriva/quotient's transport choice for its own RPC
// surface but without that teacher's Raft clustering layer: this
// repository implements no leader election and no log replication
// protocol anywhere (spec.md's Non-goals explicitly exclude
// strict-consistency replication).
package rpcserver

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"github.com/valyala/fasthttp"
	"github.com/zeebo/errs"
	"github.com/zeebo/mon"
)

// Class is the error class for this package, matching zeebo/cascade's
// error idiom for components that cross a network boundary.
var Class = errs.Class("rpcserver")

// Server exposes a Store's Insert/Query/Delete/Stats over HTTP. Endpoints:
// POST /v1/insert, GET /v1/query, POST /v1/delete, GET /v1/stats, GET
// /health.
type Server struct {
	store  Store
	logger hclog.Logger
	apiKey string

	insertCost mon.Thunk
	queryCost  mon.Thunk
	deleteCost mon.Thunk
}

// NewServer constructs a Server. logger may be nil, in which case a null
// logger is used.
func NewServer(store Store, cfg *Config, logger hclog.Logger) *Server {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Server{store: store, logger: logger, apiKey: cfg.Server.APIKey}
}

// ListenAndServe starts the fasthttp server on addr, blocking until it
// returns an error.
func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting rpcserver", "addr", addr)
	return fasthttp.ListenAndServe(addr, s.handle)
}

func (s *Server) handle(ctx *fasthttp.RequestCtx) {
	requestID := uuid.New().String()
	ctx.Response.Header.Set("X-Request-Id", requestID)

	if s.apiKey != "" && string(ctx.Request.Header.Peek("X-Api-Key")) != s.apiKey {
		ctx.SetStatusCode(fasthttp.StatusUnauthorized)
		ctx.SetBodyString("unauthorized")
		return
	}

	switch string(ctx.Path()) {
	case "/health":
		s.healthHandler(ctx)
	case "/v1/insert":
		s.insertHandler(ctx, requestID)
	case "/v1/query":
		s.queryHandler(ctx, requestID)
	case "/v1/delete":
		s.deleteHandler(ctx, requestID)
	case "/v1/stats":
		s.statsHandler(ctx, requestID)
	default:
		ctx.SetStatusCode(fasthttp.StatusNotFound)
		ctx.SetBodyString("not found")
	}
}

func (s *Server) healthHandler(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusOK)
	ctx.SetBodyString(fmt.Sprintf("mappy up, %d entries", s.store.Len()))
}
