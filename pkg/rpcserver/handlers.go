package rpcserver

import (
	"encoding/base64"
	"encoding/json"

	"github.com/valyala/fasthttp"
)

type insertRequest struct {
	Key   string `json:"key"`
	Value string `json:"value"` // base64-encoded
}

type insertResponse struct {
	Key    string `json:"key"`
	Status string `json:"status"`
}

type queryResponse struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Exists bool   `json:"exists"`
}

type deleteRequest struct {
	Key string `json:"key"`
}

type deleteResponse struct {
	Key     string `json:"key"`
	Removed bool   `json:"removed"`
}

func writeError(ctx *fasthttp.RequestCtx, status int, msg string) {
	ctx.SetStatusCode(status)
	ctx.SetContentType("text/plain; charset=utf-8")
	ctx.SetBodyString(msg)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func (s *Server) insertHandler(ctx *fasthttp.RequestCtx, requestID string) {
	var err error
	timer := s.insertCost.Start()
	defer timer.Stop(&err)

	if !ctx.IsPost() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req insertRequest
	if err = json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	if req.Key == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "key is required")
		return
	}
	value, decErr := base64.StdEncoding.DecodeString(req.Value)
	if decErr != nil {
		writeError(ctx, fasthttp.StatusBadRequest, "value must be base64")
		return
	}
	if err = s.store.Insert(req.Key, value); err != nil {
		writeError(ctx, fasthttp.StatusInternalServerError, err.Error())
		return
	}
	s.logger.Trace("insert", "request_id", requestID, "key", req.Key)
	writeJSON(ctx, fasthttp.StatusOK, insertResponse{Key: req.Key, Status: "inserted"})
}

func (s *Server) queryHandler(ctx *fasthttp.RequestCtx, requestID string) {
	var err error
	timer := s.queryCost.Start()
	defer timer.Stop(&err)

	if !ctx.IsGet() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	key := string(ctx.QueryArgs().Peek("key"))
	if key == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "key is required")
		return
	}
	value, ok := s.store.Query(key)
	resp := queryResponse{Key: key, Exists: ok}
	if ok {
		resp.Value = base64.StdEncoding.EncodeToString(value)
	}
	s.logger.Trace("query", "request_id", requestID, "key", key, "exists", ok)
	writeJSON(ctx, fasthttp.StatusOK, resp)
}

func (s *Server) deleteHandler(ctx *fasthttp.RequestCtx, requestID string) {
	var err error
	timer := s.deleteCost.Start()
	defer timer.Stop(&err)

	if !ctx.IsPost() {
		writeError(ctx, fasthttp.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var req deleteRequest
	if err = json.Unmarshal(ctx.PostBody(), &req); err != nil {
		writeError(ctx, fasthttp.StatusBadRequest, err.Error())
		return
	}
	if req.Key == "" {
		writeError(ctx, fasthttp.StatusBadRequest, "key is required")
		return
	}
	removed := s.store.Delete(req.Key)
	s.logger.Trace("delete", "request_id", requestID, "key", req.Key, "removed", removed)
	writeJSON(ctx, fasthttp.StatusOK, deleteResponse{Key: req.Key, Removed: removed})
}

func (s *Server) statsHandler(ctx *fasthttp.RequestCtx, requestID string) {
	stats := s.store.Stats()
	s.logger.Trace("stats", "request_id", requestID)
	writeJSON(ctx, fasthttp.StatusOK, stats)
}
