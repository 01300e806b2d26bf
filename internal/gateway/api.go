// ABOUTME: HTTP JSON API handlers for the record store
// ABOUTME: Maps REST routes onto store operations and store errors onto HTTP statuses

package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/2389/todo-gateway/internal/auth"
	"github.com/2389/todo-gateway/internal/client"
	"github.com/2389/todo-gateway/internal/records"
)

// IdempotencyKeyHeader deduplicates POST /api/records retries.
const IdempotencyKeyHeader = "Idempotency-Key"

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// AddRecordRequest is the JSON request body for POST /api/records.
type AddRecordRequest struct {
	Text string `json:"text"`
}

// AddRecordResponse is the JSON response for POST /api/records.
type AddRecordResponse struct {
	ID       uint64 `json:"id"`
	Replayed bool   `json:"replayed"`
}

// EditRecordRequest is the JSON request body for PUT /api/records/{id}.
type EditRecordRequest struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// RecordResponse is the JSON response for GET /api/records/{id}.
// Exists is false for ids past the count and for deleted records.
type RecordResponse struct {
	ID     uint64         `json:"id"`
	Record records.Record `json:"record"`
	Exists bool           `json:"exists"`
}

// RangeResponse is the JSON response for range reads.
type RangeResponse struct {
	Records []records.Record `json:"records"`
	Count   uint64           `json:"count"`
}

// CountResponse is the JSON body for /api/users/{user}/count.
type CountResponse struct {
	User  string `json:"user"`
	Count uint64 `json:"count"`
}

// SetCountRequest is the JSON request body for PUT /api/users/{user}/count.
type SetCountRequest struct {
	Count *uint64 `json:"count"`
}

// OwnerBody is the JSON body for /api/config/owner.
type OwnerBody struct {
	Owner string `json:"owner"`
}

// PageLimitBody is the JSON body for /api/config/page-limit.
type PageLimitBody struct {
	PageLimit *uint64 `json:"page_limit"`
}

// MeResponse is the JSON response for GET /api/me.
type MeResponse struct {
	Identity string `json:"identity"`
	Method   string `json:"method"`
	IsOwner  bool   `json:"is_owner"`
}

// ErrorResponse is the JSON body of every API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// apiRoutes returns the authenticated /api/ handler.
func (g *Gateway) apiRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/records", g.handleMyRecords)
	mux.HandleFunc("POST /api/records", g.handleAddRecord)
	mux.HandleFunc("GET /api/records/{id}", g.handleGetRecord)
	mux.HandleFunc("PUT /api/records/{id}", g.handleEditRecord)
	mux.HandleFunc("DELETE /api/records/{id}", g.handleDeleteRecord)

	mux.HandleFunc("GET /api/users/{user}/records", g.handleRecordsByUser)
	mux.HandleFunc("GET /api/users/{user}/count", g.handleCollectionCount)
	mux.HandleFunc("PUT /api/users/{user}/count", g.handleSetCollectionCount)

	mux.HandleFunc("GET /api/config/owner", g.handleGetOwner)
	mux.HandleFunc("PUT /api/config/owner", g.handleSetOwner)
	mux.HandleFunc("GET /api/config/page-limit", g.handleGetPageLimit)
	mux.HandleFunc("PUT /api/config/page-limit", g.handleSetPageLimit)

	mux.HandleFunc("GET /api/me", g.handleMe)
	mux.HandleFunc("GET /api/events", g.handleEventStream)
	mux.HandleFunc("GET /api/events/history", g.handleEventHistory)

	return mux
}

// handleAddRecord handles POST /api/records.
// A repeated Idempotency-Key from the same caller returns the original id with 200.
func (g *Gateway) handleAddRecord(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())

	var req AddRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}

	key := strings.TrimSpace(r.Header.Get(IdempotencyKeyHeader))
	id, replayed := client.AddIdempotent(g.records, g.idempotency, caller, req.Text, key)

	status := http.StatusCreated
	if replayed {
		status = http.StatusOK
	}
	g.writeJSON(w, status, AddRecordResponse{ID: id, Replayed: replayed})
}

// handleGetRecord handles GET /api/records/{id}.
func (g *Gateway) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := g.pathID(w, r)
	if !ok {
		return
	}
	rec, err := g.records.RecordByID(auth.IdentityFromContext(r.Context()), id)
	if err != nil {
		g.sendStoreError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, RecordResponse{ID: id, Record: rec, Exists: rec.Exists()})
}

// handleEditRecord handles PUT /api/records/{id}.
func (g *Gateway) handleEditRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := g.pathID(w, r)
	if !ok {
		return
	}
	var req EditRecordRequest
	if err := decodeJSON(r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	if err := g.records.EditRecord(auth.IdentityFromContext(r.Context()), id, req.Text, req.Completed); err != nil {
		g.sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteRecord handles DELETE /api/records/{id}.
func (g *Gateway) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := g.pathID(w, r)
	if !ok {
		return
	}
	if err := g.records.DeleteRecord(auth.IdentityFromContext(r.Context()), id); err != nil {
		g.sendStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleMyRecords handles GET /api/records?start=N&end=M.
func (g *Gateway) handleMyRecords(w http.ResponseWriter, r *http.Request) {
	start, end, ok := g.queryRange(w, r)
	if !ok {
		return
	}
	recs, count, err := g.records.MyRecords(auth.IdentityFromContext(r.Context()), start, end)
	if err != nil {
		g.sendStoreError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, RangeResponse{Records: recs, Count: count})
}

// handleRecordsByUser handles GET /api/users/{user}/records?start=N&end=M. Owner only.
func (g *Gateway) handleRecordsByUser(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())
	if !g.requireOwner(w, caller) {
		return
	}
	start, end, ok := g.queryRange(w, r)
	if !ok {
		return
	}
	recs, count, err := g.records.RecordsByUser(caller, start, end, records.Identity(r.PathValue("user")))
	if err != nil {
		g.sendStoreError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, RangeResponse{Records: recs, Count: count})
}

// handleCollectionCount handles GET /api/users/{user}/count. Owner only.
func (g *Gateway) handleCollectionCount(w http.ResponseWriter, r *http.Request) {
	user := r.PathValue("user")
	n, err := g.records.CollectionCount(auth.IdentityFromContext(r.Context()), records.Identity(user))
	if err != nil {
		g.sendStoreError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, CountResponse{User: user, Count: n})
}

// handleSetCollectionCount handles PUT /api/users/{user}/count. Owner only.
func (g *Gateway) handleSetCollectionCount(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())
	if !g.requireOwner(w, caller) {
		return
	}
	var req SetCountRequest
	if err := decodeJSON(r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	if req.Count == nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", "count is required")
		return
	}
	user := r.PathValue("user")
	if err := g.records.SetCollectionCount(caller, records.Identity(user), *req.Count); err != nil {
		g.sendStoreError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, CountResponse{User: user, Count: *req.Count})
}

// handleGetOwner handles GET /api/config/owner.
func (g *Gateway) handleGetOwner(w http.ResponseWriter, r *http.Request) {
	g.writeJSON(w, http.StatusOK, OwnerBody{Owner: string(g.records.Owner())})
}

// handleSetOwner handles PUT /api/config/owner. Owner only.
func (g *Gateway) handleSetOwner(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())
	if !g.requireOwner(w, caller) {
		return
	}
	var req OwnerBody
	if err := decodeJSON(r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	if err := g.records.SetOwner(caller, records.Identity(req.Owner)); err != nil {
		g.sendStoreError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, OwnerBody{Owner: req.Owner})
}

// handleGetPageLimit handles GET /api/config/page-limit.
func (g *Gateway) handleGetPageLimit(w http.ResponseWriter, r *http.Request) {
	n := g.records.PageLimit()
	g.writeJSON(w, http.StatusOK, PageLimitBody{PageLimit: &n})
}

// handleSetPageLimit handles PUT /api/config/page-limit. Owner only.
func (g *Gateway) handleSetPageLimit(w http.ResponseWriter, r *http.Request) {
	caller := auth.IdentityFromContext(r.Context())
	if !g.requireOwner(w, caller) {
		return
	}
	var req PageLimitBody
	if err := decodeJSON(r, &req); err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return
	}
	if req.PageLimit == nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", "page_limit is required")
		return
	}
	if err := g.records.SetPageLimit(caller, *req.PageLimit); err != nil {
		g.sendStoreError(w, err)
		return
	}
	g.writeJSON(w, http.StatusOK, req)
}

// handleMe handles GET /api/me.
func (g *Gateway) handleMe(w http.ResponseWriter, r *http.Request) {
	authCtx := auth.MustFromContext(r.Context())
	g.writeJSON(w, http.StatusOK, MeResponse{
		Identity: string(authCtx.Identity),
		Method:   authCtx.Method,
		IsOwner:  g.records.IsOwner(authCtx.Identity),
	})
}

// requireOwner rejects non-owners before request arguments are parsed.
func (g *Gateway) requireOwner(w http.ResponseWriter, caller records.Identity) bool {
	if !g.records.IsOwner(caller) {
		g.sendStoreError(w, records.ErrUnauthorized)
		return false
	}
	return true
}

// pathID parses the {id} path segment, writing a 400 on failure.
func (g *Gateway) pathID(w http.ResponseWriter, r *http.Request) (uint64, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", "id must be an unsigned integer")
		return 0, false
	}
	return id, true
}

// queryRange parses the required start and end query parameters.
func (g *Gateway) queryRange(w http.ResponseWriter, r *http.Request) (start, end uint64, ok bool) {
	q := r.URL.Query()
	start, err := parseUintParam(q.Get("start"), "start")
	if err == nil {
		end, err = parseUintParam(q.Get("end"), "end")
	}
	if err != nil {
		g.sendJSONError(w, http.StatusBadRequest, "invalid_argument", err.Error())
		return 0, 0, false
	}
	return start, end, true
}

func parseUintParam(raw, name string) (uint64, error) {
	if raw == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be an unsigned integer", name)
	}
	return n, nil
}

// decodeJSON decodes a bounded JSON body into v.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body")
	}
	return nil
}

// HTTPStatus returns the response status for a record store error.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, records.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, records.ErrInvalidArgument),
		errors.Is(err, records.ErrInvalidRange),
		errors.Is(err, records.ErrPageTooLarge):
		return http.StatusBadRequest
	case errors.Is(err, records.ErrEmptyCollection):
		return http.StatusConflict
	case errors.Is(err, records.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, records.ErrRangeExceedsCollection):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

// sendStoreError writes err with its mapped status and stable code.
func (g *Gateway) sendStoreError(w http.ResponseWriter, err error) {
	code := records.ErrorCode(err)
	if code == "" {
		g.logger.Error("unexpected store error", "error", err)
		g.sendJSONError(w, http.StatusInternalServerError, "internal", "internal error")
		return
	}
	g.sendJSONError(w, HTTPStatus(err), code, err.Error())
}

// sendJSONError writes a JSON error response.
func (g *Gateway) sendJSONError(w http.ResponseWriter, status int, code, message string) {
	g.writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func (g *Gateway) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		g.logger.Debug("failed to write response", "error", err)
	}
}
