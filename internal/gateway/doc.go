// Package gateway orchestrates the todo-gateway server components.
//
// # Overview
//
// The gateway owns the single in-memory records.Store and everything that
// observes or serves it:
//
//   - store.Ledger persists every mutation event to SQLite
//   - feed.Broadcaster fans events out to live subscribers
//   - dedupe.Cache remembers Idempotency-Key results for record creation
//   - auth.Authenticator resolves the caller identity for both transports
//
// Both notifiers are registered when the store is built, so they observe
// mutations in commit order.
//
// # HTTP API
//
// Every route under /api/ requires authentication (see package auth).
//
//	GET    /api/records?start=N&end=M          caller's records in [N, M)
//	POST   /api/records                        {"text": "..."}; honours Idempotency-Key
//	GET    /api/records/{id}                   one record (exists=false when absent)
//	PUT    /api/records/{id}                   {"text": "...", "completed": true}
//	DELETE /api/records/{id}
//	GET    /api/users/{user}/records?start&end owner only
//	GET    /api/users/{user}/count             owner only
//	PUT    /api/users/{user}/count             owner only, {"count": N}
//	GET    /api/config/owner
//	PUT    /api/config/owner                   owner only, {"owner": "..."}
//	GET    /api/config/page-limit
//	PUT    /api/config/page-limit              owner only, {"page_limit": N}
//	GET    /api/me
//	GET    /api/events?actor=X                 Server-Sent Events
//	GET    /api/events/history?actor&kind&limit&cursor
//	GET    /health, /health/ready              no auth
//
// Errors are JSON bodies of the form {"error": "...", "code": "..."} where
// code is the store's stable error code. Status mapping:
//
//	unauthorized              403
//	invalid_argument          400
//	empty_collection          409
//	not_found                 404
//	invalid_range             400
//	range_exceeds_collection  416
//	page_too_large            400
//
// # gRPC
//
// The todo.RecordService (package client) is served on the gRPC listener
// with the same authentication.
//
// # Tailscale
//
// With tailscale.enabled the gateway joins the tailnet via tsnet, serving
// gRPC on :50051 and HTTP on :80, or on :443 with https or funnel.
package gateway
