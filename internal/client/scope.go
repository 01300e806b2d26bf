// ABOUTME: Event visibility rules shared by the gRPC and HTTP event endpoints
// ABOUTME: The owner may read any actor's events; everyone else only their own

package client

import (
	"github.com/2389/todo-gateway/internal/feed"
	"github.com/2389/todo-gateway/internal/records"
)

// ResolveEventScope decides which events caller may read given the requested
// actor. For the owner an empty request, or feed.AllActors, means every actor.
// Others always get their own identity as an actor scope, even when that
// identity is spelled like feed.AllActors, and asking for anyone else fails
// with records.ErrUnauthorized.
//
// Ownership is checked once, when a stream starts or a page is read.
func ResolveEventScope(rs *records.Store, caller records.Identity, requested string) (feed.Scope, error) {
	if rs.IsOwner(caller) {
		if requested == "" || requested == feed.AllActors {
			return feed.EveryActor(), nil
		}
		return feed.ActorScope(requested), nil
	}
	if caller.IsZero() {
		return feed.Scope{}, records.ErrUnauthorized
	}
	if requested == "" || requested == string(caller) {
		return feed.ActorScope(string(caller)), nil
	}
	return feed.Scope{}, records.ErrUnauthorized
}

// HistoryActor is the ledger actor filter for scope. Empty means every actor.
func HistoryActor(scope feed.Scope) string {
	if scope.All {
		return ""
	}
	return scope.Actor
}
