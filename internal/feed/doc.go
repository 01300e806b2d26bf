// Package feed fans record store notifications out to live subscribers.
//
// The gateway attaches a Broadcaster to the records.Store as a notifier and
// serves its subscriptions over the gRPC StreamEvents call and the HTTP
// server-sent events endpoint. Users follow their own actor scope; the owner
// may follow every actor. The all-actors scope is its own subscription kind,
// so no identity reaches it by name. Slow subscribers lose events rather than
// stall the store.
package feed
