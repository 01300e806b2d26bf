// Package dedupe provides a TTL cache for recognizing repeated requests.
//
// The gateway keys it by caller identity plus Idempotency-Key so that a
// retried record creation returns the original id instead of appending a
// second record. The auth package uses it to reject replayed SSH nonces.
package dedupe
