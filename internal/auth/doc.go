// Package auth establishes who is calling the todo-gateway.
//
// # Authentication Methods
//
//   - JWT Tokens: HS256 bearer tokens signed with the configured jwt_secret.
//     The "sub" claim is the caller identity.
//
//   - SSH Signatures: callers sign "timestamp|nonce" with an SSH key and send
//     the x-ssh-* headers. The identity is "ssh:" followed by the SHA256
//     fingerprint of the key. Nonces are remembered for the signature window.
//
//   - Identity header: with auth.trust_identity_header enabled, the
//     x-todo-identity header is taken verbatim. Intended for local use behind
//     a trusted proxy only.
//
// # Authorization
//
// This package only produces an identity. Whether that identity may perform
// an administrative operation is decided by the records store, which compares
// it against the stored owner.
//
// # Transports
//
// UnaryInterceptor and StreamInterceptor authenticate gRPC calls;
// HTTPAuthMiddleware does the same for the HTTP API. Handlers read the result:
//
//	id := auth.MustFromContext(ctx).Identity
package auth
