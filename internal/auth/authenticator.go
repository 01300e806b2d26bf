// ABOUTME: Transport-neutral credential checking shared by gRPC and HTTP
// ABOUTME: Resolves SSH signatures, bearer JWTs, or a trusted identity header to an identity

package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/2389/todo-gateway/internal/records"
)

// IdentityHeader carries a caller identity verbatim. It is honoured only when
// the Authenticator is built with TrustIdentityHeader, for local development.
const IdentityHeader = "x-todo-identity"

// ErrUnauthenticated is returned when a request carries no usable credentials.
var ErrUnauthenticated = errors.New("unauthenticated")

// Credentials are the raw auth inputs extracted from one request.
type Credentials struct {
	Authorization string          // "Bearer <jwt>"
	SSH           *SSHAuthRequest // nil when no SSH headers were sent
	Identity      string          // IdentityHeader value
}

// Options configures an Authenticator. Nil verifiers disable that method.
type Options struct {
	Tokens              TokenVerifier
	SSH                 *SSHVerifier
	TrustIdentityHeader bool
	Logger              *slog.Logger
}

// Authenticator turns Credentials into an AuthContext.
type Authenticator struct {
	tokens      TokenVerifier
	ssh         *SSHVerifier
	trustHeader bool
	logger      *slog.Logger
}

// NewAuthenticator creates an Authenticator. Pass nil logger for default.
func NewAuthenticator(opts Options) *Authenticator {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Authenticator{
		tokens:      opts.Tokens,
		ssh:         opts.SSH,
		trustHeader: opts.TrustIdentityHeader,
		logger:      logger.With("component", "auth"),
	}
}

// Authenticate resolves creds. SSH headers win over a bearer token, which
// wins over the identity header. Failures wrap ErrUnauthenticated and carry
// a short reason suitable for logs.
func (a *Authenticator) Authenticate(creds Credentials) (*AuthContext, error) {
	switch {
	case creds.SSH != nil:
		return a.authenticateSSH(creds.SSH)
	case creds.Authorization != "":
		return a.authenticateJWT(creds.Authorization)
	case creds.Identity != "" && a.trustHeader:
		id := records.Identity(strings.TrimSpace(creds.Identity))
		if id.IsZero() {
			return nil, fmt.Errorf("%w: empty identity header", ErrUnauthenticated)
		}
		return &AuthContext{Identity: id, Method: MethodHeader}, nil
	default:
		return nil, fmt.Errorf("%w: missing credentials", ErrUnauthenticated)
	}
}

func (a *Authenticator) authenticateSSH(req *SSHAuthRequest) (*AuthContext, error) {
	if a.ssh == nil {
		return nil, fmt.Errorf("%w: SSH authentication not configured", ErrUnauthenticated)
	}
	if err := validateSSHRequest(req); err != nil {
		return nil, err
	}
	fp, err := a.ssh.Verify(req)
	if err != nil {
		return nil, fmt.Errorf("%w: SSH auth failed: %v", ErrUnauthenticated, err)
	}
	return &AuthContext{Identity: SSHIdentity(fp), Method: MethodSSH}, nil
}

func (a *Authenticator) authenticateJWT(header string) (*AuthContext, error) {
	if a.tokens == nil {
		return nil, fmt.Errorf("%w: token authentication not configured", ErrUnauthenticated)
	}
	token, errMsg := extractBearerToken(header)
	if errMsg != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnauthenticated, errMsg)
	}
	identity, err := a.tokens.Verify(token)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired token", ErrUnauthenticated)
	}
	return &AuthContext{Identity: identity, Method: MethodJWT}, nil
}

// validateSSHRequest checks that all required SSH fields are present.
func validateSSHRequest(req *SSHAuthRequest) error {
	switch {
	case req.Pubkey == "":
		return fmt.Errorf("%w: missing SSH public key", ErrUnauthenticated)
	case req.Signature == "":
		return fmt.Errorf("%w: missing SSH signature", ErrUnauthenticated)
	case req.Timestamp == 0:
		return fmt.Errorf("%w: missing SSH timestamp", ErrUnauthenticated)
	case req.Nonce == "":
		return fmt.Errorf("%w: missing SSH nonce", ErrUnauthenticated)
	}
	return nil
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}
