// ABOUTME: Per-RPC credentials for RecordClient callers
// ABOUTME: Supplies a bearer JWT, fresh SSH signatures, or a trusted identity header

package client

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/ssh"
	"google.golang.org/grpc/credentials"

	"github.com/2389/todo-gateway/internal/auth"
)

// TokenCredentials sends "authorization: Bearer <token>" on every call.
type TokenCredentials struct {
	Token  string
	Secure bool // require a TLS transport
}

var _ credentials.PerRPCCredentials = TokenCredentials{}

func (c TokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"authorization": "Bearer " + c.Token}, nil
}

func (c TokenCredentials) RequireTransportSecurity() bool { return c.Secure }

// SSHCredentials signs a fresh timestamp|nonce for every call.
type SSHCredentials struct {
	Signer ssh.Signer
}

var _ credentials.PerRPCCredentials = SSHCredentials{}

func (c SSHCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	req, err := auth.SignSSHAuth(c.Signer, time.Now(), uuid.New().String())
	if err != nil {
		return nil, err
	}
	return map[string]string{
		auth.SSHPubkeyHeader:    req.Pubkey,
		auth.SSHSignatureHeader: req.Signature,
		auth.SSHTimestampHeader: strconv.FormatInt(req.Timestamp, 10),
		auth.SSHNonceHeader:     req.Nonce,
	}, nil
}

func (c SSHCredentials) RequireTransportSecurity() bool { return false }

// IdentityCredentials sends the x-todo-identity header. Only gateways with
// auth.trust_identity_header enabled accept it.
type IdentityCredentials struct {
	Identity string
}

var _ credentials.PerRPCCredentials = IdentityCredentials{}

func (c IdentityCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{auth.IdentityHeader: c.Identity}, nil
}

func (c IdentityCredentials) RequireTransportSecurity() bool { return false }
