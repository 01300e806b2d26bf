// ABOUTME: SSH public key authentication for callers holding an SSH key
// ABOUTME: Verifies signatures over timestamp|nonce and derives an ssh:<fingerprint> identity

package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/2389/todo-gateway/internal/dedupe"
	"github.com/2389/todo-gateway/internal/records"
)

const (
	// SSHAuthMaxAge is the maximum age of a signature timestamp (5 minutes).
	SSHAuthMaxAge = 5 * time.Minute

	// SSHNonceCacheSize is the maximum number of nonces to track.
	SSHNonceCacheSize = 10000

	// SSH auth metadata keys. gRPC metadata keys are lowercase; HTTP headers
	// are matched case-insensitively.
	SSHPubkeyHeader    = "x-ssh-pubkey"
	SSHSignatureHeader = "x-ssh-signature"
	SSHTimestampHeader = "x-ssh-timestamp"
	SSHNonceHeader     = "x-ssh-nonce"

	// SSHIdentityPrefix prefixes the fingerprint to form the caller identity.
	SSHIdentityPrefix = "ssh:"
)

// SSHAuthRequest contains the data sent by a caller for SSH authentication.
type SSHAuthRequest struct {
	Pubkey    string // Full public key (e.g., "ssh-ed25519 AAAA...")
	Signature string // Base64-encoded signature over "timestamp|nonce"
	Timestamp int64  // Unix timestamp
	Nonce     string // Random string to prevent replay
}

// SSHVerifier verifies SSH signatures.
type SSHVerifier struct {
	maxAge     time.Duration
	nonceCache *dedupe.Cache[struct{}] // Tracks used nonces to prevent replay attacks
}

// NewSSHVerifier creates a new SSH signature verifier with nonce replay protection.
func NewSSHVerifier() *SSHVerifier {
	return &SSHVerifier{
		maxAge:     SSHAuthMaxAge,
		nonceCache: dedupe.New[struct{}](SSHAuthMaxAge, SSHNonceCacheSize),
	}
}

// Close releases resources used by the verifier.
func (v *SSHVerifier) Close() {
	if v.nonceCache != nil {
		v.nonceCache.Close()
	}
}

// Verify checks the SSH signature and returns the pubkey fingerprint if valid.
// The signature must be over the string "timestamp|nonce".
// Nonces are tracked to prevent replay attacks within the timestamp window.
func (v *SSHVerifier) Verify(req *SSHAuthRequest) (fingerprint string, err error) {
	pubkey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(req.Pubkey))
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}

	signedAt := time.Unix(req.Timestamp, 0)
	age := time.Since(signedAt)
	if age < 0 {
		// Allow small clock skew
		if age < -time.Minute {
			return "", errors.New("timestamp is in the future")
		}
	} else if age > v.maxAge {
		return "", fmt.Errorf("signature expired (age: %v, max: %v)", age, v.maxAge)
	}

	message := fmt.Sprintf("%d|%s", req.Timestamp, req.Nonce)

	sigBytes, err := base64.StdEncoding.DecodeString(req.Signature)
	if err != nil {
		return "", fmt.Errorf("invalid signature encoding: %w", err)
	}

	sig := new(ssh.Signature)
	if err := ssh.Unmarshal(sigBytes, sig); err != nil {
		return "", fmt.Errorf("invalid signature format: %w", err)
	}

	if err := pubkey.Verify([]byte(message), sig); err != nil {
		return "", fmt.Errorf("signature verification failed: %w", err)
	}

	// The nonce key includes the fingerprint to prevent cross-key replay.
	// CheckAndMark is atomic so concurrent replays cannot both pass.
	fp := ComputeFingerprint(pubkey)
	nonceKey := fmt.Sprintf("%s:%d:%s", fp, req.Timestamp, req.Nonce)
	if v.nonceCache.CheckAndMark(nonceKey) {
		return "", errors.New("nonce already used (possible replay attack)")
	}

	return fp, nil
}

// ComputeFingerprint computes the SHA256 fingerprint of a public key.
// Returns lowercase hex encoding without colons.
func ComputeFingerprint(pubkey ssh.PublicKey) string {
	hash := sha256.Sum256(pubkey.Marshal())
	return hex.EncodeToString(hash[:])
}

// ParseFingerprintFromKey parses a public key string and returns its fingerprint.
func ParseFingerprintFromKey(pubkeyStr string) (string, error) {
	pubkey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(pubkeyStr))
	if err != nil {
		return "", fmt.Errorf("invalid public key: %w", err)
	}
	return ComputeFingerprint(pubkey), nil
}

// SSHIdentity returns the record store identity for a key fingerprint.
// Configure the owner as SSHIdentity(fp) to administer with an SSH key.
func SSHIdentity(fingerprint string) records.Identity {
	return records.Identity(SSHIdentityPrefix + fingerprint)
}

// ExtractSSHAuthFromMetadata extracts SSH auth fields from gRPC metadata.
// Returns nil if no SSH auth headers are present.
func ExtractSSHAuthFromMetadata(md map[string][]string) *SSHAuthRequest {
	return buildSSHAuthRequest(func(key string) string {
		if vals, ok := md[key]; ok && len(vals) > 0 {
			return vals[0]
		}
		return ""
	})
}

// ExtractSSHAuthFromHeader extracts SSH auth fields from HTTP headers.
// Returns nil if no SSH auth headers are present.
func ExtractSSHAuthFromHeader(h http.Header) *SSHAuthRequest {
	return buildSSHAuthRequest(h.Get)
}

func buildSSHAuthRequest(get func(string) string) *SSHAuthRequest {
	pubkey := get(SSHPubkeyHeader)
	signature := get(SSHSignatureHeader)
	timestampStr := get(SSHTimestampHeader)
	nonce := get(SSHNonceHeader)

	// If any SSH header is present, treat it as SSH auth attempt
	if pubkey == "" && signature == "" && timestampStr == "" && nonce == "" {
		return nil
	}

	timestamp, _ := strconv.ParseInt(strings.TrimSpace(timestampStr), 10, 64)

	return &SSHAuthRequest{
		Pubkey:    strings.TrimSpace(pubkey),
		Signature: strings.TrimSpace(signature),
		Timestamp: timestamp,
		Nonce:     strings.TrimSpace(nonce),
	}
}

// SignSSHAuth produces request fields for signer at the given time. The admin
// CLI uses it to authenticate with a local key.
func SignSSHAuth(signer ssh.Signer, now time.Time, nonce string) (*SSHAuthRequest, error) {
	ts := now.Unix()
	sig, err := signer.Sign(rand.Reader, []byte(fmt.Sprintf("%d|%s", ts, nonce)))
	if err != nil {
		return nil, fmt.Errorf("signing auth message: %w", err)
	}
	return &SSHAuthRequest{
		Pubkey:    strings.TrimSpace(string(ssh.MarshalAuthorizedKey(signer.PublicKey()))),
		Signature: base64.StdEncoding.EncodeToString(ssh.Marshal(sig)),
		Timestamp: ts,
		Nonce:     nonce,
	}, nil
}
