// ABOUTME: Root cobra command and connection setup for todo-admin
// ABOUTME: Resolves the gateway address and credentials from flags, env, and the token file

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/ssh"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/2389/todo-gateway/internal/client"
	"github.com/2389/todo-gateway/internal/config"
)

// validFormats defines the allowed output formats.
var validFormats = []string{"text", "json"}

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Addr     string
	Token    string
	SSHKey   string
	Identity string
	Format   string

	// conn replaces the dialed connection when set.
	conn grpc.ClientConnInterface
}

func newRootCommand(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "todo-admin",
		Short: "Manage a todo-gateway record store",
		Long: `Manage a todo-gateway record store.

Credentials are taken from --token, --ssh-key, or --identity. Without any of
them the token from TODO_TOKEN or the token file written by
"todo-gateway bootstrap" is used.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
			}
			return nil
		},
	}

	addr := os.Getenv("TODO_GATEWAY_GRPC")
	if addr == "" {
		addr = "localhost:50051"
	}

	cmd.PersistentFlags().StringVar(&opts.Addr, "addr", addr, "gateway gRPC address")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "JWT bearer token (default $TODO_TOKEN or the token file)")
	cmd.PersistentFlags().StringVar(&opts.SSHKey, "ssh-key", "", "authenticate with this SSH private key")
	cmd.PersistentFlags().StringVar(&opts.Identity, "identity", "", "send a trusted identity header (development gateways only)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newAddCommand(opts))
	cmd.AddCommand(newEditCommand(opts))
	cmd.AddCommand(newRemoveCommand(opts))
	cmd.AddCommand(newGetCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newUserRecordsCommand(opts))
	cmd.AddCommand(newCountCommand(opts))
	cmd.AddCommand(newSetCountCommand(opts))
	cmd.AddCommand(newOwnerCommand(opts))
	cmd.AddCommand(newSetOwnerCommand(opts))
	cmd.AddCommand(newPageLimitCommand(opts))
	cmd.AddCommand(newSetPageLimitCommand(opts))
	cmd.AddCommand(newMeCommand(opts))
	cmd.AddCommand(newEventsCommand(opts))
	cmd.AddCommand(newWatchCommand(opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}

// connect returns a RecordClient and a function that releases the connection.
func connect(opts *rootOptions) (*client.RecordClient, func(), error) {
	if opts.conn != nil {
		return client.NewRecordClient(opts.conn), func() {}, nil
	}

	creds, err := opts.perRPCCredentials()
	if err != nil {
		return nil, nil, err
	}

	conn, err := grpc.NewClient(opts.Addr,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithPerRPCCredentials(creds),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to %s: %w", opts.Addr, err)
	}
	return client.NewRecordClient(conn), func() { _ = conn.Close() }, nil
}

// perRPCCredentials picks the per-RPC credentials in flag order: identity, SSH key, token.
func (o *rootOptions) perRPCCredentials() (credentials.PerRPCCredentials, error) {
	if o.Identity != "" {
		return client.IdentityCredentials{Identity: o.Identity}, nil
	}

	if o.SSHKey != "" {
		pem, err := os.ReadFile(o.SSHKey)
		if err != nil {
			return nil, fmt.Errorf("reading SSH key: %w", err)
		}
		signer, err := ssh.ParsePrivateKey(pem)
		if err != nil {
			return nil, fmt.Errorf("parsing SSH key: %w", err)
		}
		return client.SSHCredentials{Signer: signer}, nil
	}

	token := o.Token
	if token == "" {
		token = getToken()
	}
	if token == "" {
		return nil, errors.New("no credentials: pass --token, --ssh-key, or --identity, or run 'todo-gateway bootstrap'")
	}
	return client.TokenCredentials{Token: token}, nil
}

// getToken returns the JWT from TODO_TOKEN or the token file next to the
// gateway config.
func getToken() string {
	if token := os.Getenv("TODO_TOKEN"); token != "" {
		return token
	}

	data, err := os.ReadFile(filepath.Join(filepath.Dir(config.DefaultPath()), "token"))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
