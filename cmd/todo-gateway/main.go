// ABOUTME: Entry point for the todo-gateway server
// ABOUTME: Serves the record store and provides setup, token, and health commands

package main

import (
	"bufio"
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fatih/color"

	"github.com/2389/todo-gateway/internal/auth"
	"github.com/2389/todo-gateway/internal/config"
	"github.com/2389/todo-gateway/internal/gateway"
	"github.com/2389/todo-gateway/internal/records"
)

// Version is set by goreleaser at build time.
var version = "dev"

const banner = `
 _            _                         _
| |_ ___   __| | ___         __ _  __ _| |_ _____      ____ _ _   _
| __/ _ \ / _' |/ _ \ _____ / _' |/ _' | __/ _ \ \ /\ / / _' | | | |
| || (_) | (_| | (_) |_____| (_| | (_| | ||  __/\ V  V / (_| | |_| |
 \__\___/ \__,_|\___/       \__, |\__,_|\__\___| \_/\_/ \__,_|\__, |
                            |___/                             |___/
`

// defaultTokenTTL is the lifetime of tokens minted by bootstrap and token.
const defaultTokenTTL = 30 * 24 * time.Hour

// getDataPath returns the path to the todo-gateway data directory.
// Priority: XDG_DATA_HOME/todo-gateway > ~/.local/share/todo-gateway
func getDataPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "data"
		}
		dataDir = filepath.Join(homeDir, ".local", "share")
	}
	return filepath.Join(dataDir, "todo-gateway")
}

func printUsage() {
	fmt.Println("Usage: todo-gateway <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve                       Start the gateway server")
	fmt.Println("  init                        Create a new config file interactively")
	fmt.Println("  bootstrap --owner NAME      Write a config owned by NAME and mint their token")
	fmt.Println("  token --identity NAME       Mint a JWT for NAME [--ttl 720h]")
	fmt.Println("  health                      Check gateway liveness")
	fmt.Println("  ready                       Check gateway readiness")
	fmt.Println()
	fmt.Println("Environment:")
	fmt.Println("  TODO_GATEWAY_CONFIG         Config file path")
	fmt.Println("  TODO_GATEWAY_DB_PATH        Overrides database.path")
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	args := os.Args[2:]
	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(ctx)
	case "init":
		err = runInit(os.Stdin)
	case "bootstrap":
		err = runBootstrap(args)
	case "token":
		err = runToken(args)
	case "health":
		err = runProbe(ctx, "/health")
	case "ready":
		err = runProbe(ctx, "/health/ready")
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runServe(ctx context.Context) error {
	configPath := config.DefaultPath()

	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := setupLogger(cfg.Logging)

	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)

	green.Print("    ▶ ")
	fmt.Printf("Config:     %s\n", configPath)
	green.Print("    ▶ ")
	fmt.Printf("gRPC:       %s\n", cfg.Server.GRPCAddr)
	green.Print("    ▶ ")
	fmt.Printf("HTTP:       %s\n", cfg.Server.HTTPAddr)
	green.Print("    ▶ ")
	fmt.Printf("Owner:      %s\n", cfg.Records.Owner)
	green.Print("    ▶ ")
	fmt.Printf("Page limit: %d\n", cfg.Records.PageLimit)

	if cfg.Tailscale.Enabled {
		green.Print("    ▶ ")
		fmt.Printf("Tailscale:  ")
		cyan.Print(cfg.Tailscale.Hostname)
		if cfg.Tailscale.Funnel {
			yellow.Print(" [funnel]")
		}
		if cfg.Tailscale.Ephemeral {
			gray.Print(" (ephemeral)")
		}
		fmt.Println()
	}
	if cfg.Auth.TrustIdentityHeader {
		yellow.Println("    ! trusting identity header (development mode)")
	}

	fmt.Println()

	logger.Info("starting todo-gateway",
		"config", configPath,
		"grpc_addr", cfg.Server.GRPCAddr,
		"http_addr", cfg.Server.HTTPAddr,
	)

	gw, err := gateway.New(cfg, logger)
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	return gw.Run(ctx)
}

// runProbe requests path on the configured HTTP address and prints the body.
func runProbe(ctx context.Context, path string) error {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	url := fmt.Sprintf("http://%s%s", cfg.Server.HTTPAddr, path)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("probe failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unhealthy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	fmt.Println(strings.TrimSpace(string(body)))
	return nil
}

// runToken mints a JWT for an identity using the configured secret.
func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ContinueOnError)
	identity := fs.String("identity", "", "identity to encode as the token subject")
	ttl := fs.Duration("ttl", defaultTokenTTL, "token lifetime")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(*identity) == "" {
		return errors.New("--identity is required")
	}

	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is not configured")
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(records.Identity(strings.TrimSpace(*identity)), *ttl)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	fmt.Println(token)
	return nil
}

// generateSecret returns a random base64 JWT secret.
func generateSecret() (string, error) {
	secretBytes := make([]byte, 32)
	if _, err := rand.Read(secretBytes); err != nil {
		return "", fmt.Errorf("generating JWT secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(secretBytes), nil
}

// renderConfig produces a YAML config file for the given settings.
func renderConfig(cfg *config.Config) string {
	var b strings.Builder
	b.WriteString("# todo-gateway configuration\n\n")

	b.WriteString("server:\n")
	fmt.Fprintf(&b, "  grpc_addr: %q\n", cfg.Server.GRPCAddr)
	fmt.Fprintf(&b, "  http_addr: %q\n\n", cfg.Server.HTTPAddr)

	b.WriteString("database:\n")
	fmt.Fprintf(&b, "  path: %q\n\n", cfg.Database.Path)

	b.WriteString("tailscale:\n")
	fmt.Fprintf(&b, "  enabled: %t\n", cfg.Tailscale.Enabled)
	if cfg.Tailscale.Enabled {
		fmt.Fprintf(&b, "  hostname: %q\n", cfg.Tailscale.Hostname)
		if cfg.Tailscale.AuthKey != "" {
			fmt.Fprintf(&b, "  auth_key: %q\n", cfg.Tailscale.AuthKey)
		}
		fmt.Fprintf(&b, "  ephemeral: %t\n", cfg.Tailscale.Ephemeral)
		fmt.Fprintf(&b, "  funnel: %t\n", cfg.Tailscale.Funnel)
	}
	b.WriteString("\n")

	b.WriteString("auth:\n")
	fmt.Fprintf(&b, "  jwt_secret: %q\n", cfg.Auth.JWTSecret)
	fmt.Fprintf(&b, "  ssh_enabled: %t\n\n", cfg.Auth.SSHEnabled)

	b.WriteString("records:\n")
	fmt.Fprintf(&b, "  owner: %q\n", cfg.Records.Owner)
	fmt.Fprintf(&b, "  page_limit: %d\n\n", cfg.Records.PageLimit)

	b.WriteString("logging:\n")
	fmt.Fprintf(&b, "  level: %q\n", cfg.Logging.Level)
	fmt.Fprintf(&b, "  format: %q\n", cfg.Logging.Format)
	return b.String()
}

// runBootstrap writes a config owned by --owner (if none exists) and saves
// a JWT for the owner next to it, so `todo-gateway serve` and `todo-admin`
// work immediately.
func runBootstrap(args []string) error {
	fs := flag.NewFlagSet("bootstrap", flag.ContinueOnError)
	owner := fs.String("owner", "", "identity of the record store owner")
	if err := fs.Parse(args); err != nil {
		return err
	}
	ownerName := strings.TrimSpace(*owner)
	if ownerName == "" {
		return errors.New("--owner is required")
	}

	configPath := config.DefaultPath()
	green := color.New(color.FgGreen)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	var cfg *config.Config
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		secret, err := generateSecret()
		if err != nil {
			return err
		}
		cfg = &config.Config{
			Server:   config.ServerConfig{GRPCAddr: "localhost:50051", HTTPAddr: "localhost:8080"},
			Database: config.DatabaseConfig{Path: filepath.Join(getDataPath(), "ledger.db")},
			Auth:     config.AuthConfig{JWTSecret: secret, SSHEnabled: true},
			Records:  config.RecordsConfig{Owner: ownerName, PageLimit: config.DefaultPageLimit},
			Logging:  config.LoggingConfig{Level: config.DefaultLogLevel, Format: config.DefaultLogFormat},
		}
		if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}
		if err := os.WriteFile(configPath, []byte(renderConfig(cfg)), 0600); err != nil {
			return fmt.Errorf("writing config file: %w", err)
		}
		green.Printf("  ✓ Created config: %s\n", configPath)
	} else {
		cfg, err = config.Load(configPath)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if cfg.Auth.JWTSecret == "" {
			return fmt.Errorf("jwt_secret not configured in %s (required for bootstrap)", configPath)
		}
		if cfg.Records.Owner != ownerName {
			return fmt.Errorf("config already names owner %q", cfg.Records.Owner)
		}
		cyan.Printf("  Using existing config: %s\n", configPath)
	}

	token, err := auth.NewJWTVerifier([]byte(cfg.Auth.JWTSecret)).Generate(records.Identity(ownerName), defaultTokenTTL)
	if err != nil {
		return fmt.Errorf("generating token: %w", err)
	}
	tokenPath := filepath.Join(filepath.Dir(configPath), "token")
	if err := os.WriteFile(tokenPath, []byte(token), 0600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	green.Printf("  ✓ Saved token: %s (expires %s)\n", tokenPath, time.Now().Add(defaultTokenTTL).Format("Jan 02, 2006"))

	fmt.Println()
	yellow.Println("  Ready to go:")
	fmt.Println("    todo-gateway serve    # start the gateway")
	fmt.Println("    todo-admin me         # verify your identity")
	fmt.Println()
	return nil
}

func runInit(in io.Reader) error {
	reader := bufio.NewReader(in)

	fmt.Println("todo-gateway configuration setup")
	fmt.Println("================================")
	fmt.Println()

	outputFile := prompt(reader, "Config file path", config.DefaultPath())
	if _, err := os.Stat(outputFile); err == nil {
		if !yes(prompt(reader, "File exists. Overwrite?", "no")) {
			fmt.Println("Aborted.")
			return nil
		}
	}

	cfg := &config.Config{}

	fmt.Println("\n--- Server Configuration ---")
	cfg.Server.GRPCAddr = prompt(reader, "gRPC address", "localhost:50051")
	cfg.Server.HTTPAddr = prompt(reader, "HTTP address", "localhost:8080")

	fmt.Println("\n--- Event Ledger ---")
	cfg.Database.Path = prompt(reader, "SQLite database path", filepath.Join(getDataPath(), "ledger.db"))

	fmt.Println("\n--- Records ---")
	cfg.Records.Owner = prompt(reader, "Owner identity", "")
	if strings.TrimSpace(cfg.Records.Owner) == "" {
		return errors.New("owner identity is required")
	}
	limit := prompt(reader, "Page limit", fmt.Sprint(config.DefaultPageLimit))
	if _, err := fmt.Sscan(limit, &cfg.Records.PageLimit); err != nil {
		return fmt.Errorf("page limit: %w", err)
	}

	fmt.Println("\n--- Authentication ---")
	secret, err := generateSecret()
	if err != nil {
		return err
	}
	cfg.Auth.JWTSecret = secret
	cfg.Auth.SSHEnabled = yes(prompt(reader, "Accept SSH key authentication?", "yes"))

	fmt.Println("\n--- Tailscale Configuration ---")
	cfg.Tailscale.Enabled = yes(prompt(reader, "Enable Tailscale?", "no"))
	if cfg.Tailscale.Enabled {
		cfg.Tailscale.Hostname = prompt(reader, "Tailscale hostname", "todo-gateway")
		cfg.Tailscale.AuthKey = prompt(reader, "Tailscale auth key (leave empty for TS_AUTHKEY)", "")
		cfg.Tailscale.Ephemeral = yes(prompt(reader, "Ephemeral node?", "no"))
		cfg.Tailscale.Funnel = yes(prompt(reader, "Enable Funnel (public HTTPS)?", "no"))
	}

	fmt.Println("\n--- Logging Configuration ---")
	cfg.Logging.Level = prompt(reader, "Log level (debug/info/warn/error)", config.DefaultLogLevel)
	cfg.Logging.Format = prompt(reader, "Log format (text/json)", config.DefaultLogFormat)

	if err := os.MkdirAll(filepath.Dir(outputFile), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := os.WriteFile(outputFile, []byte(renderConfig(cfg)), 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	fmt.Printf("\nConfig written to %s\n", outputFile)
	fmt.Println("\nTo start the server:")
	fmt.Printf("  todo-gateway serve\n")
	return nil
}

func yes(s string) bool {
	s = strings.ToLower(s)
	return s == "yes" || s == "y"
}

func prompt(reader *bufio.Reader, question, defaultVal string) string {
	if defaultVal != "" {
		fmt.Printf("%s [%s]: ", question, defaultVal)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, err := reader.ReadString('\n')
	if err != nil {
		// On EOF or error, return default
		fmt.Println()
		return defaultVal
	}
	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal
	}
	return input
}
