// Package config handles configuration loading for todo-gateway.
//
// # Overview
//
// Configuration is loaded from YAML or TOML files with environment variable
// expansion. The format follows the file extension: ".toml" selects TOML,
// anything else is read as YAML. Load applies defaults and validates.
//
// # Configuration File
//
// Default locations (in order):
//
//  1. Path from TODO_GATEWAY_CONFIG environment variable
//  2. $XDG_CONFIG_HOME/todo-gateway/gateway.yaml
//  3. ~/.config/todo-gateway/gateway.yaml
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	auth:
//	  jwt_secret: "${TODO_JWT_SECRET}"
//
// Unset variables expand to the empty string.
//
// # Example
//
//	server:
//	  grpc_addr: "127.0.0.1:50051"
//	  http_addr: "127.0.0.1:8080"
//
//	database:
//	  path: "~/.local/share/todo-gateway/ledger.db"
//
//	auth:
//	  jwt_secret: "${TODO_JWT_SECRET}"
//	  ssh_enabled: true
//
//	records:
//	  owner: "alice"
//	  page_limit: 15
//	  bound_admin_reads_by_target: false
//
//	events:
//	  stream_buffer: 64
//	  idempotency_ttl: "10m"
//	  idempotency_max_entries: 10000
//
//	logging:
//	  level: "info"
//	  format: "text"
//
// # Defaults
//
//   - records.page_limit: 15 (an explicit 0 is kept and rejects every range read)
//   - events.stream_buffer: 64
//   - events.idempotency_ttl: 10m
//   - logging.level: info, logging.format: text
//
// Setting tailscale.funnel implies tailscale.https.
package config
