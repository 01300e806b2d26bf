// ABOUTME: Admin CLI for todo-gateway records and ownership settings
// ABOUTME: Talks to RecordService over gRPC with JWT, SSH, or identity-header auth

package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	cmd := newRootCommand(&rootOptions{})
	if err := cmd.Execute(); err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}
