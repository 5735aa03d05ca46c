// Package cmd implements the command-line interface for calagent.
//
// This package provides the following commands:
//   - chat: Start an interactive calendar assistant session in the terminal
//   - serve: Start the MCP server exposing the scheduling tools
//   - auth: Run the Google OAuth flow and cache a token for an account
//   - version: Display version information
//
// The chat command is the default command when no subcommand is specified.
package cmd
