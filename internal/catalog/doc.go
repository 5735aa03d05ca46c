// Package catalog is the single registry of scheduling tools. Each tool is
// declared once with its MCP schema and handler; the catalog validates
// arguments against the schema, classifies failures, and serves the same
// tools to both the agent loop and the MCP server.
package catalog
