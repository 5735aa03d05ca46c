// Package openai implements the reasoner against an OpenAI-compatible chat
// completions endpoint using function calling.
package openai
