// Package agent implements the conversation turn loop: an append-only session
// history, a pluggable reasoner, and a tool dispatcher. Each user input runs
// through a bounded reason/dispatch cycle until the reasoner answers in plain
// text or the turn bound is exceeded.
package agent
