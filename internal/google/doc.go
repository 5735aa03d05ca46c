// Package google handles Google OAuth2 credential plumbing for the calendar
// client: the out-of-band authorization code flow, the per-account on-disk
// token cache, and construction of authenticated HTTP clients.
package google
