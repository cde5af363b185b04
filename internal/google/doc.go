// Package google provides shared OAuth2 authentication for the Gmail and
// Drive clients.
//
// Tokens are cached on disk under the user cache directory; the auth
// subcommand performs the one-time authorization code exchange. All services
// share one token with read-only scopes for mail and Drive.
package google
