// Package server exposes the portfolio snapshot and its administrative
// endpoints over HTTP.
//
// The router serves the cached profileData.json document, regenerating it on
// first use and falling back to a bundled static copy, plus POST endpoints
// that force a synchronization pass. Admin endpoints require a bearer token
// when paths.api_token is configured.
package server
