// Package handlers contains the HTTP handlers for the JSON API. Each
// handler resolves the verified caller identity placed in the context by
// the auth middleware and passes it into services explicitly.
package handlers

import (
	"net/http"

	"github.com/splitfair/splitfair/internal/auth"
)

// identity returns the verified caller. The auth middleware guarantees it
// is present on every protected route.
func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}
