// Package jwt issues and verifies bearer tokens for API clients.
//
// Tokens are HS512 signed, carry the client name as subject plus a list of
// scopes, and are stored in the request context once verified.
package jwt
