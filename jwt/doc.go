// Package jwt decodes session bearer tokens for display and expiry checks, with
// optional HS256 or Ed25519 signature verification when the client holds a key.
package jwt
