// Package jwt signs and verifies the access tokens that tell the admission
// guards who an authenticated requester is. Claims carry the user id and role;
// issuer, audience, leeway and kid rotation are checked on every parse.
package jwt
