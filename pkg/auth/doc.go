// Package auth turns a bearer token into a Principal.
//
// Access tokens are HS256 JWTs issued by the identity provider. The subject is
// the user id and an optional email claim is carried along. Whether a user is
// a super-admin is decided separately by an AdminChecker, because the token
// issuer does not know about the admin table. A failing checker never grants
// admin.
package auth
