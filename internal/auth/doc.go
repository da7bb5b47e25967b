// Package auth signs and verifies the tab storage carried by the session
// cookie.
//
// Values are held as HS256 JWT claims. The cookie only proves the values came
// from this server; nothing in them is secret (the session record never holds
// the account password).
package auth
