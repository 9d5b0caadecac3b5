// Package sas requests and caches the shared access signature (SAS) tokens
// issued by the remote signing service. Tokens are scoped to a single storage
// container and are short-lived; the cache refreshes them before expiry.
package sas

import (
	"strings"
	"time"
)

// Token is a shared access signature for one storage container, as issued by
// the signing service. It is immutable once created.
type Token struct {
	// Token is the opaque SAS token in query-string form, e.g.
	// "st=...&se=...&sig=...".
	Token string `json:"token"`

	// Expiry is the absolute time (UTC) at which the token stops working.
	Expiry time.Time `json:"msft:expiry"`
}

// TTL returns the remaining validity of the token. Negative once expired.
func (t Token) TTL() time.Duration {
	return time.Until(t.Expiry)
}

// SignHref appends the token to an href's query string. Pre-existing query
// parameters are preserved: the token is appended, never substituted.
func (t Token) SignHref(href string) string {
	if strings.Contains(href, "?") {
		return href + "&" + t.Token
	}

	return href + "?" + t.Token
}

// IsZero reports whether the token is the zero value.
func (t Token) IsZero() bool {
	return t.Token == "" && t.Expiry.IsZero()
}
