// Package sanitize strips markup from user-supplied text before it is stored.
package sanitize

import (
	"github.com/microcosm-cc/bluemonday"
	"html"
	"strings"
)

var policy = bluemonday.StrictPolicy()

// Text removes every HTML element, unescapes entities left by the policy and
// trims surrounding space.
func Text(s string) string {
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}
