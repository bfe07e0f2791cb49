// Package query turns free-text search strings into structured
// queries and ranks stored candidates against them.
package query

import (
	"regexp"
	"strings"

	"sigidx/internal/cparse"
	"sigidx/internal/model"
)

// NormalizeFunc is the injected declaration normalizer, usually
// cparse.Normalize.
type NormalizeFunc func(decl, lang string) (string, error)

// queryPlaceholder names the function in synthetic declarations built
// from nameless "ret (args)" query text.
const queryPlaceholder = "__q__"

var (
	placeholderRe = regexp.MustCompile(`\b__q__\b`)
	namedProtoRe  = regexp.MustCompile(`\w+\s*\(`)
)

// Parse interprets "<signature>" or "<name> :: <signature>". A blank
// signature part yields a name-only query without ever calling the
// normalizer. Normalization is tried as C first and retried once as
// C++ on failure.
func Parse(text string, normalize NormalizeFunc) (model.Query, error) {
	var q model.Query
	sigPart := strings.TrimSpace(text)
	if name, rest, ok := strings.Cut(text, "::"); ok {
		q.Name = strings.TrimSpace(name)
		sigPart = strings.TrimSpace(rest)
	}
	if sigPart == "" {
		return q, nil
	}

	decl := syntheticDeclaration(sigPart)
	norm, err := normalize(decl, cparse.LangC)
	if err != nil {
		norm, err = normalize(decl, cparse.LangCPP)
		if err != nil {
			return q, err
		}
	}

	norm = placeholderRe.ReplaceAllString(norm, "")
	norm = strings.ReplaceAll(norm, " ;", "")
	q.SignatureNorm = strings.Join(strings.Fields(norm), " ")
	return q, nil
}

// syntheticDeclaration turns query signature text into a parseable
// declaration. Text that already reads as a named prototype (an
// identifier butted against its paren, or an explicit placeholder) is
// kept as is; "ret (args)" gets the placeholder name inserted before
// the paren.
func syntheticDeclaration(sigPart string) string {
	withSemi := func(s string) string {
		if strings.HasSuffix(strings.TrimRight(s, " \t"), ";") {
			return s
		}
		return s + ";"
	}

	if !strings.Contains(sigPart, "(") || !strings.Contains(sigPart, ")") {
		return withSemi(sigPart)
	}
	if strings.Contains(sigPart, queryPlaceholder) {
		return withSemi(sigPart)
	}
	if namedProtoRe.MatchString(sigPart) && !strings.Contains(sigPart, " (") {
		return withSemi(sigPart)
	}

	open := strings.Index(sigPart, "(")
	if open < 0 {
		return withSemi(sigPart)
	}
	ret := strings.TrimSpace(sigPart[:open])
	params := strings.TrimSpace(sigPart[open:])
	return ret + " " + queryPlaceholder + " " + params + ";"
}
