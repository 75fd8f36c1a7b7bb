package forecast

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Panel scopes. Each scope groups the sales history by a different
// entity key and trains one pooled model per scope.
const (
	ScopeProduct  = "producto"
	ScopeCategory = "categoria"
	ScopeCustomer = "cliente"
)

// Scopes lists the supported panel scopes in canonical order
func Scopes() []string {
	return []string{ScopeProduct, ScopeCategory, ScopeCustomer}
}

// KeyColumn returns the dataset column holding the entity key for a
// panel scope
func KeyColumn(scope string) (string, error) {
	switch scope {
	case ScopeProduct:
		return "producto_id", nil
	case ScopeCategory:
		return "categoria", nil
	case ScopeCustomer:
		return "usuario_id", nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, scope)
}

var (
	nonAlnum   = regexp.MustCompile(`[^A-Za-z0-9]+`)
	underscore = regexp.MustCompile(`_+`)
)

// SlugKey turns a free-text key into a filesystem-safe identifier:
// accents stripped, lowercased, runs of non-alphanumerics collapsed
// to single underscores. Empty input yields "serie".
func SlugKey(value string) string {
	decomposed := norm.NFD.String(value)
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	slug := nonAlnum.ReplaceAllString(b.String(), "_")
	slug = underscore.ReplaceAllString(slug, "_")
	slug = strings.Trim(slug, "_")
	slug = strings.ToLower(slug)
	if slug == "" {
		return "serie"
	}
	return slug
}

// NormalizeKey canonicalizes an entity key for a scope. Numeric-id
// scopes require an integer key; the category scope slugs free text.
func NormalizeKey(scope, raw string) (string, error) {
	switch scope {
	case ScopeProduct, ScopeCustomer:
		id, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil {
			return "", fmt.Errorf("scope %s needs an integer key, got %q", scope, raw)
		}
		return strconv.Itoa(id), nil
	case ScopeCategory:
		return SlugKey(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidScope, scope)
}
