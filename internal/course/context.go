// Package course resolves the course-domain tenant identifier forwarded to the
// external booking service on every request.
package course

import "context"

type ctxKey string

const domainKey ctxKey = "teesheet.course_domain"

// Resolver yields the current course-domain string. How the value is computed
// (static config, host inference) is a deployment concern; the core only calls it.
type Resolver func() string

// StaticResolver returns a Resolver that always yields domain.
func StaticResolver(domain string) Resolver {
	return func() string { return domain }
}

// WithDomain stores a course domain in context, overriding the resolver default
// for the request it travels with.
func WithDomain(ctx context.Context, domain string) context.Context {
	return context.WithValue(ctx, domainKey, domain)
}

// DomainFromContext extracts the course domain if present.
func DomainFromContext(ctx context.Context) (string, bool) {
	val := ctx.Value(domainKey)
	if val == nil {
		return "", false
	}
	domain, ok := val.(string)
	return domain, ok && domain != ""
}
