package core

import "context"

type requestMetaKey struct{}

// requestMeta is what the audit log records about the caller. It is stored
// by value; each setter copies it so parent contexts are never mutated.
type requestMeta struct {
	ip        string
	userAgent string
	actor     string
}

func metaFrom(ctx context.Context) requestMeta {
	m, _ := ctx.Value(requestMetaKey{}).(requestMeta)
	return m
}

func withMeta(ctx context.Context, update func(*requestMeta)) context.Context {
	m := metaFrom(ctx)
	update(&m)
	return context.WithValue(ctx, requestMetaKey{}, m)
}

// ContextWithIPAddress records the client IP for audit entries.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.ip = ip })
}

// ContextWithUserAgent records the client User-Agent for audit entries.
func ContextWithUserAgent(ctx context.Context, ua string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.userAgent = ua })
}

// ContextWithActor records who is performing the request.
func ContextWithActor(ctx context.Context, username string) context.Context {
	return withMeta(ctx, func(m *requestMeta) { m.actor = username })
}

func GetIPAddressFromContext(ctx context.Context) string {
	return metaFrom(ctx).ip
}

func GetUserAgentFromContext(ctx context.Context) string {
	return metaFrom(ctx).userAgent
}

// GetActorFromContext returns the acting username, or "system" when the
// request is unauthenticated or comes from a background job.
func GetActorFromContext(ctx context.Context) string {
	if a := metaFrom(ctx).actor; a != "" {
		return a
	}
	return "system"
}
