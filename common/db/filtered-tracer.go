package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

// filteredTracer wraps a query tracer, silencing statements that touch a
// given table. Scheduled scrapes batch hundreds of job inserts per sweep,
// which would drown the query log.
type filteredTracer struct {
	inner     pgx.QueryTracer
	skipTable string
}

func newFilteredTracer(inner pgx.QueryTracer, skipTable string) *filteredTracer {
	return &filteredTracer{inner: inner, skipTable: strings.ToLower(skipTable)}
}

type skipCtxKey struct{}

func (t *filteredTracer) TraceQueryStart(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	if strings.Contains(strings.ToLower(data.SQL), t.skipTable) {
		// Flag the context so TraceQueryEnd skips the same statement
		return context.WithValue(ctx, skipCtxKey{}, true)
	}
	return t.inner.TraceQueryStart(ctx, conn, data)
}

func (t *filteredTracer) TraceQueryEnd(ctx context.Context, conn *pgx.Conn, data pgx.TraceQueryEndData) {
	if ctx.Value(skipCtxKey{}) != nil {
		return
	}
	if strings.Contains(strings.ToLower(data.CommandTag.String()), t.skipTable) {
		return
	}
	t.inner.TraceQueryEnd(ctx, conn, data)
}
