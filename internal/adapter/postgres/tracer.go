package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// QueryObserver receives per-query timings. *metrics.DatabaseMetrics satisfies it.
type QueryObserver interface {
	Query(name string, err error, seconds float64)
}

// QueryTracer implements pgx.QueryTracer and reports to a QueryObserver.
type QueryTracer struct {
	observer QueryObserver
}

var _ pgx.QueryTracer = (*QueryTracer)(nil)

func NewQueryTracer(observer QueryObserver) *QueryTracer {
	return &QueryTracer{observer: observer}
}

type queryContextKey struct{}

type queryContext struct {
	start time.Time
	name  string
}

func (t *QueryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	return context.WithValue(ctx, queryContextKey{}, queryContext{start: time.Now(), name: queryName(data.SQL)})
}

func (t *QueryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	qctx, ok := ctx.Value(queryContextKey{}).(queryContext)
	if !ok {
		return
	}
	t.observer.Query(qctx.name, data.Err, time.Since(qctx.start).Seconds())
}

// queryName labels a query by its leading keyword to keep label cardinality low.
func queryName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}
