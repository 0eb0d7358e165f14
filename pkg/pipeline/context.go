package pipeline

import "context"

type contextKey struct{}

// WithCorrelationID associa um correlation id ao contexto.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// CorrelationID retorna o correlation id do contexto, ou "" quando ausente.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
