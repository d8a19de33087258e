package logging

import "context"

type requestIDKey struct{}

// WithRequestID リクエストIDをコンテキストに格納
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID コンテキストからリクエストIDを取り出す（なければ空文字）
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}
