package requestdata

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	val := ctx.Value(requestDataKey{})
	if rd, ok := val.(*RequestData); ok {
		return rd
	}
	return nil
}

// RequestData carries the acting user for the current request. The upstream
// API layer authenticates; this core only needs the resolved identity.
type RequestData struct {
	UserID uuid.UUID
}
