package types

// ctxKey is an unexported type so these keys never collide with values set
// by other packages through context.WithValue.
type ctxKey string

const (
	CtxUsername ctxKey = "username"
	CtxUserID   ctxKey = "user_id"
	CtxTraceID  ctxKey = "trace_id"
)
