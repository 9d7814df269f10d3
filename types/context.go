package types

import "context"

// OpContext carries the ambient metadata an engine call wants attached to
// its logs and trace spans: who asked, and how to correlate with the rest
// of a distributed call chain. Unlike the teacher's gin-derived contexts,
// OpContext has no web-framework dependency — the Session is an in-process
// component, never a request handler.
type OpContext struct {
	Username  string
	RequestID string
	TraceID   string

	ctx context.Context
}

// NewOpContext wraps a context.Context with optional ambient metadata.
func NewOpContext(ctx context.Context) *OpContext {
	if ctx == nil {
		ctx = context.Background()
	}
	return &OpContext{ctx: ctx}
}

// Context returns the underlying context.Context, defaulting to
// context.Background() for a nil receiver or unset context.
func (oc *OpContext) Context() context.Context {
	if oc == nil || oc.ctx == nil {
		return context.Background()
	}
	return oc.ctx
}

// WithUsername and WithRequestID/WithTraceID return the same *OpContext with
// the field set, for fluent construction at call sites.
func (oc *OpContext) WithUsername(username string) *OpContext {
	oc.Username = username
	return oc
}

func (oc *OpContext) WithRequestID(id string) *OpContext {
	oc.RequestID = id
	return oc
}

func (oc *OpContext) WithTraceID(id string) *OpContext {
	oc.TraceID = id
	return oc
}
