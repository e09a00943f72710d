package middlewares

// Keys under which request-scoped values live in the gin context.
const (
	CtxRequestID = "request_id"
	CtxUserID    = "user_id"
	CtxEmail     = "email"
	CtxRole      = "role"
)
