package middlewares

const (
	CtxRequestID = "request_id"
	CtxJobID     = "job_id"
)

type ctxKey string

// KeyUserID is the plain-context key used outside gin (see actorctx).
const KeyUserID ctxKey = "user_id"
