package middlewares

const (
	CtxRequestID = "request_id"

	ctxUserIDKey = "auth.userID"
)

// SessionCookieName carries the signed session credential.
const SessionCookieName = "token"
