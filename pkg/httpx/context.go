package httpx

type ctxKey string

// CtxKeyUserID carries the authenticated user's id once the identity
// middleware has resolved the session. The rate limiter uses it to key
// per-user limits.
const CtxKeyUserID ctxKey = "user_id"
