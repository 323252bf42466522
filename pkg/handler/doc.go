// Package handler provides typed HTTP handlers with a JSON envelope.
//
// A HandlerFunc receives a request struct already filled by binders and
// returns a Response. Wrap adapts it to http.HandlerFunc:
//
//	func collections(ctx handler.Context, _ struct{}) handler.Response {
//		sess, err := sessionpool.SessionFromContext(ctx)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		names, err := sess.Collections(ctx)
//		if err != nil {
//			return handler.JSONError(err)
//		}
//		return handler.JSON(map[string]any{"collections": names})
//	}
//
// Successful bodies are {"data": ...}; failures are
// {"error": {"code": "...", "message": "..."}}. NewErrorHandler maps errors
// to statuses through HTTPError, binder sentinels and an optional
// Classifier, logs them with the chi request ID and renders the envelope.
package handler
