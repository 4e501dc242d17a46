// Package httputil holds the JSON request and response helpers shared by the
// API handlers and middleware.
//
// Every error reply has the shape {"error": "..."}:
//
//	httputil.WriteBadRequest(w, "route is required")
//	httputil.WriteJSON(w, http.StatusOK, snapshot)
package httputil
