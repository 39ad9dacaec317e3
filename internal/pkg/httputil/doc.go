// Package httputil provides shared HTTP response/request utilities for handlers.
//
// Every handler file should use these helpers instead of writing raw
// http.ResponseWriter calls. This keeps JSON formatting, the error envelope,
// and the domain-error-to-status mapping consistent across all endpoints.
package httputil
