// Package http provides Fiber-oriented HTTP helpers, middleware, and error handling.
//
// Core entry points include response helpers (OK, Created, JSONResponse),
// the RenderError contract for consistent request failure handling, request
// validation built on go-playground/validator, and the access logging and
// CORS middleware builders.
package http
