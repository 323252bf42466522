// Package binder decodes HTTP requests into typed structs for
// handler.Wrap.
//
// JSON decodes a strict JSON body. Header binds `header:"..."` tagged
// fields from request headers, converting to string, bool, integer, float
// and their pointer and slice forms:
//
//	type databaseRequest struct {
//		Host     string `header:"X-DB-Host" json:"-"`
//		Port     int    `header:"X-DB-Port" json:"-"`
//		Name     string `json:"name"`
//		Username string `json:"username"`
//		Password string `json:"password"`
//	}
//
//	handler.Wrap(h, handler.WithBinders[handler.Context, databaseRequest](
//		binder.Header(), binder.JSON(),
//	))
//
// Every error wraps one of the package sentinels.
package binder
