package binder

import "net/http"

// Header binds request headers into fields tagged `header:"X-Name"`.
// Untagged fields are skipped; header names are matched case-insensitively.
//
//	type target struct {
//		Host string `header:"X-DB-Host"`
//		Port int    `header:"X-DB-Port"`
//	}
func Header() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		return bindToStruct(v, "header", func(name string) []string {
			return r.Header.Values(name)
		}, ErrFailedToParseHeader)
	}
}
