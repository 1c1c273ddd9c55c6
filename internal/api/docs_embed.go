//go:build embed_openapi

package api

import "eventrelay/openapi"

func openAPILoad() ([]byte, error) { return openapi.Spec, nil }
