//go:build !embed_openapi

package api

import "os"

// openAPILoad loads the OpenAPI spec from the repo path (dev mode)
func openAPILoad() ([]byte, error) {
    if p := os.Getenv("OPENAPI_PATH"); p != "" { return os.ReadFile(p) }
    return os.ReadFile("openapi/openapi.yaml")
}
