// Package openapi embeds the OpenAPI document of the catalog API.
package openapi

import _ "embed"

// YAML is served at /openapi.yaml and rendered by /docs.
//
//go:embed openapi.yaml
var YAML []byte
