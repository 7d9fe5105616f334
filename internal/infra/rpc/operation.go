package rpc

import (
	"net/url"

	"github.com/vietddude/txsync/internal/infra/rpc/provider"
)

// NewRESTOperation creates a GET operation.
func NewRESTOperation(name, path string, query url.Values) Operation {
	return provider.Operation{
		Name:  name,
		Path:  path,
		Query: query,
	}
}

// NewRESTPostOperation creates a POST operation with a JSON body.
func NewRESTPostOperation(name, path string, body any) Operation {
	return provider.Operation{
		Name:   name,
		Method: "POST",
		Path:   path,
		Body:   body,
	}
}

// NewJSONRPCOperation creates a JSON-RPC 2.0 call.
func NewJSONRPCOperation(method string, params ...any) Operation {
	return provider.Operation{
		Name:      method,
		RPCMethod: method,
		Params:    params,
	}
}
