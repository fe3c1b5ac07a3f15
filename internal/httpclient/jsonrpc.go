package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
)

// RPCError is the error object of a JSON-RPC 2.0 response.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("json-rpc error %d: %s", e.Code, e.Message)
}

// StatusError reports a non-2xx HTTP status from an RPC endpoint.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

type rpcResponse struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

var rpcIDs atomic.Uint64

// CallRPC posts a JSON-RPC 2.0 request to url, or to the client base URL
// when url is empty, and decodes the result into result when it is non-nil. Non-2xx responses return *StatusError and
// RPC-level failures return *RPCError.
func CallRPC(ctx context.Context, c Client, url, method string, result any, params ...any) error {
	if params == nil {
		params = []any{}
	}

	var out rpcResponse
	_, err := c.NewRequest(
		WithLabels(Label{Key: "rpc.method", Value: method}),
		WithResponseErrorHandler(func(status int, body []byte) error {
			if status < http.StatusOK || status >= http.StatusMultipleChoices {
				return &StatusError{StatusCode: status, Body: truncate(string(body), 256)}
			}
			return nil
		}),
	).
		SetHeader("Accept", "application/json").
		SetBody(rpcRequest{JSONRPC: "2.0", ID: rpcIDs.Add(1), Method: method, Params: params}).
		SetResult(&out).
		Post(ctx, url)
	if err != nil {
		return err
	}

	if out.Error != nil {
		return out.Error
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(out.Result, result); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
