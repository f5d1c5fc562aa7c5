// File: internal/rpc/client.go
package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"syscall"
	"time"

	"github.com/xkaelum/harrier/api/schemas"
)

// Client is the thin request/response side of the bridge. Transport failures
// are classified into typed codes here so the supervisor never inspects error
// prose.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient targets the engine on the given local port.
func NewClient(port int) *Client {
	return &Client{
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", port),
		httpClient: &http.Client{
			// Individual calls carry their own context deadlines; this is the
			// absolute ceiling.
			Timeout: 5 * time.Minute,
		},
	}
}

// Call sends one envelope and decodes the data payload into out (when out is
// non-nil). A success=false response surfaces as a coded error.
func (c *Client) Call(ctx context.Context, method string, params any, out any) error {
	var rawParams []byte
	if params != nil {
		var err error
		rawParams, err = jsonAPI.Marshal(params)
		if err != nil {
			return schemas.NewError(schemas.ErrCodeInvalidRequest, "failed to marshal params: %v", err)
		}
	}
	body, err := jsonAPI.Marshal(schemas.Request{Method: method, Params: rawParams})
	if err != nil {
		return schemas.NewError(schemas.ErrCodeInvalidRequest, "failed to marshal request: %v", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransportError(err)
	}
	defer httpResp.Body.Close()

	var resp schemas.Response
	if err := jsonAPI.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return schemas.NewError(schemas.ErrCodeInternal, "malformed response from engine: %v", err)
	}
	if !resp.Success {
		code := resp.Code
		if code == schemas.ErrCodeNone {
			code = schemas.ErrCodeInternal
		}
		return &schemas.Error{Code: code, Message: resp.Error}
	}
	if out != nil && len(resp.Data) > 0 {
		if err := jsonAPI.Unmarshal(resp.Data, out); err != nil {
			return schemas.NewError(schemas.ErrCodeInternal, "failed to decode response data: %v", err)
		}
	}
	return nil
}

// Health runs the trivial round-trip probe.
func (c *Client) Health(ctx context.Context) error {
	return c.Call(ctx, schemas.MethodTest, nil, nil)
}

// classifyTransportError maps dial/transport failures onto typed codes.
func classifyTransportError(err error) error {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return schemas.NewError(schemas.ErrCodeConnectionRefused, "engine unreachable: %v", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return schemas.NewError(schemas.ErrCodeTimeout, "engine call timed out: %v", err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return schemas.NewError(schemas.ErrCodeTimeout, "engine call timed out: %v", err)
	}
	if errors.Is(err, context.Canceled) {
		return schemas.NewError(schemas.ErrCodeContextCanceled, "engine call canceled: %v", err)
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		// Any other dial-level failure while the process is supposedly up is
		// treated as the engine being gone.
		return schemas.NewError(schemas.ErrCodeConnectionRefused, "engine unreachable: %v", err)
	}
	return err
}
