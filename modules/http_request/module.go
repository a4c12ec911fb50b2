// Package http_request provides the "http_request" kind, which performs one
// HTTP request and returns the response.
package http_request

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/specialistvlad/conduit/internal/ctxlog"
	"github.com/specialistvlad/conduit/internal/node"
	"github.com/specialistvlad/conduit/internal/registry"
	"github.com/specialistvlad/conduit/internal/result"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Client is shared by every node of the kind. Nil uses
	// http.DefaultClient.
	Client *http.Client
}

// Params are the static parameters of an http_request node.
type Params struct {
	URL     string            `json:"url"`
	Method  string            `json:"method"`
	Headers map[string]string `json:"headers"`
	Body    string            `json:"body"`
	// ExpectStatus fails the node on any other status code when set.
	ExpectStatus int `json:"expect_status"`
}

// Run performs the request. The result holds status_code, headers and body.
func (m *Module) Run(ctx context.Context, n *node.Node, _ node.PredecessorResults) (result.Result, error) {
	var params Params
	if err := n.DecodeParams(&params); err != nil {
		return result.Null(), err
	}
	if params.URL == "" {
		return result.Null(), fmt.Errorf("url is required")
	}
	if params.Method == "" {
		params.Method = http.MethodGet
	}
	logger := ctxlog.FromContext(ctx)
	logger.Info("Making HTTP request", "label", n.Label(), "method", params.Method, "url", params.URL)

	var body io.Reader
	if params.Body != "" {
		body = strings.NewReader(params.Body)
	}
	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(params.Method), params.URL, body)
	if err != nil {
		return result.Null(), fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range params.Headers {
		req.Header.Set(k, v)
	}

	client := m.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return result.Null(), fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	logger.Info("Received HTTP response", "label", n.Label(), "status", resp.Status)

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return result.Null(), fmt.Errorf("failed to read response body: %w", err)
	}
	if params.ExpectStatus != 0 && resp.StatusCode != params.ExpectStatus {
		return result.Null(), fmt.Errorf("unexpected status %d, want %d", resp.StatusCode, params.ExpectStatus)
	}

	return result.New(cty.ObjectVal(map[string]cty.Value{
		"status_code": cty.NumberIntVal(int64(resp.StatusCode)),
		"headers":     headerValue(resp.Header),
		"body":        cty.StringVal(string(bodyBytes)),
	})), nil
}

// headerValue keeps the first value of each header.
func headerValue(h http.Header) cty.Value {
	if len(h) == 0 {
		return cty.MapValEmpty(cty.String)
	}
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make(map[string]cty.Value, len(keys))
	for _, k := range keys {
		vals[k] = cty.StringVal(h.Get(k))
	}
	return cty.MapVal(vals)
}

// Register registers the kind.
func (m *Module) Register(r *registry.Registry) {
	r.RegisterKind("http_request", &registry.Kind{
		Work:      m.Run,
		NewParams: func() any { return new(Params) },
	})
}
