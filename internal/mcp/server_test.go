package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/config"
	"github.com/roivaz/notion-chakra-mcp/internal/jq"
	"github.com/roivaz/notion-chakra-mcp/internal/logging"
	"github.com/roivaz/notion-chakra-mcp/internal/mcp/tools"
	"github.com/roivaz/notion-chakra-mcp/internal/schemas"
)

type stubExecutor struct{}

func (stubExecutor) Execute(_ context.Context, req adapter.ToolRequest) adapter.ToolResult {
	return adapter.ToolResult{Operation: req.Operation, Payload: json.RawMessage(`{"object":"list","results":[]}`), Attempts: 1}
}

type stubSchemas struct{}

func (stubSchemas) Fetch(context.Context, string) (schemas.FetchResult, error) {
	return schemas.FetchResult{}, nil
}

func (stubSchemas) Get(context.Context, string, string) (schemas.DatabaseSchema, error) {
	return schemas.DatabaseSchema{}, schemas.ErrNotFound
}

func (stubSchemas) List(context.Context, string) ([]string, error) { return nil, nil }

func (stubSchemas) Configs(context.Context) ([]string, error) { return nil, nil }

func testConfig(transport string) Config {
	return Config{
		ToolAdapters: ToolAdapters(Dependencies{Executor: stubExecutor{}, Schemas: stubSchemas{}}),
		Transport:    transport,
		Logger:       logging.Discard(),
	}
}

func TestEveryToolAdapterHasADefinition(t *testing.T) {
	defs := toolDefinitions()
	adapters := ToolAdapters(Dependencies{Executor: stubExecutor{}, Schemas: stubSchemas{}})
	assert.Len(t, adapters, len(defs))
	for name := range adapters {
		def, ok := defs[name]
		if assert.True(t, ok, name) {
			assert.Equal(t, name, def.Name)
		}
	}
	for _, op := range adapter.Operations() {
		assert.Contains(t, adapters, NotionToolName(op))
	}
}

func TestSchemaToolsNeedAService(t *testing.T) {
	adapters := ToolAdapters(Dependencies{Executor: stubExecutor{}})
	assert.NotContains(t, adapters, ToolGetSchema)
	assert.Contains(t, adapters, ToolTest)
}

func TestReadToolsAcceptJQ(t *testing.T) {
	defs := toolDefinitions()
	assert.Contains(t, defs[NotionToolName(adapter.OpSearch)].InputSchema.Properties, "jq")
	assert.Contains(t, defs[NotionToolName(adapter.OpQueryDatabase)].InputSchema.Properties, "jq")
	assert.NotContains(t, defs[NotionToolName(adapter.OpCreatePage)].InputSchema.Properties, "jq")
	assert.Contains(t, defs[NotionToolName(adapter.OpCreatePage)].InputSchema.Required, "title")
}

func TestReadToolsGetAFilter(t *testing.T) {
	adapters := ToolAdapters(Dependencies{Executor: stubExecutor{}})
	for _, op := range adapter.Operations() {
		h, ok := adapters[NotionToolName(op)].(*tools.NotionHandler)
		require.True(t, ok, op)
		if readOperations[op] {
			assert.NotNil(t, h.Filter, op)
		} else {
			assert.Nil(t, h.Filter, op)
		}
	}

	shared := jq.NewFilter(jq.DefaultTimeout)
	adapters = ToolAdapters(Dependencies{Executor: stubExecutor{}, Filter: shared})
	h := adapters[NotionToolName(adapter.OpSearch)].(*tools.NotionHandler)
	assert.Same(t, shared, h.Filter)
}

func TestNewRejectsUnknownToolAndTransport(t *testing.T) {
	cfg := testConfig(config.TransportStdio)
	cfg.ToolAdapters["bogus"] = cfg.ToolAdapters[ToolTest]
	_, err := New(cfg)
	require.Error(t, err)

	_, err = New(testConfig("carrier-pigeon"))
	require.Error(t, err)
}

func TestHandleToolCall(t *testing.T) {
	srv, err := New(testConfig(config.TransportStdio))
	require.NoError(t, err)
	assert.Nil(t, srv.Handler)

	msg := srv.MCP.HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"test_tool","arguments":{}}}`))
	out, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(out), "Test tool working!")

	msg = srv.MCP.HandleMessage(context.Background(), json.RawMessage(
		`{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"notion_search","arguments":{"query":"x","jq":".object"}}}`))
	out, err = json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(out), `\"list\"`)
}

func TestHTTPEndpoints(t *testing.T) {
	cfg := testConfig(config.TransportHTTP)
	cfg.Metrics = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "notion_mcp_tool_calls_total 1")
	})
	srv, err := New(cfg)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()
	defer func() { _ = srv.Shutdown(context.Background()) }()

	for path, want := range map[string]string{
		"/healthz": "ok",
		"/metrics": "notion_mcp_tool_calls_total",
	} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		body, _ := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Contains(t, string(body), want, path)
	}

	resp, err := http.Get(ts.URL + "/nothing-here")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestSSEHandlerHealth(t *testing.T) {
	srv, err := New(testConfig(config.TransportSSE))
	require.NoError(t, err)
	require.NotNil(t, srv.Handler)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, "ok", rec.Body.String())
	require.NoError(t, srv.Shutdown(context.Background()))
}

func TestServeStdioNeedsStdioTransport(t *testing.T) {
	srv, err := New(testConfig(config.TransportSSE))
	require.NoError(t, err)
	err = srv.ServeStdio(context.Background(), strings.NewReader(""), io.Discard)
	require.Error(t, err)
}

func TestBaseURL(t *testing.T) {
	assert.Equal(t, "http://localhost:8050", baseURL(config.ServerSettings{Host: "0.0.0.0", Port: 8050}))
	assert.Equal(t, "http://10.0.0.2:9000", baseURL(config.ServerSettings{Host: "10.0.0.2", Port: 9000}))
}
