package mcp

import (
	"net"
	"net/http"
	"strconv"

	"github.com/mark3labs/mcp-go/server"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/config"
	"github.com/roivaz/notion-chakra-mcp/internal/jq"
	"github.com/roivaz/notion-chakra-mcp/internal/logging"
	"github.com/roivaz/notion-chakra-mcp/internal/mcp/tools"
)

const DefaultHTTPEndpoint = "/mcp"

type Config struct {
	ToolAdapters map[string]ToolAdapter
	Transport    string
	SSEOptions   []server.SSEOption
	HTTPOptions  []server.StreamableHTTPOption
	// HTTPEndpoint is where the streamable HTTP transport is mounted.
	HTTPEndpoint string
	// Metrics is mounted at /metrics on the HTTP transports when set.
	Metrics http.Handler
	Logger  logging.Logger
}

// Dependencies are the services the tool handlers run against.
type Dependencies struct {
	Executor  tools.Executor
	Schemas   tools.SchemaService
	Databases config.DatabaseIDs
	Filter    *jq.Filter
}

// DefaultConfig wires every tool for settings.Server.Transport.
func DefaultConfig(settings config.Settings, deps Dependencies) Config {
	return Config{
		ToolAdapters: ToolAdapters(deps),
		Transport:    settings.Server.Transport,
		SSEOptions: []server.SSEOption{
			server.WithBaseURL(baseURL(settings.Server)),
		},
		HTTPOptions: []server.StreamableHTTPOption{
			server.WithEndpointPath(DefaultHTTPEndpoint),
			server.WithStateLess(true),
		},
		HTTPEndpoint: DefaultHTTPEndpoint,
	}
}

// ToolAdapters returns a handler for every tool name. Schema tools are left
// out when deps.Schemas is nil. Read tools get a default jq filter when
// deps.Filter is nil.
func ToolAdapters(deps Dependencies) map[string]ToolAdapter {
	filter := deps.Filter
	if filter == nil {
		filter = jq.NewFilter(jq.DefaultTimeout)
	}

	adapters := map[string]ToolAdapter{}
	for _, op := range adapter.Operations() {
		h := &tools.NotionHandler{Executor: deps.Executor, Operation: op}
		if readOperations[op] {
			h.Filter = filter
		}
		adapters[NotionToolName(op)] = h
	}

	adapters[ToolCreateTask] = &tools.CreateTaskHandler{Executor: deps.Executor, DatabaseID: deps.Databases.Tasks}
	adapters[ToolCreateProject] = &tools.CreateProjectHandler{Executor: deps.Executor, DatabaseID: deps.Databases.Projects}
	adapters[ToolCreatePillar] = &tools.CreatePillarHandler{Executor: deps.Executor, DatabaseID: deps.Databases.Pillars}
	adapters[ToolCreateKeyResult] = &tools.CreateKeyResultHandler{Executor: deps.Executor, DatabaseID: deps.Databases.KeyResults}
	adapters[ToolTest] = tools.TestToolHandler{}

	if deps.Schemas != nil {
		adapters[ToolFetchSchemas] = &tools.FetchSchemasHandler{Service: deps.Schemas}
		adapters[ToolGetSchema] = &tools.GetSchemaHandler{Service: deps.Schemas}
		adapters[ToolListSchemas] = &tools.ListSchemasHandler{Service: deps.Schemas}
		adapters[ToolListConfigs] = &tools.ListConfigsHandler{Service: deps.Schemas}
	}
	return adapters
}

// baseURL is advertised to SSE clients in the endpoint event, so wildcard
// listen addresses are replaced with localhost.
func baseURL(s config.ServerSettings) string {
	host := s.Host
	switch host {
	case "", "0.0.0.0", "::":
		host = "localhost"
	}
	return "http://" + net.JoinHostPort(host, strconv.Itoa(s.Port))
}
