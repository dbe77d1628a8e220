package schemas

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tidwall/gjson"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/logging"
	"github.com/roivaz/notion-chakra-mcp/internal/notion"
)

// Executor runs adapter operations; *adapter.Adapter satisfies it.
type Executor interface {
	Execute(ctx context.Context, req adapter.ToolRequest) adapter.ToolResult
}

// Service fetches schemas through the adapter, so every Notion call it makes
// is retried like any tool call, and persists them in a Store.
type Service struct {
	exec  Executor
	store Store
	log   logging.Logger
}

func NewService(exec Executor, store Store, log logging.Logger) *Service {
	return &Service{exec: exec, store: store, log: log.WithName("schemas")}
}

// FetchResult summarizes a Fetch run.
type FetchResult struct {
	Config    string   `json:"config"`
	Databases []string `json:"databases"`
	Failed    []string `json:"failed,omitempty"`
}

// Fetch refreshes every database shared with the integration into config.
// Databases that fail individually are reported, not fatal.
func (s *Service) Fetch(ctx context.Context, config string) (FetchResult, error) {
	config = Key(config)
	index, err := s.listDatabases(ctx)
	if err != nil {
		return FetchResult{}, err
	}

	titles := make([]string, 0, len(index))
	for title := range index {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	res := FetchResult{Config: config}
	for _, title := range titles {
		schema, err := s.fetchOne(ctx, index[title])
		if err != nil {
			if ctx.Err() != nil {
				return FetchResult{}, err
			}
			s.log.Info("skipping database schema", "database", title, "error", err.Error())
			res.Failed = append(res.Failed, title)
			continue
		}
		if err := s.store.SaveSchema(ctx, config, schema); err != nil {
			return FetchResult{}, err
		}
		res.Databases = append(res.Databases, schema.Name())
	}
	if err := s.store.SaveIndex(ctx, config, index); err != nil {
		return FetchResult{}, err
	}
	s.log.Info("fetched database schemas", "config", config, "count", len(res.Databases), "failed", len(res.Failed))
	return res, nil
}

// Get returns the stored schema for database, fetching it from Notion when it
// is not cached. database may be a title or a Notion id.
func (s *Service) Get(ctx context.Context, config, database string) (DatabaseSchema, error) {
	config = Key(config)
	var (
		schema DatabaseSchema
		err    error
	)
	if id, idErr := notion.NormalizeID(database); idErr == nil {
		schema, err = s.store.LoadSchemaByID(ctx, config, id)
	} else {
		schema, err = s.store.LoadSchema(ctx, config, database)
	}
	if err == nil {
		return schema, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return DatabaseSchema{}, err
	}

	id, err := s.resolveID(ctx, config, database)
	if err != nil {
		return DatabaseSchema{}, err
	}
	s.log.Debug("schema cache miss", "config", config, "database", database)
	schema, err = s.fetchOne(ctx, id)
	if err != nil {
		return DatabaseSchema{}, err
	}
	if err := s.store.SaveSchema(ctx, config, schema); err != nil {
		return DatabaseSchema{}, err
	}
	return schema, nil
}

func (s *Service) List(ctx context.Context, config string) ([]string, error) {
	return s.store.ListSchemas(ctx, Key(config))
}

func (s *Service) Configs(ctx context.Context) ([]string, error) {
	return s.store.ListConfigs(ctx)
}

// resolveID finds the database id for a title, consulting the stored index
// and then Notion. Ids pass through.
func (s *Service) resolveID(ctx context.Context, config, database string) (string, error) {
	if id, err := notion.NormalizeID(database); err == nil {
		return id, nil
	}

	index, err := s.store.LoadIndex(ctx, config)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", err
	}
	if id, ok := lookup(index, database); ok {
		return id, nil
	}

	if index, err = s.listDatabases(ctx); err != nil {
		return "", err
	}
	if err := s.store.SaveIndex(ctx, config, index); err != nil {
		return "", err
	}
	if id, ok := lookup(index, database); ok {
		return id, nil
	}
	return "", fmt.Errorf("database %q is not shared with the integration: %w", database, ErrNotFound)
}

func lookup(index Index, database string) (string, bool) {
	if id, ok := index[database]; ok {
		return id, true
	}
	key := Key(database)
	for title, id := range index {
		if Key(title) == key {
			return id, true
		}
	}
	return "", false
}

// listDatabases pages through list_databases, one retried call per page.
func (s *Service) listDatabases(ctx context.Context) (Index, error) {
	index := Index{}
	params := adapter.Params{}
	for {
		res := s.exec.Execute(ctx, adapter.ToolRequest{Operation: adapter.OpListDatabases, Params: params})
		if !res.OK() {
			return nil, res.Failure
		}
		page := gjson.ParseBytes(res.Payload)
		page.Get("results").ForEach(func(_, db gjson.Result) bool {
			title := notion.PlainTitle(db)
			if title == "" {
				title = db.Get("id").String()
			}
			index[title] = db.Get("id").String()
			return true
		})
		next := page.Get("next_cursor").String()
		if !page.Get("has_more").Bool() || next == "" {
			return index, nil
		}
		params = adapter.Params{"start_cursor": next}
	}
}

func (s *Service) fetchOne(ctx context.Context, id string) (DatabaseSchema, error) {
	res := s.exec.Execute(ctx, adapter.ToolRequest{
		Operation: adapter.OpGetDatabase,
		Params:    adapter.Params{"database_id": id},
	})
	if !res.OK() {
		return DatabaseSchema{}, res.Failure
	}
	return Extract(res.Payload)
}
