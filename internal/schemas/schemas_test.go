package schemas

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roivaz/notion-chakra-mcp/internal/adapter"
	"github.com/roivaz/notion-chakra-mcp/internal/logging"
	"github.com/roivaz/notion-chakra-mcp/internal/notion"
)

const tasksDB = `{
  "object": "database",
  "id": "11111111-2222-3333-4444-555555555555",
  "title": [{"plain_text": "Tasks"}],
  "properties": {
    "Name": {"id": "title", "type": "title", "title": {}},
    "Status": {"id": "a", "type": "select", "select": {"options": [{"name": "Done"}]}},
    "Project": {"id": "b", "type": "relation", "relation": {"database_id": "abc"}}
  }
}`

func TestExtract(t *testing.T) {
	s, err := Extract(json.RawMessage(tasksDB))
	require.NoError(t, err)
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", s.ID)
	assert.Equal(t, "Tasks", s.Title)
	require.Len(t, s.Properties, 3)
	assert.Equal(t, "title", s.Properties["Name"].Type)
	assert.Nil(t, s.Properties["Name"].Config)
	assert.Equal(t, "select", s.Properties["Status"].Type)
	assert.Contains(t, s.Properties["Status"].Config, "options")
	assert.Equal(t, "abc", s.Properties["Project"].Config["database_id"])

	_, err = Extract(json.RawMessage(`{"object":"page"}`))
	assert.Error(t, err)
	_, err = Extract(json.RawMessage(`{`))
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	assert.Equal(t, "key_results", Key("Key Results"))
	assert.Equal(t, "okrs_2024", Key("../OKRs 2024"))
	assert.Equal(t, "default", Key("  "))
}

func TestSchemaName(t *testing.T) {
	assert.Equal(t, "key_results", DatabaseSchema{ID: "11111111-2222-3333-4444-555555555555", Title: "Key Results"}.Name())
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", DatabaseSchema{ID: "11111111-2222-3333-4444-555555555555"}.Name())
	assert.Equal(t, "11111111-2222-3333-4444-555555555555", DatabaseSchema{ID: "11111111-2222-3333-4444-555555555555", Title: "???"}.Name())
	assert.Equal(t, "default", DatabaseSchema{}.Name())
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)

	_, err := store.LoadSchema(ctx, "work", "tasks")
	require.ErrorIs(t, err, ErrNotFound)
	configs, err := store.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Empty(t, configs)

	schema, err := Extract(json.RawMessage(tasksDB))
	require.NoError(t, err)
	require.NoError(t, store.SaveSchema(ctx, "Work", schema))
	require.NoError(t, store.SaveIndex(ctx, "Work", Index{"Tasks": schema.ID}))

	assert.FileExists(t, filepath.Join(dir, "schemas", "work", "tasks.yaml"))

	got, err := store.LoadSchema(ctx, "work", "Tasks")
	require.NoError(t, err)
	assert.Equal(t, schema.ID, got.ID)
	assert.Equal(t, schema.Properties["Status"].Type, got.Properties["Status"].Type)

	names, err := store.ListSchemas(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks"}, names)

	configs, err = store.ListConfigs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, configs)

	index, err := store.LoadIndex(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, Index{"Tasks": schema.ID}, index)

	// last write wins
	schema.Properties = map[string]Property{"Name": {Type: "title"}}
	require.NoError(t, store.SaveSchema(ctx, "work", schema))
	got, err = store.LoadSchema(ctx, "work", "tasks")
	require.NoError(t, err)
	assert.Len(t, got.Properties, 1)
}

func TestFileStoreUntitledSchemasDoNotCollide(t *testing.T) {
	ctx := context.Background()
	store := NewFileStore(t.TempDir())
	a := DatabaseSchema{ID: "11111111-2222-3333-4444-555555555555", Properties: map[string]Property{"Name": {Type: "title"}}}
	b := DatabaseSchema{ID: "99999999-2222-3333-4444-555555555555", Properties: map[string]Property{"Title": {Type: "title"}}}
	require.NoError(t, store.SaveSchema(ctx, "work", a))
	require.NoError(t, store.SaveSchema(ctx, "work", b))

	names, err := store.ListSchemas(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, []string{a.ID, b.ID}, names)

	got, err := store.LoadSchemaByID(ctx, "work", "99999999222233334444555555555555")
	require.NoError(t, err)
	assert.Contains(t, got.Properties, "Title")

	_, err = store.LoadSchemaByID(ctx, "work", "00000000-2222-3333-4444-555555555555")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.LoadSchemaByID(ctx, "other", a.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileStoreCorruptFile(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store := NewFileStore(dir)
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "schemas", "work"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "schemas", "work", "tasks.yaml"), []byte("properties: [unterminated"), 0o644))

	_, err := store.LoadSchema(ctx, "work", "tasks")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

// fakeExecutor serves list_databases and get_database from fixtures.
type fakeExecutor struct {
	mu        sync.Mutex
	databases map[string]string
	pages     []string
	calls     map[string]int
	fail      map[string]bool
}

func (f *fakeExecutor) Execute(_ context.Context, req adapter.ToolRequest) adapter.ToolResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[req.Operation]++

	switch req.Operation {
	case adapter.OpListDatabases:
		cursor, _ := req.Params.String("start_cursor")
		page := 0
		if cursor == "c2" {
			page = 1
		}
		return adapter.ToolResult{Operation: req.Operation, Payload: json.RawMessage(f.pages[page]), Attempts: 1}
	case adapter.OpGetDatabase:
		id, _ := req.Params.String("database_id")
		if f.fail[id] {
			return adapter.ToolResult{Operation: req.Operation, Failure: &adapter.Failure{Kind: notion.KindPermission, Message: "restricted", Attempts: 1}}
		}
		return adapter.ToolResult{Operation: req.Operation, Payload: json.RawMessage(f.databases[id]), Attempts: 1}
	}
	return adapter.ToolResult{Operation: req.Operation, Failure: &adapter.Failure{Kind: notion.KindValidation, Message: "unexpected"}}
}

func newFake() *fakeExecutor {
	return &fakeExecutor{
		databases: map[string]string{
			"11111111-2222-3333-4444-555555555555": tasksDB,
			"99999999-2222-3333-4444-555555555555": `{"object":"database","id":"99999999-2222-3333-4444-555555555555","title":[{"plain_text":"Pillars"}],"properties":{"Name":{"type":"title","title":{}}}}`,
		},
		pages: []string{
			`{"results":[{"id":"11111111-2222-3333-4444-555555555555","title":[{"plain_text":"Tasks"}]}],"has_more":true,"next_cursor":"c2"}`,
			`{"results":[{"id":"99999999-2222-3333-4444-555555555555","title":[{"plain_text":"Pillars"}]}],"has_more":false,"next_cursor":null}`,
		},
	}
}

func TestServiceFetch(t *testing.T) {
	ctx := context.Background()
	exec := newFake()
	exec.fail = map[string]bool{"99999999-2222-3333-4444-555555555555": true}
	svc := NewService(exec, NewFileStore(t.TempDir()), logging.Discard())

	res, err := svc.Fetch(ctx, "Work")
	require.NoError(t, err)
	assert.Equal(t, "work", res.Config)
	assert.Equal(t, []string{"tasks"}, res.Databases)
	assert.Equal(t, []string{"Pillars"}, res.Failed)
	assert.Equal(t, 2, exec.calls[adapter.OpListDatabases])

	names, err := svc.List(ctx, "work")
	require.NoError(t, err)
	assert.Equal(t, []string{"tasks"}, names)
	configs, err := svc.Configs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"work"}, configs)
}

func TestServiceGetCachesAfterFetch(t *testing.T) {
	ctx := context.Background()
	exec := newFake()
	svc := NewService(exec, NewFileStore(t.TempDir()), logging.Discard())

	s, err := svc.Get(ctx, "default", "Pillars")
	require.NoError(t, err)
	assert.Equal(t, "Pillars", s.Title)
	assert.Equal(t, 1, exec.calls[adapter.OpGetDatabase])

	s, err = svc.Get(ctx, "default", "pillars")
	require.NoError(t, err)
	assert.Equal(t, "Pillars", s.Title)
	assert.Equal(t, 1, exec.calls[adapter.OpGetDatabase], "second lookup is served from the store")
}

func TestServiceGetUnknownDatabase(t *testing.T) {
	svc := NewService(newFake(), NewFileStore(t.TempDir()), logging.Discard())
	_, err := svc.Get(context.Background(), "default", "Meetings")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestServiceGetByID(t *testing.T) {
	exec := newFake()
	svc := NewService(exec, NewFileStore(t.TempDir()), logging.Discard())
	s, err := svc.Get(context.Background(), "default", "11111111222233334444555555555555")
	require.NoError(t, err)
	assert.Equal(t, "Tasks", s.Title)
	assert.Zero(t, exec.calls[adapter.OpListDatabases])
}

func TestServiceGetByIDUsesStore(t *testing.T) {
	ctx := context.Background()
	exec := newFake()
	svc := NewService(exec, NewFileStore(t.TempDir()), logging.Discard())

	for _, id := range []string{
		"11111111222233334444555555555555",
		"11111111-2222-3333-4444-555555555555",
		"https://www.notion.so/Tasks-11111111222233334444555555555555",
	} {
		s, err := svc.Get(ctx, "default", id)
		require.NoError(t, err)
		assert.Equal(t, "Tasks", s.Title)
	}
	assert.Equal(t, 1, exec.calls[adapter.OpGetDatabase])

	// a title lookup finds the schema stored by the id lookup
	_, err := svc.Get(ctx, "default", "Tasks")
	require.NoError(t, err)
	assert.Equal(t, 1, exec.calls[adapter.OpGetDatabase])
}

func TestServiceFetchIsOrdered(t *testing.T) {
	db := func(id, title string) string {
		return `{"object":"database","id":"` + id + `","title":[{"plain_text":"` + title + `"}],"properties":{}}`
	}
	exec := &fakeExecutor{
		databases: map[string]string{
			"a1111111-2222-3333-4444-555555555555": db("a1111111-2222-3333-4444-555555555555", "Tasks"),
			"b1111111-2222-3333-4444-555555555555": db("b1111111-2222-3333-4444-555555555555", "Alpha"),
			"c1111111-2222-3333-4444-555555555555": db("c1111111-2222-3333-4444-555555555555", "Pillars"),
		},
		pages: []string{`{"results":[
			{"id":"a1111111-2222-3333-4444-555555555555","title":[{"plain_text":"Tasks"}]},
			{"id":"b1111111-2222-3333-4444-555555555555","title":[{"plain_text":"Alpha"}]},
			{"id":"c1111111-2222-3333-4444-555555555555","title":[{"plain_text":"Pillars"}]},
			{"id":"d1111111-2222-3333-4444-555555555555","title":[{"plain_text":"Zeta"}]},
			{"id":"e1111111-2222-3333-4444-555555555555","title":[{"plain_text":"Meetings"}]}
		],"has_more":false}`},
		fail: map[string]bool{
			"d1111111-2222-3333-4444-555555555555": true,
			"e1111111-2222-3333-4444-555555555555": true,
		},
	}
	svc := NewService(exec, NewFileStore(t.TempDir()), logging.Discard())

	for i := 0; i < 5; i++ {
		res, err := svc.Fetch(context.Background(), "work")
		require.NoError(t, err)
		assert.Equal(t, []string{"alpha", "pillars", "tasks"}, res.Databases)
		assert.Equal(t, []string{"Meetings", "Zeta"}, res.Failed)
	}
}

func TestServiceFetchKeepsUntitledDatabasesApart(t *testing.T) {
	untitled := func(id string) string {
		return `{"object":"database","id":"` + id + `","title":[],"properties":{"Name":{"type":"title","title":{}}}}`
	}
	exec := &fakeExecutor{
		databases: map[string]string{
			"a1111111-2222-3333-4444-555555555555": untitled("a1111111-2222-3333-4444-555555555555"),
			"b1111111-2222-3333-4444-555555555555": untitled("b1111111-2222-3333-4444-555555555555"),
		},
		pages: []string{`{"results":[
			{"id":"a1111111-2222-3333-4444-555555555555","title":[]},
			{"id":"b1111111-2222-3333-4444-555555555555","title":[]}
		],"has_more":false}`},
	}
	svc := NewService(exec, NewFileStore(t.TempDir()), logging.Discard())

	res, err := svc.Fetch(context.Background(), "work")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"a1111111-2222-3333-4444-555555555555",
		"b1111111-2222-3333-4444-555555555555",
	}, res.Databases)

	names, err := svc.List(context.Background(), "work")
	require.NoError(t, err)
	assert.Len(t, names, 2)
}
