package schemas

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	"github.com/roivaz/notion-chakra-mcp/internal/notion"
)

const indexFile = "_index.yaml"

// FileStore keeps one YAML file per schema under <root>/schemas/<config>/.
type FileStore struct {
	root string
}

func NewFileStore(dataDir string) *FileStore {
	return &FileStore{root: filepath.Join(dataDir, "schemas")}
}

func (s *FileStore) dir(config string) string {
	return filepath.Join(s.root, Key(config))
}

func (s *FileStore) SaveSchema(_ context.Context, config string, schema DatabaseSchema) error {
	return s.write(filepath.Join(s.dir(config), schema.Name()+".yaml"), schema)
}

func (s *FileStore) LoadSchema(_ context.Context, config, name string) (DatabaseSchema, error) {
	var schema DatabaseSchema
	err := s.read(filepath.Join(s.dir(config), Key(name)+".yaml"), &schema)
	return schema, err
}

// LoadSchemaByID scans the schema files of config for id.
func (s *FileStore) LoadSchemaByID(ctx context.Context, config, id string) (DatabaseSchema, error) {
	names, err := s.ListSchemas(ctx, config)
	if err != nil {
		return DatabaseSchema{}, err
	}
	for _, name := range names {
		schema, err := s.LoadSchema(ctx, config, name)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return DatabaseSchema{}, err
		}
		if sameID(schema.ID, id) {
			return schema, nil
		}
	}
	return DatabaseSchema{}, ErrNotFound
}

func sameID(a, b string) bool {
	na, errA := notion.NormalizeID(a)
	nb, errB := notion.NormalizeID(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return na == nb
}

func (s *FileStore) ListSchemas(_ context.Context, config string) ([]string, error) {
	entries, err := os.ReadDir(s.dir(config))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list schemas: %w", err)
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == indexFile || !strings.HasSuffix(name, ".yaml") {
			continue
		}
		names = append(names, strings.TrimSuffix(name, ".yaml"))
	}
	sort.Strings(names)
	return names, nil
}

func (s *FileStore) ListConfigs(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}
	var configs []string
	for _, e := range entries {
		if e.IsDir() {
			configs = append(configs, e.Name())
		}
	}
	sort.Strings(configs)
	return configs, nil
}

func (s *FileStore) SaveIndex(_ context.Context, config string, index Index) error {
	return s.write(filepath.Join(s.dir(config), indexFile), index)
}

func (s *FileStore) LoadIndex(_ context.Context, config string) (Index, error) {
	var index Index
	err := s.read(filepath.Join(s.dir(config), indexFile), &index)
	return index, err
}

// write replaces path atomically so concurrent readers never see a partial file.
func (s *FileStore) write(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", filepath.Base(path), err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func (s *FileStore) read(path string, v any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
