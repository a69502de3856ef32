package ai

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"github.com/qri-io/jsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Loader loads and caches compiled JSON schemas keyed by file name without
// extension ("analysis", "report", ...).
type Loader struct {
	fsys  fs.FS
	mu    sync.RWMutex
	cache map[string]*jsonschema.Schema
}

// NewLoader compiles every schemas/*.json file found in fsys. A nil fsys
// uses the schemas embedded in the binary.
func NewLoader(fsys fs.FS) (*Loader, error) {
	if fsys == nil {
		fsys = schemaFS
	}
	l := &Loader{
		fsys:  fsys,
		cache: make(map[string]*jsonschema.Schema),
	}
	if err := l.Reload(); err != nil {
		return nil, err
	}

	return l, nil
}

// GetSchema returns a compiled schema by name.
func (l *Loader) GetSchema(name string) (*jsonschema.Schema, bool) {
	l.mu.RLock()
	s, ok := l.cache[name]
	l.mu.RUnlock()

	return s, ok
}

// Reload recompiles all schemas.
func (l *Loader) Reload() error {
	entries, err := fs.ReadDir(l.fsys, "schemas")
	if err != nil {
		return fmt.Errorf("load schemas: %w", err)
	}

	newCache := make(map[string]*jsonschema.Schema)
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		b, err := fs.ReadFile(l.fsys, path.Join("schemas", e.Name()))
		if err != nil {
			return fmt.Errorf("read schema %s: %w", e.Name(), err)
		}
		rs := &jsonschema.Schema{}
		if err := json.Unmarshal(b, rs); err != nil {
			return fmt.Errorf("compile schema %s: %w", e.Name(), err)
		}

		newCache[strings.TrimSuffix(e.Name(), ".json")] = rs
	}

	l.mu.Lock()
	l.cache = newCache
	l.mu.Unlock()
	return nil
}

// Validate checks doc against the named schema and returns the joined
// violation messages as an error.
func (l *Loader) Validate(ctx context.Context, name string, doc []byte) error {
	schema, ok := l.GetSchema(name)
	if !ok || schema == nil {
		return fmt.Errorf("no schema found for %s", name)
	}

	verrs, err := schema.ValidateBytes(ctx, doc)
	if err != nil {
		return fmt.Errorf("schema validate error: %w", err)
	}
	if len(verrs) > 0 {
		var sb strings.Builder
		for i, v := range verrs {
			if i > 0 {
				sb.WriteString("; ")
			}
			sb.WriteString(v.PropertyPath)
			sb.WriteString(": ")
			sb.WriteString(v.Message)
		}
		return fmt.Errorf("response does not match schema: %s", sb.String())
	}

	return nil
}
