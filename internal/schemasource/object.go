package schemasource

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sqlscribe/sqlscribe/internal/storage"
)

const maxObjectBytes = 32 << 20

// ObjectSource assembles schema text from objects in a bucket. Keys ending in
// "/" are expanded to every .sql and .parquet object beneath them.
type ObjectSource struct {
	store storage.ObjectStore
	keys  []string
}

func NewObjectSource(store storage.ObjectStore, keys []string) (*ObjectSource, error) {
	if store == nil {
		return nil, fmt.Errorf("object store is required")
	}
	cleaned := make([]string, 0, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			cleaned = append(cleaned, key)
		}
	}
	if len(cleaned) == 0 {
		return nil, fmt.Errorf("at least one object key is required")
	}
	return &ObjectSource{store: store, keys: cleaned}, nil
}

func (s *ObjectSource) Name() string {
	return "objectstore"
}

func (s *ObjectSource) Load(ctx context.Context) (string, error) {
	keys, err := s.resolveKeys(ctx)
	if err != nil {
		return "", err
	}
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		text, err := s.loadObject(ctx, key)
		if err != nil {
			return "", err
		}
		if text = strings.TrimSpace(text); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n") + "\n", nil
}

func (s *ObjectSource) resolveKeys(ctx context.Context) ([]string, error) {
	var out []string
	seen := map[string]struct{}{}
	add := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	for _, key := range s.keys {
		if !storage.IsDirectory(key) {
			add(key)
			continue
		}
		objects, err := s.store.List(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("list schema objects under %q: %w", key, err)
		}
		var found []string
		for _, object := range objects {
			if _, err := storage.FormatOf(object.Key); err == nil {
				found = append(found, object.Key)
			}
		}
		sort.Strings(found)
		for _, key := range found {
			add(key)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no schema objects found")
	}
	return out, nil
}

func (s *ObjectSource) loadObject(ctx context.Context, key string) (string, error) {
	format, err := storage.FormatOf(key)
	if err != nil {
		return "", err
	}
	data, err := storage.ReadAll(ctx, s.store, key, maxObjectBytes)
	if err != nil {
		return "", fmt.Errorf("read schema object %q: %w", key, err)
	}

	switch format {
	case storage.FormatSQL:
		return string(data), nil
	default:
		return DescribeParquet(storage.TableName(key), data)
	}
}
