package content

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dgallion1/freelink/internal/pathstore"
)

// DefaultPrefix is the pathstore key prefix content is stored under.
const DefaultPrefix = "freelink/content"

// KV is the subset of the pathstore client used for content sync.
type KV interface {
	Put(ctx context.Context, key string, req pathstore.PutRequest) error
	Delete(ctx context.Context, key string, recursive bool) error
	List(ctx context.Context, key string, limit int) ([]pathstore.Entry, error)
}

// Push uploads every record of f under prefix. With replace set, existing
// content under prefix is deleted first.
func Push(ctx context.Context, kv KV, prefix string, f *Fixture, replace bool, log *slog.Logger) error {
	if err := f.Validate(); err != nil {
		return err
	}
	if replace {
		if err := kv.Delete(ctx, prefix, true); err != nil {
			return fmt.Errorf("clear %s: %w", prefix, err)
		}
	}

	put := func(key string, v any) error {
		if err := kv.Put(ctx, key, pathstore.PutRequest{Value: v, Source: "freelink"}); err != nil {
			return fmt.Errorf("push content: %w", err)
		}
		return nil
	}
	for _, n := range f.Nodes {
		if err := put(prefix+"/nodes/"+strconv.Itoa(n.ID), n); err != nil {
			return err
		}
	}
	for _, u := range f.Users {
		if err := put(prefix+"/users/"+strconv.Itoa(u.ID), u); err != nil {
			return err
		}
	}
	for _, file := range f.Files {
		if err := put(prefix+"/files/"+file.Name, file); err != nil {
			return err
		}
	}

	log.Info("content pushed",
		"prefix", prefix,
		"nodes", len(f.Nodes),
		"users", len(f.Users),
		"files", len(f.Files),
	)
	return nil
}

// Load reads the content stored under prefix into a fixture.
func Load(ctx context.Context, kv KV, prefix string) (*Fixture, error) {
	var f Fixture
	if err := loadInto(ctx, kv, prefix+"/nodes", &f.Nodes); err != nil {
		return nil, err
	}
	if err := loadInto(ctx, kv, prefix+"/users", &f.Users); err != nil {
		return nil, err
	}
	if err := loadInto(ctx, kv, prefix+"/files", &f.Files); err != nil {
		return nil, err
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func loadInto[T any](ctx context.Context, kv KV, key string, out *[]T) error {
	entries, err := kv.List(ctx, key, 0)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}
	for _, e := range entries {
		var v T
		if err := e.Decode(&v); err != nil {
			return fmt.Errorf("load content: %w", err)
		}
		*out = append(*out, v)
	}
	return nil
}

// Open returns a memory store from the fixture at path when set, otherwise
// from the content under prefix in kv when kv is non-nil, otherwise an empty
// store.
func Open(ctx context.Context, path string, kv KV, prefix string) (*Memory, error) {
	switch {
	case path != "":
		f, err := LoadFixture(path)
		if err != nil {
			return nil, err
		}
		return NewMemory(f), nil
	case kv != nil:
		f, err := Load(ctx, kv, prefix)
		if err != nil {
			return nil, err
		}
		return NewMemory(f), nil
	default:
		return NewMemory(nil), nil
	}
}
