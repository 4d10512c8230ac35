// Package recordstore is a hierarchical JSON document store addressed by
// slash-separated paths such as "patients/<id>" or "tests/CBC".
//
// Reading a path returns the document stored there with any descendant nodes
// folded in under their key. A path with no document of its own but with
// children reads as an object keyed by child name.
package recordstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrInvalidPath = errors.New("invalid record path")
	ErrNotObject   = errors.New("partial update must be a JSON object")
)

// Store is the record-store collaborator every domain package is built on.
type Store interface {
	Get(ctx context.Context, path string) (json.RawMessage, error)
	Set(ctx context.Context, path string, v any) error
	Update(ctx context.Context, path string, partial any) error
	Delete(ctx context.Context, path string) error
	// Keys lists the immediate child names under path in ascending order.
	Keys(ctx context.Context, path string) ([]string, error)
}

// Child joins a child key onto path. Keys may not be empty or contain "/".
func Child(path, key string) (string, error) {
	if key == "" || strings.Contains(key, "/") {
		return "", fmt.Errorf("%w: child key %q", ErrInvalidPath, key)
	}
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}
	return p + "/" + key, nil
}

// GetInto reads path and decodes it into dst.
func GetInto(ctx context.Context, s Store, path string, dst any) error {
	raw, err := s.Get(ctx, path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func cleanPath(path string) (string, error) {
	p := strings.Trim(path, "/")
	if p == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" {
			return "", fmt.Errorf("%w: %q has an empty segment", ErrInvalidPath, path)
		}
	}
	return p, nil
}

func parentOf(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[:i]
	}
	return ""
}

func encodeObject(partial any) (json.RawMessage, error) {
	raw, err := json.Marshal(partial)
	if err != nil {
		return nil, fmt.Errorf("encode update: %w", err)
	}
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return nil, ErrNotObject
	}
	return raw, nil
}

// childNames returns the distinct first segments below root among paths.
func childNames(root string, paths []string) []string {
	prefix := root + "/"
	seen := make(map[string]bool)
	var names []string
	for _, p := range paths {
		if !strings.HasPrefix(p, prefix) {
			continue
		}
		name, _, _ := strings.Cut(p[len(prefix):], "/")
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// assemble folds a subtree of stored nodes into the value read at root.
func assemble(root string, nodes map[string]json.RawMessage) (json.RawMessage, error) {
	paths := make([]string, 0, len(nodes))
	for p := range nodes {
		paths = append(paths, p)
	}
	return assembleNode(root, nodes, paths)
}

func assembleNode(root string, nodes map[string]json.RawMessage, paths []string) (json.RawMessage, error) {
	own, hasOwn := nodes[root]
	children := childNames(root, paths)
	if len(children) == 0 {
		if !hasOwn {
			return nil, ErrNotFound
		}
		return own, nil
	}

	obj := make(map[string]json.RawMessage)
	if hasOwn {
		// A scalar document shadowed by children reads as its children only.
		if err := json.Unmarshal(own, &obj); err != nil {
			obj = make(map[string]json.RawMessage)
		}
	}
	for _, name := range children {
		v, err := assembleNode(root+"/"+name, nodes, paths)
		if err != nil {
			return nil, err
		}
		obj[name] = v
	}
	return json.Marshal(obj)
}
