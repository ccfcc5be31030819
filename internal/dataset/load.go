package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"anibridge/internal/mapping"
)

const (
	keyIncludes = "$includes"
	keyMeta     = "$meta"
)

// Dataset is the merged content of one or more mapping files.
type Dataset struct {
	// Mappings are sorted by AniList id.
	Mappings []mapping.Mapping
	// Files lists every file read, includes first.
	Files []string
	// Skipped counts entries with a non-numeric key.
	Skipped int
}

type loader struct {
	entries  map[int]*entry
	sources  map[int][]string
	files    []string
	visiting map[string]bool
	loaded   map[string]bool
	skipped  int
}

// Load reads paths in order. Later files override earlier ones entry by
// entry, and a file overrides the files it includes.
func Load(paths ...string) (*Dataset, error) {
	l := &loader{
		entries:  make(map[int]*entry),
		sources:  make(map[int][]string),
		visiting: make(map[string]bool),
		loaded:   make(map[string]bool),
	}
	for _, p := range paths {
		if err := l.loadFile(p); err != nil {
			return nil, err
		}
	}

	ids := make([]int, 0, len(l.entries))
	for id := range l.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	ds := &Dataset{Files: l.files, Skipped: l.skipped}
	for _, id := range ids {
		m, err := l.entries[id].toMapping(id)
		if err != nil {
			return nil, fmt.Errorf("anilist id %d: %w", id, err)
		}
		m.Sources = l.sources[id]
		ds.Mappings = append(ds.Mappings, m)
	}
	return ds, nil
}

func (l *loader) loadFile(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}
	if l.visiting[abs] {
		return fmt.Errorf("include cycle at %s", abs)
	}
	if l.loaded[abs] {
		return nil
	}
	l.visiting[abs] = true
	defer delete(l.visiting, abs)

	doc, err := decodeFile(abs)
	if err != nil {
		return err
	}

	includes, err := includeList(doc[keyIncludes])
	if err != nil {
		return fmt.Errorf("%s: %w", abs, err)
	}
	for _, inc := range includes {
		if !filepath.IsAbs(inc) {
			inc = filepath.Join(filepath.Dir(abs), inc)
		}
		if err := l.loadFile(inc); err != nil {
			return err
		}
	}

	name := filepath.Base(abs)
	for key, raw := range doc {
		if strings.HasPrefix(key, "$") {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil || id <= 0 {
			l.skipped++
			continue
		}
		fields, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("%s: entry %s: expected an object, got %T", abs, key, raw)
		}
		next := entry{fields: make(map[string]any, len(fields))}
		for k, v := range fields {
			if knownFields[k] {
				next.fields[k] = v
			}
		}
		current, ok := l.entries[id]
		if !ok {
			current = &entry{}
			l.entries[id] = current
		}
		current.merge(next)
		if !slices.Contains(l.sources[id], name) {
			l.sources[id] = append(l.sources[id], name)
		}
	}

	l.loaded[abs] = true
	l.files = append(l.files, abs)
	return nil
}

func decodeFile(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	doc := map[string]any{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		decoder := json.NewDecoder(bytes.NewReader(data))
		decoder.UseNumber()
		if err := decoder.Decode(&doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return nil, fmt.Errorf("unsupported dataset format %q", filepath.Ext(path))
	}
	return doc, nil
}

func includeList(v any) ([]string, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		list = []any{v}
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("%s: expected file names, got %T", keyIncludes, item)
		}
		if strings.Contains(s, "://") {
			return nil, fmt.Errorf("%s: remote include %q is not supported", keyIncludes, s)
		}
		out = append(out, s)
	}
	return out, nil
}
