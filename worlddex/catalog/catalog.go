package catalog

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/sahilm/fuzzy"
)

// Category is a grouping of catalog objects, e.g. "birds".
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Object is a single discoverable catalog entry.
type Object struct {
	Name        string `json:"name"`
	CategoryID  string `json:"category_id"`
	Description string `json:"description,omitempty"`
}

// Provider supplies the catalog content the quest engine generates from and
// resolves possibly inexact object names from discovery events.
type Provider interface {
	Categories() []Category
	Objects() []Object
	FindObject(name string) (Object, bool)
}

type catalogFile struct {
	Categories []Category `json:"categories"`
	Objects    []Object   `json:"objects"`
}

// FileProvider loads a JSON catalog file once and serves it from memory.
type FileProvider struct {
	mu         sync.RWMutex
	categories []Category
	objects    []Object
}

// LoadFile reads the catalog at path. Entries missing required fields are
// skipped rather than failing the whole load.
func LoadFile(path string) (*FileProvider, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}

	var raw catalogFile
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	p := &FileProvider{}
	skipped := 0
	for _, c := range raw.Categories {
		if c.ID == "" || c.Name == "" {
			skipped++
			continue
		}
		p.categories = append(p.categories, c)
	}
	for _, o := range raw.Objects {
		if o.Name == "" || o.CategoryID == "" {
			skipped++
			continue
		}
		p.objects = append(p.objects, o)
	}

	if skipped > 0 {
		slog.Warn("Skipped malformed catalog entries",
			slog.String("path", path),
			slog.Int("skipped", skipped))
	}
	slog.Info("Catalog loaded",
		slog.String("path", path),
		slog.Int("categories", len(p.categories)),
		slog.Int("objects", len(p.objects)))

	return p, nil
}

func (p *FileProvider) Categories() []Category {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Category(nil), p.categories...)
}

func (p *FileProvider) Objects() []Object {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Object(nil), p.objects...)
}

// objectNames implements fuzzy.Source over the object list.
type objectNames []Object

func (o objectNames) Len() int            { return len(o) }
func (o objectNames) String(i int) string { return o[i].Name }

// FindObject resolves a possibly inexact object name to a catalog entry.
func (p *FileProvider) FindObject(name string) (Object, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return FindObjectIn(p.objects, name)
}

// FindObjectIn resolves name against the object list. Exact matches
// (case-insensitive) win; otherwise the best fuzzy match is returned, so
// slightly misspelled discovery events still land.
func FindObjectIn(objects []Object, name string) (Object, bool) {
	for _, o := range objects {
		if strings.EqualFold(o.Name, name) {
			return o, true
		}
	}

	matches := fuzzy.FindFrom(name, objectNames(objects))
	if len(matches) == 0 {
		return Object{}, false
	}
	return objects[matches[0].Index], true
}

// ObjectsInCategory returns every object belonging to the category.
func ObjectsInCategory(objects []Object, categoryID string) []Object {
	var out []Object
	for _, o := range objects {
		if o.CategoryID == categoryID {
			out = append(out, o)
		}
	}
	return out
}
