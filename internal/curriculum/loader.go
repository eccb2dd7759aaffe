package curriculum

import (
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed course
var defaultCourse embed.FS

const theorySuffix = ".theory.md"

// Default loads the built-in Python fundamentals course.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(defaultCourse, "course")
	if err != nil {
		return nil, fmt.Errorf("open embedded course: %w", err)
	}
	return Load(sub)
}

// LoadDir loads a catalog from a directory on disk.
func LoadDir(dir string) (*Catalog, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("open curriculum dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("curriculum path %s is not a directory", dir)
	}
	return Load(os.DirFS(dir))
}

// Load walks fsys for module YAML files. A file named like the YAML with a
// .theory.md suffix supplies the module's theory text. YAML files without an
// id are ignored; any other invalid module fails the whole load, since a
// missing module would shift every later ordinal.
func Load(fsys fs.FS) (*Catalog, error) {
	var modules []Module

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isYAML(p) {
			return nil
		}

		m, ok, err := loadModule(fsys, p)
		if err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
		if ok {
			modules = append(modules, m)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	cat, err := NewCatalog(modules)
	if err != nil {
		return nil, fmt.Errorf("loading curriculum: %w", err)
	}

	slog.Info("curriculum loaded", "modules", cat.Len())
	return cat, nil
}

func isYAML(p string) bool {
	return strings.HasSuffix(p, ".yaml") || strings.HasSuffix(p, ".yml")
}

func loadModule(fsys fs.FS, p string) (Module, bool, error) {
	data, err := fs.ReadFile(fsys, p)
	if err != nil {
		return Module{}, false, err
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Module{}, false, fmt.Errorf("parse yaml: %w", err)
	}
	if id, _ := doc["id"].(string); id == "" {
		return Module{}, false, nil // not a module file
	}

	if err := validateDocument(doc); err != nil {
		return Module{}, false, err
	}

	var m Module
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Module{}, false, fmt.Errorf("decode module: %w", err)
	}

	theoryPath := strings.TrimSuffix(p, path.Ext(p)) + theorySuffix
	if notes, err := fs.ReadFile(fsys, theoryPath); err == nil {
		m.Theory = strings.TrimSpace(string(notes))
	}

	return m, true, nil
}

func validateDocument(doc map[string]any) error {
	result, err := moduleSchema.Validate(gojsonschema.NewGoLoader(doc))
	if err != nil {
		return fmt.Errorf("validate module: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("%w: %s", ErrInvalidModule, strings.Join(msgs, "; "))
}
