package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"etiquetas/internal"
)

//go:embed defaults.yaml
var defaultTablesYAML []byte

const (
	KindColor = "color"
	KindModel = "model"
)

// Tables holds the colour and model lookup tables. A Tables value is never
// mutated after construction, so one instance is shared by every parse.
type Tables struct {
	colors colorIndex
	models map[string]string
}

type tablesDocument struct {
	Colors map[string]string `yaml:"colors" json:"colors"`
	Models map[string]string `yaml:"models" json:"models"`
}

// OverrideSource supplies operator-maintained table entries, usually from
// storage after a remote sync.
type OverrideSource interface {
	ListCodeOverrides() ([]internal.CodeOverride, error)
}

type LoadOptions struct {
	Path      string
	Overrides OverrideSource
}

// NewTables copies the given maps; later edits to them do not leak in.
func NewTables(colors, models map[string]string) *Tables {
	c := make(map[string]string, len(colors))
	for token, canonical := range colors {
		key := colorKey(token)
		canonical = strings.TrimSpace(canonical)
		if key == "" || canonical == "" {
			continue
		}
		c[key] = canonical
	}
	m := make(map[string]string, len(models))
	for code, name := range models {
		key := modelKey(code)
		name = strings.TrimSpace(name)
		if key == "" || name == "" {
			continue
		}
		m[key] = name
	}
	return &Tables{colors: buildColorIndex(c), models: m}
}

// Default returns the tables compiled into the binary.
func Default() *Tables {
	doc, err := decodeTables(defaultTablesYAML)
	if err != nil {
		panic(fmt.Sprintf("embedded tables: %v", err))
	}
	return NewTables(doc.Colors, doc.Models)
}

// Load layers the embedded defaults, an optional YAML file and stored
// overrides, in that order.
func Load(opts LoadOptions) (*Tables, error) {
	doc, err := decodeTables(defaultTablesYAML)
	if err != nil {
		return nil, fmt.Errorf("embedded tables: %w", err)
	}

	if strings.TrimSpace(opts.Path) != "" {
		blob, err := os.ReadFile(opts.Path)
		if err != nil {
			return nil, fmt.Errorf("read tables file: %w", err)
		}
		extra, err := decodeTables(blob)
		if err != nil {
			return nil, fmt.Errorf("parse tables file %s: %w", opts.Path, err)
		}
		merge(doc.Colors, extra.Colors, colorKey)
		merge(doc.Models, extra.Models, modelKey)
	}

	if opts.Overrides != nil {
		rows, err := opts.Overrides.ListCodeOverrides()
		if err != nil {
			return nil, fmt.Errorf("load table overrides: %w", err)
		}
		for _, row := range rows {
			switch row.Kind {
			case KindColor:
				doc.Colors[colorKey(row.Token)] = row.Canonical
			case KindModel:
				doc.Models[modelKey(row.Token)] = row.Canonical
			}
		}
	}

	return NewTables(doc.Colors, doc.Models), nil
}

// LookupColor returns the canonical name of the longest token found in the
// folded colour text.
func (t *Tables) LookupColor(folded string) (string, bool) {
	_, canonical, ok := t.colors.find(folded)
	return canonical, ok
}

func (t *Tables) LookupModel(code string) (string, bool) {
	name, ok := t.models[modelKey(code)]
	return name, ok
}

func (t *Tables) Len() (colors, models int) {
	return len(t.colors.entries), len(t.models)
}

func decodeTables(blob []byte) (tablesDocument, error) {
	var doc tablesDocument
	if err := yaml.Unmarshal(blob, &doc); err != nil {
		return tablesDocument{}, err
	}
	colors := map[string]string{}
	merge(colors, doc.Colors, colorKey)
	models := map[string]string{}
	merge(models, doc.Models, modelKey)
	return tablesDocument{Colors: colors, Models: models}, nil
}

func merge(dst, src map[string]string, key func(string) string) {
	for k, v := range src {
		dst[key(k)] = v
	}
}
