// Package schema holds the form definition every monthly report is validated,
// aggregated and exported against.
package schema

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// FieldType enumerates supported input kinds.
type FieldType string

const (
	FieldNumber   FieldType = "number"
	FieldDropdown FieldType = "dropdown"
	FieldText     FieldType = "text"
)

// Field describes a single input within a category.
type Field struct {
	ID          string    `yaml:"id" json:"id"`
	Label       string    `yaml:"label" json:"label"`
	Type        FieldType `yaml:"type" json:"type"`
	Unit        string    `yaml:"unit,omitempty" json:"unit,omitempty"`
	Options     []string  `yaml:"options,omitempty" json:"options,omitempty"`
	Min         *float64  `yaml:"min,omitempty" json:"min,omitempty"`
	Expenditure bool      `yaml:"expenditure,omitempty" json:"expenditure,omitempty"`
}

// Category groups related fields.
type Category struct {
	ID          string  `yaml:"id" json:"id"`
	Label       string  `yaml:"label" json:"label"`
	Description string  `yaml:"description,omitempty" json:"description,omitempty"`
	Fields      []Field `yaml:"fields" json:"fields"`
}

// Definition is the serialisable registry content.
type Definition struct {
	Categories []Category `yaml:"categories" json:"categories"`
	Districts  []string   `yaml:"districts" json:"districts"`
}

// Metric identifies a numeric field as "category.field".
type Metric struct {
	Key        string `json:"key"`
	CategoryID string `json:"category_id"`
	FieldID    string `json:"field_id"`
	Label      string `json:"label"`
	Unit       string `json:"unit,omitempty"`
}

// Registry is an immutable, validated Definition with lookup indexes.
type Registry struct {
	def        Definition
	categories map[string]int
	fields     map[string]map[string]int
	districts  map[string]struct{}
}

//go:embed default.yaml
var defaultDefinition []byte

// Default returns the built-in registry.
func Default() *Registry {
	reg, err := Parse(defaultDefinition)
	if err != nil {
		panic(fmt.Sprintf("schema: built-in definition invalid: %v", err))
	}
	return reg
}

// Load reads a YAML definition from disk.
func Load(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML definition.
func Parse(raw []byte) (*Registry, error) {
	var def Definition
	if err := yaml.Unmarshal(raw, &def); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	return New(def)
}

// New validates def and builds its indexes.
func New(def Definition) (*Registry, error) {
	if len(def.Categories) == 0 {
		return nil, fmt.Errorf("schema requires at least one category")
	}
	if len(def.Districts) == 0 {
		return nil, fmt.Errorf("schema requires at least one district")
	}

	reg := &Registry{
		def:        def,
		categories: make(map[string]int, len(def.Categories)),
		fields:     make(map[string]map[string]int, len(def.Categories)),
		districts:  make(map[string]struct{}, len(def.Districts)),
	}
	for ci, cat := range def.Categories {
		if cat.ID == "" || cat.Label == "" {
			return nil, fmt.Errorf("category %d requires id and label", ci)
		}
		if strings.Contains(cat.ID, ".") {
			return nil, fmt.Errorf("category id %q must not contain '.'", cat.ID)
		}
		if _, dup := reg.categories[cat.ID]; dup {
			return nil, fmt.Errorf("duplicate category %q", cat.ID)
		}
		reg.categories[cat.ID] = ci
		index := make(map[string]int, len(cat.Fields))
		for fi, field := range cat.Fields {
			if field.ID == "" || strings.Contains(field.ID, ".") {
				return nil, fmt.Errorf("category %q field %d requires an id without '.'", cat.ID, fi)
			}
			if _, dup := index[field.ID]; dup {
				return nil, fmt.Errorf("duplicate field %q in category %q", field.ID, cat.ID)
			}
			switch field.Type {
			case FieldNumber, FieldText:
			case FieldDropdown:
				if len(field.Options) == 0 {
					return nil, fmt.Errorf("dropdown %s.%s requires options", cat.ID, field.ID)
				}
			default:
				return nil, fmt.Errorf("field %s.%s has unknown type %q", cat.ID, field.ID, field.Type)
			}
			index[field.ID] = fi
		}
		reg.fields[cat.ID] = index
	}
	for _, d := range def.Districts {
		name := strings.TrimSpace(d)
		if name == "" {
			return nil, fmt.Errorf("district names must not be blank")
		}
		if _, dup := reg.districts[name]; dup {
			return nil, fmt.Errorf("duplicate district %q", name)
		}
		reg.districts[name] = struct{}{}
	}
	return reg, nil
}

// Definition returns a copy of the registry content for serving to clients.
func (r *Registry) Definition() Definition {
	return Definition{Categories: r.Categories(), Districts: r.Districts()}
}

// Categories returns categories in registry order.
func (r *Registry) Categories() []Category {
	out := make([]Category, len(r.def.Categories))
	copy(out, r.def.Categories)
	return out
}

// Category looks up a category by id.
func (r *Registry) Category(id string) (Category, bool) {
	idx, ok := r.categories[id]
	if !ok {
		return Category{}, false
	}
	return r.def.Categories[idx], true
}

// Field looks up a field within a category.
func (r *Registry) Field(categoryID, fieldID string) (Field, bool) {
	idx, ok := r.fields[categoryID][fieldID]
	if !ok {
		return Field{}, false
	}
	return r.def.Categories[r.categories[categoryID]].Fields[idx], true
}

// Districts returns district names in registry order.
func (r *Registry) Districts() []string {
	out := make([]string, len(r.def.Districts))
	copy(out, r.def.Districts)
	return out
}

// HasDistrict reports whether name is a configured district.
func (r *Registry) HasDistrict(name string) bool {
	_, ok := r.districts[name]
	return ok
}

// RepresentativeField returns the first number field of a category, used
// wherever a single value per category is shown.
func (r *Registry) RepresentativeField(categoryID string) (Field, bool) {
	cat, ok := r.Category(categoryID)
	if !ok {
		return Field{}, false
	}
	for _, f := range cat.Fields {
		if f.Type == FieldNumber {
			return f, true
		}
	}
	return Field{}, false
}

// NumericMetrics lists every number field as a selectable metric.
func (r *Registry) NumericMetrics() []Metric {
	var out []Metric
	for _, cat := range r.def.Categories {
		for _, f := range cat.Fields {
			if f.Type == FieldNumber {
				out = append(out, newMetric(cat, f))
			}
		}
	}
	return out
}

// Metric resolves a "category.field" key to a numeric metric.
func (r *Registry) Metric(key string) (Metric, bool) {
	catID, fieldID, ok := strings.Cut(key, ".")
	if !ok {
		return Metric{}, false
	}
	f, ok := r.Field(catID, fieldID)
	if !ok || f.Type != FieldNumber {
		return Metric{}, false
	}
	cat, _ := r.Category(catID)
	return newMetric(cat, f), true
}

// ExpenditureMetrics lists number fields flagged as spending.
func (r *Registry) ExpenditureMetrics() []Metric {
	var out []Metric
	for _, m := range r.NumericMetrics() {
		if f, _ := r.Field(m.CategoryID, m.FieldID); f.Expenditure {
			out = append(out, m)
		}
	}
	return out
}

// FlattenedColumns returns "{category}_{field}" names in registry order.
func (r *Registry) FlattenedColumns() []string {
	var cols []string
	for _, cat := range r.def.Categories {
		for _, f := range cat.Fields {
			cols = append(cols, flatColumn(cat, f))
		}
	}
	return cols
}

// Flatten maps a two-level payload onto FlattenedColumns keys. Missing fields are omitted.
func (r *Registry) Flatten(data map[string]map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{})
	for _, cat := range r.def.Categories {
		values := data[cat.ID]
		for _, f := range cat.Fields {
			if v, ok := values[f.ID]; ok {
				out[flatColumn(cat, f)] = v
			}
		}
	}
	return out
}

// flatColumn names a Raw Data column "{category label}_{field id}".
func flatColumn(cat Category, f Field) string {
	return cat.Label + "_" + f.ID
}

func newMetric(cat Category, f Field) Metric {
	return Metric{
		Key:        cat.ID + "." + f.ID,
		CategoryID: cat.ID,
		FieldID:    f.ID,
		Label:      cat.Label + " / " + f.Label,
		Unit:       f.Unit,
	}
}
