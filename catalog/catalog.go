package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrCategoryNotFound is returned when no category carries the requested name.
var ErrCategoryNotFound = errors.New("catalog: category not found")

//go:embed catalog.yaml
var defaultCatalog []byte

type Provider struct {
	FullName     string  `yaml:"fullName" json:"fullName"`
	Location     string  `yaml:"location" json:"location"`
	Rating       float64 `yaml:"rating" json:"rating"`
	Availability bool    `yaml:"availability" json:"availability"`
}

type ServiceCategory struct {
	CategoryName string     `yaml:"categoryName" json:"categoryName"`
	Providers    []Provider `yaml:"providers" json:"providers"`
}

// Catalog is an immutable snapshot of service categories. It is safe for concurrent use.
type Catalog struct {
	categories []ServiceCategory
}

type document struct {
	ServiceCategories []ServiceCategory `yaml:"serviceCategories"`
}

// Default returns the catalog embedded in the binary.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("catalog: payload is empty")
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	return New(doc.ServiceCategories)
}

// LoadFile reads a YAML catalog from disk.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// New builds a catalog from categories, rejecting blank or duplicate names.
func New(categories []ServiceCategory) (*Catalog, error) {
	seen := make(map[string]struct{}, len(categories))
	out := make([]ServiceCategory, 0, len(categories))
	for i, c := range categories {
		name := strings.TrimSpace(c.CategoryName)
		if name == "" {
			return nil, fmt.Errorf("catalog: category %d has no name", i)
		}
		key := strings.ToLower(name)
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("catalog: duplicate category %q", name)
		}
		seen[key] = struct{}{}
		out = append(out, ServiceCategory{
			CategoryName: name,
			Providers:    append([]Provider(nil), c.Providers...),
		})
	}
	return &Catalog{categories: out}, nil
}

// Categories returns the category names in declaration order.
func (c *Catalog) Categories() []string {
	out := make([]string, 0, len(c.categories))
	for _, cat := range c.categories {
		out = append(out, cat.CategoryName)
	}
	return out
}

// Lookup finds a category by case-insensitive exact name.
func (c *Catalog) Lookup(category string) (ServiceCategory, bool) {
	for _, cat := range c.categories {
		if strings.EqualFold(cat.CategoryName, category) {
			return ServiceCategory{
				CategoryName: cat.CategoryName,
				Providers:    append([]Provider(nil), cat.Providers...),
			}, true
		}
	}
	return ServiceCategory{}, false
}

// FindAvailable returns the available providers of a category whose location contains
// location, ignoring case. An empty location matches every provider. Declaration order
// is kept and an empty result is not an error.
func (c *Catalog) FindAvailable(category, location string) ([]Provider, error) {
	cat, ok := c.Lookup(category)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCategoryNotFound, category)
	}
	needle := strings.ToLower(strings.TrimSpace(location))
	out := make([]Provider, 0, len(cat.Providers))
	for _, p := range cat.Providers {
		if !p.Availability {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Location), needle) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}
