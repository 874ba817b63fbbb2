package conversation

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"leadbot_backend/platform/validator"

	"gopkg.in/yaml.v3"
)

// Reserved option ids with routing meaning inside the submenus.
const (
	OptionMainMenu  = "main_menu"
	OptionExecutive = "executive"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// Option is one selectable entry of a submenu.
type Option struct {
	ID       string   `yaml:"id" validate:"required"`
	Ordinal  int      `yaml:"ordinal" validate:"min=1"`
	Label    string   `yaml:"label" validate:"required"`
	Keywords []string `yaml:"keywords"`
	Prompt   string   `yaml:"prompt"`
}

// IsConcrete reports whether selecting the option records a service or product.
func (o Option) IsConcrete() bool {
	return o.ID != OptionMainMenu && o.ID != OptionExecutive
}

// IntentKeywords holds the keyword sets used to classify top-level requests.
type IntentKeywords struct {
	Service       []string `yaml:"service" validate:"min=1"`
	Product       []string `yaml:"product" validate:"min=1"`
	Executive     []string `yaml:"executive" validate:"min=1"`
	Transactional []string `yaml:"transactional"`
	Advisory      []string `yaml:"advisory"`
}

// ResumeKeywords holds the replies accepted at the continue-or-restart prompt.
type ResumeKeywords struct {
	Continue []string `yaml:"continue" validate:"min=1"`
	Restart  []string `yaml:"restart" validate:"min=1"`
}

// Catalog is the static option tables and keyword sets driving the conversation.
type Catalog struct {
	BusinessName  string         `yaml:"business_name"`
	Services      []Option       `yaml:"services" validate:"min=2,dive"`
	Products      []Option       `yaml:"products" validate:"min=2,dive"`
	ProductPrompt string         `yaml:"product_prompt" validate:"required"`
	Intents       IntentKeywords `yaml:"intents"`
	MenuCommands  []string       `yaml:"menu_commands" validate:"min=1"`
	Resume        ResumeKeywords `yaml:"resume"`
}

// DefaultCatalog parses the embedded catalog.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultCatalogYAML)
}

// LoadCatalog reads the catalog from path, or the embedded default when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes and validates a YAML catalog.
func ParseCatalog(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("invalid catalog: %w", err)
	}
	if err := c.check(); err != nil {
		return nil, err
	}
	sort.SliceStable(c.Services, func(i, j int) bool { return c.Services[i].Ordinal < c.Services[j].Ordinal })
	sort.SliceStable(c.Products, func(i, j int) bool { return c.Products[i].Ordinal < c.Products[j].Ordinal })
	return &c, nil
}

func (c *Catalog) check() error {
	if err := checkTable("services", c.Services); err != nil {
		return err
	}
	if err := checkTable("products", c.Products); err != nil {
		return err
	}
	if _, ok := findOption(c.Services, OptionExecutive); !ok {
		return fmt.Errorf("invalid catalog: services table needs an %q entry", OptionExecutive)
	}
	if _, ok := findOption(c.Products, OptionExecutive); ok {
		return fmt.Errorf("invalid catalog: products table cannot route to %q", OptionExecutive)
	}

	sets := map[string][]string{
		"service":   c.Intents.Service,
		"product":   c.Intents.Product,
		"executive": c.Intents.Executive,
	}
	seen := make(map[string]string)
	for name, words := range sets {
		for _, w := range words {
			key := Normalize(w)
			if other, dup := seen[key]; dup && other != name {
				return fmt.Errorf("invalid catalog: intent keyword %q is in both %s and %s sets", w, other, name)
			}
			seen[key] = name
		}
	}
	return nil
}

func checkTable(name string, opts []Option) error {
	ordinals := make(map[int]string, len(opts))
	maxOrdinal := 0
	hasMainMenu := false
	for _, o := range opts {
		if prev, dup := ordinals[o.Ordinal]; dup {
			return fmt.Errorf("invalid catalog: %s ordinal %d used by %s and %s", name, o.Ordinal, prev, o.ID)
		}
		ordinals[o.Ordinal] = o.ID
		if o.Ordinal > maxOrdinal {
			maxOrdinal = o.Ordinal
		}
		if o.ID == OptionMainMenu {
			hasMainMenu = true
		}
	}
	if !hasMainMenu {
		return fmt.Errorf("invalid catalog: %s table must end with a %q entry", name, OptionMainMenu)
	}
	if ordinals[maxOrdinal] != OptionMainMenu {
		return fmt.Errorf("invalid catalog: %q must be the last %s entry", OptionMainMenu, name)
	}
	return nil
}

func findOption(opts []Option, id string) (Option, bool) {
	for _, o := range opts {
		if o.ID == id {
			return o, true
		}
	}
	return Option{}, false
}

// Service returns the service option with id.
func (c *Catalog) Service(id string) (Option, bool) { return findOption(c.Services, id) }

// Product returns the product option with id.
func (c *Catalog) Product(id string) (Option, bool) { return findOption(c.Products, id) }
