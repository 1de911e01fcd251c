package action

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ayusman/mudra/internal/event"
	"github.com/ayusman/mudra/internal/store"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type defaultsFile struct {
	Bindings []defaultBinding `yaml:"bindings"`
}

type defaultBinding struct {
	Channel string         `yaml:"channel"`
	Label   string         `yaml:"label"`
	Plugin  string         `yaml:"plugin"`
	Action  string         `yaml:"action"`
	Config  map[string]any `yaml:"config"`
}

// BindingStore is the subset of the binding repository used for seeding.
type BindingStore interface {
	Count() (int, error)
	Create(b *store.Binding) error
}

// DefaultBindings parses the embedded default bindings. IDs are left empty.
func DefaultBindings() ([]*store.Binding, error) {
	return parseBindings(defaultsYAML)
}

func parseBindings(data []byte) ([]*store.Binding, error) {
	var f defaultsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse default bindings: %w", err)
	}

	bindings := make([]*store.Binding, 0, len(f.Bindings))
	for i, d := range f.Bindings {
		ch, err := event.ParseChannel(d.Channel)
		if err != nil {
			return nil, fmt.Errorf("default binding %d: %w", i, err)
		}
		if d.Label == "" || d.Plugin == "" || d.Action == "" {
			return nil, fmt.Errorf("default binding %d: label, plugin and action are required", i)
		}

		var cfg json.RawMessage
		if len(d.Config) > 0 {
			if cfg, err = json.Marshal(d.Config); err != nil {
				return nil, fmt.Errorf("default binding %d: %w", i, err)
			}
		}
		bindings = append(bindings, &store.Binding{
			Channel:    ch,
			Label:      d.Label,
			PluginName: d.Plugin,
			ActionName: d.Action,
			Config:     cfg,
			Enabled:    true,
		})
	}
	return bindings, nil
}

// SeedDefaults writes the default bindings when repo is empty and reports how
// many were created.
func SeedDefaults(repo BindingStore, logger *zap.Logger) (int, error) {
	n, err := repo.Count()
	if err != nil {
		return 0, fmt.Errorf("count bindings: %w", err)
	}
	if n > 0 {
		return 0, nil
	}

	defaults, err := DefaultBindings()
	if err != nil {
		return 0, err
	}
	for i, b := range defaults {
		b.ID = uuid.New().String()
		if err := repo.Create(b); err != nil {
			return i, fmt.Errorf("seed %s/%s: %w", b.Channel, b.Label, err)
		}
	}
	if logger != nil {
		logger.Info("seeded default bindings", zap.Int("count", len(defaults)))
	}
	return len(defaults), nil
}
