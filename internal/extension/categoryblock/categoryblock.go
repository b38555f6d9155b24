package categoryblock

import (
	"context"
	"fmt"
	"strings"

	"github.com/smallbiznis/relaygrid/internal/config"
	"github.com/smallbiznis/relaygrid/internal/extension"
	"go.uber.org/fx"
)

// New builds an extension that vetoes offer creation for the given
// categories. Vertical deployments use it to keep restricted product types
// (pharmaceuticals, for example) out of the relay network without the core
// knowing the rules.
func New(name string, categories []string) extension.Extension {
	blocked := make(map[string]struct{}, len(categories))
	for _, category := range categories {
		category = strings.ToLower(strings.TrimSpace(category))
		if category != "" {
			blocked[category] = struct{}{}
		}
	}

	check := func(ctx context.Context, hc extension.HookContext) error {
		category, _ := hc.After["category"].(string)
		if _, ok := blocked[strings.ToLower(category)]; ok {
			return fmt.Errorf("category %s is not allowed", category)
		}
		return nil
	}

	return extension.Extension{
		Name:         extension.Name(name),
		Kind:         extension.KindOffer,
		BeforeCreate: check,
	}
}

func register(cfg config.Config, registry *extension.Registry) error {
	if len(cfg.BlockedCategories) == 0 {
		return nil
	}
	return registry.Register(New("category-block", cfg.BlockedCategories))
}

var Module = fx.Module("extension.categoryblock",
	fx.Invoke(register),
)
