package cli

import (
	"errors"
	"io/fs"
	"os"

	"github.com/mark3labs/apitool/internal/apiitem"
	"github.com/mark3labs/apitool/internal/config"
	"github.com/mark3labs/apitool/internal/logging"
)

// itemSources names where api groups are read from, in load order.
type itemSources struct {
	// MainConfig is the tool config file with inline groups under the api key.
	MainConfig string
	ApiConfig  string
	// ApiConfigExplicit makes a missing ApiConfig an error instead of being skipped.
	ApiConfigExplicit bool
	SchemaRoot        string
}

// loadApiItems builds the registry from the main config first, then the api file, so a
// route defined in both keeps the main config definition.
func loadApiItems(src itemSources, log logging.Logger) ([]apiitem.ApiItem, error) {
	p := apiitem.NewParser(apiitem.NewCanonicalizer(src.SchemaRoot), log)

	if src.MainConfig != "" {
		if _, err := p.LoadFromMainConfig(src.MainConfig, config.APIKey); err != nil {
			return nil, wrapItemsError(err)
		}
	}

	if src.ApiConfig != "" {
		_, statErr := os.Stat(src.ApiConfig)
		if errors.Is(statErr, fs.ErrNotExist) && !src.ApiConfigExplicit {
			log.Debug().Str("path", src.ApiConfig).Msg("api config not found, skipped")
		} else if _, err := p.LoadFromApiConfig(src.ApiConfig); err != nil {
			return nil, wrapItemsError(err)
		}
	}

	items := p.Collect()
	if len(items) == 0 {
		return nil, wrapItemsError(apiitem.ErrNoApiItems)
	}
	log.Info().
		Int("items", len(items)).
		Int("duplicates", len(p.Registry().Conflicts())).
		Msg("api items loaded")
	return items, nil
}
