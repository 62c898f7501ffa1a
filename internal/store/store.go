// Package store opens the configured persistence backend.
package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/asistencia/internal/config"
	"github.com/JonMunkholm/asistencia/internal/core"
	"github.com/JonMunkholm/asistencia/internal/store/csvstore"
	"github.com/JonMunkholm/asistencia/internal/store/pgstore"
)

// Kinds lists the accepted StoreConfig.Kind values.
var Kinds = []string{"csv", "postgres"}

// Open returns the store selected by cfg.Kind.
func Open(ctx context.Context, cfg config.StoreConfig) (core.Store, error) {
	switch strings.ToLower(cfg.Kind) {
	case "", "csv":
		s, err := csvstore.Open(cfg.DataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "postgres":
		s, err := pgstore.Open(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store kind %q (want one of %s)", cfg.Kind, strings.Join(Kinds, ", "))
	}
}
