package app

import (
	"context"

	"abjad/internal/config"
)

// validateConfig runs every section mapper so a bad hot-reload is rejected
// before it is committed.
func validateConfig(_ context.Context, cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if _, err := mapStorageConfig(cfg); err != nil {
		return err
	}
	if _, err := mapAPIConfig(cfg); err != nil {
		return err
	}
	if _, err := mapEngineConfig(cfg); err != nil {
		return err
	}
	if _, err := mapNoticeConfig(cfg); err != nil {
		return err
	}
	if _, err := mapUIConfig(cfg); err != nil {
		return err
	}
	return nil
}
