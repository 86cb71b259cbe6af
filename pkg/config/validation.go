package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks the configuration for structural and semantic errors.
//
// Structural checks come from the `validate` struct tags; semantic checks
// cover the cross-field rules the tags cannot express (database backend
// fields, the auth secret).
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	v := validator.New()
	if err := v.Struct(cfg); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			first := errs[0]
			return fmt.Errorf("invalid value for %s (%s rule)", first.Namespace(), first.Tag())
		}
		return err
	}

	if err := cfg.Persistence.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if cfg.Auth.Enabled && len(cfg.Auth.TokenSecret) < 32 {
		return fmt.Errorf("auth.token_secret must be at least 32 characters when auth is enabled; " +
			"set it in the config file or via PTYHUB_AUTH_TOKEN_SECRET")
	}

	return nil
}
