package app

import (
	"fmt"
	"strings"

	"github.com/mysite19/mysite/pkg/crypto"
)

const jwtSecretBytes = 48

// ApplyRuntimeDefaults fills secrets that must never be empty and reports which ones it generated.
func ApplyRuntimeDefaults(cfg *Config) (map[string]bool, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	generated := make(map[string]bool)
	if strings.TrimSpace(cfg.Auth.JWT.Secret) == "" {
		secret, err := crypto.GenerateToken(jwtSecretBytes)
		if err != nil {
			return nil, fmt.Errorf("generate jwt secret: %w", err)
		}
		cfg.Auth.JWT.Secret = secret
		generated["auth.jwt.secret"] = true
	}
	if strings.TrimSpace(cfg.Shop.DefaultEncoding) == "" {
		cfg.Shop.DefaultEncoding = "utf-8"
	}
	return generated, nil
}
