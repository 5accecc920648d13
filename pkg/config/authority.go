package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/sqless-ai/sqless-engine/pkg/models"
)

// LoadAuthorityMap reads the executor whitelist from a YAML file mapping
// executor identity to an authority weight in [0,1]:
//
//	alice@datateam.example: 1.0
//	batch-reporting: 0.6
//
// The map is read-only configuration for the whole run; weight validation
// happens when the filter is constructed.
func LoadAuthorityMap(path string) (models.AuthorityMap, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read authority map: %w", err)
	}

	authorities := make(models.AuthorityMap)
	if err := yaml.Unmarshal(raw, &authorities); err != nil {
		return nil, fmt.Errorf("parse authority map: %w", err)
	}
	return authorities, nil
}
