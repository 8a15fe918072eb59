package config

import (
	"fmt"
	"os"

	"agenda/internal/models"

	"gopkg.in/yaml.v2"
)

// LoadCatalog reads the professionals/services seed file.
func LoadCatalog(path string) (*models.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var catalog models.Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}

	if err := ValidateCatalog(&catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

func ValidateCatalog(catalog *models.Catalog) error {
	professionals := make(map[int64]bool, len(catalog.Professionals))
	for _, p := range catalog.Professionals {
		if p.ID == 0 {
			return fmt.Errorf("professional '%s' has invalid ID 0", p.Name)
		}
		if professionals[p.ID] {
			return fmt.Errorf("duplicate professional ID found: %d", p.ID)
		}
		professionals[p.ID] = true
	}

	services := make(map[int64]bool, len(catalog.Services))
	for _, s := range catalog.Services {
		if s.ID == 0 {
			return fmt.Errorf("service '%s' has invalid ID 0", s.Name)
		}
		if services[s.ID] {
			return fmt.Errorf("duplicate service ID found: %d", s.ID)
		}
		if !professionals[s.ProfessionalID] {
			return fmt.Errorf("service %d references unknown professional %d", s.ID, s.ProfessionalID)
		}
		if s.DurationMinutes <= 0 {
			return fmt.Errorf("service %d has non-positive duration", s.ID)
		}
		services[s.ID] = true
	}
	return nil
}
