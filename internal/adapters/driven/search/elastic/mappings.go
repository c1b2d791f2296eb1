package elastic

import (
	"embed"
	"encoding/json"
	"fmt"

	"github.com/workedgitpraktikum/Async-API-sprint-1/internal/core/domain"
)

//go:embed mappings/*.json
var mappingFS embed.FS

// IndexBody returns the create-index request body for kind:
// the shared ru_en analysis settings and the kind's strict mappings.
func IndexBody(kind domain.EntityKind) (string, error) {
	if !kind.IsValid() {
		return "", fmt.Errorf("%w: no mapping for kind %q", domain.ErrInvalidInput, kind)
	}
	settings, err := mappingFS.ReadFile("mappings/settings.json")
	if err != nil {
		return "", fmt.Errorf("read settings: %w", err)
	}
	mapping, err := mappingFS.ReadFile("mappings/" + kind.String() + ".json")
	if err != nil {
		return "", fmt.Errorf("read %s mapping: %w", kind, err)
	}

	body, err := json.Marshal(struct {
		Settings json.RawMessage `json:"settings"`
		Mappings json.RawMessage `json:"mappings"`
	}{Settings: settings, Mappings: mapping})
	if err != nil {
		return "", fmt.Errorf("encode %s index body: %w", kind, err)
	}
	return string(body), nil
}
