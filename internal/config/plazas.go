package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"

	"github.com/iliyamo/smartpark/internal/model"
)

// DefaultPlazas is the built-in catalog used when PLAZAS_FILE is unset.
func DefaultPlazas() []model.Plaza {
	return []model.Plaza{
		{ID: "1", Name: "Plaza Rio", City: "Tijuana", Hours: "10:00 - 22:00", Spots: 72, Available: 45, Live: true},
		{ID: "2", Name: "Plaza Peninsula", City: "Tijuana", Hours: "09:00 - 21:00", Spots: 72, Available: 32},
		{ID: "3", Name: "Plaza Hipódromo", City: "Tijuana", Hours: "10:00 - 23:00", Spots: 72, Available: 18},
		{ID: "4", Name: "Landmark", City: "Tijuana", Hours: "11:00 - 22:00", Spots: 72, Available: 27},
	}
}

type plazaFile struct {
	Plazas []model.Plaza `yaml:"plazas"`
}

// LoadPlazas reads the plaza catalog from a YAML file of the form
//
//	plazas:
//	  - id: "1"
//	    name: Plaza Rio
//	    city: Tijuana
//	    hours: "10:00 - 22:00"
//	    spots: 72
//
// An empty path returns DefaultPlazas.
func LoadPlazas(path string) ([]model.Plaza, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultPlazas(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plazas: %w", err)
	}
	var f plazaFile
	if err := yaml.UnmarshalStrict(raw, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Plazas) == 0 {
		return nil, fmt.Errorf("%s: no plazas defined", path)
	}
	seen := make(map[string]bool, len(f.Plazas))
	for i, p := range f.Plazas {
		if strings.TrimSpace(p.Name) == "" {
			return nil, fmt.Errorf("%s: plaza %d has no name", path, i+1)
		}
		if p.ID == "" {
			f.Plazas[i].ID = fmt.Sprint(i + 1)
		}
		if seen[f.Plazas[i].ID] {
			return nil, fmt.Errorf("%s: duplicate plaza id %q", path, f.Plazas[i].ID)
		}
		seen[f.Plazas[i].ID] = true
		if p.Spots <= 0 {
			f.Plazas[i].Spots = 72
		}
	}
	return f.Plazas, nil
}
