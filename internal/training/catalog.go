package training

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

// TrainingTypeID identifies an entry of the training type catalog, e.g. "hill_climbing".
type TrainingTypeID string

const (
	Recovery      TrainingTypeID = "recovery"
	Endurance     TrainingTypeID = "endurance"
	LongRide      TrainingTypeID = "long_ride"
	Tempo         TrainingTypeID = "tempo"
	SweetSpot     TrainingTypeID = "sweet_spot"
	Threshold     TrainingTypeID = "threshold"
	VO2Max        TrainingTypeID = "vo2max"
	HillClimbing  TrainingTypeID = "hill_climbing"
	Sprint        TrainingTypeID = "sprint"
	CadenceDrills TrainingTypeID = "cadence_drills"
)

//go:embed catalog.yaml
var catalogYAML []byte

// TrainingType describes one workout style.
type TrainingType struct {
	ID                  TrainingTypeID `json:"id"                   yaml:"id"`
	Name                string         `json:"name"                 yaml:"name"`
	Intensity           string         `json:"intensity"            yaml:"intensity"`
	DurationMinutes     int            `json:"duration_minutes"     yaml:"duration_minutes"`
	Zones               []int          `json:"zones"                yaml:"zones"`
	Structure           []string       `json:"structure"            yaml:"structure"`
	DescriptionMarkdown string         `json:"description_markdown" yaml:"description"`
	DescriptionHTML     string         `json:"description_html"     yaml:"-"`
}

// Catalog is the immutable training type reference data.
type Catalog struct {
	types []TrainingType
	byID  map[TrainingTypeID]int
}

// LoadCatalog parses the embedded catalog and renders the Markdown descriptions.
func LoadCatalog() (*Catalog, error) {
	return parseCatalog(catalogYAML)
}

func parseCatalog(data []byte) (*Catalog, error) {
	var types []TrainingType
	if err := yaml.Unmarshal(data, &types); err != nil {
		return nil, fmt.Errorf("unmarshal catalog: %w", err)
	}
	md := goldmark.New()
	c := &Catalog{types: types, byID: make(map[TrainingTypeID]int, len(types))}
	for i := range c.types {
		tt := &c.types[i]
		if tt.ID == "" {
			return nil, fmt.Errorf("training type %d: missing id", i)
		}
		if _, dup := c.byID[tt.ID]; dup {
			return nil, fmt.Errorf("training type %s: duplicate id", tt.ID)
		}
		var buf bytes.Buffer
		if err := md.Convert([]byte(tt.DescriptionMarkdown), &buf); err != nil {
			return nil, fmt.Errorf("render description of %s: %w", tt.ID, err)
		}
		tt.DescriptionHTML = buf.String()
		c.byID[tt.ID] = i
	}
	return c, nil
}

// All returns the catalog entries in file order.
func (c *Catalog) All() []TrainingType {
	types := make([]TrainingType, len(c.types))
	copy(types, c.types)
	return types
}

// Lookup returns the training type with the given id.
func (c *Catalog) Lookup(id TrainingTypeID) (TrainingType, bool) {
	i, ok := c.byID[id]
	if !ok {
		return TrainingType{}, false
	}
	return c.types[i], true
}
