// Package refdata loads the reference MMM dataset, either the copy embedded in
// the binary or a YAML file with the same layout.
package refdata

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AngelCh415/mmm-planner/internal/models"
)

//go:embed reference.yaml
var reference []byte

// Default returns the embedded dataset.
func Default() (*models.Catalog, error) {
	return Parse(reference)
}

// Load reads a dataset from a YAML file. An empty path loads the embedded one.
func Load(path string) (*models.Catalog, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading reference data: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*models.Catalog, error) {
	var c models.Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing reference YAML: %w", err)
	}
	if err := Validate(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks curve parameters, id uniqueness and that spend and CPM
// rows point at known curves with well-formed week labels.
func Validate(c *models.Catalog) error {
	ids := make(map[int]bool, len(c.Curves))
	for i := range c.Curves {
		cv := &c.Curves[i]
		if ids[cv.ID] {
			return fmt.Errorf("curve %d: duplicate id: %w", cv.ID, models.ErrInvalidParameter)
		}
		ids[cv.ID] = true
		if cv.Family == "" {
			cv.Family = models.FamilyTanh
		}
		if cv.Family != models.FamilyTanh {
			return fmt.Errorf("curve %d: %w", cv.ID, &models.ParamError{Param: "type", Value: cv.Family})
		}
		if cv.Alpha <= 0 {
			return fmt.Errorf("curve %d: %w", cv.ID, &models.ParamError{Param: "alpha", Value: cv.Alpha})
		}
		if cv.Beta <= 0 {
			return fmt.Errorf("curve %d: %w", cv.ID, &models.ParamError{Param: "beta", Value: cv.Beta})
		}
	}
	spent := make(map[int]bool, len(c.Spend))
	for _, r := range c.Spend {
		if !ids[r.CurveID] {
			return fmt.Errorf("spend for curve %d: %w", r.CurveID, models.ErrNotFound)
		}
		if spent[r.CurveID] {
			return fmt.Errorf("spend for curve %d: %w", r.CurveID, &models.ParamError{Param: "curve_id", Value: r.CurveID})
		}
		spent[r.CurveID] = true
		for w, v := range r.Weeks {
			if _, _, err := models.ParseWeek(w); err != nil {
				return fmt.Errorf("spend for curve %d: %w", r.CurveID, err)
			}
			if v < 0 {
				return fmt.Errorf("spend for curve %d: %w", r.CurveID, &models.ParamError{Param: w, Value: v})
			}
		}
	}
	for _, p := range c.CPMs {
		if _, _, err := models.ParseWeek(p.Week); err != nil {
			return fmt.Errorf("cpm for curve %d: %w", p.CurveID, err)
		}
	}
	return nil
}
