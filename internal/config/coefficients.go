package config

import (
	"fmt"
	"strings"

	"github.com/go-logr/logr"

	"github.com/standyield/standyield/internal/logging"
)

// MeanVolumeCoefficientCount is the number of terms in the mean volume regression.
const MeanVolumeCoefficientCount = 9

// AnyRegion is the region value of a coefficient entry that applies to every region.
const AnyRegion = ""

// VolumeGroupCoefficients holds the log-linear mean volume regression for one volume group.
type VolumeGroupCoefficients struct {
	// Group is the volume group id species refer to.
	Group int `yaml:"group" json:"group" mapstructure:"group"`
	// Coefficients are c0..c8 of
	// ln v = c0 + c1 ln dq + c2 ln hl + c3 dq + c4/dq + c5 hl + c6 dq² + c7 dq·hl + c8 hl/dq.
	Coefficients []float64 `yaml:"coefficients" json:"coefficients" mapstructure:"coefficients"`
}

// Validate checks for invalid configuration values.
func (c *VolumeGroupCoefficients) Validate() error {
	if c.Group <= 0 {
		return fmt.Errorf("volume group must be positive, got %d", c.Group)
	}
	if len(c.Coefficients) != MeanVolumeCoefficientCount {
		return fmt.Errorf("volume group %d needs %d coefficients, got %d",
			c.Group, MeanVolumeCoefficientCount, len(c.Coefficients))
	}
	return nil
}

// ComponentSizeLimits bounds species diameters and heights for a genus and region.
type ComponentSizeLimits struct {
	Genus  string `yaml:"genus" json:"genus" mapstructure:"genus"`
	Region string `yaml:"region,omitempty" json:"region,omitempty" mapstructure:"region"`
	// MaxLoreyHeight caps species lorey height (m); the primary genus may reach 1.5 times this.
	MaxLoreyHeight float64 `yaml:"maxLoreyHeight" json:"maxLoreyHeight" mapstructure:"maxLoreyHeight"`
	// MaxQuadMeanDiameter is the absolute diameter ceiling (cm).
	MaxQuadMeanDiameter float64 `yaml:"maxQuadMeanDiameter" json:"maxQuadMeanDiameter" mapstructure:"maxQuadMeanDiameter"`
	// MinDiameterHeight is the smallest diameter per metre of lorey height.
	MinDiameterHeight float64 `yaml:"minDiameterHeight" json:"minDiameterHeight" mapstructure:"minDiameterHeight"`
	// MaxDiameterHeight is the largest diameter per metre of lorey height.
	MaxDiameterHeight float64 `yaml:"maxDiameterHeight" json:"maxDiameterHeight" mapstructure:"maxDiameterHeight"`
}

// Validate checks for invalid configuration values.
func (c *ComponentSizeLimits) Validate() error {
	if err := validateKey(c.Genus, c.Region); err != nil {
		return err
	}
	if c.MaxLoreyHeight <= 0 {
		return fmt.Errorf("maxLoreyHeight must be > 0, got %g", c.MaxLoreyHeight)
	}
	if c.MaxQuadMeanDiameter <= 0 {
		return fmt.Errorf("maxQuadMeanDiameter must be > 0, got %g", c.MaxQuadMeanDiameter)
	}
	if c.MinDiameterHeight < 0 {
		return fmt.Errorf("minDiameterHeight must be >= 0, got %g", c.MinDiameterHeight)
	}
	if c.MaxDiameterHeight < c.MinDiameterHeight {
		return fmt.Errorf("maxDiameterHeight (%g) should be >= minDiameterHeight (%g)",
			c.MaxDiameterHeight, c.MinDiameterHeight)
	}
	return nil
}

// SpeciesDiameterCoefficients scale the stand diameter into a species baseline diameter:
// dq = 7.5 + (dqStand - 7.5)·exp(a0)·(hlSpecies/hlStand)^a1.
type SpeciesDiameterCoefficients struct {
	Genus  string  `yaml:"genus" json:"genus" mapstructure:"genus"`
	Region string  `yaml:"region,omitempty" json:"region,omitempty" mapstructure:"region"`
	A0     float64 `yaml:"a0" json:"a0" mapstructure:"a0"`
	A1     float64 `yaml:"a1" json:"a1" mapstructure:"a1"`
}

// Validate checks for invalid configuration values.
func (c *SpeciesDiameterCoefficients) Validate() error {
	return validateKey(c.Genus, c.Region)
}

// VeteranCoefficients are the three coefficients of a veteran layer relationship.
// For diameters: dq = max(a0 + a1·hl^a2, 22.5).
// For basal area: ba = a0·max(h - a1, 0)^a2·crownClosure/4.
type VeteranCoefficients struct {
	Genus  string  `yaml:"genus" json:"genus" mapstructure:"genus"`
	Region string  `yaml:"region,omitempty" json:"region,omitempty" mapstructure:"region"`
	A0     float64 `yaml:"a0" json:"a0" mapstructure:"a0"`
	A1     float64 `yaml:"a1" json:"a1" mapstructure:"a1"`
	A2     float64 `yaml:"a2" json:"a2" mapstructure:"a2"`
}

// Validate checks for invalid configuration values.
func (c *VeteranCoefficients) Validate() error {
	return validateKey(c.Genus, c.Region)
}

// CoefficientsConfig holds every coefficient table.
// Tables are lists because viper lower-cases map keys.
type CoefficientsConfig struct {
	VolumeGroups        []VolumeGroupCoefficients     `yaml:"volumeGroups" json:"volumeGroups" mapstructure:"volumeGroups"`
	ComponentSizeLimits []ComponentSizeLimits         `yaml:"componentSizeLimits" json:"componentSizeLimits" mapstructure:"componentSizeLimits"`
	SpeciesDiameter     []SpeciesDiameterCoefficients `yaml:"speciesDiameter" json:"speciesDiameter" mapstructure:"speciesDiameter"`
	VeteranDiameter     []VeteranCoefficients         `yaml:"veteranDiameter" json:"veteranDiameter" mapstructure:"veteranDiameter"`
	VeteranBaseArea     []VeteranCoefficients         `yaml:"veteranBaseArea" json:"veteranBaseArea" mapstructure:"veteranBaseArea"`
}

func validateKey(genus, region string) error {
	if strings.TrimSpace(genus) == "" {
		return fmt.Errorf("genus is required")
	}
	switch strings.ToLower(region) {
	case AnyRegion, "coastal", "interior":
		return nil
	default:
		return fmt.Errorf("region must be empty, coastal or interior, got %q", region)
	}
}

// GenusRegionKey identifies an entry of a genus/region keyed table.
type GenusRegionKey struct {
	Genus  string
	Region string
}

func newKey(genus, region string) GenusRegionKey {
	return GenusRegionKey{Genus: strings.ToUpper(strings.TrimSpace(genus)), Region: strings.ToLower(strings.TrimSpace(region))}
}

// keyed is a table entry that validates itself and knows its genus/region key.
type keyed interface {
	Validate() error
	key() GenusRegionKey
}

func (c ComponentSizeLimits) key() GenusRegionKey         { return newKey(c.Genus, c.Region) }
func (c SpeciesDiameterCoefficients) key() GenusRegionKey { return newKey(c.Genus, c.Region) }
func (c VeteranCoefficients) key() GenusRegionKey         { return newKey(c.Genus, c.Region) }

// indexByGenusRegion validates entries and indexes them by genus and region.
// Invalid entries are skipped and logged; on duplicate keys the first entry wins.
func indexByGenusRegion[T any, P interface {
	*T
	keyed
}](logger logr.Logger, table string, entries []T) map[GenusRegionKey]T {
	out := make(map[GenusRegionKey]T, len(entries))
	for i := range entries {
		entry := P(&entries[i])
		if err := entry.Validate(); err != nil {
			logger.Info("Invalid coefficient entry, skipping",
				"table", table,
				"index", i,
				"error", err)
			continue
		}
		k := entry.key()
		if _, exists := out[k]; exists {
			logger.Info("Duplicate coefficient entry - first entry wins",
				"table", table,
				"genus", k.Genus,
				"region", k.Region,
				"duplicateIndex", i)
			continue
		}
		out[k] = entries[i]
	}
	logger.V(logging.DEBUG).Info("Parsed coefficient table", "table", table, "entries", len(out))
	return out
}

// CoefficientTables is the validated, indexed form of CoefficientsConfig.
type CoefficientTables struct {
	VolumeGroups        map[int]VolumeGroupCoefficients
	ComponentSizeLimits map[GenusRegionKey]ComponentSizeLimits
	SpeciesDiameter     map[GenusRegionKey]SpeciesDiameterCoefficients
	VeteranDiameter     map[GenusRegionKey]VeteranCoefficients
	VeteranBaseArea     map[GenusRegionKey]VeteranCoefficients
}

// Index validates and indexes every table. Invalid entries are skipped with a log
// line and duplicates resolve first-wins, so Index never fails.
func (c *CoefficientsConfig) Index(logger logr.Logger) *CoefficientTables {
	tables := &CoefficientTables{
		VolumeGroups:        make(map[int]VolumeGroupCoefficients, len(c.VolumeGroups)),
		ComponentSizeLimits: indexByGenusRegion(logger, "componentSizeLimits", c.ComponentSizeLimits),
		SpeciesDiameter:     indexByGenusRegion(logger, "speciesDiameter", c.SpeciesDiameter),
		VeteranDiameter:     indexByGenusRegion(logger, "veteranDiameter", c.VeteranDiameter),
		VeteranBaseArea:     indexByGenusRegion(logger, "veteranBaseArea", c.VeteranBaseArea),
	}
	for i := range c.VolumeGroups {
		entry := c.VolumeGroups[i]
		if err := entry.Validate(); err != nil {
			logger.Info("Invalid coefficient entry, skipping", "table", "volumeGroups", "index", i, "error", err)
			continue
		}
		if _, exists := tables.VolumeGroups[entry.Group]; exists {
			logger.Info("Duplicate coefficient entry - first entry wins",
				"table", "volumeGroups", "group", entry.Group, "duplicateIndex", i)
			continue
		}
		tables.VolumeGroups[entry.Group] = entry
	}
	return tables
}

// Lookup returns the entry for genus in region, falling back to the any-region entry.
func Lookup[T any](table map[GenusRegionKey]T, genus, region string) (T, bool) {
	if v, ok := table[newKey(genus, region)]; ok {
		return v, true
	}
	v, ok := table[newKey(genus, AnyRegion)]
	return v, ok
}
