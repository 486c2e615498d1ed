package catalog

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// PartDefinition describes any equippable item. Weapons carry a non-nil Weapon block.
type PartDefinition struct {
	Name      string            `yaml:"name" json:"name"`
	Slot      Slot              `yaml:"slot" json:"slot"`
	Type      ItemType          `yaml:"type" json:"type"`
	Size      int               `yaml:"size,omitempty" json:"size,omitempty"`
	Coverage  int               `yaml:"coverage" json:"coverage"`
	Integrity int               `yaml:"integrity" json:"integrity"`
	Mass      int               `yaml:"mass,omitempty" json:"mass,omitempty"`
	TraitSpec *TraitSpec        `yaml:"trait,omitempty" json:"trait,omitempty"`
	Weapon    *WeaponStats      `yaml:"weapon,omitempty" json:"weapon,omitempty"`
	Trait     SpecialTrait      `yaml:"-" json:"-"`
	Stats     *WeaponDefinition `yaml:"-" json:"-"`
}

// IsProtection reports whether the part is armor that soaks overflow damage.
func (p *PartDefinition) IsProtection() bool { return p.Type == ItemProtection }

// WeaponStats is the serialised weapon block of a part.
type WeaponStats struct {
	Damage            string     `yaml:"damage,omitempty" json:"damage,omitempty"`
	DamageType        DamageType `yaml:"damageType,omitempty" json:"damageType,omitempty"`
	Explosion         string     `yaml:"explosion,omitempty" json:"explosion,omitempty"`
	ExplosionType     DamageType `yaml:"explosionType,omitempty" json:"explosionType,omitempty"`
	Critical          int        `yaml:"critical,omitempty" json:"critical,omitempty"`
	CriticalType      Critical   `yaml:"criticalType,omitempty" json:"criticalType,omitempty"`
	Delay             int        `yaml:"delay,omitempty" json:"delay,omitempty"`
	Targeting         int        `yaml:"targeting,omitempty" json:"targeting,omitempty"`
	Recoil            int        `yaml:"recoil,omitempty" json:"recoil,omitempty"`
	ProjectileCount   int        `yaml:"projectiles,omitempty" json:"projectiles,omitempty"`
	Waypoints         bool       `yaml:"waypoints,omitempty" json:"waypoints,omitempty"`
	Overloadable      bool       `yaml:"overloadable,omitempty" json:"overloadable,omitempty"`
	Sigix             bool       `yaml:"sigix,omitempty" json:"sigix,omitempty"`
	Disruption        int        `yaml:"disruption,omitempty" json:"disruption,omitempty"`
	Spectrum          Spectrum   `yaml:"spectrum,omitempty" json:"spectrum,omitempty"`
	ExplosionSpectrum Spectrum   `yaml:"explosionSpectrum,omitempty" json:"explosionSpectrum,omitempty"`
}

// DamageRange is an inclusive damage interval.
type DamageRange struct {
	Min int
	Max int
}

// WeaponDefinition is the validated, parsed form of WeaponStats.
type WeaponDefinition struct {
	Name              string
	Type              ItemType
	Mass              int
	Damage            DamageRange
	DamageType        DamageType
	HasDamage         bool
	Explosion         DamageRange
	ExplosionType     DamageType
	HasExplosion      bool
	Critical          int
	CriticalType      Critical
	Delay             int
	Targeting         int
	Recoil            int
	ProjectileCount   int
	Waypoints         bool
	Overloadable      bool
	Sigix             bool
	Disruption        int
	Spectrum          int
	ExplosionSpectrum int
}

// Melee reports whether the weapon is used in melee combat.
func (w *WeaponDefinition) Melee() bool { return w.Type.IsMelee() }

// EquippedPart references a part by name with a multiplicity.
type EquippedPart struct {
	Name   string `yaml:"name" json:"name"`
	Number int    `yaml:"number,omitempty" json:"number,omitempty"`
}

// BotDefinition describes a hostile unit and its standard loadout.
type BotDefinition struct {
	Name          string             `yaml:"name" json:"name"`
	Size          Size               `yaml:"size" json:"size"`
	Movement      Movement           `yaml:"movement" json:"movement"`
	Speed         int                `yaml:"speed,omitempty" json:"speed,omitempty"`
	CoreIntegrity int                `yaml:"coreIntegrity" json:"coreIntegrity"`
	CoreCoverage  int                `yaml:"coreCoverage" json:"coreCoverage"`
	CoreRegen     int                `yaml:"coreRegen,omitempty" json:"coreRegen,omitempty"`
	Immunities    []Immunity         `yaml:"immunities,omitempty" json:"immunities,omitempty"`
	Resistances   map[DamageType]int `yaml:"resistances,omitempty" json:"resistances,omitempty"`
	Traits        []string           `yaml:"traits,omitempty" json:"traits,omitempty"`
	Parts         []EquippedPart     `yaml:"parts" json:"parts"`
}

// HasImmunity reports whether the bot carries the immunity.
func (b *BotDefinition) HasImmunity(immunity Immunity) bool {
	for _, candidate := range b.Immunities {
		if candidate == immunity {
			return true
		}
	}
	return false
}

var coreRegenPattern = regexp.MustCompile(`Core Regeneration \((\d+)\)`)

// parseCoreRegen extracts the regeneration rate from a trait line.
func parseCoreRegen(traits []string) int {
	for _, trait := range traits {
		match := coreRegenPattern.FindStringSubmatch(trait)
		if match == nil {
			continue
		}
		value, err := strconv.Atoi(match[1])
		if err == nil {
			return value
		}
	}
	return 0
}

// ParseDamageRange accepts "N" or "MIN-MAX".
func ParseDamageRange(raw string) (DamageRange, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return DamageRange{}, fmt.Errorf("empty damage range")
	}
	low, high, found := strings.Cut(raw, "-")
	minValue, err := strconv.Atoi(strings.TrimSpace(low))
	if err != nil {
		return DamageRange{}, fmt.Errorf("parse damage range %q: %w", raw, err)
	}
	maxValue := minValue
	if found {
		maxValue, err = strconv.Atoi(strings.TrimSpace(high))
		if err != nil {
			return DamageRange{}, fmt.Errorf("parse damage range %q: %w", raw, err)
		}
	}
	if minValue < 0 || maxValue < minValue {
		return DamageRange{}, fmt.Errorf("invalid damage range %q", raw)
	}
	return DamageRange{Min: minValue, Max: maxValue}, nil
}

func buildWeaponDefinition(part *PartDefinition) (*WeaponDefinition, error) {
	stats := part.Weapon
	def := &WeaponDefinition{
		Name:            part.Name,
		Type:            part.Type,
		Mass:            part.Mass,
		Critical:        stats.Critical,
		CriticalType:    stats.CriticalType,
		Delay:           stats.Delay,
		Targeting:       stats.Targeting,
		Recoil:          stats.Recoil,
		ProjectileCount: stats.ProjectileCount,
		Waypoints:       stats.Waypoints,
		Overloadable:    stats.Overloadable,
		Sigix:           stats.Sigix,
		Disruption:      stats.Disruption,
	}
	if def.ProjectileCount <= 0 {
		def.ProjectileCount = 1
	}
	if !part.Type.IsWeapon() {
		return nil, fmt.Errorf("weapon block on non-weapon type %q", part.Type)
	}
	if !stats.CriticalType.Valid() {
		return nil, fmt.Errorf("unknown critical %q", stats.CriticalType)
	}
	if stats.Damage != "" {
		rng, err := ParseDamageRange(stats.Damage)
		if err != nil {
			return nil, err
		}
		if !stats.DamageType.Valid() {
			return nil, fmt.Errorf("unknown damage type %q", stats.DamageType)
		}
		def.Damage, def.DamageType, def.HasDamage = rng, stats.DamageType, true
	}
	if stats.Explosion != "" {
		rng, err := ParseDamageRange(stats.Explosion)
		if err != nil {
			return nil, err
		}
		if !stats.ExplosionType.Valid() {
			return nil, fmt.Errorf("unknown explosion type %q", stats.ExplosionType)
		}
		def.Explosion, def.ExplosionType, def.HasExplosion = rng, stats.ExplosionType, true
	}
	if def.HasDamage && def.DamageType == DamageExplosive && def.CriticalType != CriticalNone {
		return nil, fmt.Errorf("explosive damage cannot carry a critical")
	}
	spectrum, ok := stats.Spectrum.Chance()
	if !ok {
		return nil, fmt.Errorf("unknown spectrum %q", stats.Spectrum)
	}
	explosionSpectrum, ok := stats.ExplosionSpectrum.Chance()
	if !ok {
		return nil, fmt.Errorf("unknown explosion spectrum %q", stats.ExplosionSpectrum)
	}
	def.Spectrum, def.ExplosionSpectrum = spectrum, explosionSpectrum
	return def, nil
}
