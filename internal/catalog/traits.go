package catalog

import (
	"fmt"
	"sort"
)

// TraitKind discriminates the SpecialTrait union.
type TraitKind string

const (
	TraitAntimissile         TraitKind = "antimissile"
	TraitAvoid               TraitKind = "avoid"
	TraitCorruptionIgnore    TraitKind = "corruption_ignore"
	TraitDamageReduction     TraitKind = "damage_reduction"
	TraitResist              TraitKind = "resist"
	TraitRangedAvoid         TraitKind = "ranged_avoid"
	TraitSelfDamageReduction TraitKind = "self_damage_reduction"
	TraitShielding           TraitKind = "shielding"
)

// SpecialTrait is a defensive property granted by an equipped part. The set of
// implementations is closed; the combat engine switches over it exhaustively.
type SpecialTrait interface {
	Kind() TraitKind
	specialTrait()
}

// AntimissileTrait grants a per-tile chance to shoot down launcher projectiles.
type AntimissileTrait struct {
	Chance int
}

// AvoidTrait lowers all incoming accuracy; Legs applies to walking bots, Other to the rest.
type AvoidTrait struct {
	Legs  int
	Other int
}

// CorruptionIgnoreTrait grants a chance to ignore each corruption gain.
type CorruptionIgnoreTrait struct {
	Chance int
}

// DamageReductionTrait scales every incoming chunk by Factor.
type DamageReductionTrait struct {
	Factor float64
}

// ResistTrait adds flat percentage resistances while the part survives.
type ResistTrait struct {
	Resists map[DamageType]int
}

// RangedAvoidTrait lowers ranged accuracy only.
type RangedAvoidTrait struct {
	Avoid int
}

// SelfDamageReductionTrait scales damage taken by the part itself.
type SelfDamageReductionTrait struct {
	Factor float64
}

// ShieldingTrait absorbs Fraction of the damage dealt to parts in Slot (or the core).
type ShieldingTrait struct {
	Slot     Slot
	Fraction float64
}

func (AntimissileTrait) Kind() TraitKind         { return TraitAntimissile }
func (AvoidTrait) Kind() TraitKind               { return TraitAvoid }
func (CorruptionIgnoreTrait) Kind() TraitKind    { return TraitCorruptionIgnore }
func (DamageReductionTrait) Kind() TraitKind     { return TraitDamageReduction }
func (ResistTrait) Kind() TraitKind              { return TraitResist }
func (RangedAvoidTrait) Kind() TraitKind         { return TraitRangedAvoid }
func (SelfDamageReductionTrait) Kind() TraitKind { return TraitSelfDamageReduction }
func (ShieldingTrait) Kind() TraitKind           { return TraitShielding }

func (AntimissileTrait) specialTrait()         {}
func (AvoidTrait) specialTrait()               {}
func (CorruptionIgnoreTrait) specialTrait()    {}
func (DamageReductionTrait) specialTrait()     {}
func (ResistTrait) specialTrait()              {}
func (RangedAvoidTrait) specialTrait()         {}
func (SelfDamageReductionTrait) specialTrait() {}
func (ShieldingTrait) specialTrait()           {}

// TraitSpec is the serialised form of a SpecialTrait. Only the fields relevant to Kind are read.
type TraitSpec struct {
	Kind     TraitKind          `yaml:"kind" json:"kind"`
	Chance   int                `yaml:"chance,omitempty" json:"chance,omitempty"`
	Legs     int                `yaml:"legs,omitempty" json:"legs,omitempty"`
	Other    int                `yaml:"other,omitempty" json:"other,omitempty"`
	Factor   float64            `yaml:"factor,omitempty" json:"factor,omitempty"`
	Resists  map[DamageType]int `yaml:"resists,omitempty" json:"resists,omitempty"`
	Avoid    int                `yaml:"avoid,omitempty" json:"avoid,omitempty"`
	Slot     Slot               `yaml:"slot,omitempty" json:"slot,omitempty"`
	Fraction float64            `yaml:"fraction,omitempty" json:"fraction,omitempty"`
}

// Build converts the spec into its typed trait, validating kind-specific fields.
func (s TraitSpec) Build() (SpecialTrait, error) {
	switch s.Kind {
	case TraitAntimissile:
		if err := checkPercent("chance", s.Chance); err != nil {
			return nil, err
		}
		return AntimissileTrait{Chance: s.Chance}, nil
	case TraitAvoid:
		if err := checkPercent("legs", s.Legs); err != nil {
			return nil, err
		}
		if err := checkPercent("other", s.Other); err != nil {
			return nil, err
		}
		return AvoidTrait{Legs: s.Legs, Other: s.Other}, nil
	case TraitCorruptionIgnore:
		if err := checkPercent("chance", s.Chance); err != nil {
			return nil, err
		}
		return CorruptionIgnoreTrait{Chance: s.Chance}, nil
	case TraitDamageReduction:
		if err := checkFactor(s.Factor); err != nil {
			return nil, err
		}
		return DamageReductionTrait{Factor: s.Factor}, nil
	case TraitResist:
		if len(s.Resists) == 0 {
			return nil, fmt.Errorf("resist trait requires at least one resistance")
		}
		resists := make(map[DamageType]int, len(s.Resists))
		for damageType, value := range s.Resists {
			if !damageType.Valid() {
				return nil, fmt.Errorf("unknown damage type %q", damageType)
			}
			if err := checkPercent(string(damageType), value); err != nil {
				return nil, err
			}
			resists[damageType] = value
		}
		return ResistTrait{Resists: resists}, nil
	case TraitRangedAvoid:
		if err := checkPercent("avoid", s.Avoid); err != nil {
			return nil, err
		}
		return RangedAvoidTrait{Avoid: s.Avoid}, nil
	case TraitSelfDamageReduction:
		if err := checkFactor(s.Factor); err != nil {
			return nil, err
		}
		return SelfDamageReductionTrait{Factor: s.Factor}, nil
	case TraitShielding:
		if s.Slot != SlotCore && (!s.Slot.Valid() || s.Slot == SlotNone) {
			return nil, fmt.Errorf("shielding slot %q is not shieldable", s.Slot)
		}
		if err := checkFactor(s.Fraction); err != nil {
			return nil, err
		}
		return ShieldingTrait{Slot: s.Slot, Fraction: s.Fraction}, nil
	default:
		return nil, fmt.Errorf("unknown trait kind %q", s.Kind)
	}
}

// SpecFor serialises a typed trait back into its spec form.
func SpecFor(trait SpecialTrait) TraitSpec {
	switch t := trait.(type) {
	case AntimissileTrait:
		return TraitSpec{Kind: TraitAntimissile, Chance: t.Chance}
	case AvoidTrait:
		return TraitSpec{Kind: TraitAvoid, Legs: t.Legs, Other: t.Other}
	case CorruptionIgnoreTrait:
		return TraitSpec{Kind: TraitCorruptionIgnore, Chance: t.Chance}
	case DamageReductionTrait:
		return TraitSpec{Kind: TraitDamageReduction, Factor: t.Factor}
	case ResistTrait:
		resists := make(map[DamageType]int, len(t.Resists))
		for k, v := range t.Resists {
			resists[k] = v
		}
		return TraitSpec{Kind: TraitResist, Resists: resists}
	case RangedAvoidTrait:
		return TraitSpec{Kind: TraitRangedAvoid, Avoid: t.Avoid}
	case SelfDamageReductionTrait:
		return TraitSpec{Kind: TraitSelfDamageReduction, Factor: t.Factor}
	case ShieldingTrait:
		return TraitSpec{Kind: TraitShielding, Slot: t.Slot, Fraction: t.Fraction}
	}
	return TraitSpec{}
}

// ResistanceTypes returns the damage types of a resist trait in stable order.
func (t ResistTrait) ResistanceTypes() []DamageType {
	types := make([]DamageType, 0, len(t.Resists))
	for damageType := range t.Resists {
		types = append(types, damageType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func checkPercent(field string, value int) error {
	if value < 0 || value > 100 {
		return fmt.Errorf("%s must be within [0, 100], got %d", field, value)
	}
	return nil
}

func checkFactor(value float64) error {
	if !(value > 0) || value > 1 {
		return fmt.Errorf("factor must be within (0, 1], got %v", value)
	}
	return nil
}
