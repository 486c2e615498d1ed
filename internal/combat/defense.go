package combat

import (
	"sort"

	"combatsim/broker/internal/catalog"
)

// DamageReductionOrder is the fixed priority of damage reducers. Only the first
// live reducer in this order ever applies to a hit.
var DamageReductionOrder = []string{
	"Phase Wall",
	"Vortex Field Projector",
	"7V-RTL's Ultimate Field",
	"Force Field",
	"Imp. Force Field",
	"Adv. Force Field",
	"Exp. Force Field",
	"Shield Generator",
	"Imp. Shield Generator",
	"Adv. Shield Generator",
	"Exp. Shield Generator",
	"Stasis Bubble",
	"Stasis Trap",
	"Remote Shield",
	"Imp. Remote Shield",
	"Remote Force Field",
	"Imp. Remote Force Field",
	"Energy Mantle",
	"Imp. Energy Mantle",
	"AEGIS Remote Shield",
}

// AntimissileEntry is a part able to shoot down launcher projectiles.
type AntimissileEntry struct {
	Part   *PartInstance
	Chance int
}

// AvoidEntry is a part lowering all incoming accuracy.
type AvoidEntry struct {
	Part  *PartInstance
	Legs  int
	Other int
}

// ChanceEntry is a part with a flat percent chance, used for corruption ignore.
type ChanceEntry struct {
	Part   *PartInstance
	Chance int
}

// ReductionEntry scales damage: Factor multiplies damage reducers and is the absorbed
// fraction for shielding.
type ReductionEntry struct {
	Part   *PartInstance
	Name   string
	Factor float64
}

// RangedAvoidEntry is a part lowering ranged accuracy.
type RangedAvoidEntry struct {
	Part  *PartInstance
	Avoid int
}

func (e AntimissileEntry) owner() *PartInstance { return e.Part }
func (e AvoidEntry) owner() *PartInstance       { return e.Part }
func (e ChanceEntry) owner() *PartInstance      { return e.Part }
func (e ReductionEntry) owner() *PartInstance   { return e.Part }
func (e RangedAvoidEntry) owner() *PartInstance { return e.Part }

type defenseEntry interface {
	owner() *PartInstance
}

// firstLive returns the highest priority entry whose part still has integrity.
// Entries are never removed; dead ones are skipped.
func firstLive[E defenseEntry](entries []E) (E, bool) {
	for _, entry := range entries {
		if entry.owner().Integrity > 0 {
			return entry, true
		}
	}
	var zero E
	return zero, false
}

// DefensiveState groups the defensive parts of a bot by effect, in priority order.
type DefensiveState struct {
	Antimissile      []AntimissileEntry
	Avoid            []AvoidEntry
	CorruptionIgnore []ChanceEntry
	DamageReduction  []ReductionEntry
	RangedAvoid      []RangedAvoidEntry
	Shieldings       map[catalog.Slot][]ReductionEntry
}

// BuildDefensiveState scans parts once and files each special trait under its effect.
// The external reducer, if any, is represented by a detached part that never dies.
func BuildDefensiveState(parts []*PartInstance, external ExternalDamageReduction) DefensiveState {
	state := DefensiveState{Shieldings: make(map[catalog.Slot][]ReductionEntry, 5)}
	for _, part := range parts {
		if part.Def == nil || part.Def.Trait == nil {
			continue
		}
		switch trait := part.Def.Trait.(type) {
		case catalog.AntimissileTrait:
			state.Antimissile = append(state.Antimissile, AntimissileEntry{Part: part, Chance: trait.Chance})
		case catalog.AvoidTrait:
			state.Avoid = append(state.Avoid, AvoidEntry{Part: part, Legs: trait.Legs, Other: trait.Other})
		case catalog.CorruptionIgnoreTrait:
			state.CorruptionIgnore = append(state.CorruptionIgnore, ChanceEntry{Part: part, Chance: trait.Chance})
		case catalog.DamageReductionTrait:
			state.DamageReduction = append(state.DamageReduction, ReductionEntry{Part: part, Name: part.Name, Factor: trait.Factor})
		case catalog.RangedAvoidTrait:
			state.RangedAvoid = append(state.RangedAvoid, RangedAvoidEntry{Part: part, Avoid: trait.Avoid})
		case catalog.ShieldingTrait:
			state.Shieldings[trait.Slot] = append(state.Shieldings[trait.Slot], ReductionEntry{Part: part, Name: part.Name, Factor: trait.Fraction})
		case catalog.ResistTrait, catalog.SelfDamageReductionTrait:
			// Carried on the part instance itself.
		}
	}

	if factor, ok := external.Factor(); ok {
		source := &PartInstance{Name: string(external), Integrity: 1, SelfDamageReduction: 1}
		state.DamageReduction = append(state.DamageReduction, ReductionEntry{Part: source, Name: string(external), Factor: factor})
	}
	sort.SliceStable(state.DamageReduction, func(i, j int) bool {
		return damageReductionRank(state.DamageReduction[i].Name) < damageReductionRank(state.DamageReduction[j].Name)
	})
	return state
}

func damageReductionRank(name string) int {
	for i, candidate := range DamageReductionOrder {
		if candidate == name {
			return i
		}
	}
	return len(DamageReductionOrder)
}

// DamageReductionFactor returns the multiplier of the first live reducer, or 1.
func (d *DefensiveState) DamageReductionFactor() float64 {
	if entry, ok := firstLive(d.DamageReduction); ok {
		return entry.Factor
	}
	return 1
}

// Shielding returns the first live shielding covering the slot.
func (d *DefensiveState) Shielding(slot catalog.Slot) (ReductionEntry, bool) {
	return firstLive(d.Shieldings[slot])
}
