package combat

import (
	"combatsim/broker/internal/catalog"
)

// PartInstance is one equipped part of the defending bot for a single trial.
type PartInstance struct {
	Def                   *catalog.PartDefinition
	Name                  string
	Slot                  catalog.Slot
	Type                  catalog.ItemType
	Size                  int
	Coverage              int
	ArmorAnalyzedCoverage int
	Integrity             int
	Protection            bool
	// Resistances lists what the part adds to the bot while it survives.
	Resistances         map[catalog.DamageType]int
	SelfDamageReduction float64
}

func newPartInstance(def *catalog.PartDefinition) *PartInstance {
	part := &PartInstance{
		Def:                 def,
		Name:                def.Name,
		Slot:                def.Slot,
		Type:                def.Type,
		Size:                def.Size,
		Coverage:            def.Coverage,
		Integrity:           def.Integrity,
		Protection:          def.IsProtection(),
		SelfDamageReduction: 1,
	}
	if part.Size <= 0 {
		part.Size = 1
	}
	// Armor integrity analyzers see straight through protection.
	if !part.Protection {
		part.ArmorAnalyzedCoverage = part.Coverage
	}
	switch trait := def.Trait.(type) {
	case catalog.ResistTrait:
		part.Resistances = make(map[catalog.DamageType]int, len(trait.Resists))
		for damageType, value := range trait.Resists {
			part.Resistances[damageType] = value
		}
	case catalog.SelfDamageReductionTrait:
		part.SelfDamageReduction = trait.Factor
	}
	return part
}

func (p *PartInstance) clone() *PartInstance {
	dup := *p
	if p.Resistances != nil {
		dup.Resistances = make(map[catalog.DamageType]int, len(p.Resistances))
		for damageType, value := range p.Resistances {
			dup.Resistances[damageType] = value
		}
	}
	return &dup
}

// BotState is the mutable defending unit. Each trial works on its own clone.
type BotState struct {
	Def                     *catalog.BotDefinition
	CoreIntegrity           int
	InitialCoreIntegrity    int
	CoreCoverage            int
	Corruption              float64
	CoreDisrupted           bool
	TotalCoverage           int
	ArmorAnalyzedCoverage   int
	Parts                   []*PartInstance
	Defense                 DefensiveState
	Regen                   int
	Resistances             map[catalog.DamageType]int
	ExternalDamageReduction ExternalDamageReduction

	immunities map[catalog.Immunity]bool
}

// NewBotState expands the bot's loadout into fresh part instances and folds the
// resistances granted by parts into the bot's innate ones.
func NewBotState(cat *catalog.Catalog, def *catalog.BotDefinition, external ExternalDamageReduction) (*BotState, error) {
	bot := &BotState{
		Def:                     def,
		CoreIntegrity:           def.CoreIntegrity,
		InitialCoreIntegrity:    def.CoreIntegrity,
		CoreCoverage:            def.CoreCoverage,
		TotalCoverage:           def.CoreCoverage,
		ArmorAnalyzedCoverage:   def.CoreCoverage,
		Regen:                   def.CoreRegen,
		Resistances:             make(map[catalog.DamageType]int, len(def.Resistances)),
		ExternalDamageReduction: external,
		immunities:              make(map[catalog.Immunity]bool, len(def.Immunities)),
	}
	for damageType, value := range def.Resistances {
		bot.Resistances[damageType] = value
	}
	for _, immunity := range def.Immunities {
		bot.immunities[immunity] = true
	}

	for _, equipped := range def.Parts {
		partDef, err := cat.Part(equipped.Name)
		if err != nil {
			return nil, err
		}
		for i := 0; i < equipped.Number; i++ {
			part := newPartInstance(partDef)
			bot.Parts = append(bot.Parts, part)
			bot.TotalCoverage += part.Coverage
			bot.ArmorAnalyzedCoverage += part.ArmorAnalyzedCoverage
			for damageType, value := range part.Resistances {
				bot.Resistances[damageType] += value
			}
		}
	}
	bot.Defense = BuildDefensiveState(bot.Parts, external)
	return bot, nil
}

// Clone deep-copies everything a trial can mutate and rebuilds the defensive
// state so its entries point at the cloned parts.
func (b *BotState) Clone() *BotState {
	dup := *b
	dup.Parts = make([]*PartInstance, len(b.Parts))
	for i, part := range b.Parts {
		dup.Parts[i] = part.clone()
	}
	dup.Resistances = make(map[catalog.DamageType]int, len(b.Resistances))
	for damageType, value := range b.Resistances {
		dup.Resistances[damageType] = value
	}
	dup.Defense = BuildDefensiveState(dup.Parts, b.ExternalDamageReduction)
	return &dup
}

// Immune reports whether the bot carries the immunity.
func (b *BotState) Immune(immunity catalog.Immunity) bool {
	return b.immunities[immunity]
}

// ResistDamage applies the bot's percentage resistance for the damage type.
func (b *BotState) ResistDamage(damage int, damageType catalog.DamageType) int {
	resist, ok := b.Resistances[damageType]
	if !ok {
		return damage
	}
	return int(float64(damage) * (1 - float64(resist)/100))
}

// CoverageConsistent checks that the tracked coverage totals match the surviving parts.
func (b *BotState) CoverageConsistent() bool {
	total, analyzed := b.CoreCoverage, b.CoreCoverage
	for _, part := range b.Parts {
		total += part.Coverage
		analyzed += part.ArmorAnalyzedCoverage
	}
	return total == b.TotalCoverage && analyzed == b.ArmorAnalyzedCoverage
}

func (b *BotState) indexOf(part *PartInstance) int {
	for i, candidate := range b.Parts {
		if candidate == part {
			return i
		}
	}
	return -1
}

func (b *BotState) countParts(match func(*PartInstance) bool) int {
	count := 0
	for _, part := range b.Parts {
		if match(part) {
			count++
		}
	}
	return count
}
