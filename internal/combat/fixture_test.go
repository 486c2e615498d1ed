package combat

import (
	"testing"

	"combatsim/broker/internal/catalog"
)

// scriptedSource replays fixed IntN results. Values are offsets from the low end of the
// requested range and are clamped to it; an exhausted script keeps returning 0.
type scriptedSource struct {
	draws []int
	calls int
}

func (s *scriptedSource) IntN(n int) int {
	s.calls++
	if len(s.draws) == 0 {
		return 0
	}
	value := s.draws[0]
	s.draws = s.draws[1:]
	if value >= n {
		value = n - 1
	}
	return value
}

func script(draws ...int) *scriptedSource {
	return &scriptedSource{draws: draws}
}

func fixtureCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	doc := catalog.Document{
		Traits: catalog.BuiltinTraits(),
		Parts: []catalog.PartDefinition{
			{Name: "Test Plate", Slot: catalog.SlotUtility, Type: catalog.ItemProtection, Coverage: 50, Integrity: 25},
			{Name: "Test Engine", Slot: catalog.SlotPower, Type: catalog.ItemEngine, Coverage: 40, Integrity: 20},
			{Name: "Test Leg", Slot: catalog.SlotPropulsion, Type: catalog.ItemLeg, Coverage: 60, Integrity: 100},
			{Name: "Test Heavy Leg", Slot: catalog.SlotPropulsion, Type: catalog.ItemLeg, Size: 2, Coverage: 80, Integrity: 100},
			{Name: "Test Thermal Shield", Slot: catalog.SlotUtility, Type: catalog.ItemDevice, Coverage: 30, Integrity: 30,
				TraitSpec: &catalog.TraitSpec{Kind: catalog.TraitResist, Resists: map[catalog.DamageType]int{catalog.DamageThermal: 20}}},
			{Name: "Core Shielding", Slot: catalog.SlotUtility, Type: catalog.ItemProtection, Coverage: 60, Integrity: 50},
			{Name: "Force Field", Slot: catalog.SlotUtility, Type: catalog.ItemDevice, Coverage: 40, Integrity: 40},
			{Name: "Test Rifle", Slot: catalog.SlotWeapon, Type: catalog.ItemBallisticGun, Coverage: 0, Integrity: 10,
				Weapon: &catalog.WeaponStats{Damage: "10-20", DamageType: catalog.DamageKinetic}},
			{Name: "Test Laser", Slot: catalog.SlotWeapon, Type: catalog.ItemEnergyGun, Coverage: 0, Integrity: 10,
				Weapon: &catalog.WeaponStats{Damage: "10", DamageType: catalog.DamageThermal, Delay: 50}},
			{Name: "Test Blade", Slot: catalog.SlotWeapon, Type: catalog.ItemSlashingWeapon, Coverage: 0, Integrity: 10,
				Weapon: &catalog.WeaponStats{Damage: "10-12", DamageType: catalog.DamageSlashing, Delay: 100}},
			{Name: "Test Dagger", Slot: catalog.SlotWeapon, Type: catalog.ItemPiercingWeapon, Coverage: 0, Integrity: 10,
				Weapon: &catalog.WeaponStats{Damage: "4", DamageType: catalog.DamagePiercing}},
			{Name: "Test Point Defense", Slot: catalog.SlotUtility, Type: catalog.ItemDevice, Coverage: 0, Integrity: 10,
				TraitSpec: &catalog.TraitSpec{Kind: catalog.TraitAntimissile, Chance: 50}},
			{Name: "Ram", Slot: catalog.SlotWeapon, Type: catalog.ItemSpecialMeleeWeapon, Coverage: 0, Integrity: 1,
				Weapon: &catalog.WeaponStats{}},
		},
		Bots: []catalog.BotDefinition{
			{Name: "Bare Core", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 100, CoreCoverage: 100},
			{Name: "Fragile", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 1, CoreCoverage: 100},
			{Name: "Plated", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 100, CoreCoverage: 0,
				Parts: []catalog.EquippedPart{{Name: "Test Plate"}}},
			{Name: "Walker", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 100, CoreCoverage: 0,
				Parts: []catalog.EquippedPart{{Name: "Test Leg"}}},
			{Name: "Insulated", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 100, CoreCoverage: 100,
				Resistances: map[catalog.DamageType]int{catalog.DamageThermal: 10},
				Parts:       []catalog.EquippedPart{{Name: "Test Thermal Shield"}, {Name: "Test Leg", Number: 2}}},
			{Name: "Fireproof", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 100, CoreCoverage: 100,
				Resistances: map[catalog.DamageType]int{catalog.DamageThermal: 100}},
			{Name: "Warden", Size: catalog.SizeLarge, Movement: catalog.MovementWalking, CoreIntegrity: 100, CoreCoverage: 100,
				Immunities: []catalog.Immunity{catalog.ImmunityCriticals}},
			{Name: "Shielded", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 200, CoreCoverage: 100,
				Parts: []catalog.EquippedPart{{Name: "Core Shielding"}, {Name: "Force Field"}}},
			{Name: "Flyer", Size: catalog.SizeSmall, Movement: catalog.MovementFlying, CoreIntegrity: 100, CoreCoverage: 100},
			{Name: "Defended", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 100, CoreCoverage: 100,
				Parts: []catalog.EquippedPart{{Name: "Test Point Defense"}}},
			{Name: "Bulwark", Size: catalog.SizeLarge, Movement: catalog.MovementWalking, CoreIntegrity: 1000, CoreCoverage: 100},
			{Name: "Steady", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 100, CoreCoverage: 100,
				Immunities: []catalog.Immunity{catalog.ImmunityDisruption}},
			{Name: "Mixed", Size: catalog.SizeMedium, Movement: catalog.MovementWalking, CoreIntegrity: 100, CoreCoverage: 100,
				Parts: []catalog.EquippedPart{{Name: "Test Engine"}, {Name: "Test Leg"}, {Name: "Test Heavy Leg"}, {Name: "Test Plate"}}},
		},
	}
	cat, err := catalog.New(doc)
	if err != nil {
		t.Fatalf("build fixture catalog: %v", err)
	}
	return cat
}

// newTestTrial builds a trial against the named bot with no weapons equipped.
func newTestTrial(t *testing.T, cat *catalog.Catalog, botName string, rules RulesVersion, src Source) *Trial {
	t.Helper()
	def, err := cat.Bot(botName)
	if err != nil {
		t.Fatalf("bot lookup: %v", err)
	}
	bot, err := NewBotState(cat, def, ExternalNone)
	if err != nil {
		t.Fatalf("bot state: %v", err)
	}
	return &Trial{Bot: bot, Rules: rules, rng: src, canOverflow: true}
}

func findPart(t *testing.T, bot *BotState, name string) *PartInstance {
	t.Helper()
	for _, part := range bot.Parts {
		if part.Name == name {
			return part
		}
	}
	t.Fatalf("part %q not equipped", name)
	return nil
}
