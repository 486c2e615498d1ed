package catalog

// DamageType enumerates the damage families weapons can deal and bots can resist.
type DamageType string

const (
	DamageElectromagnetic DamageType = "Electromagnetic"
	DamageEntropic        DamageType = "Entropic"
	DamageExplosive       DamageType = "Explosive"
	DamageImpact          DamageType = "Impact"
	DamageKinetic         DamageType = "Kinetic"
	DamagePhasic          DamageType = "Phasic"
	DamagePiercing        DamageType = "Piercing"
	DamageSlashing        DamageType = "Slashing"
	DamageSpecial         DamageType = "Special"
	DamageThermal         DamageType = "Thermal"
)

// Valid reports whether the damage type is one of the known families.
func (d DamageType) Valid() bool {
	switch d {
	case DamageElectromagnetic, DamageEntropic, DamageExplosive, DamageImpact, DamageKinetic,
		DamagePhasic, DamagePiercing, DamageSlashing, DamageSpecial, DamageThermal:
		return true
	}
	return false
}

// Critical names a special effect that may trigger on a hit.
type Critical string

const (
	CriticalNone      Critical = ""
	CriticalBlast     Critical = "Blast"
	CriticalBurn      Critical = "Burn"
	CriticalCorrupt   Critical = "Corrupt"
	CriticalDestroy   Critical = "Destroy"
	CriticalDetonate  Critical = "Detonate"
	CriticalMeltdown  Critical = "Meltdown"
	CriticalIntensify Critical = "Intensify"
	CriticalPhase     Critical = "Phase"
	CriticalPuncture  Critical = "Puncture"
	CriticalSmash     Critical = "Smash"
	CriticalSever     Critical = "Sever"
	CriticalSunder    Critical = "Sunder"
)

// Valid reports whether the critical is known. The empty critical is valid.
func (c Critical) Valid() bool {
	switch c {
	case CriticalNone, CriticalBlast, CriticalBurn, CriticalCorrupt, CriticalDestroy, CriticalDetonate,
		CriticalMeltdown, CriticalIntensify, CriticalPhase, CriticalPuncture, CriticalSmash,
		CriticalSever, CriticalSunder:
		return true
	}
	return false
}

// Immunity names a class of effects a bot ignores.
type Immunity string

const (
	ImmunityCoring        Immunity = "Coring"
	ImmunityCriticals     Immunity = "Criticals"
	ImmunityDismemberment Immunity = "Dismemberment"
	ImmunityDisruption    Immunity = "Disruption"
	ImmunityHacking       Immunity = "Hacking"
	ImmunityJamming       Immunity = "Jamming"
	ImmunityMeltdown      Immunity = "Meltdown"
)

// Valid reports whether the immunity is known.
func (i Immunity) Valid() bool {
	switch i {
	case ImmunityCoring, ImmunityCriticals, ImmunityDismemberment, ImmunityDisruption,
		ImmunityHacking, ImmunityJamming, ImmunityMeltdown:
		return true
	}
	return false
}

// Size is a bot's size class, which shifts attacker accuracy.
type Size string

const (
	SizeHuge   Size = "Huge"
	SizeLarge  Size = "Large"
	SizeMedium Size = "Medium"
	SizeSmall  Size = "Small"
	SizeTiny   Size = "Tiny"
)

// AccuracyModifier returns the flat accuracy adjustment for targeting a bot of this size.
func (s Size) AccuracyModifier() (int, bool) {
	switch s {
	case SizeHuge:
		return 30, true
	case SizeLarge:
		return 10, true
	case SizeMedium:
		return 0, true
	case SizeSmall:
		return -10, true
	case SizeTiny:
		return -30, true
	}
	return 0, false
}

// Slot identifies the equipment slot a part occupies. SlotCore is only used by shielding.
type Slot string

const (
	SlotNone       Slot = "N/A"
	SlotPower      Slot = "Power"
	SlotPropulsion Slot = "Propulsion"
	SlotUtility    Slot = "Utility"
	SlotWeapon     Slot = "Weapon"
	SlotCore       Slot = "Core"
)

// Valid reports whether the slot may be assigned to an equipped part.
func (s Slot) Valid() bool {
	switch s {
	case SlotNone, SlotPower, SlotPropulsion, SlotUtility, SlotWeapon:
		return true
	}
	return false
}

// ItemType is the fine-grained item category.
type ItemType string

const (
	ItemProtection         ItemType = "Protection"
	ItemTreads             ItemType = "Treads"
	ItemLeg                ItemType = "Leg"
	ItemWheel              ItemType = "Wheel"
	ItemHoverUnit          ItemType = "Hover Unit"
	ItemFlightUnit         ItemType = "Flight Unit"
	ItemEngine             ItemType = "Engine"
	ItemPowerCore          ItemType = "Power Core"
	ItemReactor            ItemType = "Reactor"
	ItemDevice             ItemType = "Device"
	ItemStorage            ItemType = "Storage"
	ItemProcessor          ItemType = "Processor"
	ItemEnergyGun          ItemType = "Energy Gun"
	ItemEnergyCannon       ItemType = "Energy Cannon"
	ItemBallisticGun       ItemType = "Ballistic Gun"
	ItemBallisticCannon    ItemType = "Ballistic Cannon"
	ItemLauncher           ItemType = "Launcher"
	ItemSpecialWeapon      ItemType = "Special Weapon"
	ItemImpactWeapon       ItemType = "Impact Weapon"
	ItemSlashingWeapon     ItemType = "Slashing Weapon"
	ItemPiercingWeapon     ItemType = "Piercing Weapon"
	ItemSpecialMeleeWeapon ItemType = "Special Melee Weapon"
)

// IsMelee reports whether the type is a melee weapon category.
func (t ItemType) IsMelee() bool {
	switch t {
	case ItemImpactWeapon, ItemSlashingWeapon, ItemPiercingWeapon, ItemSpecialMeleeWeapon:
		return true
	}
	return false
}

// IsWeapon reports whether the type is any weapon category.
func (t ItemType) IsWeapon() bool {
	switch t {
	case ItemEnergyGun, ItemEnergyCannon, ItemBallisticGun, ItemBallisticCannon, ItemLauncher, ItemSpecialWeapon:
		return true
	}
	return t.IsMelee()
}

// Movement describes how a bot moves.
type Movement string

const (
	MovementWalking  Movement = "Walking"
	MovementTreaded  Movement = "Treaded"
	MovementWheeled  Movement = "Wheeled"
	MovementHovering Movement = "Hovering"
	MovementFlying   Movement = "Flying"
)

// Airborne reports whether attackers take the hover/flight accuracy penalty.
func (m Movement) Airborne() bool {
	return m == MovementHovering || m == MovementFlying
}

// Spectrum is the engine-explosion chance band of a weapon.
type Spectrum string

const (
	SpectrumNone         Spectrum = ""
	SpectrumWide         Spectrum = "Wide"
	SpectrumIntermediate Spectrum = "Intermediate"
	SpectrumNarrow       Spectrum = "Narrow"
	SpectrumFine         Spectrum = "Fine"
)

// Chance converts the spectrum band into a percent chance.
func (s Spectrum) Chance() (int, bool) {
	switch s {
	case SpectrumNone:
		return 0, true
	case SpectrumWide:
		return 10, true
	case SpectrumIntermediate:
		return 30, true
	case SpectrumNarrow:
		return 50, true
	case SpectrumFine:
		return 100, true
	}
	return 0, false
}
