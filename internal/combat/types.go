package combat

import (
	"fmt"
	"strings"

	"combatsim/broker/internal/catalog"
)

// RulesVersion selects between the legacy damage rules and the Beta 11 revision.
type RulesVersion string

const (
	RulesLegacy RulesVersion = "legacy"
	RulesB11    RulesVersion = "b11"
)

// ParseRulesVersion accepts the canonical names case-insensitively. Empty selects legacy.
func ParseRulesVersion(raw string) (RulesVersion, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", string(RulesLegacy):
		return RulesLegacy, nil
	case string(RulesB11), "beta11", "beta 11":
		return RulesB11, nil
	}
	return "", fmt.Errorf("unknown rules version %q", raw)
}

// overflowSuppressedByCritical reports whether a critical hit cancels overflow damage.
// Legacy rules drop overflow whenever a critical was involved; B11 keeps it.
func (r RulesVersion) overflowSuppressedByCritical(critical catalog.Critical) bool {
	if r == RulesB11 {
		return false
	}
	return critical != catalog.CriticalNone
}

// slashingDismembers reports whether slashing hits may sever single-slot parts outright.
func (r RulesVersion) slashingDismembers() bool {
	return r != RulesB11
}

// EndCondition decides when a single trial counts as a success.
type EndCondition string

const (
	EndKill            EndCondition = "Kill"
	EndKillOrDisrupt   EndCondition = "Kill or Core Disrupt"
	EndKillOrNoPower   EndCondition = "Kill or No Power"
	EndKillOrNoWeapons EndCondition = "Kill or No Weapons"
	EndKillOrNoTNC     EndCondition = "Kill or No TNC"
	EndTele            EndCondition = "Tele"
)

// EndConditions lists every supported end condition.
var EndConditions = []EndCondition{EndKill, EndKillOrDisrupt, EndKillOrNoPower, EndKillOrNoWeapons, EndKillOrNoTNC, EndTele}

// Valid reports whether the end condition is known.
func (e EndCondition) Valid() bool {
	for _, candidate := range EndConditions {
		if candidate == e {
			return true
		}
	}
	return false
}

// TransportNetworkCoupler is the part whose loss satisfies EndKillOrNoTNC.
const TransportNetworkCoupler = "Transport Network Coupler"

// Met evaluates the condition against the current bot state.
func (e EndCondition) Met(bot *BotState) bool {
	killed := bot.CoreIntegrity <= 0 || bot.Corruption >= 100
	switch e {
	case EndKill:
		return killed
	case EndKillOrDisrupt:
		return killed || bot.CoreDisrupted
	case EndKillOrNoPower:
		return killed || bot.countParts(func(p *PartInstance) bool { return p.Slot == catalog.SlotPower }) == 0
	case EndKillOrNoWeapons:
		return killed || bot.countParts(func(p *PartInstance) bool { return p.Slot == catalog.SlotWeapon }) == 0
	case EndKillOrNoTNC:
		return killed || bot.countParts(func(p *PartInstance) bool { return p.Name == TransportNetworkCoupler }) == 0
	case EndTele:
		return float64(bot.CoreIntegrity) <= float64(bot.InitialCoreIntegrity)*0.8 ||
			bot.countParts(func(p *PartInstance) bool { return p.Slot == catalog.SlotWeapon }) == 1 ||
			bot.countParts(func(p *PartInstance) bool { return p.Slot == catalog.SlotPropulsion }) == 1
	}
	return killed
}

// SneakAttackStrategy controls when melee attacks count as sneak attacks.
type SneakAttackStrategy string

const (
	SneakNone      SneakAttackStrategy = "None"
	SneakAll       SneakAttackStrategy = "All"
	SneakFirstOnly SneakAttackStrategy = "First Only"
)

// Valid reports whether the strategy is known. Empty is treated as None.
func (s SneakAttackStrategy) Valid() bool {
	switch s {
	case "", SneakNone, SneakAll, SneakFirstOnly:
		return true
	}
	return false
}

// ExternalDamageReduction names a damage reducer projected onto the target by an ally.
type ExternalDamageReduction string

const (
	ExternalNone             ExternalDamageReduction = "None"
	ExternalRemoteShield     ExternalDamageReduction = "Remote Shield"
	ExternalStasisTrap       ExternalDamageReduction = "Stasis Trap"
	ExternalPhaseWall        ExternalDamageReduction = "Phase Wall"
	ExternalRemoteForceField ExternalDamageReduction = "Remote Force Field"
	ExternalStasisBubble     ExternalDamageReduction = "Stasis Bubble"
)

// Factor returns the damage multiplier of the external source. ok is false for None and unknown names.
func (e ExternalDamageReduction) Factor() (float64, bool) {
	switch e {
	case ExternalRemoteShield, ExternalStasisTrap:
		return 0.75, true
	case ExternalPhaseWall, ExternalRemoteForceField, ExternalStasisBubble:
		return 0.5, true
	}
	return 0, false
}

// Valid reports whether the name is known. Empty is treated as None.
func (e ExternalDamageReduction) Valid() bool {
	if e == "" || e == ExternalNone {
		return true
	}
	_, ok := e.Factor()
	return ok
}

// SiegeMode selects the attacker's siege posture for ranged combat.
type SiegeMode string

const (
	SiegeNone         SiegeMode = "No Siege"
	SiegeActive       SiegeMode = "In Siege Mode"
	SiegeHighActive   SiegeMode = "In High Siege Mode"
	SiegeEntering     SiegeMode = "Entering Siege Mode"
	SiegeEnteringHigh SiegeMode = "Entering High Siege Mode"
)

const siegeActivationTUs = 500

// SiegeBonus is the accuracy bonus granted once the attacker has spent TUs in combat.
type SiegeBonus struct {
	Bonus int `json:"bonus"`
	TUs   int `json:"tus"`
}

// Bonus returns the accuracy schedule for the mode.
func (m SiegeMode) Bonus() (SiegeBonus, bool) {
	switch m {
	case "", SiegeNone:
		return SiegeBonus{}, true
	case SiegeActive:
		return SiegeBonus{Bonus: 20}, true
	case SiegeHighActive:
		return SiegeBonus{Bonus: 30}, true
	case SiegeEntering:
		return SiegeBonus{Bonus: 20, TUs: siegeActivationTUs}, true
	case SiegeEnteringHigh:
		return SiegeBonus{Bonus: 30, TUs: siegeActivationTUs}, true
	}
	return SiegeBonus{}, false
}
