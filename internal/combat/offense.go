package combat

import (
	"combatsim/broker/internal/catalog"
)

// Momentum tracks the melee momentum bonus. Current evolves during a trial.
type Momentum struct {
	Initial int `json:"initial"`
	Bonus   int `json:"bonus"`
	Current int `json:"current"`
}

// OffensiveState is the attacker configuration shared by every trial of a run.
// Momentum, SneakAttack and ActionNum are reset at the start of each trial.
type OffensiveState struct {
	Melee               bool
	Ramming             bool
	Momentum            Momentum
	Distance            int
	Siege               SiegeBonus
	FollowupChances     []int
	Analysis            bool
	ChargerBonus        float64
	ArmorAnalyzerChance int
	CoreAnalyzerChance  int
	MeleeAnalysis       [4]int
	Recoil              int
	Treads              int
	RecoilReduction     int
	Speed               int
	VolleyTime          float64
	VolleyTimeModifier  float64
	OverloadBonus       float64
	SneakStrategy       SneakAttackStrategy
	SneakAttack         bool
	ActionAccuracy      bool
	Action1Accuracy     int
	Action2Accuracy     int
	ActionNum           int
}

// SimulatorWeapon is a weapon resolved against the attacker configuration.
type SimulatorWeapon struct {
	Def               *catalog.WeaponDefinition
	Name              string
	BaseAccuracy      int
	Accuracy          int
	CriticalChance    int
	CriticalType      catalog.Critical
	DamageMin         int
	DamageMax         int
	DamageType        catalog.DamageType
	HasDamage         bool
	ExplosionMin      int
	ExplosionMax      int
	ExplosionType     catalog.DamageType
	HasExplosion      bool
	Delay             int
	Disruption        int
	Spectrum          int
	ExplosionSpectrum int
	Projectiles       int
	Recoil            int
	Mass              int
	Waypoints         bool
	IsMissile         bool
	Accelerated       bool
	Overflow          bool
	Overloaded        bool
}

// Recoil returns the weapon's recoil after treads and reducers, never negative.
func Recoil(def *catalog.WeaponDefinition, treads, reduction int) int {
	if def.Recoil == 0 {
		return 0
	}
	recoil := def.Recoil - treads - reduction
	if recoil < 0 {
		return 0
	}
	return recoil
}

// rangedVolleyTimes is the base volley cost by number of weapons fired.
var rangedVolleyTimes = map[int]float64{1: 200, 2: 300, 3: 325, 4: 350, 5: 375, 6: 400}

// RangedVolleyTime computes the TU cost of firing every weapon once.
func RangedVolleyTime(weapons []*catalog.WeaponDefinition, modifier float64) float64 {
	base, ok := rangedVolleyTimes[len(weapons)]
	if !ok {
		base = 400
	}
	for _, weapon := range weapons {
		base += float64(weapon.Delay)
	}
	base *= modifier
	if base < 25 {
		base = 25
	}
	return float64(int(base))
}
