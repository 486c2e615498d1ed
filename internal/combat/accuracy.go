package combat

import "combatsim/broker/internal/catalog"

const (
	minAccuracy       = 10
	maxRangedAccuracy = 95
	maxMeleeAccuracy  = 100
	guidedAccuracy    = 100
)

// meleeAnalysisAccuracy is the accuracy bonus per melee analysis suite tier.
var meleeAnalysisAccuracy = [4]int{5, 6, 8, 12}

// actionAccuracy is the bonus from the attacker's recent movement, keyed by the number
// of volleys already taken in the trial.
func (o *OffensiveState) actionAccuracy() int {
	if !o.ActionAccuracy {
		return 0
	}
	switch o.ActionNum {
	case 0:
		return o.Action1Accuracy
	case 1:
		return o.Action2Accuracy
	}
	return 10
}

// updateWeaponsAccuracy recomputes every weapon's hit chance from the current trial state.
func (t *Trial) updateWeaponsAccuracy() {
	offense := &t.Offense
	bot := t.Bot
	bonus := 0

	//1.- Modifiers shared by every weapon.
	if bot.Def.Movement.Airborne() {
		bonus -= 10
	}
	if avoid, ok := firstLive(bot.Defense.Avoid); ok {
		if bot.Def.Movement == catalog.MovementWalking {
			bonus -= avoid.Legs
		} else {
			bonus -= avoid.Other
		}
	}
	if offense.Analysis {
		bonus += 5
	}

	//2.- Melee and ranged attacks draw on different support parts.
	siegeBonus := 0
	if offense.Melee {
		for i, count := range offense.MeleeAnalysis {
			bonus += count * meleeAnalysisAccuracy[i]
		}
	} else {
		if offense.Distance < 6 {
			bonus += (6 - offense.Distance) * 3
		}
		if t.TUs >= float64(offense.Siege.TUs) {
			siegeBonus = offense.Siege.Bonus
		}
		bonus += siegeBonus
		if rangedAvoid, ok := firstLive(bot.Defense.RangedAvoid); ok {
			bonus -= rangedAvoid.Avoid
		}
	}
	bonus += offense.actionAccuracy()

	//3.- Apply per weapon, then clamp.
	maxAccuracy := maxRangedAccuracy
	if offense.Melee {
		maxAccuracy = maxMeleeAccuracy
	}
	for i := range t.Weapons {
		weapon := &t.Weapons[i]
		if weapon.Waypoints {
			weapon.Accuracy = guidedAccuracy
			continue
		}
		accuracy := weapon.BaseAccuracy + bonus
		if !offense.Melee && siegeBonus == 0 {
			accuracy -= offense.Recoil - weapon.Recoil
		}
		weapon.Accuracy = clamp(accuracy, minAccuracy, maxAccuracy)
	}
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
