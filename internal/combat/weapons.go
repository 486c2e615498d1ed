package combat

import "combatsim/broker/internal/catalog"

// momentumCap bounds the melee momentum bonus in percent.
const momentumCap = 40

// speedPercent converts a movement cost into the percentage used by momentum formulas.
func (o *OffensiveState) speedPercent() float64 {
	speed := o.Speed
	if speed <= 0 {
		speed = 100
	}
	return (100 / float64(speed)) * 100
}

// fireWeapon resolves one weapon's attacks for the current volley.
func (t *Trial) fireWeapon(weapon *SimulatorWeapon) {
	if t.Offense.Ramming {
		t.ram(weapon)
		return
	}

	offense := &t.Offense
	for i := 0; i < weapon.Projectiles; i++ {
		//1.- Sneak attacks always land; everything else rolls against accuracy.
		hit := (offense.Melee && offense.SneakAttack) || percentRoll(t.rng, weapon.Accuracy)
		if hit && weapon.IsMissile && t.intercepted() {
			hit = false
		}
		if !hit {
			continue
		}

		//2.- Direct damage, then the explosion as an independent hit.
		if weapon.HasDamage {
			t.resolveDirectHit(weapon)
		}
		if weapon.HasExplosion {
			damage := randInt(t.rng, weapon.ExplosionMin, weapon.ExplosionMax)
			damage = t.Bot.ResistDamage(damage, weapon.ExplosionType)
			if damage > 0 {
				t.applyDamage(damage, catalog.CriticalNone, weapon.ExplosionType, hitEffects{
					disruptChance: weapon.Disruption,
					spectrum:      weapon.ExplosionSpectrum,
					canOverflow:   weapon.Overflow,
				})
			}
		}
	}
}

func (t *Trial) resolveDirectHit(weapon *SimulatorWeapon) {
	offense := &t.Offense
	damage := randInt(t.rng, weapon.DamageMin, weapon.DamageMax)

	//1.- Damage modifiers in their fixed order.
	if weapon.Overloaded {
		damage = int(float64(damage) * (2 + offense.OverloadBonus))
	}
	if offense.Melee && offense.Momentum.Current > 0 {
		bonus := int((float64(offense.Momentum.Current) * offense.speedPercent() / 1200) * 40)
		bonus = clamp(bonus, 1, momentumCap)
		if weapon.DamageType == catalog.DamagePiercing {
			bonus *= 2
		}
		damage = int((float64(bonus)/100 + 1) * float64(damage))
	}
	if offense.Melee && offense.SneakAttack {
		damage *= 3
	}
	if offense.Analysis {
		damage = int(1.1 * float64(damage))
	}
	if weapon.Accelerated {
		damage = int(offense.ChargerBonus * float64(damage))
	}
	damage = t.Bot.ResistDamage(damage, weapon.DamageType)

	//2.- Independent analyzer and critical rolls.
	armorAnalyzed := percentRoll(t.rng, offense.ArmorAnalyzerChance)
	coreAnalyzed := percentRoll(t.rng, offense.CoreAnalyzerChance)
	critical := catalog.CriticalNone
	if percentRoll(t.rng, weapon.CriticalChance) {
		critical = weapon.CriticalType
	}

	if damage > 0 {
		t.applyDamage(damage, critical, weapon.DamageType, hitEffects{
			armorAnalyzed: armorAnalyzed,
			coreAnalyzed:  coreAnalyzed,
			disruptChance: weapon.Disruption,
			spectrum:      weapon.Spectrum,
			canOverflow:   weapon.Overflow,
		})
	}
}

// ram resolves a ramming attack: impact damage scaled by mass, speed and momentum.
func (t *Trial) ram(weapon *SimulatorWeapon) {
	offense := &t.Offense
	momentum := offense.Momentum.Current
	if momentum < 1 {
		momentum = 1
	}
	maxDamage := ((10+float64(weapon.Mass))/5 + 1) * (offense.speedPercent() / 100) * float64(momentum)
	if maxDamage > 100 {
		maxDamage = 100
	}

	damage := randInt(t.rng, 0, int(maxDamage))
	damage = t.Bot.ResistDamage(damage, catalog.DamageImpact)
	if damage > 0 {
		t.applyDamage(damage, catalog.CriticalNone, catalog.DamageImpact, hitEffects{
			disruptChance: weapon.Disruption,
			spectrum:      weapon.Spectrum,
			canOverflow:   weapon.Overflow,
		})
	}
}
