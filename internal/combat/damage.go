package combat

import (
	"errors"

	"combatsim/broker/internal/catalog"
)

// ErrExplosiveCritical marks a dispatch of explosive damage carrying a critical, which the
// rules never produce. The engine panics with it; the run loop recovers.
var ErrExplosiveCritical = errors.New("combat: explosive damage cannot carry a critical")

// damageChunk is one independently targeted slice of a hit.
type damageChunk struct {
	armorAnalyzed bool
	critical      catalog.Critical
	damageType    catalog.DamageType
	disruptChance int
	forceCore     bool
	original      int
	real          int
	spectrum      int
}

// hitEffects bundles the weapon properties that follow damage down the pipeline.
type hitEffects struct {
	armorAnalyzed bool
	coreAnalyzed  bool
	disruptChance int
	spectrum      int
	canOverflow   bool
}

func destroysPart(critical catalog.Critical) bool {
	return critical == catalog.CriticalDestroy || critical == catalog.CriticalSmash
}

func dismembers(critical catalog.Critical) bool {
	return critical == catalog.CriticalSever || critical == catalog.CriticalSunder
}

// applyDamage splits finished damage into chunks, applies the active damage reducer
// and resolves each chunk against the bot.
func (t *Trial) applyDamage(damage int, critical catalog.Critical, damageType catalog.DamageType, effects hitEffects) {
	bot := t.Bot
	t.canOverflow = effects.canOverflow

	//1.- Chunking. Explosions scatter into 1-3 even chunks, the remainder is lost.
	var chunks []damageChunk
	if damageType == catalog.DamageExplosive {
		if critical != catalog.CriticalNone {
			panic(ErrExplosiveCritical)
		}
		count := randInt(t.rng, 1, 3)
		for i := 0; i < count; i++ {
			chunks = append(chunks, damageChunk{damageType: damageType, original: damage / count})
		}
	} else {
		_, coreShielded := bot.Defense.Shielding(catalog.SlotCore)
		coring := (effects.coreAnalyzed && !coreShielded) || critical == catalog.CriticalPuncture
		if coring && !bot.Immune(catalog.ImmunityCriticals) && !bot.Immune(catalog.ImmunityCoring) {
			half := damage / 2
			chunks = append(chunks,
				damageChunk{
					armorAnalyzed: effects.armorAnalyzed,
					critical:      critical,
					damageType:    damageType,
					disruptChance: effects.disruptChance,
					original:      half,
					spectrum:      effects.spectrum,
				},
				damageChunk{
					damageType:    damageType,
					disruptChance: effects.disruptChance,
					forceCore:     true,
					original:      half,
				})
		} else {
			chunks = append(chunks, damageChunk{
				armorAnalyzed: effects.armorAnalyzed,
				critical:      critical,
				damageType:    damageType,
				disruptChance: effects.disruptChance,
				original:      damage,
				spectrum:      effects.spectrum,
			})
		}
	}

	//2.- Only the first live reducer applies.
	factor := bot.Defense.DamageReductionFactor()
	for i := range chunks {
		chunks[i].real = int(float64(chunks[i].original) * factor)
	}

	//3.- Resolve each chunk, then roll corruption for electromagnetic hits.
	for _, chunk := range chunks {
		target := t.hitPart(chunk.damageType, false, chunk.forceCore, chunk.armorAnalyzed)
		t.applyChunk(chunk.real, chunk.damageType, chunk.critical, chunk.disruptChance, chunk.spectrum, target)
		if damageType == catalog.DamageElectromagnetic {
			t.applyCorruption(chunk.original, critical)
		}
	}
}

func (t *Trial) applyCorruption(original int, critical catalog.Critical) {
	bot := t.Bot
	if ignore, ok := firstLive(bot.Defense.CorruptionIgnore); ok && randInt(t.rng, 0, 99) < ignore.Chance {
		return
	}
	percent := 1.5
	if critical != catalog.CriticalCorrupt || bot.Immune(catalog.ImmunityCriticals) {
		percent = float64(randInt(t.rng, 50, 150)) / 100
	}
	bot.Corruption += float64(original) * percent
}

// hitPart picks the target of a chunk. A nil result is a core hit.
func (t *Trial) hitPart(damageType catalog.DamageType, overflow, forceCore, armorAnalyzed bool) *PartInstance {
	bot := t.Bot
	if forceCore {
		return nil
	}

	// Impact hits the core and every part with equal odds.
	if damageType == catalog.DamageImpact {
		roll := randInt(t.rng, 0, len(bot.Parts))
		if roll < len(bot.Parts) {
			return bot.Parts[roll]
		}
		return nil
	}

	// Overflow prefers armor, weighted by coverage.
	if overflow {
		armor := make([]*PartInstance, 0, len(bot.Parts))
		total := 0
		for _, part := range bot.Parts {
			if part.Protection && part.Coverage > 0 {
				armor = append(armor, part)
				total += part.Coverage
			}
		}
		if len(armor) > 0 {
			roll := randInt(t.rng, 0, total)
			for _, part := range armor {
				roll -= part.Coverage
				if roll < 0 {
					return part
				}
			}
		}
	}

	pool := bot.TotalCoverage
	if armorAnalyzed {
		pool = bot.ArmorAnalyzedCoverage
	}
	if damageType == catalog.DamagePiercing {
		pool += bot.CoreCoverage
	}
	roll := randInt(t.rng, 0, pool-1)
	for _, part := range bot.Parts {
		coverage := part.Coverage
		if armorAnalyzed {
			coverage = part.ArmorAnalyzedCoverage
		}
		roll -= coverage
		if roll < 0 {
			return part
		}
	}
	return nil
}

// randomNonCorePart ignores coverage. ignore is the index to skip, or -1.
func (t *Trial) randomNonCorePart(ignore int) *PartInstance {
	parts := t.Bot.Parts
	high := len(parts) - 1
	if ignore >= 0 {
		high--
	}
	index := randInt(t.rng, 0, high)
	if ignore > 0 && index >= ignore {
		index++
	}
	if index >= len(parts) {
		return nil
	}
	return parts[index]
}

func (t *Trial) firstPartInSlot(slot catalog.Slot) *PartInstance {
	for _, part := range t.Bot.Parts {
		if part.Slot == slot {
			return part
		}
	}
	return nil
}

// applyChunk resolves one chunk against target (nil for the core), including critical effects.
func (t *Trial) applyChunk(damage int, damageType catalog.DamageType, critical catalog.Critical, disruptChance, spectrum int, target *PartInstance) {
	bot := t.Bot

	//1.- Criticals that act before the target matters.
	if critical != catalog.CriticalNone && bot.Immune(catalog.ImmunityCriticals) {
		critical = catalog.CriticalNone
	}
	_, coreShielded := bot.Defense.Shielding(catalog.SlotCore)
	switch {
	case critical == catalog.CriticalMeltdown && !bot.Immune(catalog.ImmunityMeltdown):
		bot.CoreIntegrity = 0
		return
	case critical == catalog.CriticalIntensify:
		damage *= 2
	case critical == catalog.CriticalDetonate:
		if engine := t.firstPartInSlot(catalog.SlotPower); engine != nil {
			t.destroyPart(engine, 0, catalog.CriticalNone, catalog.DamageEntropic)
			if engine == target {
				return
			}
		}
	case dismembers(critical) && bot.Immune(catalog.ImmunityDismemberment):
		critical = catalog.CriticalNone
	case critical == catalog.CriticalPhase && (bot.Immune(catalog.ImmunityCoring) || coreShielded):
		critical = catalog.CriticalNone
	}

	if target == nil {
		t.applyChunkToCore(damage, critical, disruptChance)
		return
	}
	t.applyChunkToPart(damage, damageType, critical, spectrum, target)
}

func (t *Trial) applyChunkToCore(damage int, critical catalog.Critical, disruptChance int) {
	bot := t.Bot
	shield, shielded := bot.Defense.Shielding(catalog.SlotCore)

	switch critical {
	case catalog.CriticalDestroy, catalog.CriticalPhase, catalog.CriticalSmash, catalog.CriticalSunder, catalog.CriticalSever:
		if bot.Immune(catalog.ImmunityCoring) || shielded {
			critical = catalog.CriticalNone
		}
	}

	// Shielding may absorb more than its own remaining integrity.
	if shielded {
		absorbed := int(shield.Factor * float64(damage))
		shield.Part.Integrity -= absorbed
		damage -= absorbed
	}

	if destroysPart(critical) {
		bot.CoreIntegrity = 0
	} else {
		bot.CoreIntegrity -= damage
	}
	if bot.CoreIntegrity <= 0 {
		return
	}

	// Core disruption uses half the weapon's chance.
	if !bot.Immune(catalog.ImmunityDisruption) && float64(randInt(t.rng, 0, 99)) < float64(disruptChance)/2 {
		bot.CoreDisrupted = true
	}

	switch critical {
	case catalog.CriticalSever, catalog.CriticalSunder:
		count := 1
		if critical == catalog.CriticalSunder {
			count = randInt(t.rng, 1, 2)
		}
		for i := 0; i < count; i++ {
			victim := t.randomNonCorePart(-1)
			if victim == nil || t.slotShielded(victim.Slot) || victim.Size > 1 {
				continue
			}
			t.destroyPart(victim, 0, catalog.CriticalNone, catalog.DamagePhasic)
		}
	case catalog.CriticalBlast:
		victim := t.randomNonCorePart(-1)
		if victim == nil || t.slotShielded(victim.Slot) {
			return
		}
		t.blast(victim, damage)
	case catalog.CriticalPhase:
		t.applyChunk(damage, catalog.DamagePhasic, catalog.CriticalNone, 0, 0, t.randomNonCorePart(-1))
	}
}

func (t *Trial) applyChunkToPart(damage int, damageType catalog.DamageType, critical catalog.Critical, spectrum int, part *PartInstance) {
	bot := t.Bot

	//1.- Slot shielding protects everything except armor.
	var shield ReductionEntry
	shielded := false
	if !part.Protection {
		shield, shielded = bot.Defense.Shielding(part.Slot)
	}
	if shielded && destroysPart(critical) {
		critical = catalog.CriticalNone
	}

	// TODO: apply the engine's explosion damage once the explosion profiles are catalogued.
	engineExplosion := part.Slot == catalog.SlotPower && randInt(t.rng, 0, 99) < spectrum

	//2.- Armor converts instant destruction into extra damage.
	if destroysPart(critical) && part.Protection {
		critical = catalog.CriticalNone
		damage = int(1.2 * float64(damage))
	}
	damage = int(float64(damage) * part.SelfDamageReduction)
	if shielded {
		absorbed := int(shield.Factor * float64(damage))
		shield.Part.Integrity -= absorbed
		damage -= absorbed
	}

	//3.- Decide destruction.
	destroyed := part.Integrity <= damage || destroysPart(critical) || engineExplosion
	if !destroyed && damageType == catalog.DamageSlashing && part.Size == 1 {
		destroyed = t.slashingSevers(damage)
	}
	if !destroyed && dismembers(critical) && part.Size == 1 && !shielded {
		destroyed = true
	}

	index := bot.indexOf(part)
	if destroyed {
		overflow := damage - part.Integrity
		if critical == catalog.CriticalSmash {
			overflow = damage
		}
		t.destroyPart(part, overflow, critical, damageType)
	} else {
		part.Integrity -= damage
	}

	//4.- Follow-up criticals.
	switch critical {
	case catalog.CriticalBlast:
		ignore := -1
		if destroyed {
			ignore = index
		}
		victim := t.randomNonCorePart(ignore)
		if victim == nil || shielded {
			return
		}
		t.blast(victim, damage)
	case catalog.CriticalPhase:
		t.applyChunk(damage, catalog.DamagePhasic, catalog.CriticalNone, 0, 0, nil)
	}
}

// slashingSevers is the legacy chance for a slashing hit to cut off a single-slot part.
func (t *Trial) slashingSevers(damage int) bool {
	if !t.Rules.slashingDismembers() {
		return false
	}
	return randInt(t.rng, 0, 99) < damage/3
}

// blast knocks a single-slot part off outright and damages larger ones.
func (t *Trial) blast(victim *PartInstance, damage int) {
	if victim.Size == 1 {
		t.destroyPart(victim, 0, catalog.CriticalNone, catalog.DamagePhasic)
		return
	}
	t.applyChunk(damage, catalog.DamagePhasic, catalog.CriticalNone, 0, 0, victim)
}

func (t *Trial) slotShielded(slot catalog.Slot) bool {
	_, ok := t.Bot.Defense.Shielding(slot)
	return ok
}

// destroyPart removes the part with its coverage and resistances, then forwards overflow.
func (t *Trial) destroyPart(part *PartInstance, overflow int, critical catalog.Critical, damageType catalog.DamageType) {
	bot := t.Bot
	index := bot.indexOf(part)
	if index < 0 {
		return
	}
	bot.Parts = append(bot.Parts[:index], bot.Parts[index+1:]...)
	bot.ArmorAnalyzedCoverage -= part.ArmorAnalyzedCoverage
	bot.TotalCoverage -= part.Coverage
	for resisted, value := range part.Resistances {
		if _, ok := bot.Resistances[resisted]; ok {
			bot.Resistances[resisted] -= value
		}
	}
	part.Integrity = 0

	if overflow > 0 && !part.Protection && t.canOverflow && !t.Rules.overflowSuppressedByCritical(critical) {
		target := t.hitPart(damageType, true, false, false)
		t.applyChunk(overflow, damageType, catalog.CriticalNone, 0, 0, target)
	}

	if damageType == catalog.DamageImpact {
		corruption := bot.ResistDamage(randInt(t.rng, 25, 150), catalog.DamageElectromagnetic)
		bot.Corruption += float64(corruption)
	}

	t.updateWeaponsAccuracy()
}
