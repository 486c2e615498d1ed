package combat

// maxInterceptRolls is the number of tiles an antimissile system can engage, counting the
// defender's own tile.
const maxInterceptRolls = 4

// intercepted rolls the defender's best live antimissile once per tile of closing distance.
func (t *Trial) intercepted() bool {
	system, ok := firstLive(t.Bot.Defense.Antimissile)
	if !ok {
		return false
	}
	rolls := t.Offense.Distance
	if rolls > maxInterceptRolls {
		rolls = maxInterceptRolls
	}
	for i := 0; i < rolls; i++ {
		if percentRoll(t.rng, system.Chance) {
			return true
		}
	}
	return false
}
