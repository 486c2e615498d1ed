package combat

import "math"

// DefaultMaxVolleys is the volley cap after which a trial is judged unwinnable.
const DefaultMaxVolleys = 100000

// Outcome is the terminal state of one trial.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeAborted Outcome = "aborted"
)

// Setup is the validated, immutable input shared by every trial of a run.
type Setup struct {
	BotName      string
	InitialBot   *BotState
	Offense      OffensiveState
	Weapons      []SimulatorWeapon
	EndCondition EndCondition
	Rules        RulesVersion
	MaxVolleys   int
}

// VolleyCap is the number of volleys a trial may fire before it is aborted.
func (s *Setup) VolleyCap() int {
	if s.MaxVolleys <= 0 {
		return DefaultMaxVolleys
	}
	return s.MaxVolleys
}

// TrialResult reports how a trial ended. Bot is the defender's final state.
type TrialResult struct {
	Outcome Outcome
	Volleys int
	TUs     float64
	Bot     *BotState
}

// TUKey is the histogram bucket for the elapsed time units.
func (r TrialResult) TUKey() int {
	return int(r.TUs)
}

// Trial is the mutable state of a single simulated fight.
type Trial struct {
	Bot     *BotState
	Offense OffensiveState
	Weapons []SimulatorWeapon
	TUs     float64
	Volleys int
	Rules   RulesVersion

	rng         Source
	canOverflow bool
}

// NewTrial prepares a fresh trial on a clone of the initial bot.
func (s *Setup) NewTrial(rng Source) *Trial {
	return &Trial{
		Bot:     s.InitialBot.Clone(),
		Offense: s.Offense,
		Weapons: append([]SimulatorWeapon(nil), s.Weapons...),
		Rules:   s.Rules,
		rng:     rng,
	}
}

// RunTrial plays one fight to its end condition or the volley cap.
func (s *Setup) RunTrial(rng Source) TrialResult {
	return s.NewTrial(rng).run(s.EndCondition, s.VolleyCap())
}

func (t *Trial) run(end EndCondition, maxVolleys int) TrialResult {
	offense := &t.Offense
	bot := t.Bot

	//1.- Reset the per-trial attacker state.
	t.TUs = 0
	offense.ActionNum = 0
	offense.SneakAttack = offense.SneakStrategy == SneakAll || offense.SneakStrategy == SneakFirstOnly
	offense.Momentum.Current = offense.Momentum.Bonus + offense.Momentum.Initial
	t.updateWeaponsAccuracy()

	oldTUs := 0.0
	for !end.Met(bot) {
		//2.- Regenerate the core for every whole turn completed by the last volley.
		turns := int(t.TUs/100) - int(oldTUs/100)
		if turns > 0 && bot.Regen > 0 {
			bot.CoreIntegrity = min(bot.InitialCoreIntegrity, bot.CoreIntegrity+bot.Regen*turns)
		}

		//3.- Fire the volley.
		t.Volleys++
		volleyTime := offense.VolleyTime
		if offense.Melee {
			t.fireWeapon(&t.Weapons[0])
			for i := 1; i < len(t.Weapons); i++ {
				if percentRoll(t.rng, offense.FollowupChances[i-1]) {
					t.fireWeapon(&t.Weapons[i])
					volleyTime += 0.5 * float64(t.Weapons[i].Delay)
				}
			}
			volleyTime *= offense.VolleyTimeModifier
			if t.Volleys == 1 {
				if offense.SneakStrategy == SneakFirstOnly {
					offense.SneakAttack = false
				}
				offense.Momentum.Current = offense.Momentum.Bonus
			}
		} else {
			for i := range t.Weapons {
				t.fireWeapon(&t.Weapons[i])
			}
		}

		if t.Volleys >= maxVolleys {
			return TrialResult{Outcome: OutcomeAborted, Volleys: t.Volleys, TUs: t.TUs, Bot: bot}
		}

		//4.- Advance time and refresh time dependent accuracy.
		if offense.Ramming {
			volleyTime = math.Max(100, float64(offense.Speed))
		}
		oldTUs = t.TUs
		t.TUs += volleyTime

		refresh := false
		if offense.ActionAccuracy {
			offense.ActionNum++
			refresh = offense.ActionNum <= 2
		}
		if !offense.Melee && oldTUs < float64(offense.Siege.TUs) && t.TUs >= float64(offense.Siege.TUs) {
			refresh = true
		}
		if refresh {
			t.updateWeaponsAccuracy()
		}
	}

	return TrialResult{Outcome: OutcomeSuccess, Volleys: t.Volleys, TUs: t.TUs, Bot: bot}
}
