package combat

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"combatsim/broker/internal/catalog"
)

const (
	initialMeleeAccuracy  = 70
	initialRangedAccuracy = 60
	followupAccuracyBonus = 10
	defaultDistance       = 6
	defaultSpeed          = 100
	meleeVolleyBase       = 200
	followupBaseChance    = 20
	maxBoostersEquipped   = 2
)

// meleeAnalysisMinDamage is the minimum damage increase per melee analysis suite tier.
var meleeAnalysisMinDamage = [4]int{2, 3, 4, 6}

// forceBoosterMaxDamage is the maximum damage increase per force booster tier.
var forceBoosterMaxDamage = [3]float64{0.2, 0.3, 0.4}

// Named attacker parts, mapped to their percentage effect.
var (
	Cyclers = map[string]int{
		"Weapon Cycler":      15,
		"Imp. Weapon Cycler": 20,
		"Adv. Weapon Cycler": 25,
		"Exp. Weapon Cycler": 30,
		"Quantum Capacitor":  50,
		"Launcher Loader":    50,
	}
	Actuators = map[string]int{
		"Microactuators":   20,
		"Nanoactuators":    30,
		"2 Microactuators": 40,
		"Femtoactuators":   50,
	}
	ArmorAnalyzers = map[string]int{
		"Armor Integrity Analyzer":      30,
		"Imp. Armor Integrity Analyzer": 40,
		"Exp. Armor Integrity Analyzer": 50,
	}
	Kinecellerators = map[string]int{
		"Kinecellerator":      30,
		"Imp. Kinecellerator": 40,
		"Adv. Kinecellerator": 50,
	}
)

// nonMissileLaunchers fire projectiles that antimissile systems cannot target.
var nonMissileLaunchers = map[string]bool{
	"Sigix Terminator":              true,
	"Supercharged Sigix Terminator": true,
	"Vortex Catalyst Activator":     true,
}

// ConfigError reports an invalid simulation configuration. It is always returned before
// any random draw.
type ConfigError struct {
	Field  string
	Reason string
	Err    error
}

// NewConfigError formats a configuration error for the named field.
func NewConfigError(field, format string, args ...any) *ConfigError {
	return &ConfigError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// IsConfigError reports whether err carries a *ConfigError.
func IsConfigError(err error) bool {
	var target *ConfigError
	return errors.As(err, &target)
}

// WeaponConfig selects a catalog weapon and how it is fired.
type WeaponConfig struct {
	Name        string `json:"name" yaml:"name"`
	Count       int    `json:"count,omitempty" yaml:"count,omitempty"`
	Overloaded  bool   `json:"overloaded,omitempty" yaml:"overloaded,omitempty"`
	Exoskeleton bool   `json:"exoskeleton,omitempty" yaml:"exoskeleton,omitempty"`
}

// MomentumConfig is the attacker's melee momentum.
type MomentumConfig struct {
	Initial int `json:"initial,omitempty" yaml:"initial,omitempty"`
	Bonus   int `json:"bonus,omitempty" yaml:"bonus,omitempty"`
}

// Config is the user facing description of one simulation.
type Config struct {
	Bot                     string                  `json:"bot" yaml:"bot"`
	Weapons                 []WeaponConfig          `json:"weapons" yaml:"weapons"`
	EndCondition            EndCondition            `json:"endCondition,omitempty" yaml:"endCondition,omitempty"`
	Rules                   string                  `json:"rules,omitempty" yaml:"rules,omitempty"`
	ExternalDamageReduction ExternalDamageReduction `json:"externalDamageReduction,omitempty" yaml:"externalDamageReduction,omitempty"`
	MaxVolleys              int                     `json:"maxVolleys,omitempty" yaml:"maxVolleys,omitempty"`

	TargetingComputer  int       `json:"targetingComputer,omitempty" yaml:"targetingComputer,omitempty"`
	Distance           int       `json:"distance,omitempty" yaml:"distance,omitempty"`
	Siege              SiegeMode `json:"siege,omitempty" yaml:"siege,omitempty"`
	ActionsSinceMoving *int      `json:"actionsSinceMoving,omitempty" yaml:"actionsSinceMoving,omitempty"`
	TilesRun           int       `json:"tilesRun,omitempty" yaml:"tilesRun,omitempty"`
	Corruption         int       `json:"corruption,omitempty" yaml:"corruption,omitempty"`
	Analysis           bool      `json:"analysis,omitempty" yaml:"analysis,omitempty"`
	Treads             int       `json:"treads,omitempty" yaml:"treads,omitempty"`
	RecoilReduction    int       `json:"recoilReduction,omitempty" yaml:"recoilReduction,omitempty"`

	TargetAnalyzer  int     `json:"targetAnalyzer,omitempty" yaml:"targetAnalyzer,omitempty"`
	ArmorAnalyzer   string  `json:"armorAnalyzer,omitempty" yaml:"armorAnalyzer,omitempty"`
	CoreAnalyzer    int     `json:"coreAnalyzer,omitempty" yaml:"coreAnalyzer,omitempty"`
	ParticleCharger int     `json:"particleCharger,omitempty" yaml:"particleCharger,omitempty"`
	Kinecellerator  string  `json:"kinecellerator,omitempty" yaml:"kinecellerator,omitempty"`
	MeleeAnalysis   [4]int  `json:"meleeAnalysis,omitempty" yaml:"meleeAnalysis,omitempty"`
	ForceBoosters   [3]int  `json:"forceBoosters,omitempty" yaml:"forceBoosters,omitempty"`
	OverloadBonus   float64 `json:"overloadBonus,omitempty" yaml:"overloadBonus,omitempty"`

	Cycler        string              `json:"cycler,omitempty" yaml:"cycler,omitempty"`
	Actuator      string              `json:"actuator,omitempty" yaml:"actuator,omitempty"`
	ActuatorArray int                 `json:"actuatorArray,omitempty" yaml:"actuatorArray,omitempty"`
	Speed         int                 `json:"speed,omitempty" yaml:"speed,omitempty"`
	Mass          int                 `json:"mass,omitempty" yaml:"mass,omitempty"`
	Momentum      MomentumConfig      `json:"momentum,omitempty" yaml:"momentum,omitempty"`
	SneakAttack   SneakAttackStrategy `json:"sneakAttack,omitempty" yaml:"sneakAttack,omitempty"`
}

func presetPercent(table map[string]int, field, name string) (int, error) {
	if name == "" || name == "None" {
		return 0, nil
	}
	value, ok := table[name]
	if !ok {
		return 0, NewConfigError(field, "unknown preset %q", name)
	}
	return value, nil
}

// Build validates cfg against the catalog and resolves it into an immutable Setup.
func Build(cat *catalog.Catalog, cfg Config) (*Setup, error) {
	//1.- Enumerations and presets.
	end := cfg.EndCondition
	if end == "" {
		end = EndKill
	}
	if !end.Valid() {
		return nil, NewConfigError("endCondition", "unknown end condition %q", cfg.EndCondition)
	}
	rules, err := ParseRulesVersion(cfg.Rules)
	if err != nil {
		return nil, &ConfigError{Field: "rules", Reason: err.Error(), Err: err}
	}
	external := cfg.ExternalDamageReduction
	if external == "" {
		external = ExternalNone
	}
	if !external.Valid() {
		return nil, NewConfigError("externalDamageReduction", "unknown source %q", cfg.ExternalDamageReduction)
	}
	sneak := cfg.SneakAttack
	if sneak == "" {
		sneak = SneakNone
	}
	if !sneak.Valid() {
		return nil, NewConfigError("sneakAttack", "unknown strategy %q", cfg.SneakAttack)
	}
	siege, ok := cfg.Siege.Bonus()
	if !ok {
		return nil, NewConfigError("siege", "unknown siege mode %q", cfg.Siege)
	}
	cycler, err := presetPercent(Cyclers, "cycler", cfg.Cycler)
	if err != nil {
		return nil, err
	}
	actuator, err := presetPercent(Actuators, "actuator", cfg.Actuator)
	if err != nil {
		return nil, err
	}
	armorAnalyzer, err := presetPercent(ArmorAnalyzers, "armorAnalyzer", cfg.ArmorAnalyzer)
	if err != nil {
		return nil, err
	}
	kinecellerator, err := presetPercent(Kinecellerators, "kinecellerator", cfg.Kinecellerator)
	if err != nil {
		return nil, err
	}
	if err := checkCounts(cfg); err != nil {
		return nil, err
	}

	//2.- Defender.
	botDef, err := cat.Bot(cfg.Bot)
	if err != nil {
		return nil, &ConfigError{Field: "bot", Reason: err.Error(), Err: err}
	}
	sizeModifier, ok := botDef.Size.AccuracyModifier()
	if !ok {
		return nil, NewConfigError("bot", "bot %q has unknown size %q", botDef.Name, botDef.Size)
	}
	initial, err := NewBotState(cat, botDef, external)
	if err != nil {
		return nil, &ConfigError{Field: "bot", Reason: err.Error(), Err: err}
	}

	//3.- Weapons, expanded by count.
	selected, err := selectWeapons(cat, cfg.Weapons)
	if err != nil {
		return nil, err
	}
	melee := selected[0].def.Melee()
	ramming := false
	for _, weapon := range selected {
		if weapon.def.Melee() != melee {
			return nil, NewConfigError("weapons", "melee and ranged weapons cannot be mixed")
		}
		if weapon.def.Name == catalog.RamWeaponName {
			ramming = true
		}
	}
	if ramming && len(selected) != 1 {
		return nil, NewConfigError("weapons", "%s must be the only weapon", catalog.RamWeaponName)
	}

	speed := cfg.Speed
	if speed == 0 {
		speed = defaultSpeed
	}
	distance := cfg.Distance
	if distance == 0 {
		distance = defaultDistance
	}
	if distance <= 1 {
		distance = 1
	}

	//4.- Offensive state.
	offense := OffensiveState{
		Melee:               melee,
		Ramming:             ramming,
		Momentum:            Momentum{Initial: cfg.Momentum.Initial, Bonus: cfg.Momentum.Bonus},
		Distance:            distance,
		Analysis:            cfg.Analysis,
		ChargerBonus:        1 + float64(max(cfg.ParticleCharger, 0))/100,
		ArmorAnalyzerChance: armorAnalyzer,
		CoreAnalyzerChance:  cfg.CoreAnalyzer,
		Treads:              cfg.Treads,
		RecoilReduction:     cfg.RecoilReduction,
		Speed:               speed,
		OverloadBonus:       cfg.OverloadBonus,
		SneakStrategy:       sneak,
	}
	if melee {
		offense.MeleeAnalysis = cfg.MeleeAnalysis
	} else {
		offense.Siege = siege
	}
	if cfg.ActionsSinceMoving != nil {
		offense.ActionAccuracy = true
		offense.Action1Accuracy, offense.Action2Accuracy = actionModifiers(*cfg.ActionsSinceMoving, melee, cfg.TilesRun)
	}

	boosters := capForceBoosters(cfg.ForceBoosters)
	weapons := make([]SimulatorWeapon, 0, len(selected))
	defs := make([]*catalog.WeaponDefinition, 0, len(selected))
	for i, choice := range selected {
		weapon := resolveWeapon(choice, i, resolveContext{
			cfg:            cfg,
			melee:          melee,
			sizeModifier:   sizeModifier,
			kinecellerator: kinecellerator,
			boosters:       boosters,
		})
		offense.Recoil += weapon.Recoil
		weapons = append(weapons, weapon)
		defs = append(defs, choice.def)
	}

	//5.- Volley timing and follow-ups.
	if melee {
		offense.VolleyTimeModifier = volleyModifier(actuator)
		offense.VolleyTime = float64(weapons[0].Delay + meleeVolleyBase)
		offense.FollowupChances = followupChances(weapons, cfg.ActuatorArray)
	} else {
		offense.VolleyTimeModifier = volleyModifier(cycler)
		offense.VolleyTime = RangedVolleyTime(defs, offense.VolleyTimeModifier)
	}

	return &Setup{
		BotName:      botDef.Name,
		InitialBot:   initial,
		Offense:      offense,
		Weapons:      weapons,
		EndCondition: end,
		Rules:        rules,
		MaxVolleys:   cfg.MaxVolleys,
	}, nil
}

func checkCounts(cfg Config) error {
	counts := map[string]int{
		"treads":          cfg.Treads,
		"recoilReduction": cfg.RecoilReduction,
		"tilesRun":        cfg.TilesRun,
		"speed":           cfg.Speed,
		"maxVolleys":      cfg.MaxVolleys,
		"mass":            cfg.Mass,
		"corruption":      cfg.Corruption,
	}
	for i, count := range cfg.MeleeAnalysis {
		counts[fmt.Sprintf("meleeAnalysis[%d]", i)] = count
	}
	for i, count := range cfg.ForceBoosters {
		counts[fmt.Sprintf("forceBoosters[%d]", i)] = count
	}
	for field, value := range counts {
		if value < 0 {
			return NewConfigError(field, "must not be negative, got %d", value)
		}
	}
	if cfg.ActionsSinceMoving != nil && *cfg.ActionsSinceMoving < 0 {
		return NewConfigError("actionsSinceMoving", "must not be negative, got %d", *cfg.ActionsSinceMoving)
	}
	return nil
}

type weaponChoice struct {
	def        *catalog.WeaponDefinition
	overloaded bool
}

func selectWeapons(cat *catalog.Catalog, configs []WeaponConfig) ([]weaponChoice, error) {
	if len(configs) == 0 {
		return nil, NewConfigError("weapons", "at least one weapon is required")
	}
	var selected []weaponChoice
	for _, wc := range configs {
		part, err := cat.Weapon(wc.Name)
		if err != nil {
			return nil, &ConfigError{Field: "weapons", Reason: err.Error(), Err: err}
		}
		def := part.Stats
		if wc.Overloaded && !def.Overloadable {
			return nil, NewConfigError("weapons", "%q cannot be overloaded", wc.Name)
		}
		if wc.Exoskeleton && !def.Sigix {
			return nil, NewConfigError("weapons", "%q is not affected by an exoskeleton", wc.Name)
		}
		count := wc.Count
		if count < 0 {
			return nil, NewConfigError("weapons", "%q has negative count %d", wc.Name, wc.Count)
		}
		if count == 0 {
			count = 1
		}
		for i := 0; i < count; i++ {
			selected = append(selected, weaponChoice{def: def, overloaded: wc.Overloaded || wc.Exoskeleton})
		}
	}
	return selected, nil
}

// actionModifiers returns the accuracy bonus of the first two volleys given the actions
// taken since the attacker last moved.
func actionModifiers(actionsSinceMoving int, melee bool, tilesRun int) (int, int) {
	var first, second int
	switch actionsSinceMoving {
	case 0:
		if !melee {
			first = -10
		}
	case 1:
		second = 10
	default:
		first, second = 10, 10
	}
	if tilesRun > 0 && !melee {
		first -= min(tilesRun, 3) * 5
	}
	return first, second
}

// capForceBoosters keeps only the two highest tier boosters.
func capForceBoosters(boosters [3]int) [3]int {
	remaining := maxBoostersEquipped
	for i := len(boosters) - 1; i >= 0; i-- {
		if boosters[i] > remaining {
			boosters[i] = remaining
			remaining = 0
		} else {
			remaining -= boosters[i]
		}
	}
	return boosters
}

func forceBoosterIncrease(boosters [3]int) float64 {
	increase := 0.0
	processed := 0
	for i := len(boosters) - 1; i >= 0; i-- {
		switch boosters[i] {
		case 2:
			increase = 1.5 * forceBoosterMaxDamage[i]
			processed += 2
		case 1:
			if processed == 0 {
				increase += forceBoosterMaxDamage[i]
			} else {
				increase += forceBoosterMaxDamage[i] * 0.5
			}
			processed++
		}
	}
	return increase
}

type resolveContext struct {
	cfg            Config
	melee          bool
	sizeModifier   int
	kinecellerator int
	boosters       [3]int
}

func resolveWeapon(choice weaponChoice, index int, ctx resolveContext) SimulatorWeapon {
	def := choice.def
	cfg := ctx.cfg

	//1.- Accuracy that never changes during a fight.
	accuracy := initialRangedAccuracy + cfg.TargetingComputer
	if ctx.melee {
		accuracy = initialMeleeAccuracy
	}
	accuracy += ctx.sizeModifier + def.Targeting - cfg.Corruption/4
	if ctx.melee && index != 0 {
		accuracy += followupAccuracyBonus
	}

	//2.- Critical chance; Meltdown ignores target analyzers.
	critical := def.Critical
	if def.CriticalType != catalog.CriticalMeltdown && def.Critical != 0 {
		critical += cfg.TargetAnalyzer
	}

	//3.- Damage range adjustments.
	damageMin, damageMax := def.Damage.Min, def.Damage.Max
	if def.HasDamage {
		switch {
		case def.Type == catalog.ItemBallisticGun || def.Type == catalog.ItemBallisticCannon:
			damageMin = damageMin * (100 + ctx.kinecellerator) / 100
			damageMax = max(damageMax, damageMin)
		case ctx.melee:
			increase := 0
			for i, count := range cfg.MeleeAnalysis {
				increase += count * meleeAnalysisMinDamage[i]
			}
			damageMin = min(damageMin+increase, damageMax)
			damageMax = int(math.Floor(float64(damageMax) * (1 + forceBoosterIncrease(ctx.boosters))))
		}
	}

	recoil := Recoil(def, cfg.Treads, cfg.RecoilReduction)
	mass := def.Mass
	if def.Name == catalog.RamWeaponName {
		mass = cfg.Mass
	}

	return SimulatorWeapon{
		Def:               def,
		Name:              def.Name,
		BaseAccuracy:      accuracy,
		Accuracy:          accuracy,
		CriticalChance:    critical,
		CriticalType:      def.CriticalType,
		DamageMin:         damageMin,
		DamageMax:         damageMax,
		DamageType:        def.DamageType,
		HasDamage:         def.HasDamage,
		ExplosionMin:      def.Explosion.Min,
		ExplosionMax:      def.Explosion.Max,
		ExplosionType:     def.ExplosionType,
		HasExplosion:      def.HasExplosion,
		Delay:             def.Delay,
		Disruption:        def.Disruption,
		Spectrum:          def.Spectrum,
		ExplosionSpectrum: def.ExplosionSpectrum,
		Projectiles:       def.ProjectileCount,
		Recoil:            recoil,
		Mass:              mass,
		Waypoints:         def.Waypoints,
		IsMissile:         def.Type == catalog.ItemLauncher && !nonMissileLaunchers[def.Name],
		Accelerated:       def.Type == catalog.ItemEnergyGun || def.Type == catalog.ItemEnergyCannon,
		Overflow:          !strings.Contains(string(def.Type), "Gun"),
		Overloaded:        choice.overloaded,
	}
}

// volleyModifier turns a percent reduction into a volley time multiplier.
func volleyModifier(percent int) float64 {
	return 1 - float64(clamp(percent, 0, 99))/100
}

func followupChances(weapons []SimulatorWeapon, actuatorArray int) []int {
	chances := make([]int, 0, len(weapons))
	for i := 1; i < len(weapons); i++ {
		chance := followupBaseChance + actuatorArray + (weapons[0].Delay-weapons[i].Delay)/10
		chances = append(chances, clamp(chance, 0, 100))
	}
	return chances
}
