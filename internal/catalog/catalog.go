package catalog

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrNotFound is returned when a lookup names an unknown part or bot.
var ErrNotFound = errors.New("catalog: not found")

// Document is the on-disk catalog layout. Traits map part names to the defensive
// trait they grant when the part does not declare one inline.
type Document struct {
	Traits map[string]TraitSpec `yaml:"traits,omitempty" json:"traits,omitempty"`
	Parts  []PartDefinition     `yaml:"parts" json:"parts"`
	Bots   []BotDefinition      `yaml:"bots" json:"bots"`
}

// Catalog is an immutable, validated view over a Document. It is safe for concurrent reads.
type Catalog struct {
	parts    map[string]*PartDefinition
	bots     map[string]*BotDefinition
	partKeys []string
	botKeys  []string
}

// New validates the document and resolves every trait and weapon block. Traits declared
// inline on a part win over the shared table.
func New(doc Document) (*Catalog, error) {
	c := &Catalog{
		parts: make(map[string]*PartDefinition, len(doc.Parts)),
		bots:  make(map[string]*BotDefinition, len(doc.Bots)),
	}
	var problems []string

	//1.- Resolve parts first so bot loadouts can be checked against them.
	for i := range doc.Parts {
		part := doc.Parts[i]
		if err := c.resolvePart(&part, doc.Traits); err != nil {
			problems = append(problems, fmt.Sprintf("part %q: %v", part.Name, err))
			continue
		}
		c.parts[part.Name] = &part
		c.partKeys = append(c.partKeys, part.Name)
	}

	//2.- Bots only reference parts by name; unknown names are rejected up front.
	for i := range doc.Bots {
		bot := doc.Bots[i]
		if err := c.resolveBot(&bot); err != nil {
			problems = append(problems, fmt.Sprintf("bot %q: %v", bot.Name, err))
			continue
		}
		c.bots[bot.Name] = &bot
		c.botKeys = append(c.botKeys, bot.Name)
	}

	if len(problems) > 0 {
		return nil, errors.New(strings.Join(problems, "; "))
	}
	sort.Strings(c.partKeys)
	sort.Strings(c.botKeys)
	return c, nil
}

func (c *Catalog) resolvePart(part *PartDefinition, traits map[string]TraitSpec) error {
	if strings.TrimSpace(part.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if _, exists := c.parts[part.Name]; exists {
		return fmt.Errorf("duplicate part")
	}
	if !part.Slot.Valid() {
		return fmt.Errorf("invalid slot %q", part.Slot)
	}
	if part.Size <= 0 {
		part.Size = 1
	}
	if part.Coverage < 0 || part.Integrity <= 0 {
		return fmt.Errorf("coverage must be >= 0 and integrity > 0")
	}

	spec := part.TraitSpec
	if spec == nil {
		if shared, ok := traits[part.Name]; ok {
			spec = &shared
		}
	}
	if spec != nil {
		trait, err := spec.Build()
		if err != nil {
			return fmt.Errorf("trait: %w", err)
		}
		part.Trait = trait
	}

	if part.Weapon != nil {
		stats, err := buildWeaponDefinition(part)
		if err != nil {
			return fmt.Errorf("weapon: %w", err)
		}
		part.Stats = stats
	} else if part.Type.IsWeapon() {
		return fmt.Errorf("weapon type %q without weapon block", part.Type)
	}
	return nil
}

func (c *Catalog) resolveBot(bot *BotDefinition) error {
	if strings.TrimSpace(bot.Name) == "" {
		return fmt.Errorf("missing name")
	}
	if _, exists := c.bots[bot.Name]; exists {
		return fmt.Errorf("duplicate bot")
	}
	if _, ok := bot.Size.AccuracyModifier(); !ok {
		return fmt.Errorf("invalid size %q", bot.Size)
	}
	if bot.CoreIntegrity <= 0 || bot.CoreCoverage < 0 {
		return fmt.Errorf("core integrity must be > 0 and coverage >= 0")
	}
	if bot.Speed <= 0 {
		bot.Speed = 100
	}
	for _, immunity := range bot.Immunities {
		if !immunity.Valid() {
			return fmt.Errorf("unknown immunity %q", immunity)
		}
	}
	for damageType := range bot.Resistances {
		if !damageType.Valid() {
			return fmt.Errorf("unknown resistance %q", damageType)
		}
	}
	if bot.CoreRegen == 0 {
		bot.CoreRegen = parseCoreRegen(bot.Traits)
	}
	for i := range bot.Parts {
		if bot.Parts[i].Number <= 0 {
			bot.Parts[i].Number = 1
		}
		if _, ok := c.parts[bot.Parts[i].Name]; !ok {
			return fmt.Errorf("unknown part %q", bot.Parts[i].Name)
		}
	}
	return nil
}

// RamWeaponName is the pseudo weapon that switches the attacker into ramming.
const RamWeaponName = "Ram"

// Part returns the part definition with the given name.
func (c *Catalog) Part(name string) (*PartDefinition, error) {
	part, ok := c.parts[name]
	if !ok {
		return nil, fmt.Errorf("part %q: %w", name, ErrNotFound)
	}
	return part, nil
}

// Weapon returns the part definition for a weapon, rejecting non-weapon parts.
func (c *Catalog) Weapon(name string) (*PartDefinition, error) {
	part, err := c.Part(name)
	if err != nil {
		return nil, err
	}
	if !part.Type.IsWeapon() {
		return nil, fmt.Errorf("part %q is not a weapon: %w", name, ErrNotFound)
	}
	return part, nil
}

// Bot returns the bot definition with the given name.
func (c *Catalog) Bot(name string) (*BotDefinition, error) {
	bot, ok := c.bots[name]
	if !ok {
		return nil, fmt.Errorf("bot %q: %w", name, ErrNotFound)
	}
	return bot, nil
}

// Bots lists every bot in name order.
func (c *Catalog) Bots() []*BotDefinition {
	out := make([]*BotDefinition, 0, len(c.botKeys))
	for _, key := range c.botKeys {
		out = append(out, c.bots[key])
	}
	return out
}

// Weapons lists every weapon part in name order.
func (c *Catalog) Weapons() []*PartDefinition {
	out := make([]*PartDefinition, 0)
	for _, key := range c.partKeys {
		if part := c.parts[key]; part.Type.IsWeapon() {
			out = append(out, part)
		}
	}
	return out
}

// Len reports the number of parts and bots held by the catalog.
func (c *Catalog) Len() (parts, bots int) {
	return len(c.parts), len(c.bots)
}
