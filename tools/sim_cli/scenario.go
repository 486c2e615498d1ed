package simcli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"combatsim/broker/internal/catalog"
	"combatsim/broker/internal/combat"
	"combatsim/broker/internal/simulation"
)

// Scenario is an offline simulation described in YAML.
type Scenario struct {
	Name string `yaml:"name"`
	// Catalog is resolved relative to the scenario file; empty selects the builtin catalog.
	Catalog string `yaml:"catalog,omitempty"`
	// SeedLabel derives a stable seed for every simulation that does not set its own.
	SeedLabel string `yaml:"seedLabel,omitempty"`
	// Simulations run in order against the same catalog.
	Simulations []simulation.Request `yaml:"simulations"`
}

// LoadScenario reads and strictly decodes a scenario file.
func LoadScenario(path string) (Scenario, error) {
	if strings.TrimSpace(path) == "" {
		return Scenario{}, fmt.Errorf("scenario path must be provided")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Scenario{}, err
	}
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return Scenario{}, fmt.Errorf("decode scenario %s: %w", filepath.Base(path), err)
	}
	if len(scenario.Simulations) == 0 {
		return Scenario{}, fmt.Errorf("scenario %s defines no simulations", filepath.Base(path))
	}
	if scenario.Catalog != "" && !filepath.IsAbs(scenario.Catalog) {
		scenario.Catalog = filepath.Join(filepath.Dir(path), scenario.Catalog)
	}
	return scenario, nil
}

// Overrides replace scenario values from the command line.
type Overrides struct {
	Trials int
	Seed   *uint64
}

// Run executes every simulation of the scenario and returns the results in order.
func Run(ctx context.Context, scenario Scenario, runner *simulation.Runner, overrides Overrides) ([]*simulation.Result, error) {
	cat := catalog.Default()
	if scenario.Catalog != "" {
		loaded, err := catalog.LoadFile(scenario.Catalog)
		if err != nil {
			return nil, err
		}
		cat = loaded
	}
	results := make([]*simulation.Result, 0, len(scenario.Simulations))
	for i, req := range scenario.Simulations {
		opts := req.Options()
		if overrides.Trials > 0 {
			opts.Trials = overrides.Trials
		}
		if overrides.Seed != nil {
			opts.Seed = overrides.Seed
		}
		if opts.Seed == nil && scenario.SeedLabel != "" {
			derived := combat.SeedFor(scenario.SeedLabel, strconv.Itoa(i), req.Bot)
			opts.Seed = &derived
		}
		result, err := runner.Simulate(ctx, cat, req.Config, opts)
		if err != nil {
			return results, fmt.Errorf("simulation %d (%s): %w", i+1, req.Bot, err)
		}
		results = append(results, result)
	}
	return results, nil
}

// WriteReport renders results for operators; withCurve adds the cumulative kill chance table.
func WriteReport(w io.Writer, scenario Scenario, results []*simulation.Result, withCurve bool) error {
	if scenario.Name != "" {
		if _, err := fmt.Fprintf(w, "%s\n", scenario.Name); err != nil {
			return err
		}
	}
	for i, result := range results {
		req := scenario.Simulations[i]
		weapons := make([]string, 0, len(req.Weapons))
		for _, weapon := range req.Weapons {
			count := max(weapon.Count, 1)
			weapons = append(weapons, fmt.Sprintf("%dx %s", count, weapon.Name))
		}
		fmt.Fprintf(w, "%s vs %s [%s] %d/%d trials, %.0fms\n",
			strings.Join(weapons, ", "), result.Bot, result.Status, result.TrialsCompleted, result.TrialsRequested, result.ElapsedMs)
		volleys, tus := result.VolleySummary, result.TUSummary
		fmt.Fprintf(w, "  volleys: mean %.2f  min %d  p50 %d  p90 %d  p99 %d  max %d\n",
			volleys.Mean, volleys.Min, volleys.P50, volleys.P90, volleys.P99, volleys.Max)
		fmt.Fprintf(w, "  time units: mean %.1f  min %d  p50 %d  p90 %d  p99 %d  max %d\n",
			tus.Mean, tus.Min, tus.P50, tus.P90, tus.P99, tus.Max)
		if !withCurve {
			continue
		}
		fmt.Fprintf(w, "  %8s %8s %10s\n", "volleys", "chance", "cumulative")
		for _, point := range result.KillVolleys.Curve() {
			fmt.Fprintf(w, "  %8d %7.2f%% %9.2f%%\n", point.Value, point.Fraction*100, point.Cumulative*100)
		}
	}
	return nil
}

// MarshalResults produces indented JSON for machine consumption.
func MarshalResults(results []*simulation.Result) ([]byte, error) {
	return json.MarshalIndent(results, "", "  ")
}
