package simcli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"combatsim/broker/internal/logging"
	"combatsim/broker/internal/simulation"
)

const mercenaryScenario = `name: rifle check
simulations:
  - bot: G-34 Mercenary
    weapons:
      - name: Assault Rifle
        count: 2
    trials: 40
    seed: 3
    distance: 4
`

func writeScenario(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write scenario: %v", err)
	}
	return path
}

func TestLoadScenarioDecodesInlineConfig(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, mercenaryScenario))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if scenario.Name != "rifle check" || len(scenario.Simulations) != 1 {
		t.Fatalf("unexpected scenario %+v", scenario)
	}
	req := scenario.Simulations[0]
	if req.Bot != "G-34 Mercenary" || req.Distance != 4 || req.Trials != 40 || req.Seed == nil || *req.Seed != 3 {
		t.Fatalf("unexpected request %+v", req)
	}
	if len(req.Weapons) != 1 || req.Weapons[0].Count != 2 {
		t.Fatalf("unexpected weapons %+v", req.Weapons)
	}
}

func TestLoadScenarioRejectsUnknownFields(t *testing.T) {
	if _, err := LoadScenario(writeScenario(t, "simulations:\n  - bot: X\n    wepons: []\n")); err == nil {
		t.Fatal("expected a misspelled field to fail")
	}
	if _, err := LoadScenario(writeScenario(t, "name: empty\n")); err == nil {
		t.Fatal("expected a scenario without simulations to fail")
	}
}

func TestRunAndReport(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, mercenaryScenario))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	runner := simulation.NewRunner(simulation.WithLogger(logging.NewTestLogger()))
	results, err := Run(context.Background(), scenario, runner, Overrides{Trials: 25})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(results) != 1 || results[0].TrialsCompleted != 25 || results[0].Seed != 3 {
		t.Fatalf("unexpected results %+v", results)
	}

	var buf bytes.Buffer
	if err := WriteReport(&buf, scenario, results, true); err != nil {
		t.Fatalf("WriteReport: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"rifle check", "2x Assault Rifle vs G-34 Mercenary [completed] 25/25", "volleys: mean", "cumulative", "100.00%"} {
		if !strings.Contains(out, want) {
			t.Fatalf("report missing %q:\n%s", want, out)
		}
	}

	payload, err := MarshalResults(results)
	if err != nil || !bytes.Contains(payload, []byte(`"killVolleys"`)) {
		t.Fatalf("unexpected JSON output %s (%v)", payload, err)
	}
}

func TestRunSurfacesConfigErrors(t *testing.T) {
	scenario, err := LoadScenario(writeScenario(t, "simulations:\n  - bot: Nobody\n    weapons:\n      - name: Assault Rifle\n"))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	runner := simulation.NewRunner(simulation.WithLogger(logging.NewTestLogger()))
	if _, err := Run(context.Background(), scenario, runner, Overrides{}); err == nil || !strings.Contains(err.Error(), "Nobody") {
		t.Fatalf("expected the unknown bot to fail, got %v", err)
	}
}

func TestSeedLabelMakesRunsReproducible(t *testing.T) {
	body := "seedLabel: nightly\nsimulations:\n  - bot: G-34 Mercenary\n    weapons:\n      - name: Assault Rifle\n    trials: 30\n"
	scenario, err := LoadScenario(writeScenario(t, body))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	runner := simulation.NewRunner(simulation.WithLogger(logging.NewTestLogger()))
	first, err := Run(context.Background(), scenario, runner, Overrides{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := Run(context.Background(), scenario, runner, Overrides{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first[0].Seed != second[0].Seed || first[0].VolleySummary != second[0].VolleySummary {
		t.Fatalf("expected identical runs, got %+v and %+v", first[0].VolleySummary, second[0].VolleySummary)
	}
}
