package scenario

import (
	"os"
	"path/filepath"
	"testing"
)

func writeScenarioFixture(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scenario.lua")
	if err := os.WriteFile(path, []byte(source), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func TestLoadScenarioBuildsSteps(t *testing.T) {
	path := writeScenarioFixture(t, `-- Build a small tree
local scene = Scenario.new("basics")
scene:drop({kind = "trait", payload = {name = "strength", min = 3}, target = {kind = "root"}})
scene:drop({kind = "any", target = {kind = "root"}})
scene:expect_rows(2)

return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Name != "basics" {
		t.Fatalf("name = %q, want %q", scenario.Name, "basics")
	}
	if len(scenario.Steps) != 3 {
		t.Fatalf("steps = %d, want 3", len(scenario.Steps))
	}

	drop := scenario.Steps[0]
	if drop.Kind != "drop" {
		t.Fatalf("step kind = %q, want drop", drop.Kind)
	}
	if drop.Args["kind"] != "trait" {
		t.Fatalf("drop kind = %v, want trait", drop.Args["kind"])
	}
	payload, ok := drop.Args["payload"].(map[string]any)
	if !ok || payload["name"] != "strength" || payload["min"] != float64(3) {
		t.Fatalf("drop payload = %v", drop.Args["payload"])
	}
	target, ok := drop.Args["target"].(map[string]any)
	if !ok || target["kind"] != "root" {
		t.Fatalf("drop target = %v", drop.Args["target"])
	}

	expect := scenario.Steps[2]
	if expect.Kind != "expect_rows" || expect.Args["count"] != float64(2) {
		t.Fatalf("expect step = %+v", expect)
	}
}

func TestLoadScenarioChaining(t *testing.T) {
	path := writeScenarioFixture(t, `local scene = Scenario.new("chain")
scene:drop({kind = "any", target = {kind = "root"}}):expect_rows(1):undo():expect_rows(0)
return scene
`)

	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	kinds := make([]string, 0, len(scenario.Steps))
	for _, step := range scenario.Steps {
		kinds = append(kinds, step.Kind)
	}
	want := []string{"drop", "expect_rows", "undo", "expect_rows"}
	if len(kinds) != len(want) {
		t.Fatalf("steps = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("step %d = %q, want %q", i, kinds[i], want[i])
		}
	}
}

func TestLoadScenarioDefaultsNameFromFile(t *testing.T) {
	path := writeScenarioFixture(t, `return Scenario.new()`)
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if scenario.Name != "scenario" {
		t.Fatalf("name = %q, want %q", scenario.Name, "scenario")
	}
}

func TestLoadScenarioRejectsNonScenarioReturn(t *testing.T) {
	path := writeScenarioFixture(t, `return 42`)
	if _, err := LoadScenarioFromFile(path); err == nil {
		t.Fatal("expected error for non-scenario return")
	}
}

func TestLoadScenarioRejectsBrokenScript(t *testing.T) {
	path := writeScenarioFixture(t, `this is not lua`)
	if _, err := LoadScenarioFromFile(path); err == nil {
		t.Fatal("expected error for broken script")
	}
}
