// Package scenario executes Lua-scripted editing flows against the builder
// HTTP API. Scripts build a Scenario value step by step; the runner replays
// the steps over the wire and checks expectations against returned state.
package scenario

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/Shopify/go-lua"
)

const scenarioTypeName = "scenario"

// Scenario is a named sequence of editing steps.
type Scenario struct {
	Name  string
	Steps []Step
}

// Step is one scripted action or expectation.
type Step struct {
	Kind string
	Args map[string]any
}

// LoadScenarioFromFile parses a Lua scenario script. The script must return
// the Scenario value it built.
func LoadScenarioFromFile(path string) (*Scenario, error) {
	state := lua.NewState()
	lua.OpenLibraries(state)

	registerLuaTypes(state)

	if err := lua.LoadFile(state, path, ""); err != nil {
		return nil, fmt.Errorf("load lua: %w", err)
	}
	if err := state.ProtectedCall(0, 1, 0); err != nil {
		return nil, fmt.Errorf("run lua: %w", err)
	}

	if state.TypeOf(-1) != lua.TypeUserData {
		state.Pop(1)
		return nil, fmt.Errorf("scenario script must return Scenario")
	}
	ud := state.ToUserData(-1)
	state.Pop(1)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		return nil, fmt.Errorf("scenario script returned invalid Scenario")
	}
	if strings.TrimSpace(scenario.Name) == "" {
		scenario.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return scenario, nil
}

func registerLuaTypes(state *lua.State) {
	registerScenarioType(state)
	registerScenarioConstructor(state)
}

func registerScenarioType(state *lua.State) {
	lua.NewMetaTable(state, scenarioTypeName)
	state.NewTable()
	lua.SetFunctions(state, scenarioMethods, 0)
	state.SetField(-2, "__index")
	state.Pop(1)
}

func registerScenarioConstructor(state *lua.State) {
	state.NewTable()
	lua.SetFunctions(state, scenarioConstructor, 0)
	state.SetGlobal("Scenario")
}

var scenarioConstructor = []lua.RegistryFunction{
	{Name: "new", Function: scenarioNew},
}

func scenarioNew(state *lua.State) int {
	name := lua.OptString(state, 1, "")
	scenario := &Scenario{Name: name}
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

var scenarioMethods = []lua.RegistryFunction{
	{Name: "drop", Function: stepMethod("drop")},
	{Name: "move", Function: stepMethod("move")},
	{Name: "edit", Function: stepMethod("edit")},
	{Name: "delete", Function: stepMethod("delete")},
	{Name: "undo", Function: arglessStepMethod("undo")},
	{Name: "redo", Function: arglessStepMethod("redo")},
	{Name: "save", Function: arglessStepMethod("save")},
	{Name: "grab", Function: stepMethod("grab")},
	{Name: "focus", Function: focusStep},
	{Name: "confirm", Function: arglessStepMethod("confirm")},
	{Name: "cancel", Function: arglessStepMethod("cancel")},
	{Name: "expect_rows", Function: expectCountStep("expect_rows")},
	{Name: "expect_row", Function: expectRowStep},
	{Name: "expect_issues", Function: expectCountStep("expect_issues")},
	{Name: "expect_targets", Function: expectCountStep("expect_targets")},
	{Name: "expect_announcement", Function: expectAnnouncementStep},
	{Name: "expect_tree", Function: expectTreeStep},
	{Name: "expect_history", Function: stepMethod("expect_history")},
}

func checkScenario(state *lua.State) *Scenario {
	ud := lua.CheckUserData(state, 1, scenarioTypeName)
	scenario, ok := ud.(*Scenario)
	if !ok || scenario == nil {
		lua.Errorf(state, "expected scenario receiver")
	}
	return scenario
}

func appendStep(state *lua.State, scenario *Scenario, kind string, args map[string]any) int {
	scenario.Steps = append(scenario.Steps, Step{Kind: kind, Args: args})
	state.PushUserData(scenario)
	lua.SetMetaTableNamed(state, scenarioTypeName)
	return 1
}

// stepMethod builds a method that takes one table argument.
func stepMethod(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		args := tableToMap(state, 2)
		return appendStep(state, scenario, kind, args)
	}
}

// arglessStepMethod builds a method that takes no arguments.
func arglessStepMethod(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		return appendStep(state, scenario, kind, nil)
	}
}

func focusStep(state *lua.State) int {
	scenario := checkScenario(state)
	delta := lua.CheckInteger(state, 2)
	return appendStep(state, scenario, "focus", map[string]any{"delta": float64(delta)})
}

func expectCountStep(kind string) lua.Function {
	return func(state *lua.State) int {
		scenario := checkScenario(state)
		count := lua.CheckInteger(state, 2)
		return appendStep(state, scenario, kind, map[string]any{"count": float64(count)})
	}
}

func expectRowStep(state *lua.State) int {
	scenario := checkScenario(state)
	row := lua.CheckInteger(state, 2)
	args := tableToMap(state, 3)
	if args == nil {
		args = map[string]any{}
	}
	args["row"] = float64(row)
	return appendStep(state, scenario, "expect_row", args)
}

func expectAnnouncementStep(state *lua.State) int {
	scenario := checkScenario(state)
	text := lua.CheckString(state, 2)
	return appendStep(state, scenario, "expect_announcement", map[string]any{"text": text})
}

func expectTreeStep(state *lua.State) int {
	scenario := checkScenario(state)
	treeJSON := lua.CheckString(state, 2)
	return appendStep(state, scenario, "expect_tree", map[string]any{"tree": treeJSON})
}

// tableToMap converts the Lua table at the given index into a Go map. Nested
// tables become nested maps; numeric values stay float64 to match JSON.
func tableToMap(state *lua.State, index int) map[string]any {
	if state.IsNoneOrNil(index) {
		return nil
	}
	lua.CheckType(state, index, lua.TypeTable)
	result := map[string]any{}
	state.PushNil()
	for state.Next(index) {
		key, ok := state.ToString(-2)
		if !ok {
			state.Pop(1)
			continue
		}
		result[key] = luaValue(state, state.AbsIndex(-1))
		state.Pop(1)
	}
	return result
}

func luaValue(state *lua.State, index int) any {
	switch state.TypeOf(index) {
	case lua.TypeBoolean:
		return state.ToBoolean(index)
	case lua.TypeNumber:
		value, _ := state.ToNumber(index)
		return value
	case lua.TypeString:
		value, _ := state.ToString(index)
		return value
	case lua.TypeTable:
		return tableToMap(state, index)
	default:
		return nil
	}
}
