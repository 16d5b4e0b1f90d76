package plugins

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/aretw0/rules/pkg/domain"
	"github.com/aretw0/rules/pkg/expression"
	"github.com/aretw0/rules/pkg/schema"
	"github.com/aretw0/rules/pkg/state"
	"github.com/itchyny/gojq"
)

// DefaultTransformTimeout bounds one jq query.
const DefaultTransformTimeout = time.Second

func variableSetDefinition() domain.PluginDefinition {
	return domain.PluginDefinition{
		ID:          VariableSetID,
		Label:       "Set a variable",
		Description: "Writes a value into the execution state under a configured name.",
		Kind:        domain.KindAction,
		FormClass:   expression.ConfigurationForm,
		Context: definitions(
			domain.NewContextDefinition("value", schema.Any()).WithLabel("Value"),
		),
	}
}

type variableSet struct {
	leaf
	name     string
	dataType schema.Type
}

func newVariableSet(_ expression.Factory, def domain.PluginDefinition, config map[string]any) (expression.Expression, error) {
	return build(&variableSet{}, def, config)
}

func (a *variableSet) DefaultConfiguration() map[string]any {
	return map[string]any{"type": "any"}
}

func (a *variableSet) ApplyConfiguration(config map[string]any) error {
	var opts struct {
		Name string `mapstructure:"name"`
		Type string `mapstructure:"type"`
	}
	if err := expression.Decode(config, &opts); err != nil {
		return err
	}
	if opts.Name == "" {
		return optionError(VariableSetID, "name is required")
	}
	t, err := schema.ParseType(opts.Type)
	if err != nil {
		return optionError(VariableSetID, "%v", err)
	}
	a.name, a.dataType = opts.Name, t
	return nil
}

// ProvidedDefinitions adds the configured variable to the static outputs.
func (a *variableSet) ProvidedDefinitions() map[string]*domain.ContextDefinition {
	defs := a.leaf.ProvidedDefinitions()
	defs[a.name] = domain.NewContextDefinition(a.name, a.dataType)
	return defs
}

func (a *variableSet) ExecuteWithState(_ context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	values, err := a.ContextValues(st)
	if err != nil {
		return domain.Outcome{}, err
	}
	if err := a.Provide(st, a.name, values["value"]); err != nil {
		return domain.Outcome{}, err
	}
	return domain.ActionDone(), nil
}

func variableAddDefinition() domain.PluginDefinition {
	return domain.PluginDefinition{
		ID:          VariableAddID,
		Label:       "Add to a number",
		Description: "Adds a configured amount to an integer and provides the sum.",
		Kind:        domain.KindAction,
		FormClass:   expression.ConfigurationForm,
		Context: definitions(
			domain.NewContextDefinition("data", schema.Int()).WithLabel("Number"),
		),
		Provides: definitions(
			domain.NewContextDefinition("result", schema.Int()).WithLabel("Sum"),
		),
	}
}

type variableAdd struct {
	leaf
	amount int64
}

func newVariableAdd(_ expression.Factory, def domain.PluginDefinition, config map[string]any) (expression.Expression, error) {
	return build(&variableAdd{}, def, config)
}

func (a *variableAdd) DefaultConfiguration() map[string]any {
	return map[string]any{"amount": 1}
}

func (a *variableAdd) ApplyConfiguration(config map[string]any) error {
	var opts struct {
		Amount int64 `mapstructure:"amount"`
	}
	if err := expression.Decode(config, &opts); err != nil {
		return optionError(VariableAddID, "%v", err)
	}
	a.amount = opts.Amount
	return nil
}

func (a *variableAdd) ExecuteWithState(_ context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	values, err := a.ContextValues(st)
	if err != nil {
		return domain.Outcome{}, err
	}
	n := reflect.ValueOf(values["data"])
	var sum int64
	switch n.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sum = n.Int() + a.amount
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := n.Uint()
		if u > math.MaxInt64 {
			return domain.Outcome{}, fmt.Errorf("%w: %s: data %d overflows int64", domain.ErrTypeMismatch, VariableAddID, u)
		}
		sum = int64(u) + a.amount
	default:
		return domain.Outcome{}, fmt.Errorf("%w: %s: data is %T", domain.ErrTypeMismatch, VariableAddID, values["data"])
	}
	if err := a.Provide(st, "result", sum); err != nil {
		return domain.Outcome{}, err
	}
	return domain.ActionDone(), nil
}

func dataTransformDefinition() domain.PluginDefinition {
	return domain.PluginDefinition{
		ID:          DataTransformID,
		Label:       "Transform data",
		Description: "Runs a jq query over a value and provides the result.",
		Kind:        domain.KindAction,
		FormClass:   expression.ConfigurationForm,
		Context: definitions(
			domain.NewContextDefinition("data", schema.Any()).WithLabel("Input"),
		),
		Provides: definitions(
			domain.NewContextDefinition("result", schema.Any()).WithLabel("Query result"),
		),
	}
}

type dataTransform struct {
	leaf
	code    *gojq.Code
	timeout time.Duration
}

func newDataTransform(_ expression.Factory, def domain.PluginDefinition, config map[string]any) (expression.Expression, error) {
	return build(&dataTransform{}, def, config)
}

func (a *dataTransform) DefaultConfiguration() map[string]any {
	return map[string]any{"query": ".", "timeout": DefaultTransformTimeout.String()}
}

func (a *dataTransform) ApplyConfiguration(config map[string]any) error {
	var opts struct {
		Query   string        `mapstructure:"query"`
		Timeout time.Duration `mapstructure:"timeout"`
	}
	if err := expression.Decode(config, &opts); err != nil {
		return optionError(DataTransformID, "%v", err)
	}
	query, err := gojq.Parse(opts.Query)
	if err != nil {
		return optionError(DataTransformID, "parse %q: %v", opts.Query, err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return optionError(DataTransformID, "compile %q: %v", opts.Query, err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTransformTimeout
	}
	a.code, a.timeout = code, opts.Timeout
	return nil
}

// ExecuteWithState provides a single query result as is and several
// results as a list.
func (a *dataTransform) ExecuteWithState(ctx context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	values, err := a.ContextValues(st)
	if err != nil {
		return domain.Outcome{}, err
	}
	input, err := jqInput(values["data"])
	if err != nil {
		return domain.Outcome{}, fmt.Errorf("%s: %w", DataTransformID, err)
	}

	runCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var results []any
	iter := a.code.RunWithContext(runCtx, input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if runCtx.Err() != nil {
				return domain.Outcome{}, fmt.Errorf("%s: query timed out after %v: %w", DataTransformID, a.timeout, runCtx.Err())
			}
			return domain.Outcome{}, fmt.Errorf("%s: %w", DataTransformID, err)
		}
		results = append(results, v)
	}

	var result any
	switch len(results) {
	case 0:
	case 1:
		result = results[0]
	default:
		result = results
	}
	if err := a.Provide(st, "result", result); err != nil {
		return domain.Outcome{}, err
	}
	return domain.ActionDone(), nil
}

// jqInput converts a value to the plain JSON shapes gojq accepts.
func jqInput(v any) (any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func logMessageDefinition() domain.PluginDefinition {
	return domain.PluginDefinition{
		ID:          LogMessageID,
		Label:       "Log a message",
		Description: "Writes a message to the execution log.",
		Kind:        domain.KindAction,
		FormClass:   expression.ConfigurationForm,
		Context: definitions(
			domain.NewContextDefinition("message", schema.String()).WithLabel("Message"),
		),
	}
}

type logMessage struct {
	leaf
	level slog.Level
}

func newLogMessage(_ expression.Factory, def domain.PluginDefinition, config map[string]any) (expression.Expression, error) {
	return build(&logMessage{}, def, config)
}

func (a *logMessage) DefaultConfiguration() map[string]any {
	return map[string]any{"level": "info"}
}

func (a *logMessage) ApplyConfiguration(config map[string]any) error {
	var opts struct {
		Level string `mapstructure:"level"`
	}
	if err := expression.Decode(config, &opts); err != nil {
		return err
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(opts.Level))); err != nil {
		return optionError(LogMessageID, "%v", err)
	}
	a.level = level
	return nil
}

func (a *logMessage) ExecuteWithState(ctx context.Context, st *state.ExecutionState) (domain.Outcome, error) {
	values, err := a.ContextValues(st)
	if err != nil {
		return domain.Outcome{}, err
	}
	raw, ok := values["message"]
	if !ok || raw == nil {
		return domain.ActionDone(), nil
	}
	msg, ok := raw.(string)
	if !ok {
		return domain.Outcome{}, fmt.Errorf("%w: %s: message is %T", domain.ErrTypeMismatch, LogMessageID, raw)
	}
	st.Logger().Log(ctx, a.level, msg, "plugin", LogMessageID, "uuid", a.UUID())
	return domain.ActionDone(), nil
}
