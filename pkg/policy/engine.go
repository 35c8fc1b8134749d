package policy

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/telemetry"
	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"github.com/open-policy-agent/opa/v1/storage"
	"github.com/open-policy-agent/opa/v1/storage/inmem"
	"github.com/rs/zerolog"
)

// Engine evaluates lint policies over area schemas.
type Engine struct {
	mu              sync.RWMutex
	policies        map[string]*compiledPolicy
	store           storage.Store
	logger          zerolog.Logger
	builtinPolicies []Policy
}

// compiledPolicy represents a compiled Rego policy.
type compiledPolicy struct {
	policy   *Policy
	module   *ast.Module
	query    rego.PreparedEvalQuery
	compiled time.Time
}

// NewEngine creates a policy engine holding the built-in policies.
func NewEngine(logger zerolog.Logger) (*Engine, error) {
	e := &Engine{
		policies:        make(map[string]*compiledPolicy),
		store:           inmem.New(),
		logger:          logger.With().Str("component", "policy-engine").Logger(),
		builtinPolicies: GetBuiltinPolicies(),
	}

	if err := e.loadBuiltinPolicies(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to load built-in policies: %w", err)
	}

	return e, nil
}

// EvaluateArea evaluates the enabled policies against one area schema.
// normalizers are the registered normalizer names; nil skips reference checks.
func (e *Engine) EvaluateArea(ctx context.Context, contextID, areaID string, area *config.AreaSchema, normalizers []string) (*Result, error) {
	startTime := time.Now()
	input := NewAreaInput(contextID, areaID, area, normalizers)

	e.mu.RLock()
	defer e.mu.RUnlock()

	result := &Result{}
	for _, cp := range e.sortedPolicies() {
		if !cp.policy.Enabled {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		result.EvaluatedPolicies = append(result.EvaluatedPolicies, cp.policy.Name)

		violations, err := e.evaluatePolicy(ctx, cp, input)
		if err != nil {
			e.logger.Error().Err(err).
				Str("policy", cp.policy.Name).
				Str("area", areaID).
				Msg("Policy evaluation failed")
			result.Warnings = append(result.Warnings, fmt.Sprintf("Policy %s evaluation failed: %v", cp.policy.Name, err))
			continue
		}

		result.Violations = append(result.Violations, violations...)
	}

	if tel := telemetry.FromTelemetryContext(ctx); tel != nil {
		for _, v := range result.Violations {
			_ = tel.Events.PublishPolicyViolation(v.Context, v.Area, v.Policy, v.Message)
		}
	}

	result.EvaluatedAt = time.Now()
	result.Duration = time.Since(startTime)

	e.logger.Debug().
		Str("context", contextID).
		Str("area", areaID).
		Int("violations", len(result.Violations)).
		Dur("duration", result.Duration).
		Msg("Area policy evaluation completed")

	return result, nil
}

// EvaluateConfig evaluates every area of the root scope and of each context.
func (e *Engine) EvaluateConfig(ctx context.Context, cfg *config.Config, normalizers []string) (*Result, error) {
	startTime := time.Now()
	total := &Result{}

	evaluate := func(contextID string, areas *config.OrderedMap[*config.AreaSchema]) error {
		for areaID, area := range areas.All() {
			r, err := e.EvaluateArea(ctx, contextID, areaID, area, normalizers)
			if err != nil {
				return err
			}
			total.merge(r)
		}
		return nil
	}

	if err := evaluate("", cfg.Areas); err != nil {
		return nil, err
	}
	for contextID, cc := range cfg.Contexts.All() {
		if err := evaluate(contextID, cc.Areas); err != nil {
			return nil, err
		}
	}

	total.EvaluatedAt = time.Now()
	total.Duration = time.Since(startTime)
	return total, nil
}

// NewAreaInput flattens an area schema into the policy input document.
func NewAreaInput(contextID, areaID string, area *config.AreaSchema, normalizers []string) *AreaInput {
	input := &AreaInput{
		Context:               contextID,
		Area:                  areaID,
		Elements:              []ElementInput{},
		AdditionalNormalizers: map[string]string{},
		Normalizers:           make(map[string]bool, len(normalizers)),
		CheckNormalizers:      normalizers != nil,
	}
	for _, n := range normalizers {
		input.Normalizers[n] = true
	}
	if area == nil {
		return input
	}

	input.Elements = appendElements(input.Elements, "config_elements", area.ConfigElements, false)
	input.Elements = appendElements(input.Elements, "inline_config_elements", area.InlineConfigElements, true)
	for name, n := range area.AdditionalPropertyNormalizer {
		input.AdditionalNormalizers[name] = n
	}
	return input
}

func appendElements(out []ElementInput, prefix string, elements *config.ConfigElements, inline bool) []ElementInput {
	for name, el := range elements.All() {
		path := prefix + "." + name
		out = append(out, ElementInput{
			Name:               name,
			Path:               path,
			Type:               el.Type,
			Tab:                el.Tab,
			PropertyNormalizer: el.PropertyNormalizer,
			Inline:             inline,
		})
		out = appendElements(out, path+".children", el.Children, inline)
	}
	return out
}

// LoadPolicies loads .rego and .json policy files and directories.
func (e *Engine) LoadPolicies(ctx context.Context, paths []string) error {
	loader := NewLoader(e.logger)
	policies, err := loader.LoadFromPaths(ctx, paths)
	if err != nil {
		return fmt.Errorf("failed to load policies: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	for i := range policies {
		if err := e.compileAndStorePolicy(ctx, &policies[i]); err != nil {
			e.logger.Error().Err(err).
				Str("policy", policies[i].Name).
				Msg("Failed to compile policy")
			return fmt.Errorf("failed to compile policy %s: %w", policies[i].Name, err)
		}
	}

	e.logger.Info().
		Int("count", len(policies)).
		Msg("Policies loaded successfully")

	return nil
}

// evaluatePolicy evaluates a single compiled policy.
func (e *Engine) evaluatePolicy(ctx context.Context, cp *compiledPolicy, input *AreaInput) ([]Violation, error) {
	doc, err := toDocument(input)
	if err != nil {
		return nil, err
	}

	results, err := cp.query.Eval(ctx, rego.EvalInput(doc))
	if err != nil {
		return nil, fmt.Errorf("policy evaluation error: %w", err)
	}

	var violations []Violation
	for _, result := range results {
		if len(result.Expressions) == 0 {
			continue
		}
		if denySet, ok := result.Expressions[0].Value.([]interface{}); ok {
			for _, d := range denySet {
				violations = append(violations, createViolation(cp.policy, d, input))
			}
		}
	}

	sort.SliceStable(violations, func(i, j int) bool {
		return violations[i].Element < violations[j].Element
	})
	return violations, nil
}

// toDocument converts input into the plain JSON document rego evaluates.
func toDocument(input *AreaInput) (interface{}, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("failed to encode policy input: %w", err)
	}
	var doc interface{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode policy input: %w", err)
	}
	return doc, nil
}

// createViolation creates a Violation from a deny entry.
func createViolation(policy *Policy, result interface{}, input *AreaInput) Violation {
	violation := Violation{
		Policy:   policy.Name,
		Context:  input.Context,
		Area:     input.Area,
		Severity: policy.Severity,
	}

	switch v := result.(type) {
	case string:
		violation.Message = v
	case map[string]interface{}:
		if msg, ok := v["message"].(string); ok {
			violation.Message = msg
		}
		if sev, ok := v["severity"].(string); ok {
			violation.Severity = Severity(sev)
		}
		if el, ok := v["element"].(string); ok {
			violation.Element = el
		}
	default:
		violation.Message = fmt.Sprintf("%v", result)
	}

	return violation
}

// compilePolicy parses a policy and prepares its deny query.
func (e *Engine) compilePolicy(ctx context.Context, policy *Policy) (*compiledPolicy, error) {
	module, err := ast.ParseModule(policy.Name, policy.Rego)
	if err != nil {
		return nil, fmt.Errorf("failed to parse policy: %w", err)
	}

	r := rego.New(
		rego.ParsedModule(module),
		rego.Store(e.store),
		rego.Query(module.Package.Path.String()+".deny"),
	)

	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare query: %w", err)
	}

	e.logger.Debug().
		Str("policy", policy.Name).
		Str("package", module.Package.Path.String()).
		Msg("Policy compiled successfully")

	return &compiledPolicy{
		policy:   policy,
		module:   module,
		query:    query,
		compiled: time.Now(),
	}, nil
}

// compileAndStorePolicy compiles a policy and stores it.
func (e *Engine) compileAndStorePolicy(ctx context.Context, policy *Policy) error {
	cp, err := e.compilePolicy(ctx, policy)
	if err != nil {
		return err
	}
	e.policies[policy.Name] = cp
	return nil
}

// loadBuiltinPolicies loads the built-in policies.
func (e *Engine) loadBuiltinPolicies(ctx context.Context) error {
	for i := range e.builtinPolicies {
		p := e.builtinPolicies[i]
		if err := e.compileAndStorePolicy(ctx, &p); err != nil {
			return fmt.Errorf("failed to compile built-in policy %s: %w", p.Name, err)
		}
	}

	e.logger.Debug().
		Int("count", len(e.builtinPolicies)).
		Msg("Built-in policies loaded")

	return nil
}

func (e *Engine) sortedPolicies() []*compiledPolicy {
	out := make([]*compiledPolicy, 0, len(e.policies))
	for _, cp := range e.policies {
		out = append(out, cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].policy.Name < out[j].policy.Name })
	return out
}

// GetPolicy returns a policy by name.
func (e *Engine) GetPolicy(name string) (*Policy, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	cp, exists := e.policies[name]
	if !exists {
		return nil, fmt.Errorf("policy not found: %s", name)
	}

	return cp.policy, nil
}

// ListPolicies returns all loaded policies sorted by name.
func (e *Engine) ListPolicies() []Policy {
	e.mu.RLock()
	defer e.mu.RUnlock()

	policies := make([]Policy, 0, len(e.policies))
	for _, cp := range e.sortedPolicies() {
		policies = append(policies, *cp.policy)
	}

	return policies
}

// ReloadPolicies drops loaded policies and restores the built-ins.
func (e *Engine) ReloadPolicies(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.policies = make(map[string]*compiledPolicy)
	return e.loadBuiltinPolicies(ctx)
}

// ReplacePolicies swaps the user policies for a freshly loaded set. The
// set is compiled before the swap, so a policy that fails to compile leaves
// the active policies untouched. It is the reload callback for Loader.Watch.
func (e *Engine) ReplacePolicies(ctx context.Context, policies []Policy) error {
	next := make(map[string]*compiledPolicy, len(e.builtinPolicies)+len(policies))
	for _, set := range [][]Policy{e.builtinPolicies, policies} {
		for i := range set {
			p := set[i]
			cp, err := e.compilePolicy(ctx, &p)
			if err != nil {
				return fmt.Errorf("failed to compile policy %s: %w", p.Name, err)
			}
			next[p.Name] = cp
		}
	}

	e.mu.Lock()
	e.policies = next
	e.mu.Unlock()

	e.logger.Info().
		Int("count", len(policies)).
		Msg("Policies replaced")

	return nil
}

// EnablePolicy enables a policy by name.
func (e *Engine) EnablePolicy(name string) error {
	return e.setEnabled(name, true)
}

// DisablePolicy disables a policy by name.
func (e *Engine) DisablePolicy(name string) error {
	return e.setEnabled(name, false)
}

func (e *Engine) setEnabled(name string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp, exists := e.policies[name]
	if !exists {
		return fmt.Errorf("policy not found: %s", name)
	}

	cp.policy.Enabled = enabled
	e.logger.Info().Str("policy", name).Bool("enabled", enabled).Msg("Policy state changed")

	return nil
}
