// Package policy lints area schemas with Open Policy Agent (OPA) Rego
// policies.
//
// Every area is flattened into an AreaInput document: its config elements
// including block children with their paths, its additional property
// normalizers and the names registered in the normalizer registry. Each
// enabled policy contributes the entries of its "deny" set as violations.
//
// # Built-in Policies
//
//   - element-naming: element names must not contain ':', '.' or whitespace,
//     since they become namespace and hash segments of headless payloads
//   - normalizer-reference: every property normalizer and additional property
//     normalizer must name a registered normalizer
//   - block-children: block elements should declare children (warning)
//
// # Usage
//
//	eng, err := policy.NewEngine(logger)
//	if err != nil {
//	    return err
//	}
//	if err := eng.LoadPolicies(ctx, []string{"policies/"}); err != nil {
//	    return err
//	}
//	result, err := eng.EvaluateConfig(ctx, cfg, registry.Names())
//	if !result.Allowed() {
//	    // report result.Violations
//	}
//
// # Custom Policies
//
// A custom policy is a .rego file (or a JSON Policy document) whose package
// defines a deny set. The leading comment block becomes the description and
// a "severity:" line sets the severity:
//
//	# Teaser areas need a headline.
//	# severity: error
//	package site.policies.teaser
//
//	import rego.v1
//
//	deny contains violation if {
//	    input.area == "teaser"
//	    not headline
//	    violation := {"message": "teaser needs a headline"}
//	}
//
//	headline if {
//	    some el in input.elements
//	    el.name == "headline"
//	}
//
// Deny entries are either strings or objects with "message" and optional
// "element" and "severity" keys.
//
// Loader.Watch reloads policy files and directories on change; pass
// Engine.ReplacePolicies as the reload callback.
package policy
