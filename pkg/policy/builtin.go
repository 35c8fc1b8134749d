package policy

import (
	"time"
)

// GetBuiltinPolicies returns all built-in policies.
func GetBuiltinPolicies() []Policy {
	return []Policy{
		elementNamingPolicy(),
		normalizerReferencePolicy(),
		blockChildrenPolicy(),
	}
}

// elementNamingPolicy keeps element names usable as namespace segments.
func elementNamingPolicy() Policy {
	return Policy{
		Name:        "element-naming",
		Description: "Config element names must not contain ':', '.' or whitespace",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"naming", "headless"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package toolbox.policies.naming

import rego.v1

# Names become namespace and hash segments of headless payloads.
deny contains violation if {
	some el in input.elements
	regex.match("[:.\\s]", el.name)
	violation := {
		"message": sprintf("element name '%s' must not contain ':', '.' or whitespace", [el.name]),
		"element": el.path,
	}
}

deny contains violation if {
	some el in input.elements
	el.name == ""
	violation := {
		"message": "element name must not be empty",
		"element": el.path,
	}
}
`,
	}
}

// normalizerReferencePolicy checks that every referenced normalizer is registered.
func normalizerReferencePolicy() Policy {
	return Policy{
		Name:        "normalizer-reference",
		Description: "Property normalizers must name a registered normalizer",
		Severity:    SeverityError,
		Enabled:     true,
		Tags:        []string{"normalizer"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package toolbox.policies.normalizers

import rego.v1

deny contains violation if {
	input.check_normalizers
	some el in input.elements
	el.property_normalizer
	not input.normalizers[el.property_normalizer]
	violation := {
		"message": sprintf("property normalizer '%s' of element '%s' is not registered", [el.property_normalizer, el.name]),
		"element": el.path,
	}
}

deny contains violation if {
	input.check_normalizers
	some name, normalizer in input.additional_normalizers
	not input.normalizers[normalizer]
	violation := {
		"message": sprintf("additional property normalizer '%s' of '%s' is not registered", [normalizer, name]),
		"element": sprintf("additional_property_normalizer.%s", [name]),
	}
}
`,
	}
}

// blockChildrenPolicy warns about block elements that render nothing.
func blockChildrenPolicy() Policy {
	return Policy{
		Name:        "block-children",
		Description: "Block elements should declare child elements",
		Severity:    SeverityWarning,
		Enabled:     true,
		Tags:        []string{"schema"},
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
		Rego: `package toolbox.policies.blocks

import rego.v1

deny contains violation if {
	some el in input.elements
	el.type == "block"
	not has_children(el.path)
	violation := {
		"message": sprintf("block '%s' has no child elements", [el.name]),
		"element": el.path,
	}
}

has_children(path) if {
	some child in input.elements
	startswith(child.path, concat(".", [path, "children", ""]))
}
`,
	}
}
