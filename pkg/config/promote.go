package config

import "fmt"

// PromoteInlineElements resolves promotion references in the inline element
// set of an area. It returns a new schema in which every "<" inline entry is
// replaced by a copy of the config element with the same name, and the config
// element itself is flagged InlineRendered. The input schema is not modified.
//
// References to a missing config element are reported and left out of the
// result.
func PromoteInlineElements(area *AreaSchema) (*AreaSchema, []error) {
	if area == nil {
		return nil, nil
	}

	out := area.Clone()
	if out.InlineConfigElements.Len() == 0 {
		return out, nil
	}

	var errs []error

	// First pass: collect the names to promote.
	var promoted []string
	for name, el := range area.InlineConfigElements.All() {
		if !el.IsReference() {
			continue
		}
		if !area.ConfigElements.Has(name) {
			errs = append(errs, fmt.Errorf("inline element %q references config element %q which is not defined", name, name))
			continue
		}
		promoted = append(promoted, name)
	}

	// Second pass: flag the config elements and copy them inline.
	for _, name := range promoted {
		el, _ := out.ConfigElements.Get(name)
		out.InlineConfigElements.Set(name, el.Clone())
		el.InlineRendered = true
	}

	for name, el := range area.InlineConfigElements.All() {
		if el.IsReference() && !area.ConfigElements.Has(name) {
			out.InlineConfigElements.Delete(name)
		}
	}

	return out, errs
}

// promoteScope applies PromoteInlineElements to every area of a scope.
func promoteScope(scope *Scope) map[string][]error {
	if scope.Areas.Len() == 0 {
		return nil
	}

	errs := make(map[string][]error)
	areas := NewOrderedMap[*AreaSchema]()
	for id, area := range scope.Areas.All() {
		promoted, areaErrs := PromoteInlineElements(area)
		if len(areaErrs) > 0 {
			errs[id] = areaErrs
		}
		areas.Set(id, promoted)
	}
	for _, id := range scope.Areas.Removed() {
		areas.Delete(id)
	}
	scope.Areas = areas

	return errs
}
