package config

// MergeArea layers overlay on top of base and returns a new schema.
//
// Tabs keep the base order; overlay titles replace base titles and new tabs
// are appended. Elements are merged by name: fields set by the overlay replace
// the base fields, new elements are appended, and elements the overlay
// disables are removed. Normalizer and parameter maps merge by key.
func MergeArea(base, overlay *AreaSchema) *AreaSchema {
	if base == nil {
		return overlay.Clone()
	}
	out := base.Clone()
	if overlay == nil {
		return out
	}

	if overlay.Enabled != nil {
		enabled := *overlay.Enabled
		out.Enabled = &enabled
	}

	if overlay.Tabs != nil {
		if out.Tabs == nil {
			out.Tabs = NewOrderedMap[string]()
		}
		for id, title := range overlay.Tabs.All() {
			out.Tabs.Set(id, title)
		}
		for _, id := range overlay.Tabs.Removed() {
			out.Tabs.Delete(id)
		}
	}

	out.ConfigElements = mergeElements(out.ConfigElements, overlay.ConfigElements)
	out.InlineConfigElements = mergeElements(out.InlineConfigElements, overlay.InlineConfigElements)

	if len(overlay.AdditionalPropertyNormalizer) > 0 {
		if out.AdditionalPropertyNormalizer == nil {
			out.AdditionalPropertyNormalizer = make(map[string]string, len(overlay.AdditionalPropertyNormalizer))
		}
		for k, v := range overlay.AdditionalPropertyNormalizer {
			out.AdditionalPropertyNormalizer[k] = v
		}
	}

	out.ConfigParameter = mergeMaps(out.ConfigParameter, overlay.ConfigParameter)

	return out
}

// mergeElements merges overlay into base. base is owned by the caller.
func mergeElements(base, overlay *ConfigElements) *ConfigElements {
	if overlay == nil {
		return base
	}
	if base == nil {
		base = NewOrderedMap[*ConfigElement]()
	}

	for _, name := range overlay.Removed() {
		base.Delete(name)
	}

	for name, el := range overlay.All() {
		existing, ok := base.Get(name)
		if !ok || el.IsReference() || existing.IsReference() {
			base.Set(name, el.Clone())
			continue
		}
		base.Set(name, mergeElement(existing, el))
	}

	return base
}

// mergeElement overrides the fields of base that overlay sets.
// InlineRendered is never taken from the overlay.
func mergeElement(base, overlay *ConfigElement) *ConfigElement {
	out := base.Clone()

	if overlay.Type != "" {
		out.Type = overlay.Type
	}
	if overlay.Title != "" {
		out.Title = overlay.Title
	}
	if overlay.Description != "" {
		out.Description = overlay.Description
	}
	if overlay.PropertyNormalizer != "" {
		out.PropertyNormalizer = overlay.PropertyNormalizer
	}
	if overlay.Tab != "" {
		out.Tab = overlay.Tab
	}
	out.Config = mergeMaps(out.Config, overlay.Config)
	out.Children = mergeElements(out.Children, overlay.Children)

	return out
}

// mergeMaps deep-merges overlay into a copy of base. Nested maps merge by key,
// any other overlay value replaces the base value.
func mergeMaps(base, overlay map[string]interface{}) map[string]interface{} {
	if overlay == nil {
		return cloneMap(base)
	}
	out := cloneMap(base)
	if out == nil {
		out = make(map[string]interface{}, len(overlay))
	}
	for k, v := range overlay {
		baseMap, baseIsMap := out[k].(map[string]interface{})
		overMap, overIsMap := v.(map[string]interface{})
		if baseIsMap && overIsMap {
			out[k] = mergeMaps(baseMap, overMap)
			continue
		}
		out[k] = cloneValue(v)
	}
	return out
}

// MergeScope layers overlay on top of base and returns a new scope. Areas merge
// with MergeArea; keyed maps merge by key; other sections are replaced when
// the overlay sets them.
func MergeScope(base, overlay Scope) Scope {
	out := Scope{
		Flags:                       base.Flags,
		Theme:                       base.Theme,
		PropertyNormalizer:          base.PropertyNormalizer,
		AreaBlockConfiguration:      base.AreaBlockConfiguration,
		ImageThumbnails:             mergeStrings(base.ImageThumbnails, overlay.ImageThumbnails),
		AreaBlockRestriction:        mergeRestrictions(base.AreaBlockRestriction, overlay.AreaBlockRestriction),
		SnippetAreaBlockRestriction: mergeRestrictions(base.SnippetAreaBlockRestriction, overlay.SnippetAreaBlockRestriction),
		WysiwygEditor:               mergeMaps(base.WysiwygEditor, overlay.WysiwygEditor),
		DataAttributes:              mergeMaps(base.DataAttributes, overlay.DataAttributes),
	}

	if overlay.Flags != nil {
		out.Flags = overlay.Flags
	}
	if overlay.Theme != nil {
		out.Theme = overlay.Theme
	}
	if overlay.AreaBlockConfiguration != nil {
		out.AreaBlockConfiguration = overlay.AreaBlockConfiguration
	}
	if overlay.PropertyNormalizer != nil {
		var baseMapping map[string]string
		if base.PropertyNormalizer != nil {
			baseMapping = base.PropertyNormalizer.DefaultTypeMapping
		}
		out.PropertyNormalizer = &PropertyNormalizerConfig{
			DefaultTypeMapping: mergeStrings(baseMapping, overlay.PropertyNormalizer.DefaultTypeMapping),
		}
	}

	if base.Areas != nil || overlay.Areas != nil {
		areas := NewOrderedMap[*AreaSchema]()
		for id, area := range base.Areas.All() {
			areas.Set(id, area.Clone())
		}
		for _, id := range overlay.Areas.Removed() {
			areas.Delete(id)
		}
		for id, area := range overlay.Areas.All() {
			existing, _ := areas.Get(id)
			areas.Set(id, MergeArea(existing, area))
		}
		out.Areas = areas
	}

	return out
}

func mergeStrings(base, overlay map[string]string) map[string]string {
	if base == nil && overlay == nil {
		return nil
	}
	out := make(map[string]string, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

func mergeRestrictions(base, overlay map[string]Restriction) map[string]Restriction {
	if base == nil && overlay == nil {
		return nil
	}
	out := make(map[string]Restriction, len(base)+len(overlay))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range overlay {
		out[k] = v
	}
	return out
}

// Merge folds another loaded file into c. Later files extend and override
// earlier ones.
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	c.Scope = MergeScope(c.Scope, other.Scope)

	seen := make(map[string]struct{}, len(c.EnabledCoreAreas))
	for _, id := range c.EnabledCoreAreas {
		seen[id] = struct{}{}
	}
	for _, id := range other.EnabledCoreAreas {
		if _, ok := seen[id]; !ok {
			c.EnabledCoreAreas = append(c.EnabledCoreAreas, id)
			seen[id] = struct{}{}
		}
	}

	if other.ContextResolver != "" {
		c.ContextResolver = other.ContextResolver
	}

	if other.Contexts == nil {
		return
	}
	if c.Contexts == nil {
		c.Contexts = NewOrderedMap[*ContextConfig]()
	}
	for id, ctxCfg := range other.Contexts.All() {
		existing, ok := c.Contexts.Get(id)
		if !ok || existing == nil {
			c.Contexts.Set(id, ctxCfg)
			continue
		}
		merged := &ContextConfig{
			Settings: existing.Settings,
			Scope:    MergeScope(existing.Scope, ctxCfg.Scope),
		}
		if ctxCfg.Settings.MergeWithRoot != nil {
			merged.Settings.MergeWithRoot = ctxCfg.Settings.MergeWithRoot
		}
		if ctxCfg.Settings.DisabledAreas != nil {
			merged.Settings.DisabledAreas = ctxCfg.Settings.DisabledAreas
		}
		if ctxCfg.Settings.EnabledAreas != nil {
			merged.Settings.EnabledAreas = ctxCfg.Settings.EnabledAreas
		}
		c.Contexts.Set(id, merged)
	}
}
