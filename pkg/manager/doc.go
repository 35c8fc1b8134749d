// Package manager resolves the effective toolbox configuration for a context.
//
// The root configuration applies when no context is selected. A named context
// either layers over root (merge_with_root, the default) or replaces it.
// Areas can be switched per context with enabled_areas and disabled_areas;
// an explicit enable always wins.
package manager
