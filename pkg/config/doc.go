// Package config loads and validates toolbox configuration.
//
// # Overview
//
// Toolbox configuration is written in YAML. It declares the area bricks an
// editor can place on a page, the editable fields (config elements) of every
// area, the theme grid, default normalizers per field type, and named
// contexts that layer over the root configuration.
//
// # Loading
//
// Loader runs every file through the same pipeline:
//
//   - the YAML document is checked against the CUE definition #Toolbox held
//     by the SchemaRegistry; structural errors carry file, line and column
//   - the document is decoded into Config, keeping declaration order of
//     areas, tabs and config elements
//   - several files merge in order, later files extending earlier ones
//   - inline promotion references ("<") are resolved per area
//   - struct tag rules (validator/v10) check typed sections
//   - contradictions are collected and either logged (ModeLenient) or
//     returned as an error (ModeStrict)
//
// A loaded *Config is never modified afterwards. Watcher reloads the files on
// change and replaces the configuration held by a Snapshot.
//
// # Usage Example
//
//	loader := config.NewLoader(logger, config.WithMode(config.ModeStrict))
//	parsed, err := loader.Load(ctx, "config/toolbox.yaml")
//	if err != nil {
//	    for _, e := range parsed.Errors {
//	        fmt.Printf("%s:%d: %s\n", e.File, e.Line, e.Message)
//	    }
//	    return err
//	}
//
//	snapshot := config.NewSnapshot(parsed.Config)
//	watcher := config.NewWatcher(loader, snapshot, []string{"config/toolbox.yaml"}, logger)
//	if err := watcher.Start(ctx); err != nil {
//	    return err
//	}
//
// # Configuration Structure
//
//	enabled_core_areas: [headline, teaser]
//
//	areas:
//	    teaser:
//	        tabs:
//	            general: Allgemein
//	            layout: Layout
//	        config_elements:
//	            title:
//	                type: input
//	                title: Title
//	                tab: general
//	            image:
//	                type: image
//	                tab: general
//	                property_normalizer: thumbnail
//	        inline_config_elements:
//	            title: "<"
//
//	context:
//	    blog:
//	        settings:
//	            merge_with_root: true
//	            disabled_areas: [teaser]
package config
