// Package builder turns the config elements of an area into the editable
// tree that drives the brick edit dialog.
//
// Each element is parsed by the FieldParser registered for its type. Block
// elements recurse into their children, additional classes fields are moved
// behind all other fields, the columns brick gets a column adjuster after its
// "type" field when the theme defines breakpoints, and the result is bucketed
// into a tab panel when the area declares tabs.
//
//	b := builder.New(logger, builder.WithTranslator(tr))
//	tree, err := b.BuildArea(ctx, nil, mgr, "teaser", builder.DefaultBuildOptions())
package builder
