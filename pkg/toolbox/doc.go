// Package toolbox holds the domain core shared by the toolbox packages: the
// editable field tree produced from area configuration, the headless element
// payload produced at render time, the classified error type, and the catalog
// of built-in area bricks.
//
// An area (or brick) is a reusable content region whose fields are declared in
// configuration. The builder package resolves that declaration into a Tree of
// EditableNode values; the headless package walks rendered field values and
// emits one ElementPayload per rendered unit.
package toolbox
