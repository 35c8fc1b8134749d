// Package calculator resolves the grid calculators a theme names.
//
// A theme's calculators block refers to a column calculator and a slide
// calculator by alias. The Registry maps (alias, type) pairs to
// implementations; asking for an alias that is not registered for the
// requested type fails with a not-found error carrying the code
// CALCULATOR_NOT_FOUND.
//
//	registry := calculator.NewDefaultRegistry()
//	columns, err := registry.Column("column_calculator")
//	if err != nil {
//		return err
//	}
//	cols, err := columns.Calculate("column_4_8", theme.Grid)
package calculator
