package calculator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/brickyard/toolbox/pkg/config"
)

// Type distinguishes the two calculator kinds.
type Type string

const (
	TypeColumn Type = "column"
	TypeSlide  Type = "slide"
)

// Column is one column of a calculated row.
type Column struct {
	Name    string   `json:"name"`
	Width   int      `json:"width"`
	Classes []string `json:"classes"`
}

// ColumnCalculator turns a column layout value such as "column_4_8" into
// the columns of a row.
type ColumnCalculator interface {
	Calculate(value string, grid config.Grid) ([]Column, error)
}

// SlideCalculator returns the classes of one slide when count slides are
// shown side by side.
type SlideCalculator interface {
	Calculate(count int, grid config.Grid) ([]string, error)
}

// Bootstrap4Columns is the default column calculator.
type Bootstrap4Columns struct{}

// Calculate parses "column_<w>_<w>..." values. The widths must be positive
// and together fit the grid size.
func (Bootstrap4Columns) Calculate(value string, grid config.Grid) ([]Column, error) {
	parts := strings.Split(value, "_")
	if len(parts) < 2 || parts[0] != "column" {
		return nil, fmt.Errorf("invalid column value %q", value)
	}

	size := grid.Size()
	total := 0
	columns := make([]Column, 0, len(parts)-1)
	for i, part := range parts[1:] {
		width, err := strconv.Atoi(part)
		if err != nil || width <= 0 {
			return nil, fmt.Errorf("invalid column width %q in %q", part, value)
		}
		total += width
		columns = append(columns, Column{
			Name:    fmt.Sprintf("column_%d", i+1),
			Width:   width,
			Classes: widthClasses(width, grid.Breakpoints),
		})
	}
	if total > size {
		return nil, fmt.Errorf("columns of %q span %d, grid size is %d", value, total, size)
	}
	return columns, nil
}

// Bootstrap4Slides is the default slide calculator.
type Bootstrap4Slides struct{}

// Calculate splits the grid evenly between count slides.
func (Bootstrap4Slides) Calculate(count int, grid config.Grid) ([]string, error) {
	size := grid.Size()
	if count <= 0 {
		return nil, fmt.Errorf("slide count must be positive, got %d", count)
	}
	if size%count != 0 {
		return nil, fmt.Errorf("%d slides do not divide a grid of %d", count, size)
	}
	return widthClasses(size/count, grid.Breakpoints), nil
}

func widthClasses(width int, breakpoints []config.Breakpoint) []string {
	if len(breakpoints) == 0 {
		return []string{fmt.Sprintf("col-%d", width)}
	}
	classes := make([]string, 0, len(breakpoints))
	for _, bp := range breakpoints {
		classes = append(classes, fmt.Sprintf("col-%s-%d", bp.Identifier, width))
	}
	return classes
}
