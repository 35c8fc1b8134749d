package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/manager"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type areaReport struct {
	Area             string                 `json:"area"`
	Context          string                 `json:"context,omitempty"`
	Availability     string                 `json:"availability"`
	Tabs             *config.Tabs           `json:"tabs,omitempty"`
	ConfigElements   []elementRow           `json:"config_elements,omitempty"`
	InlineElements   []elementRow           `json:"inline_config_elements,omitempty"`
	ConfigParameters map[string]interface{} `json:"config_parameter,omitempty"`
}

type elementRow struct {
	Name        string                 `json:"name"`
	Type        string                 `json:"type"`
	Title       string                 `json:"title,omitempty"`
	Description string                 `json:"description,omitempty"`
	Tab         string                 `json:"tab,omitempty"`
	Config      map[string]interface{} `json:"config,omitempty"`
}

func newCheckConfigCommand() *cobra.Command {
	var (
		areaID    string
		contextID string
	)

	cmd := &cobra.Command{
		Use:   "check-config",
		Short: "Show the effective configuration of an area",
		Long: `Show the effective configuration of an area in a context.

Prints the config elements of the area with their type, title, description
and editor configuration, followed by the area's config parameters. When the
area cannot be used in the context, its availability is reported instead.

This command is informational and always exits successfully.`,
		Example: `  # Inspect the teaser area
  toolbox check-config -c toolbox.yaml --area teaser

  # Inspect the teaser area in the portal context
  toolbox check-config -c toolbox.yaml -a teaser --context portal`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if areaID == "" {
				fmt.Fprintln(out, "No area given, use --area <brick id>.")
				return nil
			}

			parsed, err := loadConfig(cmd.Context(), config.ModeLenient)
			if err != nil {
				fmt.Fprintf(out, "Could not load configuration: %v\n", err)
				return nil
			}

			m := manager.New(parsed.Config, log.Logger)
			if err := m.SetContextNamespace(contextID); err != nil {
				fmt.Fprintf(out, "%v\n", err)
				return nil
			}

			report := inspectArea(m, areaID)
			if jsonOutput {
				return printJSON(out, report)
			}
			return printAreaReport(out, report)
		},
	}

	cmd.Flags().StringVarP(&areaID, "area", "a", "", "area (brick id) to inspect")
	cmd.Flags().StringVar(&contextID, "context", "", "context namespace, empty for root")

	return cmd
}

func inspectArea(m *manager.Manager, areaID string) areaReport {
	report := areaReport{
		Area:         areaID,
		Context:      m.ContextIdentifier(),
		Availability: m.AreaAvailability(areaID).String(),
	}

	area, ok := m.GetAreaConfig(areaID)
	if !ok {
		return report
	}

	report.Tabs = area.Tabs
	report.ConfigElements = elementRows("", area.ConfigElements)
	report.InlineElements = elementRows("", area.InlineConfigElements)
	report.ConfigParameters = area.ConfigParameter
	return report
}

// elementRows flattens elements depth-first; child names are prefixed with
// their parent's name.
func elementRows(prefix string, elements *config.ConfigElements) []elementRow {
	var rows []elementRow
	for name, el := range elements.All() {
		if el == nil {
			continue
		}
		rows = append(rows, elementRow{
			Name:        prefix + name,
			Type:        el.Type,
			Title:       el.Title,
			Description: el.Description,
			Tab:         el.Tab,
			Config:      el.Config,
		})
		if el.HasChildren() {
			rows = append(rows, elementRows(prefix+name+".", el.Children)...)
		}
	}
	return rows
}

func printAreaReport(w io.Writer, report areaReport) error {
	scope := report.Context
	if scope == "" {
		scope = "root"
	}

	if report.Availability != manager.Available.String() {
		fmt.Fprintf(w, "Area %q is %s in context %s.\n", report.Area, report.Availability, scope)
		return nil
	}

	fmt.Fprintf(w, "Area %q (context %s)\n\n", report.Area, scope)

	if report.Tabs.Len() > 0 {
		fmt.Fprintln(w, "Tabs:")
		for id, title := range report.Tabs.All() {
			fmt.Fprintf(w, "  %s: %s\n", id, title)
		}
		fmt.Fprintln(w)
	}

	if err := printElementTable(w, "Config elements", report.ConfigElements); err != nil {
		return err
	}
	if len(report.InlineElements) > 0 {
		if err := printElementTable(w, "Inline config elements", report.InlineElements); err != nil {
			return err
		}
	}

	if len(report.ConfigParameters) == 0 {
		fmt.Fprintln(w, "No config parameters.")
		return nil
	}

	fmt.Fprintln(w, "Config parameters:")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tVALUE")
	for _, key := range slices.Sorted(maps.Keys(report.ConfigParameters)) {
		fmt.Fprintf(tw, "%s\t%s\n", key, compactJSON(report.ConfigParameters[key]))
	}
	return tw.Flush()
}

func printElementTable(w io.Writer, title string, rows []elementRow) error {
	if len(rows) == 0 {
		fmt.Fprintf(w, "%s: none\n\n", title)
		return nil
	}

	fmt.Fprintf(w, "%s:\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tTYPE\tTITLE\tDESCRIPTION\tCONFIG")
	for _, r := range rows {
		params := "-"
		if len(r.Config) > 0 {
			params = compactJSON(r.Config)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.Name, r.Type, dash(r.Title), dash(r.Description), params)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintln(w)
	return nil
}

func compactJSON(v interface{}) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
