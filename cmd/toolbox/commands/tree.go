package commands

import (
	"github.com/brickyard/toolbox/pkg/builder"
	"github.com/brickyard/toolbox/pkg/config"
	"github.com/brickyard/toolbox/pkg/manager"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newTreeCommand() *cobra.Command {
	var (
		areaID       string
		contextID    string
		noTabs       bool
		inline       bool
		locale       string
		translations string
	)

	cmd := &cobra.Command{
		Use:   "tree",
		Short: "Build the editable tree of an area",
		Long: `Build the edit dialog tree of an area and print it as JSON.

A flat tree prints as an array of editable nodes, a tabbed tree as a tab
panel object. Labels are translated when --locale and --translations are
given; the translation file maps keys of the admin domain to messages.`,
		Example: `  # Print the edit dialog of the teaser area
  toolbox tree -c toolbox.yaml --area teaser

  # Build for the portal context without tabs, with German labels
  toolbox tree -c toolbox.yaml -a teaser --context portal --no-tabs \
    --locale de --translations admin.de.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			parsed, err := loadConfig(ctx, config.ModeLenient)
			if err != nil {
				return err
			}

			m := manager.New(parsed.Config, log.Logger)
			if err := m.SetContextNamespace(contextID); err != nil {
				return err
			}

			var opts []builder.Option
			if locale != "" {
				translator, err := builder.NewCatalogTranslator(locale)
				if err != nil {
					return err
				}
				if translations != "" {
					if err := translator.LoadFile(builder.TranslationDomain, translations); err != nil {
						return err
					}
				}
				opts = append(opts, builder.WithTranslator(translator))
			}

			b := builder.New(log.Logger, opts...)
			tree, err := b.BuildArea(ctx, nil, m, areaID, builder.BuildOptions{
				AllowTabs:     !noTabs,
				InlineContext: inline,
			})
			if err != nil {
				return err
			}

			return printJSON(cmd.OutOrStdout(), tree)
		},
	}

	cmd.Flags().StringVarP(&areaID, "area", "a", "", "area (brick id) to build")
	cmd.Flags().StringVar(&contextID, "context", "", "context namespace, empty for root")
	cmd.Flags().BoolVar(&noTabs, "no-tabs", false, "never bucket the nodes into tabs")
	cmd.Flags().BoolVar(&inline, "inline", false, "build for an inline editing context")
	cmd.Flags().StringVar(&locale, "locale", "", "label locale (BCP 47)")
	cmd.Flags().StringVar(&translations, "translations", "", "YAML translation file for --locale")
	_ = cmd.MarkFlagRequired("area")

	return cmd
}
