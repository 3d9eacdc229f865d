package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"mcs-portfolio/internal/csvio"
	"mcs-portfolio/internal/portfolio"
	"mcs-portfolio/internal/report"
)

var featureFlags struct {
	team      string
	id        string
	name      string
	size      float64
	priority  int
	onTeam    string
	onFeature string
	clear     bool
	dryRun    bool
}

var featureCmd = &cobra.Command{
	Use:   "feature",
	Short: "Edit the features of a portfolio file",
}

var featureAddCmd = &cobra.Command{
	Use:   "add <portfolio-file>",
	Short: "Append a feature to a team's backlog at the lowest priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPortfolio(cmd.OutOrStdout(), args[0], func(p *portfolio.Portfolio) error {
			team, err := teamByName(p.Teams, featureFlags.team)
			if err != nil {
				return err
			}
			name := featureFlags.name
			if name == "" {
				name = featureFlags.id
			}
			p.Teams, err = portfolio.AddFeature(p.Teams, team.ID, portfolio.Feature{
				ID:   featureFlags.id,
				Name: name,
				Size: featureFlags.size,
			})
			return err
		})
	},
}

var featureUpdateCmd = &cobra.Command{
	Use:   "update <portfolio-file>",
	Short: "Change a feature's name, size or priority",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPortfolio(cmd.OutOrStdout(), args[0], func(p *portfolio.Portfolio) error {
			team, err := teamByName(p.Teams, featureFlags.team)
			if err != nil {
				return err
			}
			f, ok := portfolio.NewGraph(p.Teams).Feature(portfolio.FeatureKey{TeamID: team.ID, FeatureID: featureFlags.id})
			if !ok {
				return fmt.Errorf("%w: %s / %s", portfolio.ErrFeatureNotFound, team.Name, featureFlags.id)
			}
			updated := *f
			flags := cmd.Flags()
			if flags.Changed("name") {
				updated.Name = featureFlags.name
			}
			if flags.Changed("size") {
				updated.Size = featureFlags.size
			}
			if flags.Changed("priority") {
				updated.Priority = featureFlags.priority
			}
			p.Teams, err = portfolio.UpdateFeature(p.Teams, team.ID, updated)
			return err
		})
	},
}

var featureRemoveCmd = &cobra.Command{
	Use:   "remove <portfolio-file>",
	Short: "Remove a feature and close the priority gap",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPortfolio(cmd.OutOrStdout(), args[0], func(p *portfolio.Portfolio) error {
			team, err := teamByName(p.Teams, featureFlags.team)
			if err != nil {
				return err
			}
			p.Teams, err = portfolio.RemoveFeature(p.Teams, team.ID, featureFlags.id)
			return err
		})
	},
}

var featureDependCmd = &cobra.Command{
	Use:   "depend <portfolio-file>",
	Short: "Make a feature depend on another one, refusing edges that would create a cycle",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editPortfolio(cmd.OutOrStdout(), args[0], func(p *portfolio.Portfolio) error {
			team, err := teamByName(p.Teams, featureFlags.team)
			if err != nil {
				return err
			}
			var dep *portfolio.FeatureKey
			if !featureFlags.clear {
				if featureFlags.onFeature == "" {
					return fmt.Errorf("--on-feature is required unless --clear is set")
				}
				depTeam := team
				if featureFlags.onTeam != "" {
					if depTeam, err = teamByName(p.Teams, featureFlags.onTeam); err != nil {
						return err
					}
				}
				dep = &portfolio.FeatureKey{TeamID: depTeam.ID, FeatureID: featureFlags.onFeature}
			}
			p.Teams, err = portfolio.SetDependency(p.Teams, team.ID, featureFlags.id, dep)
			return err
		})
	},
}

// editPortfolio loads path, applies edit and writes the document back in its
// own format unless --dry-run is set.
func editPortfolio(out io.Writer, path string, edit func(p *portfolio.Portfolio) error) error {
	format, err := portfolio.FormatFromPath(path)
	if err != nil {
		return err
	}
	p, err := csvio.LoadFile(path)
	if err != nil {
		return err
	}
	if err := edit(p); err != nil {
		return err
	}
	if err := portfolio.Validate(p.Teams); err != nil {
		return err
	}

	if featureFlags.dryRun {
		return csvio.Encode(out, format, p)
	}
	if err := report.WriteFile(path, func(w io.Writer) error {
		return csvio.Encode(w, format, p)
	}); err != nil {
		return err
	}
	log.Info().Str("path", path).Int("features", portfolio.FeatureCount(p.Teams)).Msg("Portfolio updated")
	fmt.Fprintf(out, "Updated %s\n", path)
	return nil
}

func teamByName(teams []portfolio.Team, name string) (*portfolio.Team, error) {
	if name == "" {
		return nil, fmt.Errorf("--team is required")
	}
	ti := portfolio.FindTeamByName(teams, name)
	if ti < 0 {
		return nil, fmt.Errorf("%w: %s", portfolio.ErrTeamNotFound, name)
	}
	return &teams[ti], nil
}

func init() {
	pf := featureCmd.PersistentFlags()
	pf.StringVar(&featureFlags.team, "team", "", "name of the team owning the feature")
	pf.StringVar(&featureFlags.id, "id", "", "feature id")
	pf.BoolVar(&featureFlags.dryRun, "dry-run", false, "print the edited portfolio instead of writing it")

	featureAddCmd.Flags().StringVar(&featureFlags.name, "name", "", "feature name (defaults to the id)")
	featureAddCmd.Flags().Float64Var(&featureFlags.size, "size", 0, "remaining effort")

	featureUpdateCmd.Flags().StringVar(&featureFlags.name, "name", "", "new feature name")
	featureUpdateCmd.Flags().Float64Var(&featureFlags.size, "size", 0, "new remaining effort")
	featureUpdateCmd.Flags().IntVar(&featureFlags.priority, "priority", 0, "new 1-based priority within the team")

	featureDependCmd.Flags().StringVar(&featureFlags.onTeam, "on-team", "", "team owning the prerequisite (defaults to --team)")
	featureDependCmd.Flags().StringVar(&featureFlags.onFeature, "on-feature", "", "id of the prerequisite feature")
	featureDependCmd.Flags().BoolVar(&featureFlags.clear, "clear", false, "remove the feature's dependency")

	featureCmd.AddCommand(featureAddCmd, featureUpdateCmd, featureRemoveCmd, featureDependCmd)
	rootCmd.AddCommand(featureCmd)
}
