package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/medishift/mission-matcher/internal/logger"
	"github.com/medishift/mission-matcher/internal/matching"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	PromptBack = "back"
	PromptYes  = "Yes"
	PromptNo   = "No"
)

var searchCmd = &cobra.Command{
	Use:   "search <mission-id>",
	Short: "Rank candidates for a mission",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		search(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringSliceP("skills", "s", nil, "skills to match instead of the mission's required skills")
	searchCmd.Flags().Float64P("radius", "r", 0, "search radius in km (default is the mission radius)")
	searchCmd.Flags().IntP("limit", "l", matching.DefaultLimit, "maximum number of candidates to return")
	searchCmd.Flags().BoolP("assign", "a", false, "pick a candidate from the shortlist and assign the mission")
}

func search(cmd *cobra.Command, missionID string) {
	ctx := context.Background()
	logger := newLogger()

	a, err := newApplication(ctx, logger)
	if err != nil {
		logger.Fatal("starting", zap.Error(err))
	}
	defer a.Close()

	opts, err := searchOptions(cmd)
	if err != nil {
		logger.Fatal("reading flags", zap.Error(err))
	}

	res, err := a.finder.FindCandidates(ctx, missionID, opts)
	if err != nil {
		logger.Fatal("searching candidates", zap.String("mission_id", missionID), zap.Error(err))
	}

	if err := a.missions.RecordSearch(ctx, missionID, res.TotalFound); err != nil {
		logger.Warn("recording search failed", zap.Error(err))
	}

	if err := printJSON(res); err != nil {
		logger.Fatal("printing result", zap.Error(err))
	}

	assign, _ := cmd.Flags().GetBool("assign")
	if !assign {
		return
	}

	if len(res.Candidates) == 0 {
		logger.Info("exiting", zap.String("reason", "no candidates to assign"))
		return
	}

	if err := pickAndAssign(ctx, a, missionID, res.Candidates); err != nil {
		logger.Fatal("assigning", zap.Error(err))
	}
}

func searchOptions(cmd *cobra.Command) (matching.Options, error) {
	var opts matching.Options
	flags := cmd.Flags()

	if flags.Changed("skills") {
		skills, err := flags.GetStringSlice("skills")
		if err != nil {
			return opts, err
		}
		opts.Skills = append([]string{}, skills...)
	}
	if flags.Changed("radius") {
		radius, err := flags.GetFloat64("radius")
		if err != nil {
			return opts, err
		}
		opts.RadiusKm = &radius
	}
	if flags.Changed("limit") {
		limit, err := flags.GetInt("limit")
		if err != nil {
			return opts, err
		}
		opts.Limit = &limit
	}

	return opts, nil
}

var errNoSelection = errors.New("no candidate selected")

func pickAndAssign(ctx context.Context, a *application, missionID string, candidates []matching.CandidateResult) error {
	items := make([]string, 0, len(candidates)+1)
	for _, c := range candidates {
		items = append(items, fmt.Sprintf("%s %s %s / %.1f km / score %d", c.ID, c.FirstName, c.LastName, c.Distance, c.MatchScore))
	}

	candidatePrompt := promptui.Select{
		Label: "Choose a candidate and press ENTER",
		Items: append(items, PromptBack),
	}

	idx, selected, err := candidatePrompt.Run()
	if err != nil {
		return err
	}
	if selected == PromptBack {
		a.logger.Info("exiting", zap.String("reason", errNoSelection.Error()))
		return nil
	}

	chosen := candidates[idx]

	confirm := promptui.Select{
		Label: fmt.Sprintf("Assign %s %s to mission %s?", chosen.FirstName, chosen.LastName, missionID),
		Items: []string{PromptYes, PromptNo},
	}
	_, answer, err := confirm.Run()
	if err != nil {
		return err
	}
	if answer != PromptYes {
		a.logger.Info("exiting", zap.String("reason", "got no from prompt"))
		return nil
	}

	assignment, err := a.missions.Assign(ctx, missionID, chosen.ID)
	if err != nil {
		return err
	}

	logger.WithFields(a.logger, logger.AssignmentFields(missionID, chosen.ID)...).Info("successfully assigned the mission")
	return printJSON(assignment)
}
