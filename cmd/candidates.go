package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/medishift/mission-matcher/internal/model"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var candidatesCmd = &cobra.Command{
	Use:   "candidates",
	Short: "Manage candidate profiles",
}

var candidatesImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Insert or update candidate profiles from a JSON array",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withApplication(func(ctx context.Context, a *application) (interface{}, error) {
			profiles, err := readCandidates(args[0])
			if err != nil {
				return nil, err
			}

			imported := 0
			for _, c := range profiles {
				if !c.CoordinatesConsistent() {
					a.logger.Warn("skipping candidate with half coordinates", zap.String("candidate_id", c.ID))
					continue
				}
				if err := a.store.SaveCandidate(ctx, c); err != nil {
					return nil, fmt.Errorf("saving candidate %s: %w", c.ID, err)
				}
				imported++
			}

			return map[string]int{"imported": imported, "skipped": len(profiles) - imported}, nil
		})
	},
}

func init() {
	rootCmd.AddCommand(candidatesCmd)
	candidatesCmd.AddCommand(candidatesImportCmd)
}

func readCandidates(path string) ([]*model.CandidateProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading candidates file: %w", err)
	}

	var profiles []*model.CandidateProfile
	if err := json.Unmarshal(data, &profiles); err != nil {
		return nil, fmt.Errorf("decoding candidates file: %w", err)
	}

	return profiles, nil
}
