package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/explain"
	"github.com/spigell/mentor-matcher/internal/logger"
	"github.com/spigell/mentor-matcher/internal/matching"
	"github.com/spigell/mentor-matcher/internal/store"
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain one mentee-mentor pair from a saved output",
	Run: func(cmd *cobra.Command, _ []string) {
		explainPair(cmd)
	},
}

func init() {
	rootCmd.AddCommand(explainCmd)

	explainCmd.Flags().String("output", "", "output file saved by the match command")
	explainCmd.Flags().StringP("input", "i", "", "roster file the output was built from. Default is the cohort api.")
	explainCmd.Flags().String("mentee", "", "mentee id")
	explainCmd.Flags().String("mentor", "", "mentor id. Default is the proposed or the best recommended mentor.")

	explainCmd.MarkFlagRequired("output")
	explainCmd.MarkFlagRequired("mentee")
}

func explainPair(cmd *cobra.Command) {
	ctx := context.Background()

	// stdout carries only the explanation
	logger, err := logger.NewWithOptions(logger.Options{
		JSON:   viper.GetBool("json"),
		Debug:  viper.GetBool("debug"),
		Output: "stderr",
	})
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if cmd.Flags().Changed("input") {
		config.Input = cmd.Flag("input").Value.String()
	}

	out, err := matching.LoadOutput(cmd.Flag("output").Value.String())
	if err != nil {
		logger.Fatal("loading output", zap.Error(err))
	}
	if out.CohortID != "" {
		config.Cohort.ID = out.CohortID
	}

	menteeID := cmd.Flag("mentee").Value.String()
	rec, err := pickRecommendation(out, menteeID, cmd.Flag("mentor").Value.String())
	if err != nil {
		logger.Fatal("choosing the pair", zap.Error(err))
	}

	client, err := newCohortClient(config.Cohort, logger)
	if err != nil {
		logger.Fatal("creating the cohort client", zap.Error(err))
	}

	roster, _, err := loadRoster(ctx, config, client, logger)
	if err != nil {
		logger.Fatal("loading participants", zap.Error(err))
	}

	mentee := roster.Mentees.FindByID(menteeID)
	mentor := roster.Mentors.FindByID(rec.MentorID)
	if mentee == nil || mentor == nil {
		logger.Fatal("pair is missing from the roster",
			zap.String("mentee_id", menteeID),
			zap.String("mentor_id", rec.MentorID),
		)
	}

	backend, err := store.Open(ctx, config.Store)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err), zap.String("backend", config.Store.Backend))
	}
	defer backend.Close()

	orchestrator, err := newOrchestrator(ctx, config, backend, withRun(logger, out))
	if err != nil {
		logger.Fatal("building the explainer", zap.Error(err))
	}

	text, err := orchestrator.GetOrGenerate(ctx, out.CohortID, explain.Request{
		Mentee: mentee,
		Mentor: mentor,
		Score:  rec.Score,
	})
	if err != nil {
		logger.Fatal("explaining the pair", zap.Error(err))
	}

	fmt.Println(text)
}

// pickRecommendation returns the recommendation of mentorID for menteeID. Without a mentor
// it falls back to the proposed assignment and then to the best recommendation.
func pickRecommendation(out *matching.Output, menteeID, mentorID string) (matching.Recommendation, error) {
	result := out.FindResult(menteeID)
	if result == nil {
		return matching.Recommendation{}, fmt.Errorf("mentee %q is not in the output", menteeID)
	}

	if mentorID == "" {
		if result.ProposedAssignment != nil {
			mentorID = result.ProposedAssignment.MentorID
		} else if len(result.Recommendations) > 0 {
			return result.Recommendations[0], nil
		}
	}

	for _, rec := range result.Recommendations {
		if rec.MentorID == mentorID {
			return rec, nil
		}
	}
	if result.ProposedAssignment != nil && result.ProposedAssignment.MentorID == mentorID {
		return *result.ProposedAssignment, nil
	}

	if mentorID == "" {
		return matching.Recommendation{}, fmt.Errorf("mentee %q has no recommended mentors", menteeID)
	}
	return matching.Recommendation{}, fmt.Errorf("mentor %q is not recommended for mentee %q", mentorID, menteeID)
}
