package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/mentor-matcher/internal/cohort"
	"github.com/spigell/mentor-matcher/internal/explain"
	"github.com/spigell/mentor-matcher/internal/logger"
	"github.com/spigell/mentor-matcher/internal/matching"
	"github.com/spigell/mentor-matcher/internal/metrics"
	"github.com/spigell/mentor-matcher/internal/participant"
	"github.com/spigell/mentor-matcher/internal/store"
)

const (
	PromptSave           = "Save output"
	PromptExit           = "Exit"
	PromptBack           = "back"
	PromptClear          = "clear selection"
	PromptReportByMentee = "Report by mentee"
	PromptExplain        = "Generate explanations"
	PromptManualSelect   = "Select mentors manually"
	PromptRecord         = "Record matching to cohort"
)

var errExit = errors.New("exit requested")

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Score the cohort and propose mentor assignments",
	Run: func(cmd *cobra.Command, _ []string) {
		match(cmd)
	},
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.Flags().StringP("input", "i", "", "roster file (json or yaml). Default is fetching the roster from the cohort api.")
	matchCmd.Flags().StringP("mode", "m", "batch", "matching mode: batch or top3")
	matchCmd.Flags().StringP("output", "o", "", "file to save the output to. Default is a new temporary file.")
	matchCmd.Flags().String("metrics-file", "", "write prometheus metrics in text format to this file at exit")
	matchCmd.Flags().BoolP("auto-approve", "y", false, "save the output without asking")
	matchCmd.Flags().Bool("rematch", false, "keep pairs proposed in earlier runs eligible")

	viper.BindPFlag("input", matchCmd.Flags().Lookup("input"))
	viper.BindPFlag("mode", matchCmd.Flags().Lookup("mode"))
	viper.BindPFlag("output", matchCmd.Flags().Lookup("output"))
	viper.BindPFlag("metrics-file", matchCmd.Flags().Lookup("metrics-file"))
	viper.BindPFlag("rematch", matchCmd.Flags().Lookup("rematch"))
}

// session is the state the interactive menu works on.
type session struct {
	config    *Config
	roster    *participant.Roster
	out       *matching.Output
	selection *matching.Selection
	backend   store.Backend
	cohort    *cohort.Client
	logger    *zap.Logger
}

// match is the main command for the cli.
func match(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the mentor-matcher", zap.String("version", version))

	// secrets are tagged json:"-", the rest is safe to print
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	mode, err := matching.ParseMode(config.Mode)
	if err != nil {
		logger.Fatal("parsing mode", zap.Error(err))
	}

	if config.MetricsFile != "" {
		defer writeMetrics(config.MetricsFile, logger)
	}

	backend, err := store.Open(ctx, config.Store)
	if err != nil {
		logger.Fatal("opening the store", zap.Error(err), zap.String("backend", config.Store.Backend))
	}
	defer backend.Close()

	client, err := newCohortClient(config.Cohort, logger)
	if err != nil {
		logger.Fatal("creating the cohort client", zap.Error(err))
	}

	roster, prior, err := loadRoster(ctx, config, client, logger)
	if err != nil {
		logger.Fatal("loading participants", zap.Error(err))
	}

	for _, w := range roster.Warnings {
		logger.Warn("skipping participant record", zap.String("record", w.String()))
	}

	if roster.Mentees.Len() == 0 {
		logger.Info("exiting", zap.String("reason", "no mentees found"))
		return
	}

	engine, err := newEngine(ctx, config, backend, logger)
	if err != nil {
		logger.Fatal("building the matching engine", zap.Error(err))
	}

	out, err := engine.Start(ctx, mode, matchInput(config, roster, prior)).Wait()
	if err != nil {
		logger.Fatal("matching failed", zap.Error(err))
	}

	runLogger := withRun(logger, out)
	runLogger.Info("matching finished",
		zap.Int("mentees", out.Stats.MenteesTotal),
		zap.Int("mentors", out.Stats.MentorsTotal),
		zap.Int("eligible pairs", out.Stats.AfterFilters),
		zap.Int("assigned", out.Stats.Assigned),
		zap.Bool("used embeddings", out.UsedEmbeddings),
	)

	s := &session{
		config:    config,
		roster:    roster,
		out:       out,
		selection: seedSelection(out, roster, runLogger),
		backend:   backend,
		cohort:    client,
		logger:    runLogger,
	}

	autoApprove := cmd.Flag("auto-approve").Value.String() == "true"
	menu := promptui.Select{
		Label: "Proceed?",
		Items: s.menuItems(),
	}

	for {
		action := PromptSave
		if !autoApprove {
			_, action, err = menu.Run()
			if err != nil {
				logger.Fatal("exiting", zap.Error(err))
			}
		}

		if err := s.handleAction(ctx, action); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		if autoApprove {
			return
		}
	}
}

func (s *session) menuItems() []string {
	items := []string{PromptSave, PromptExit, PromptReportByMentee, PromptExplain, PromptManualSelect}
	if s.cohort != nil {
		items = append(items, PromptRecord)
	}
	return items
}

func (s *session) handleAction(ctx context.Context, action string) error {
	switch action {
	case PromptSave:
		filename, err := s.out.DumpToFile(s.config.Output)
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		s.logger.Info("output saved", zap.String("filename", filename))
		return nil
	case PromptExit:
		s.logger.Info("exiting", zap.String("reason", "got exit from prompt"))
		return errExit
	case PromptReportByMentee:
		pretty, _ := json.MarshalIndent(s.out.ReportByMentee(), "", "  ")
		s.logger.Info(string(pretty), zap.Int("mentees count", len(s.out.Results)))
		return nil
	case PromptExplain:
		return s.explainAll(ctx)
	case PromptManualSelect:
		return s.manualSelect()
	case PromptRecord:
		if err := s.cohort.RecordMatching(ctx, s.out); err != nil {
			s.logger.Error("recording matching failed, save the output to keep it", zap.Error(err))
		}
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

// seedSelection starts manual review from the proposed assignments.
func seedSelection(out *matching.Output, roster *participant.Roster, log *zap.Logger) *matching.Selection {
	sel := matching.NewSelection(roster.Mentors.Items)
	for menteeID, mentorID := range out.Assignments() {
		if err := sel.Select(menteeID, mentorID); err != nil {
			log.Warn("proposed assignment rejected", zap.String("mentee_id", menteeID), zap.Error(err))
		}
	}
	return sel
}

func (s *session) manualSelect() error {
	defer func() {
		s.out = s.out.WithSelection(s.selection)
	}()

	for {
		items := make([]string, 0, len(s.out.Results)+1)
		for _, r := range s.out.Results {
			current := "-"
			if mentorID, ok := s.selection.MentorOf(r.MenteeID); ok {
				current = mentorID
			}
			items = append(items, fmt.Sprintf("%s %s -> %s", r.MenteeID, r.MenteeName, current))
		}

		menteePrompt := promptui.Select{
			Label: "Choose a mentee and press ENTER",
			Items: append(items, PromptBack),
			Size:  10,
		}

		_, menteeSelected, err := menteePrompt.Run()
		if err != nil {
			return err
		}
		if menteeSelected == PromptBack {
			return nil
		}

		result := s.out.FindResult(strings.Split(menteeSelected, " ")[0])
		if result == nil {
			return fmt.Errorf("there is no such mentee %s", menteeSelected)
		}

		if err := s.pickMentor(result); err != nil {
			return err
		}
	}
}

func (s *session) pickMentor(result *matching.Result) error {
	items := make([]string, 0, len(result.Recommendations)+2)
	for _, rec := range result.Recommendations {
		items = append(items, fmt.Sprintf("%s %s / %.2f / %d left",
			rec.MentorID, rec.MentorName, rec.Score.TotalScore, s.selection.Remaining(rec.MentorID),
		))
	}

	mentorPrompt := promptui.Select{
		Label: fmt.Sprintf("Choose a mentor for %s", result.MenteeName),
		Items: append(items, PromptClear, PromptBack),
	}

	_, mentorSelected, err := mentorPrompt.Run()
	if err != nil {
		return err
	}

	switch mentorSelected {
	case PromptBack:
		return nil
	case PromptClear:
		s.selection.Deselect(result.MenteeID)
		return nil
	}

	mentorID := strings.Split(mentorSelected, " ")[0]
	if err := s.selection.Select(result.MenteeID, mentorID); err != nil {
		// a full mentor is an operator mistake, not a reason to leave the review
		s.logger.Warn("selection rejected", zap.String("mentee_id", result.MenteeID), zap.Error(err))
		return nil
	}

	s.logger.Info("mentor selected", zap.String("mentee_id", result.MenteeID), zap.String("mentor_id", mentorID))
	return nil
}

func (s *session) explainAll(ctx context.Context) error {
	orchestrator, err := newOrchestrator(ctx, s.config, s.backend, s.logger)
	if err != nil {
		s.logger.Error("explanations unavailable", zap.Error(err))
		return nil
	}

	reqs := explainRequests(s.out, s.roster, s.logger)
	job := orchestrator.Start(ctx, s.out.CohortID, reqs, explain.Callbacks{
		OnProgress: func(completed, total int) {
			s.logger.Info("explanations progress", zap.Int("completed", completed), zap.Int("total", total))
		},
	})

	results, err := job.Wait()
	if err != nil {
		// without a cohort nothing can be cached, keep the menu usable
		if errors.Is(err, explain.ErrNoCohort) {
			s.logger.Warn("skipping explanations", zap.Error(err))
			return nil
		}
		return fmt.Errorf("generate explanations: %w", err)
	}

	keys := make([]explain.Key, 0, len(results))
	for k := range results {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })

	for _, k := range keys {
		s.logger.Info(results[k], zap.String("mentee_id", k.MenteeID), zap.String("mentor_id", k.MentorID))
	}
	s.logger.Info("explanations ready", zap.Int("count", len(results)), zap.Int("requested", len(reqs)))

	return nil
}

func writeMetrics(path string, log *zap.Logger) {
	if err := metrics.WriteTextfile(path); err != nil {
		log.Error("writing metrics", zap.Error(err), zap.String("filename", path))
		return
	}
	log.Debug("metrics written", zap.String("filename", path))
}
