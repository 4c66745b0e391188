package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medishift/mission-matcher/internal/mission"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var missionCmd = &cobra.Command{
	Use:   "mission",
	Short: "Create missions and move them through their lifecycle",
}

var missionCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an OPEN mission, geocoding its address when coordinates are missing",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		withApplication(func(ctx context.Context, a *application) (interface{}, error) {
			req, err := createRequest(cmd)
			if err != nil {
				return nil, err
			}
			return a.missions.Create(ctx, req)
		})
	},
}

var missionShowCmd = &cobra.Command{
	Use:   "show <mission-id>",
	Short: "Print a mission",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withApplication(func(ctx context.Context, a *application) (interface{}, error) {
			return a.missions.Get(ctx, args[0])
		})
	},
}

var missionAssignCmd = &cobra.Command{
	Use:   "assign <mission-id> <candidate-id>",
	Short: "Assign an OPEN mission to a candidate",
	Args:  cobra.ExactArgs(2),
	Run: func(_ *cobra.Command, args []string) {
		withApplication(func(ctx context.Context, a *application) (interface{}, error) {
			return a.missions.Assign(ctx, args[0], args[1])
		})
	},
}

var missionCancelCmd = &cobra.Command{
	Use:   "cancel <mission-id>",
	Short: "Cancel an OPEN mission",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withApplication(func(ctx context.Context, a *application) (interface{}, error) {
			return a.missions.Cancel(ctx, args[0])
		})
	},
}

var missionExpireCmd = &cobra.Command{
	Use:   "expire <mission-id>",
	Short: "Expire an OPEN mission whose start date has passed",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		withApplication(func(ctx context.Context, a *application) (interface{}, error) {
			return a.missions.Expire(ctx, args[0])
		})
	},
}

var missionSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Expire every OPEN mission whose start date has passed",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		sweep(cmd)
	},
}

func init() {
	rootCmd.AddCommand(missionCmd)
	missionCmd.AddCommand(missionCreateCmd, missionShowCmd, missionAssignCmd, missionCancelCmd, missionExpireCmd, missionSweepCmd)

	f := missionCreateCmd.Flags()
	f.StringP("file", "f", "", "read the mission as JSON from this file (- for stdin)")
	f.String("client", "", "client id")
	f.String("job-title", "", "job title")
	f.String("title", "", "short title shown to candidates")
	f.String("description", "", "description")
	f.Float64("rate", 0, "hourly rate")
	f.String("start", "", "start date, RFC 3339")
	f.String("end", "", "end date, RFC 3339")
	f.String("address", "", "street address")
	f.String("city", "", "city")
	f.String("postal-code", "", "postal code")
	f.Int("radius", 0, "search radius in km")
	f.Bool("night", false, "night shift")
	f.String("urgency", "MEDIUM", "urgency level: LOW, MEDIUM, HIGH or CRITICAL")
	f.StringSlice("skills", nil, "required skills")
	f.StringSlice("diplomas", nil, "required diplomas")

	missionSweepCmd.Flags().BoolP("watch", "w", false, "keep running and sweep on the configured schedule")
}

// withApplication runs fn against a wired application and prints its result as JSON.
func withApplication(fn func(ctx context.Context, a *application) (interface{}, error)) {
	ctx := context.Background()
	logger := newLogger()

	a, err := newApplication(ctx, logger)
	if err != nil {
		logger.Fatal("starting", zap.Error(err))
	}
	defer a.Close()

	out, err := fn(ctx, a)
	if err != nil {
		logger.Fatal("command failed", zap.Error(err))
	}

	if err := printJSON(out); err != nil {
		logger.Fatal("printing result", zap.Error(err))
	}
}

func createRequest(cmd *cobra.Command) (mission.CreateRequest, error) {
	var req mission.CreateRequest
	f := cmd.Flags()

	if file, _ := f.GetString("file"); file != "" {
		var (
			data []byte
			err  error
		)
		if file == "-" {
			data, err = io.ReadAll(os.Stdin)
		} else {
			data, err = os.ReadFile(file)
		}
		if err != nil {
			return req, fmt.Errorf("reading mission file: %w", err)
		}
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("decoding mission file: %w", err)
		}
		return req, nil
	}

	req.ClientID, _ = f.GetString("client")
	req.JobTitle, _ = f.GetString("job-title")
	req.Title, _ = f.GetString("title")
	req.Description, _ = f.GetString("description")
	req.HourlyRate, _ = f.GetFloat64("rate")
	req.Address, _ = f.GetString("address")
	req.City, _ = f.GetString("city")
	req.PostalCode, _ = f.GetString("postal-code")
	req.UrgencyLevel, _ = f.GetString("urgency")
	req.RequiredSkills, _ = f.GetStringSlice("skills")
	req.RequiredDiplomas, _ = f.GetStringSlice("diplomas")

	if raw, _ := f.GetString("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return req, fmt.Errorf("--start: %w", err)
		}
		req.StartDate = start
	}
	if raw, _ := f.GetString("end"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return req, fmt.Errorf("--end: %w", err)
		}
		req.EndDate = &end
	}

	if f.Changed("radius") {
		radius, _ := f.GetInt("radius")
		req.RadiusKm = &radius
	}
	if f.Changed("night") {
		night, _ := f.GetBool("night")
		req.IsNightShift = &night
	}

	return req, nil
}

func sweep(cmd *cobra.Command) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := newLogger()

	a, err := newApplication(ctx, logger)
	if err != nil {
		logger.Fatal("starting", zap.Error(err))
	}
	defer a.Close()

	schedule := mission.DefaultSweepSchedule
	if a.config.Sweep != nil && a.config.Sweep.Schedule != "" {
		schedule = a.config.Sweep.Schedule
	}
	sweeper := mission.NewSweeper(a.missions, schedule, logger.Named("sweep"))

	if watch, _ := cmd.Flags().GetBool("watch"); !watch {
		expired := sweeper.RunOnce(ctx)
		if err := printJSON(map[string]int{"expired": expired}); err != nil {
			logger.Fatal("printing result", zap.Error(err))
		}
		return
	}

	if err := sweeper.Start(ctx); err != nil {
		logger.Fatal("starting the sweep", zap.Error(err))
	}
	<-ctx.Done()
	sweeper.Stop()
}
