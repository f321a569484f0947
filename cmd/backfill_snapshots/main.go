package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/prepmetrics/prepmetrics-backend/internal/config"
	"github.com/prepmetrics/prepmetrics-backend/internal/db"
	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/predict"
	"github.com/prepmetrics/prepmetrics-backend/internal/repos"
	"github.com/prepmetrics/prepmetrics-backend/internal/types"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

// Recomputes today's daily snapshot for every goal (or the goals named with
// -goal). Useful after engine tuning changes or a missed apply day.
func main() {
	var goals idList
	var dryRun bool
	var limit int
	var concurrency int
	flag.Var(&goals, "goal", "goal id to recompute (repeatable; default all)")
	flag.BoolVar(&dryRun, "dry-run", false, "print snapshots without writing them")
	flag.IntVar(&limit, "limit", 0, "limit number of goals processed")
	flag.IntVar(&concurrency, "concurrency", 4, "parallel goal computations")
	flag.Parse()

	log, err := logger.New(os.Getenv("LOG_MODE"))
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg, err := config.Load(log)
	if err != nil {
		fmt.Printf("load config: %v\n", err)
		os.Exit(1)
	}

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		fmt.Printf("init postgres: %v\n", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	goalRepo := repos.NewGoalRepo(thePG, log)
	taskRepo := repos.NewTaskRepo(thePG, log)
	snapshotRepo := repos.NewDailySnapshotRepo(thePG, log)

	ctx := context.Background()

	var rows []*types.Goal
	if len(goals) > 0 {
		for _, raw := range goals {
			id, err := uuid.Parse(strings.TrimSpace(raw))
			if err != nil || id == uuid.Nil {
				continue
			}
			var row types.Goal
			if err := thePG.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&row).Error; err == nil && row.ID != uuid.Nil {
				rows = append(rows, &row)
			}
		}
		if len(rows) == 0 {
			fmt.Println("no valid goal ids provided")
			return
		}
	} else {
		rows, err = goalRepo.ListAll(ctx, nil)
		if err != nil {
			fmt.Printf("load goals: %v\n", err)
			os.Exit(1)
		}
	}
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}

	today := predict.Today()
	var written atomic.Int64
	var skipped atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)
	for _, goal := range rows {
		goal := goal
		group.Go(func() error {
			taskRows, err := taskRepo.ListActiveByGoal(groupCtx, nil, goal.ID)
			if err != nil {
				return fmt.Errorf("load tasks for goal %s: %w", goal.ID, err)
			}
			if len(taskRows) == 0 {
				skipped.Add(1)
				return nil
			}

			states := make([]predict.TaskState, len(taskRows))
			for i, row := range taskRows {
				states[i] = taskState(row, cfg.Engine)
			}

			threshold := goal.ThresholdMarks
			if threshold <= 0 {
				threshold = cfg.Engine.PlanClearThreshold
			}
			status := predict.ComputeGoalStatus(states, threshold, goal.ExamDate, goal.DailyHoursDefault, goal.SplitNewDefault, goal.DeltaDecay, today, cfg.Engine)

			if dryRun {
				fmt.Printf("[dry-run] goal=%s mu=%.2f p_clear=%.4f tasks=%d\n", goal.ID, status.Mu, status.PClearToday, status.TotalTasks)
				return nil
			}

			snapshot := &types.DailySnapshot{
				UserID:       goal.UserID,
				SnapshotDate: today,
				Mu:           status.Mu,
				Sigma2:       status.Sigma2,
				PClearToday:  status.PClearToday,
			}
			if goal.ExamDate != nil && status.DaysRemaining > 0 {
				muExam := status.MuExam
				pClearExam := status.PClearExam
				snapshot.MuExam = &muExam
				snapshot.PClearExam = &pClearExam
			}
			if err := snapshotRepo.Upsert(groupCtx, nil, snapshot); err != nil {
				return fmt.Errorf("upsert snapshot for goal %s: %w", goal.ID, err)
			}
			written.Add(1)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		fmt.Printf("backfill failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("done; written=%d skipped=%d\n", written.Load(), skipped.Load())
}

func taskState(row *types.Task, engine predict.Config) predict.TaskState {
	state := predict.TaskState{
		TaskID:           row.ID,
		Name:             row.Name,
		ConceptWeight:    row.ConceptWeight,
		Mastery:          row.Mastery,
		TEstHours:        row.TEstHours,
		LambdaForgetting: row.LambdaForgetting,
		EtaLearn:         row.EtaLearn,
		RhoRevise:        row.RhoRevise,
		LastStudiedAt:    row.LastStudiedAt,
		SpacedStage:      row.SpacedStage,
		TaskType:         row.TaskType,
		Derived:          row.Derived,
	}
	if row.Topic != nil && row.Topic.Subject != nil {
		state.SubjectName = row.Topic.Subject.Name
	}
	if state.TEstHours <= 0 {
		state.TEstHours = engine.DefaultTEstHours
	}
	if state.LambdaForgetting <= 0 {
		state.LambdaForgetting = engine.DefaultLambdaForgetting
	}
	if state.EtaLearn <= 0 {
		state.EtaLearn = engine.DefaultEtaLearn
	}
	if state.RhoRevise <= 0 {
		state.RhoRevise = engine.DefaultRhoRevise
	}
	return state
}
