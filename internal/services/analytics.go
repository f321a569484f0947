package services

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prepmetrics/prepmetrics-backend/internal/logger"
	"github.com/prepmetrics/prepmetrics-backend/internal/predict"
	"github.com/prepmetrics/prepmetrics-backend/internal/repos"
)

type TrendPoint struct {
	Date         string  `json:"date"`
	Mu           float64 `json:"mu"`
	PClearToday  float64 `json:"p_clear_today"`
	DeltaMuDay   float64 `json:"delta_mu_day"`
	HoursPlanned float64 `json:"hours_planned"`
}

type SubjectContribution struct {
	SubjectName  string  `json:"subject_name"`
	Contribution float64 `json:"contribution_marks"`
	Percent      float64 `json:"percent"`
}

// MarginalTask is a task ranked by the expected mark gain of spending one
// more half hour on it.
type MarginalTask struct {
	TaskID      uuid.UUID `json:"task_id"`
	TaskName    string    `json:"task_name"`
	SubjectName string    `json:"subject_name"`
	Mastery     float64   `json:"mastery"`
	DeltaMarks  float64   `json:"delta_marks"`
}

type DashboardResponse struct {
	GoalID               uuid.UUID             `json:"goal_id"`
	Date                 string                `json:"date"`
	DaysToExam           *int                  `json:"days_to_exam,omitempty"`
	Trend                []TrendPoint          `json:"trend"`
	SubjectContributions []SubjectContribution `json:"subject_contributions"`
	TopMarginalTasks     []MarginalTask        `json:"top_marginal_tasks"`
}

type AnalyticsService interface {
	Dashboard(ctx context.Context, userID, goalID uuid.UUID, days int) (*DashboardResponse, error)
}

type analyticsService struct {
	db       *gorm.DB
	log      *logger.Logger
	goalRepo repos.GoalRepo
	taskRepo repos.TaskRepo
	snapRepo repos.DailySnapshotRepo
	engine   predict.Config
}

func NewAnalyticsService(db *gorm.DB, log *logger.Logger, goalRepo repos.GoalRepo, taskRepo repos.TaskRepo, snapRepo repos.DailySnapshotRepo, engine predict.Config) AnalyticsService {
	return &analyticsService{
		db:       db,
		log:      log.With("service", "AnalyticsService"),
		goalRepo: goalRepo,
		taskRepo: taskRepo,
		snapRepo: snapRepo,
		engine:   engine,
	}
}

const marginalIncrementHours = 0.5

func (s *analyticsService) Dashboard(ctx context.Context, userID, goalID uuid.UUID, days int) (*DashboardResponse, error) {
	goal, states, err := loadGoalTasks(ctx, nil, s.goalRepo, s.taskRepo, userID, goalID, s.engine)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = 30
	}

	today := predict.Today()
	resp := &DashboardResponse{
		GoalID: goalID,
		Date:   today.Format("2006-01-02"),
	}
	if goal.ExamDate != nil {
		d := int(predict.CivilDate(*goal.ExamDate).Sub(today).Hours() / 24)
		if d < 0 {
			d = 0
		}
		resp.DaysToExam = &d
	}

	from := today.AddDate(0, 0, -days)
	snapshots, err := s.snapRepo.ListSince(ctx, nil, userID, from)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}
	for _, snap := range snapshots {
		resp.Trend = append(resp.Trend, TrendPoint{
			Date:         predict.CivilDate(snap.SnapshotDate).Format("2006-01-02"),
			Mu:           roundTo(snap.Mu, 2),
			PClearToday:  roundTo(snap.PClearToday, 4),
			DeltaMuDay:   roundTo(snap.DeltaMuDay, 2),
			HoursPlanned: roundTo(snap.HoursPlanned, 2),
		})
	}

	threshold := goal.ThresholdMarks
	if threshold <= 0 {
		threshold = s.engine.PlanClearThreshold
	}
	totalMarks := threshold * 1.67

	bySubject := make(map[string]float64)
	var totalContribution float64
	var marginal []MarginalTask
	for _, state := range states {
		elapsed := predict.DaysSince(state.LastStudiedAt, today)
		mastery := predict.ApplyDecay(state.Mastery, state.LambdaForgetting, elapsed)

		contribution := state.ConceptWeight * mastery * totalMarks
		bySubject[state.SubjectName] += contribution
		totalContribution += contribution

		after := predict.LearnUpdate(mastery, marginalIncrementHours, state.TEstHours, state.EtaLearn)
		marginal = append(marginal, MarginalTask{
			TaskID:      state.TaskID,
			TaskName:    state.Name,
			SubjectName: state.SubjectName,
			Mastery:     roundTo(mastery, 3),
			DeltaMarks:  roundTo(state.ConceptWeight*(after-mastery)*totalMarks, 3),
		})
	}

	for name, contribution := range bySubject {
		row := SubjectContribution{
			SubjectName:  name,
			Contribution: roundTo(contribution, 2),
		}
		if totalContribution > 0 {
			row.Percent = roundTo(contribution/totalContribution*100, 1)
		}
		resp.SubjectContributions = append(resp.SubjectContributions, row)
	}
	sort.Slice(resp.SubjectContributions, func(i, j int) bool {
		return resp.SubjectContributions[i].Contribution > resp.SubjectContributions[j].Contribution
	})

	sort.SliceStable(marginal, func(i, j int) bool {
		return marginal[i].DeltaMarks > marginal[j].DeltaMarks
	})
	if len(marginal) > 5 {
		marginal = marginal[:5]
	}
	resp.TopMarginalTasks = marginal

	return resp, nil
}
