package predict

// Config carries the engine's tuning constants. The defaults are fixed
// calibration values, never derived at runtime; operators may override them
// through the YAML tuning file loaded by the config package.
type Config struct {
	// Fallbacks applied when a task or goal record leaves a field unset.
	DefaultLambdaForgetting float64 `yaml:"default_lambda_forgetting"`
	DefaultEtaLearn         float64 `yaml:"default_eta_learn"`
	DefaultRhoRevise        float64 `yaml:"default_rho_revise"`
	DefaultTEstHours        float64 `yaml:"default_t_est_hours"`
	DefaultDailyHours       float64 `yaml:"default_daily_hours"`
	DefaultSplitNew         float64 `yaml:"default_split_new"`
	DefaultDeltaDecay       float64 `yaml:"default_delta_decay"`

	// Candidate selection for the daily plan.
	MaxNewTasks          int     `yaml:"max_new_tasks"`
	MaxRevisionTasks     int     `yaml:"max_revision_tasks"`
	NewMasteryCeiling    float64 `yaml:"new_mastery_ceiling"`
	RevisionMasteryFloor float64 `yaml:"revision_mastery_floor"`
	RevisionMinDays      int     `yaml:"revision_min_days"`
	DueBoostFactor       float64 `yaml:"due_boost_factor"`

	// Aggregate scoring in the plan context.
	PlanTotalMarks     float64 `yaml:"plan_total_marks"`
	PlanClearThreshold float64 `yaml:"plan_clear_threshold"`
	MasteredThreshold  float64 `yaml:"mastered_threshold"`

	// Virtual task retirement.
	RetirementMinRealTasks int     `yaml:"retirement_min_real_tasks"`
	RetirementCoverage     float64 `yaml:"retirement_coverage"`

	// Mains subjective score floor: mastery >= MainsFloorFactor * mains/100.
	MainsFloorFactor float64 `yaml:"mains_floor_factor"`
}

func DefaultConfig() Config {
	return Config{
		DefaultLambdaForgetting: 0.04,
		DefaultEtaLearn:         0.8,
		DefaultRhoRevise:        0.35,
		DefaultTEstHours:        4.0,
		DefaultDailyHours:       6.0,
		DefaultSplitNew:         0.6,
		DefaultDeltaDecay:       0.7,

		MaxNewTasks:          10,
		MaxRevisionTasks:     8,
		NewMasteryCeiling:    0.9,
		RevisionMasteryFloor: 0.3,
		RevisionMinDays:      3,
		DueBoostFactor:       1.5,

		PlanTotalMarks:     200.0,
		PlanClearThreshold: 120.0,
		MasteredThreshold:  0.8,

		RetirementMinRealTasks: 3,
		RetirementCoverage:     0.95,

		MainsFloorFactor: 0.8,
	}
}
