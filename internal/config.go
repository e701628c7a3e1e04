package internal

import (
	"fmt"
	"scenario-lab/errors"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"
)

type Config struct {
	LogLevel            string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR debug info warn error"`
	RunName             string        `env:"RUN_NAME,default=scenario-lab" validate:"required"`
	NumberOfWorkers     int           `env:"NUMBER_OF_WORKERS,default=4" validate:"min=1,max=256"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	SlowScenarioDelay   time.Duration `env:"SLOW_SCENARIO_DELAY,default=5s" validate:"gte=0"`
	SlowCaseThreshold   time.Duration `env:"SLOW_CASE_THRESHOLD,default=2s" validate:"gte=0"`
	HeartbeatInterval   time.Duration `env:"HEARTBEAT_INTERVAL,default=1s" validate:"gt=0"`
	GuessLegacyMessages bool          `env:"GUESS_LEGACY_MESSAGES,default=false"`
	ScenarioSuites      string        `env:"SCENARIO_SUITES,default=tests1;tests2" validate:"required"`
	ScenarioFilter      string        `env:"SCENARIO_FILTER"`
	JUnitReportPath     string        `env:"JUNIT_REPORT_PATH"`
	HistoryFilepath     string        `env:"HISTORY_FILEPATH"`
	HistoryMaxRuns      int           `env:"HISTORY_MAX_RUNS,default=50" validate:"gte=0"`
	SearchIndexFilepath string        `env:"SEARCH_INDEX_FILEPATH"`
	RerunFailedFirst    bool          `env:"RERUN_FAILED_FIRST,default=false"`
	Colours             bool          `env:"COLOURS,default=true"`
	ShowOutput          bool          `env:"SHOW_OUTPUT,default=true"`
	FailuresOnly        bool          `env:"FAILURES_ONLY,default=false" validate:"excluded_with=IgnoredOnly"`
	IgnoredOnly         bool          `env:"IGNORED_ONLY,default=false"`
}

// LoadConfig reads the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return Config{}, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	if c.RerunFailedFirst && c.HistoryFilepath == "" {
		return fmt.Errorf("%w: RERUN_FAILED_FIRST needs HISTORY_FILEPATH", errors.ErrInvalidConfig)
	}
	if c.SearchIndexFilepath != "" && c.HistoryFilepath == "" {
		return fmt.Errorf("%w: SEARCH_INDEX_FILEPATH needs HISTORY_FILEPATH", errors.ErrInvalidConfig)
	}
	if len(c.Suites()) == 0 {
		return fmt.Errorf("%w: SCENARIO_SUITES must name at least one suite", errors.ErrInvalidConfig)
	}
	return nil
}

// Suites splits SCENARIO_SUITES on ';' or ','.
func (c Config) Suites() []string {
	fields := strings.FieldsFunc(c.ScenarioSuites, func(r rune) bool { return r == ';' || r == ',' })
	return lo.Uniq(lo.Compact(lo.Map(fields, func(s string, _ int) string { return strings.TrimSpace(s) })))
}
