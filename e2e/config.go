package e2e

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// E2E_COLOURS enables colorized output for better log readability
	Colours bool `envconfig:"E2E_COLOURS" default:"true"`
	// E2E_SLOW_DELAY shortens the slow scenarios, the harness default is 5s
	SlowDelay time.Duration `envconfig:"E2E_SLOW_DELAY" default:"20ms"`
	Workers   int           `envconfig:"E2E_WORKERS" default:"4"`
	// E2E_DEBUG_REPORT dumps the console report in the test logs
	DebugReport bool `envconfig:"E2E_DEBUG_REPORT" default:"false"`
}

func LoadConfig() (Config, error) {
	var cfg Config
	err := envconfig.Process("", &cfg)
	return cfg, err
}
