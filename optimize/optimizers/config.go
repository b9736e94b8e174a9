package optimizers

import (
	"time"

	"github.com/lookatitude/simba/config"
)

// LoadSimbaConfig reads the [simba] section of the application config file
// and environment (BELUGA_SIMBA_*) and returns a SimbaConfig ready to pass
// to NewSimba. Fields with no file/env representation — Strategies,
// ModelConfigSpace, Progress, Logger, Teacher — are left zero-valued and
// must be set by the caller after loading.
func LoadSimbaConfig(configPaths ...string) (SimbaConfig, error) {
	if err := config.LoadConfig(configPaths...); err != nil {
		return SimbaConfig{}, err
	}
	s := config.Cfg.Simba
	return SimbaConfig{
		BatchSize:             s.BatchSize,
		NumCandidates:         s.NumCandidates,
		MaxSteps:              s.MaxSteps,
		MaxDemos:              s.MaxDemos,
		TemperatureSampling:   s.TemperatureSampling,
		TemperatureCandidates: s.TemperatureCandidates,
		QualityThreshold:      s.QualityThreshold,
		MaxConcurrency:        s.MaxConcurrency,
		Timeout:               time.Duration(s.TimeoutSeconds) * time.Second,
		MinImprovement:        s.MinImprovement,
		Patience:              s.Patience,
		Seed:                  s.Seed,
	}.withDefaults(), nil
}
