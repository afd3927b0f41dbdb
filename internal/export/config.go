package export

import (
	"time"

	"github.com/go-playground/validator/v10"

	"demoreport/internal/config"
	apperrors "demoreport/internal/errors"
	"demoreport/pkg/contracts/domain"
)

// CacheReadPolicy decides what happens when a cached entry cannot be read
type CacheReadPolicy string

const (
	// FailOnCacheError fails the run
	FailOnCacheError CacheReadPolicy = "fail"
	// ReanalyzeOnCacheError logs the failure and analyzes the demo instead
	ReanalyzeOnCacheError CacheReadPolicy = "reanalyze"
)

// Configuration holds the options of one export run. It is not modified
// by the run.
type Configuration struct {
	DemoPath     string `validate:"required"`
	ForceAnalyze bool
	// Source replaces the detected recording source on analyzed matches
	Source          domain.Source   `validate:"omitempty,oneof=valve faceit esea ebot pov unknown"`
	CacheReadPolicy CacheReadPolicy `validate:"omitempty,oneof=fail reanalyze"`
	// AnalysisTimeout bounds the analysis pass, 0 means no limit
	AnalysisTimeout time.Duration `validate:"min=0"`
	// OnAnalyzeStart is called once, right before a full analysis starts
	OnAnalyzeStart func()
	// Header is a header the caller already read from DemoPath. When set
	// the decoder's ReadHeader is not called again.
	Header *domain.MatchHeader `validate:"-"`
}

var validate = validator.New()

// Validate checks the configuration
func (c Configuration) Validate() error {
	if err := validate.Struct(c); err != nil {
		return apperrors.NewAppValidationError("invalid export configuration", err)
	}
	return nil
}

func (c Configuration) readPolicy() CacheReadPolicy {
	if c.CacheReadPolicy == "" {
		return FailOnCacheError
	}
	return c.CacheReadPolicy
}

// ConfigurationFrom builds a run configuration from the application defaults
func ConfigurationFrom(cfg config.ExportConfig, demoPath string) Configuration {
	return Configuration{
		DemoPath:        demoPath,
		ForceAnalyze:    cfg.ForceAnalyze,
		CacheReadPolicy: CacheReadPolicy(cfg.CacheReadPolicy),
		AnalysisTimeout: cfg.AnalysisTimeout,
	}
}
