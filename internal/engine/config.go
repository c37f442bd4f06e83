package engine

import (
	"errors"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/joshharrison/loomcast/internal/calendar"
	"github.com/joshharrison/loomcast/internal/errs"
	"github.com/joshharrison/loomcast/internal/estimate"
	"github.com/joshharrison/loomcast/internal/sampler"
)

// Mode selects the simulation strategy.
type Mode string

const (
	ModeDependency Mode = "dependency"
	ModeThroughput Mode = "throughput"
)

// DefaultHorizon bounds flat-throughput burn-down, in calendar days.
const DefaultHorizon = 3650

// Config controls a simulation run.
type Config struct {
	Iterations int       `json:"iterations" validate:"gt=0"`
	Seed       uint64    `json:"seed"`
	Mode       Mode      `json:"mode" validate:"omitempty,oneof=dependency throughput"`
	StartDate  time.Time `json:"start_date" validate:"required"`

	// Rand, when set, is drawn from sequentially by every iteration in
	// order and Seed is ignored. It cannot be combined with Workers > 1.
	Rand sampler.Rand `json:"-" validate:"-"`

	// Workers > 1 spreads iterations across goroutines. Each iteration draws
	// from its own stream of Seed, so results do not depend on Workers.
	Workers int `json:"workers" validate:"gte=0,lte=1024"`

	MaxLookahead int `json:"max_lookahead" validate:"gte=0"` // calendar days per scheduled package
	MaxHorizon   int `json:"max_horizon" validate:"gte=0"`   // calendar days for burn-down

	// Points maps story points to day ranges. Nil derives a Fibonacci table
	// from the velocity of done story point packages.
	Points estimate.PointsTable `json:"-" validate:"-"`

	// Histories are the throughput series EmpiricalThroughput estimates refer to.
	Histories map[string][]float64 `json:"-" validate:"-"`

	Source string         `json:"source"`
	Logger zerolog.Logger `json:"-" validate:"-"`
}

func (c Config) lookahead() int {
	if c.MaxLookahead > 0 {
		return c.MaxLookahead
	}
	return calendar.DefaultLookahead
}

func (c Config) horizon() int {
	if c.MaxHorizon > 0 {
		return c.MaxHorizon
	}
	return DefaultHorizon
}

var (
	validate *validator.Validate
	once     sync.Once
)

func getValidator() *validator.Validate {
	once.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return fld.Name
			}
			return name
		})
	})
	return validate
}

// Validate checks the configuration before any iteration runs.
func (c Config) Validate() error {
	if err := getValidator().Struct(c); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			return errs.New(errs.CodeInvalidConfig, "validation failed").WithCause(err)
		}
		e := errs.New(errs.CodeInvalidConfig, "invalid simulation config")
		for _, fe := range ve {
			e.WithDetail(fe.Field(), formatValidationError(fe))
		}
		return e
	}
	if c.Rand != nil && c.Workers > 1 {
		return errs.New(errs.CodeInvalidConfig, "an injected randomness source cannot be shared by %d workers", c.Workers)
	}
	return nil
}

func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte":
		return "must be at least " + fe.Param()
	case "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	default:
		return "failed " + fe.Tag() + " validation"
	}
}
