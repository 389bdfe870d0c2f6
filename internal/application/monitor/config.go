package monitor

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/penwyp/go-code-activity/internal/core/constants"
	"github.com/penwyp/go-code-activity/internal/core/model"
)

// Config contains configuration for one monitored (course, assignment, user)
type Config struct {
	// Telemetry endpoint
	BaseURL    string `mapstructure:"base_url" validate:"required,url"`
	Course     string `mapstructure:"course" validate:"notblank"`
	Assignment string `mapstructure:"assignment" validate:"notblank"`
	User       string `mapstructure:"user" validate:"notblank"`

	// Series settings
	Interval    model.Interval `mapstructure:"interval" validate:"interval"`
	PointBudget int            `mapstructure:"budget" validate:"min=2"`

	// Build and run logs
	LogDir      string `mapstructure:"log_dir"`
	WatchLogs   bool   `mapstructure:"watch_logs"`
	Concurrency int    `mapstructure:"concurrency" validate:"min=1,max=64"`

	// Display settings
	Timezone      string  `mapstructure:"timezone"`
	UIRefreshRate float64 `mapstructure:"ui_refresh_rate" validate:"gt=0,lte=60"`

	// Refresh and sync timings
	AutoRefresh          bool          `mapstructure:"auto_refresh"`
	RefreshPeriod        time.Duration `mapstructure:"refresh_period" validate:"gt=0"`
	SyncDebounce         time.Duration `mapstructure:"sync_debounce" validate:"gt=0"`
	SyncCooldown         time.Duration `mapstructure:"sync_cooldown" validate:"gt=0"`
	CorrelationTolerance time.Duration `mapstructure:"tolerance" validate:"gt=0"`

	// Observability
	MetricsAddr string `mapstructure:"metrics_addr" validate:"omitempty,hostname_port"`
}

var (
	validate   *validator.Validate
	translator ut.Translator
)

func init() {
	validate = validator.New()

	english := en.New()
	uni := ut.New(english, english)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Report errors by configuration key rather than Go field name
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("mapstructure"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation("interval", func(fl validator.FieldLevel) bool {
		return model.Interval(fl.Field().Int()).Valid()
	})

	registerFn := func(ut.Translator) error { return nil }
	_ = validate.RegisterTranslation("notblank", translator, registerFn, func(_ ut.Translator, fe validator.FieldError) string {
		return fe.Field() + " cannot be blank"
	})
	_ = validate.RegisterTranslation("interval", translator, registerFn, func(_ ut.Translator, fe validator.FieldError) string {
		return fmt.Sprintf("%s must be one of 1, 3, 5, 10, 15, 30, 60 minutes or hour, day, week, month (got %v)", fe.Field(), fe.Value())
	})
}

// Validate fills defaults and checks every field
func (c *Config) Validate() error {
	if c.Interval == 0 {
		c.Interval = 5
	}
	if c.PointBudget == 0 {
		c.PointBudget = constants.DefaultPointBudget
	}
	if c.Concurrency == 0 {
		c.Concurrency = 4
	}
	if c.Timezone == "" {
		c.Timezone = "Local"
	}
	if c.UIRefreshRate == 0 {
		c.UIRefreshRate = 1
	}
	if c.RefreshPeriod == 0 {
		c.RefreshPeriod = constants.RefreshPeriod
	}
	if c.SyncDebounce == 0 {
		c.SyncDebounce = constants.SyncDebounce
	}
	if c.SyncCooldown == 0 {
		c.SyncCooldown = constants.SyncCooldown
	}
	if c.CorrelationTolerance == 0 {
		c.CorrelationTolerance = constants.CorrelationTolerance
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fe.Translate(translator))
	}
	sort.Strings(msgs)
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Target returns the monitored (course, assignment, user)
func (c *Config) Target() model.Target {
	return model.Target{Course: c.Course, Assignment: c.Assignment, User: c.User}
}
