package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sethvargo/go-envconfig"

	"github.com/webriots/coresem"
)

// Config holds the workload settings. Every field can be set from the
// environment and overridden on the command line.
type Config struct {
	Scheduler  string        `env:"SEMSTRESS_SCHEDULER,default=preemptive"`
	Discipline string        `env:"SEMSTRESS_DISCIPLINE,default=fifo"`
	Threads    int           `env:"SEMSTRESS_THREADS,default=8"`
	Units      uint32        `env:"SEMSTRESS_UNITS,default=2"`
	Iterations int           `env:"SEMSTRESS_ITERATIONS,default=1000"`
	Timeout    time.Duration `env:"SEMSTRESS_TIMEOUT,default=1ms"`
	Deadline   time.Duration `env:"SEMSTRESS_DEADLINE,default=1m"`
	Metrics    bool          `env:"SEMSTRESS_METRICS,default=false"`
	LogLevel   string        `env:"LOG_LEVEL,default=info"`
}

func LoadConfig(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	return &cfg, nil
}

func (c *Config) discipline() (coresem.Discipline, error) {
	return coresem.ParseDiscipline(c.Discipline)
}

func (c *Config) scheduler() (coresem.Scheduler, error) {
	switch c.Scheduler {
	case "preemptive":
		return coresem.NewPreemptive(), nil
	case "cooperative":
		return coresem.NewCooperative(), nil
	default:
		return nil, errors.Errorf("unknown scheduler %q", c.Scheduler)
	}
}

func (c *Config) validate() error {
	if c.Threads < 1 {
		return errors.Errorf("threads must be positive, got %d", c.Threads)
	}
	if c.Iterations < 0 {
		return errors.Errorf("iterations must not be negative, got %d", c.Iterations)
	}
	if _, err := c.discipline(); err != nil {
		return err
	}
	if _, err := c.scheduler(); err != nil {
		return err
	}
	return nil
}
