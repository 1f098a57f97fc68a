package jobs

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"ComissoesCorpApp/api/regras"
	"ComissoesCorpApp/api/resultado"
	"ComissoesCorpApp/internal/config"
	"ComissoesCorpApp/internal/logger"
	"ComissoesCorpApp/internal/serviceiface"
)

// SweepConfig holds configuration for the periodic maintenance sweep.
type SweepConfig struct {
	Schedule string
	TimeZone string
}

func NewDefaultSweepConfig() *SweepConfig {
	return &SweepConfig{
		Schedule: config.SweepSchedule,
		TimeZone: config.DefaultTimeZone,
	}
}

type CronService struct {
	config map[string]interface{}
	cron   *cron.Cron
}

func NewCronService(cfg map[string]interface{}) serviceiface.Service {
	return &CronService{config: cfg}
}

func (s *CronService) Name() string {
	return "cron"
}

func (s *CronService) Start() error {
	log.Println("Starting cron service...")

	sweepConfig := NewDefaultSweepConfig()
	if s.config != nil {
		if schedule, ok := s.config["sweep_schedule"].(string); ok && schedule != "" {
			sweepConfig.Schedule = schedule
		}
		if tz, ok := s.config["time_zone"].(string); ok && tz != "" {
			sweepConfig.TimeZone = tz
		}
	}

	c, err := RunMaintenanceSweeper(sweepConfig)
	if err != nil {
		return fmt.Errorf("failed to start maintenance sweeper: %v", err)
	}
	s.cron = c

	if logger.GlobalLogger != nil {
		logger.GlobalLogger.LogAudit("Maintenance sweeper started")
	}
	log.Println("Cron service started, maintenance sweeper scheduled")
	return nil
}

func (s *CronService) Stop() error {
	if s.cron != nil {
		s.cron.Stop()
	}
	log.Println("Cron service stopped.")
	return nil
}

// RunMaintenanceSweeper schedules the sweep that expires cached option lists
// and reaps idle batch sessions and wizards.
func RunMaintenanceSweeper(cfg *SweepConfig) (*cron.Cron, error) {
	if cfg.Schedule == "" {
		cfg.Schedule = config.SweepSchedule
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = config.DefaultTimeZone
	}

	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		loc = time.UTC
	}

	c := cron.New(cron.WithLocation(loc))

	_, err = c.AddFunc(cfg.Schedule, SweepOnce)
	if err != nil {
		return nil, fmt.Errorf("unable to schedule maintenance sweeper: %v", err)
	}

	c.Start()
	return c, nil
}

// SweepOnce runs a single maintenance pass over both services. Services not
// yet started are skipped.
func SweepOnce() {
	var caches, sessions, wizards int

	if d := regras.SharedDeps(); d != nil {
		caches += d.Cache.Sweep()
		sessions = d.Sessions.Sweep()
		wizards = d.Wizards.Sweep()
	}
	if d := resultado.SharedDeps(); d != nil {
		caches += d.Cache.Sweep()
	}

	if caches > 0 || sessions > 0 || wizards > 0 {
		msg := fmt.Sprintf("Maintenance sweep: %d cache entries, %d sessions, %d wizards expired",
			caches, sessions, wizards)
		if logger.GlobalLogger != nil {
			logger.GlobalLogger.LogAudit(msg)
		} else {
			log.Println("[INFO]", msg)
		}
	}
}
