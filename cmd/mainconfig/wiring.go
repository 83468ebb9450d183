package mainconfig

import (
	"context"
	"crypto/tls"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/wolfman30/appointment-agent/internal/audit"
	"github.com/wolfman30/appointment-agent/internal/calendar"
	appconfig "github.com/wolfman30/appointment-agent/internal/config"
	"github.com/wolfman30/appointment-agent/internal/conversation"
	"github.com/wolfman30/appointment-agent/internal/dateparse"
	"github.com/wolfman30/appointment-agent/internal/googleauth"
	"github.com/wolfman30/appointment-agent/internal/notify"
	"github.com/wolfman30/appointment-agent/internal/observability/metrics"
	"github.com/wolfman30/appointment-agent/pkg/logging"
)

// Pinger is a dependency /health can probe.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Scheduler is a fully wired conversation agent plus the resources it owns.
type Scheduler struct {
	Agent        *conversation.Agent
	Metrics      *metrics.SchedulerMetrics
	HealthChecks map[string]Pinger

	closers []func() error
}

// Close releases database and Redis connections.
func (s *Scheduler) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	return errors.Join(errs...)
}

// BuildScheduler wires the agent from configuration. reg may be nil to use
// the default Prometheus registerer.
func BuildScheduler(ctx context.Context, cfg *appconfig.Config, reg prometheus.Registerer, logger *logging.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Scheduler{
		Metrics:      metrics.NewSchedulerMetrics(reg),
		HealthChecks: map[string]Pinger{},
	}

	var googleOpts []option.ClientOption
	if cfg.GoogleConfigured() {
		opts, err := googleauth.ClientOptions(ctx, googleauth.Credentials{
			ClientEmail: cfg.GoogleClientEmail,
			PrivateKey:  cfg.GooglePrivateKey,
			ProjectID:   cfg.GoogleProjectID,
		})
		if err != nil {
			return nil, err
		}
		googleOpts = opts
	}

	cal, err := s.buildCalendar(ctx, cfg, googleOpts, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	auditLog, err := s.buildAuditLog(ctx, cfg, googleOpts, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	notifier, err := BuildNotifier(ctx, cfg, logger)
	if err != nil {
		_ = s.Close()
		return nil, err
	}

	agent, err := conversation.NewAgent(conversation.AgentConfig{
		Calendar:            cal,
		AuditLog:            auditLog,
		Notifier:            notifier,
		Parser:              dateparse.New(cfg.Location(), time.Now),
		Logger:              logger,
		Metrics:             s.Metrics,
		AppointmentTitle:    cfg.AppointmentTitle,
		AppointmentDuration: cfg.AppointmentDuration,
		SuggestionLimit:     cfg.SlotSuggestionLimit,
		RequireConfirmation: cfg.RequireConfirmation,
	})
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	s.Agent = agent
	return s, nil
}

// Hours derives the business-hour window from configuration.
func Hours(cfg *appconfig.Config) calendar.Hours {
	return calendar.Hours{
		StartHour:    cfg.BusinessHourStart,
		EndHour:      cfg.BusinessHourEnd,
		SlotDuration: cfg.AppointmentDuration,
		Location:     cfg.Location(),
	}
}

func (s *Scheduler) buildCalendar(ctx context.Context, cfg *appconfig.Config, googleOpts []option.ClientOption, logger *logging.Logger) (calendar.Calendar, error) {
	hours := Hours(cfg)
	if err := hours.Validate(); err != nil {
		return nil, err
	}

	var cal calendar.Calendar
	switch cfg.CalendarBackend {
	case "google":
		if googleOpts == nil || cfg.GoogleCalendarID == "" {
			return nil, errors.New("mainconfig: google calendar backend needs service account credentials and GOOGLE_CALENDAR_ID")
		}
		svc, err := gcal.NewService(ctx, googleOpts...)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: google calendar client: %w", err)
		}
		gc, err := calendar.NewGoogleCalendar(svc, cfg.GoogleCalendarID, hours, time.Now)
		if err != nil {
			return nil, err
		}
		cal = gc
	case "memory", "":
		logger.Warn("using in-memory calendar; appointments are lost on restart")
		cal = calendar.NewMemoryCalendar(hours, time.Now)
	default:
		return nil, fmt.Errorf("mainconfig: unknown CALENDAR_BACKEND %q", cfg.CalendarBackend)
	}

	if cfg.RedisAddr != "" {
		opts := &redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword}
		if cfg.RedisTLS {
			opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		}
		client := redis.NewClient(opts)
		s.closers = append(s.closers, client.Close)
		s.HealthChecks["redis"] = redisPinger{client}
		cal = calendar.NewLockingCalendar(cal, calendar.NewSlotLocker(client, cfg.SlotLockTTL, logger))
		logger.Info("slot locking enabled", "redis_addr", cfg.RedisAddr, "ttl", cfg.SlotLockTTL)
	}

	return calendar.Instrument(cal, s.Metrics), nil
}

func (s *Scheduler) buildAuditLog(ctx context.Context, cfg *appconfig.Config, googleOpts []option.ClientOption, logger *logging.Logger) (audit.Logger, error) {
	var sinks audit.MultiLogger

	if cfg.GoogleSpreadsheetID != "" {
		if googleOpts == nil {
			return nil, errors.New("mainconfig: GOOGLE_SPREADSHEET_ID set without service account credentials")
		}
		svc, err := sheets.NewService(ctx, googleOpts...)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: google sheets client: %w", err)
		}
		sheetsLog, err := audit.NewSheetsLogger(svc, cfg.GoogleSpreadsheetID)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sheetsLog)
	}

	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: open audit database: %w", err)
		}
		s.closers = append(s.closers, db.Close)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return nil, fmt.Errorf("mainconfig: ping audit database: %w", err)
		}
		s.HealthChecks["postgres"] = db
		sinks = append(sinks, audit.NewPostgresLogger(db))
	}

	if len(sinks) == 0 {
		logger.Warn("no audit sink configured; appointment actions are not recorded")
		return audit.NopLogger{}, nil
	}
	return sinks, nil
}

// BuildNotifier selects the email provider named by EMAIL_PROVIDER.
func BuildNotifier(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*notify.Notifier, error) {
	var sender notify.EmailSender
	switch cfg.EmailProvider {
	case "sendgrid":
		if sg := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger); sg != nil {
			sender = sg
		}
	case "ses":
		awsCfg, err := LoadAWSConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("mainconfig: load aws config: %w", err)
		}
		sender = notify.NewSESSender(NewSESClient(awsCfg, cfg), notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		}, logger)
	case "stub", "":
		sender = notify.NewStubEmailSender(logger)
	default:
		return nil, fmt.Errorf("mainconfig: unknown EMAIL_PROVIDER %q", cfg.EmailProvider)
	}
	return notify.NewNotifier(sender, cfg.AdvisorEmail, logger), nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
