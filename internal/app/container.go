package app

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gracefellowship/church-admin-backend/internal/api"
	"github.com/gracefellowship/church-admin-backend/internal/appointment"
	appointmentHttp "github.com/gracefellowship/church-admin-backend/internal/appointment/http"
	"github.com/gracefellowship/church-admin-backend/internal/auth"
	"github.com/gracefellowship/church-admin-backend/internal/config"
	"github.com/gracefellowship/church-admin-backend/internal/notify"
	"github.com/gracefellowship/church-admin-backend/internal/schedule"
	"github.com/gracefellowship/church-admin-backend/internal/user"
)

// Config holds the dependencies and settings required to start the application.
type Config struct {
	IsProduction bool
	ProdOrigins  string
	DBPool       *pgxpool.Pool
	JWTSecret    string
	JWTTTL       time.Duration
	PasswordCost int
	Logger       *slog.Logger

	Timezone        string
	Policy          string
	SlotStepMinutes int
	Booking         appointment.Config
	Messages        appointment.MessageConfig
	Reminder        appointment.ReminderConfig
	Sender          notify.Sender

	RateLimit gin.HandlerFunc
	Ready     api.ReadyCheck

	// Repository overrides; the pgx implementations over DBPool are used when nil.
	UserRepo        user.Repository
	AppointmentRepo appointment.Repository
	Now             func() time.Time
}

// Container holds the initialized components that are needed externally.
type Container struct {
	Router             *gin.Engine
	JWTManager         *auth.JWTManager
	UserService        user.Service
	AppointmentService appointment.Service
	Reminder           *appointment.Reminder
}

// NewContainer initializes all modules and returns the container.
// It fails when the scheduling configuration is invalid.
func NewContainer(cfg Config) (*Container, error) {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Sender == nil {
		cfg.Sender = notify.NewLogSender(cfg.Logger)
	}

	// Scheduling
	conv, err := schedule.NewConverter(cfg.Timezone)
	if err != nil {
		return nil, err
	}
	policy, err := schedule.ParsePolicy(cfg.Policy, cfg.SlotStepMinutes)
	if err != nil {
		return nil, err
	}
	generator := schedule.NewGenerator(policy, conv)

	if err := appointmentHttp.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	// Init Components
	passwordHasher := auth.NewBcryptPasswordHasherWithCost(cfg.PasswordCost)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTTTL)

	// User Module
	userRepo := cfg.UserRepo
	if userRepo == nil {
		userRepo = user.NewPgxRepository(cfg.DBPool)
	}
	userService := user.NewService(userRepo, passwordHasher)

	// Appointment Module
	apptRepo := cfg.AppointmentRepo
	if apptRepo == nil {
		apptRepo = appointment.NewPgxRepository(cfg.DBPool)
	}
	messages := appointment.NewMessages(conv, cfg.Messages)
	var opts []appointment.Option
	if cfg.Now != nil {
		opts = append(opts, appointment.WithClock(cfg.Now))
	}
	apptService := appointment.NewService(apptRepo, generator, messages, cfg.Sender, cfg.Booking, opts...)
	reminder := appointment.NewReminder(apptRepo, messages, cfg.Sender, cfg.Logger, cfg.Reminder)

	// Router
	router := api.NewRouter(api.Config{
		IsProduction:       cfg.IsProduction,
		ProdOrigins:        cfg.ProdOrigins,
		Logger:             cfg.Logger,
		UserService:        userService,
		AppointmentService: apptService,
		Reminder:           reminder,
		JWTManager:         jwtManager,
		RateLimit:          cfg.RateLimit,
		Ready:              cfg.Ready,
	})

	return &Container{
		Router:             router,
		JWTManager:         jwtManager,
		UserService:        userService,
		AppointmentService: apptService,
		Reminder:           reminder,
	}, nil
}

// ConfigFrom maps environment configuration onto container settings.
// Mail goes through SMTP when a relay is configured and is only logged otherwise.
func ConfigFrom(env *config.Config, pool *pgxpool.Pool, logger *slog.Logger) (Config, error) {
	statuses := make([]appointment.Status, 0, len(env.ReminderStatuses))
	for _, s := range env.ReminderStatuses {
		st, err := appointment.ParseStatus(s)
		if err != nil || st == appointment.StatusCancelled || st == appointment.StatusCompleted {
			return Config{}, fmt.Errorf("invalid REMINDER_STATUSES entry %q", s)
		}
		statuses = append(statuses, st)
	}

	var sender notify.Sender = notify.NewLogSender(logger)
	if env.SMTPHost != "" {
		sender = notify.NewSMTPSender(notify.SMTPConfig{
			Host:     env.SMTPHost,
			Port:     env.SMTPPort,
			Username: env.SMTPUsername,
			Password: env.SMTPPassword,
			From:     env.MailFrom,
		})
	}

	return Config{
		IsProduction:    env.IsProduction,
		ProdOrigins:     env.ProdOrigins,
		DBPool:          pool,
		JWTSecret:       env.JWTSecret,
		JWTTTL:          env.JWTAccessTokenTTL,
		PasswordCost:    env.BcryptCost,
		Logger:          logger,
		Timezone:        env.AuthorityTimezone,
		Policy:          env.AvailabilityPolicy,
		SlotStepMinutes: env.SlotStepMinutes,
		Booking: appointment.Config{
			Buffer:        env.BookingBuffer,
			StoreTimeout:  env.StoreTimeout,
			NotifyTimeout: env.NotifyTimeout,
			PhoneRegion:   env.DefaultPhoneRegion,
		},
		Messages: appointment.MessageConfig{
			Title:           env.CalendarTitle,
			OrganizerEmail:  env.OrganizerEmail,
			Location:        env.CalendarLocation,
			DurationMinutes: env.SlotDurationMinutes,
		},
		Reminder: appointment.ReminderConfig{
			Lookahead:    env.ReminderLookahead,
			Statuses:     statuses,
			SendTimeout:  env.NotifyTimeout,
			StoreTimeout: env.StoreTimeout,
			Interval:     env.ReminderInterval,
		},
		Sender: sender,
	}, nil
}
