package router

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	httpSwagger "github.com/swaggo/http-swagger"

	mem "health-record-portal/internal/adapters/storage/memory"
	pg "health-record-portal/internal/adapters/storage/postgres"
	"health-record-portal/internal/domain/accessgrants"
	"health-record-portal/internal/domain/appointments"
	"health-record-portal/internal/domain/assignments"
	"health-record-portal/internal/domain/healthmetrics"
	"health-record-portal/internal/domain/messages"
	"health-record-portal/internal/domain/profiles"
	"health-record-portal/internal/domain/records"
	"health-record-portal/internal/domain/tier"
	"health-record-portal/internal/domain/users"
	"health-record-portal/internal/middleware"
	"health-record-portal/internal/platform/logger"
	"health-record-portal/internal/platform/metrics"
	"health-record-portal/internal/ports/auth"
)

type Options struct {
	// Verifier may be nil (dev mode: X-Debug-User-ID headers).
	Verifier auth.AuthVerifier
	// Issuer enables /auth/register and /auth/login.
	Issuer auth.TokenIssuer
	// Provision gives every identity accepted by an external Verifier a local account.
	Provision bool

	// Optional: Postgres when set, in-memory otherwise.
	DB *sql.DB

	Logger    logger.Logger
	Registry  *prometheus.Registry
	Now       func() time.Time
	RateLimit middleware.RateLimitConfig
}

type repos struct {
	users        users.Repository
	profiles     profiles.Repository
	assignments  assignments.Repository
	grants       accessgrants.Repository
	metrics      healthmetrics.Repository
	records      records.Repository
	messages     messages.Repository
	appointments appointments.Repository
}

func newRepos(db *sql.DB) repos {
	if db != nil {
		return repos{
			users:        pg.NewUsersRepo(db),
			profiles:     pg.NewProfilesRepo(db),
			assignments:  pg.NewAssignmentsRepo(db),
			grants:       pg.NewAccessGrantsRepo(db),
			metrics:      pg.NewHealthMetricsRepo(db),
			records:      pg.NewRecordsRepo(db),
			messages:     pg.NewMessagesRepo(db),
			appointments: pg.NewAppointmentsRepo(db),
		}
	}
	return repos{
		users:        mem.NewUserRepo(),
		profiles:     mem.NewProfileRepo(),
		assignments:  mem.NewAssignmentRepo(),
		grants:       mem.NewAccessGrantsRepo(),
		metrics:      mem.NewHealthMetricRepo(),
		records:      mem.NewRecordRepo(),
		messages:     mem.NewMessageRepo(),
		appointments: mem.NewAppointmentRepo(),
	}
}

func NewRouter(opts Options) http.Handler {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	var rec metrics.Recorder = metrics.Nop{}
	if opts.Registry != nil {
		rec = metrics.NewCollector(opts.Registry)
	}

	rp := newRepos(opts.DB)

	// Services per module
	usersSvc := users.NewService(rp.users, opts.Issuer,
		users.WithClock(now), users.WithLogger(log), users.WithMetrics(rec))
	assignmentsSvc := assignments.NewService(rp.assignments, usersSvc,
		assignments.WithClock(now), assignments.WithLogger(log))
	grantsSvc := accessgrants.NewService(rp.grants, assignmentsSvc, usersSvc,
		accessgrants.WithClock(now), accessgrants.WithLogger(log), accessgrants.WithMetrics(rec))
	profilesSvc := profiles.NewService(rp.profiles, usersSvc, grantsSvc,
		profiles.WithClock(now), profiles.WithLogger(log))
	metricsSvc := healthmetrics.NewService(rp.metrics, grantsSvc,
		healthmetrics.WithClock(now), healthmetrics.WithLogger(log))
	recordsSvc := records.NewService(rp.records, grantsSvc,
		records.WithClock(now), records.WithLogger(log))
	messagesSvc := messages.NewService(rp.messages, assignmentsSvc, usersSvc,
		messages.WithClock(now), messages.WithLogger(log))
	appointmentsSvc := appointments.NewService(rp.appointments, assignmentsSvc, profilesSvc,
		appointments.WithClock(now), appointments.WithLogger(log))

	verifier := opts.Verifier
	if verifier != nil && opts.Provision {
		verifier = users.NewProvisioningVerifier(verifier, usersSvc)
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(log))
	r.Use(middleware.RequestLogger(log, rec))
	r.Use(middleware.AuthContext(verifier))
	if opts.RateLimit.RPS > 0 {
		r.Use(middleware.NewRateLimiter(opts.RateLimit, log, rec).Middleware)
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Registry != nil {
		r.Handle("/metrics", metrics.Handler(opts.Registry))
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	gate := tier.NewGate(usersSvc)

	// Routes per module
	users.RegisterRoutes(r, usersSvc)
	profiles.RegisterRoutes(r, profilesSvc, gate)
	assignments.RegisterRoutes(r, assignmentsSvc, gate)
	accessgrants.RegisterRoutes(r, grantsSvc, gate)
	healthmetrics.RegisterRoutes(r, metricsSvc, gate)
	records.RegisterRoutes(r, recordsSvc, gate)
	messages.RegisterRoutes(r, messagesSvc, gate)
	appointments.RegisterRoutes(r, appointmentsSvc, gate)

	return r
}
