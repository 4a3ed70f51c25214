package api

import (
	"errors"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/yizeng/gab/gin/gorm/attendance/docs"
	v1 "github.com/yizeng/gab/gin/gorm/attendance/internal/api/handler/v1"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/api/middleware"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/config"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/kafka"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/metrics"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/clock"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/pkg/proof"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/repository"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/repository/cache"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/repository/dao"
	"github.com/yizeng/gab/gin/gorm/attendance/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	Lifecycle *service.LifecycleScheduler
	Rotation  *service.RotationService
	Feed      *v1.ProofFeed

	registry *prometheus.Registry
	closers  []func() error
}

type Option func(*options)

type options struct {
	clock  clock.Clock
	issuer proof.Issuer
}

// WithClock replaces the wall clock, for tests.
func WithClock(clk clock.Clock) Option {
	return func(o *options) {
		o.clock = clk
	}
}

func WithIssuer(issuer proof.Issuer) Option {
	return func(o *options) {
		o.issuer = issuer
	}
}

func NewServer(conf *config.AppConfig, db *gorm.DB, opts ...Option) *Server {
	o := options{
		clock:  clock.Real(),
		issuer: proof.NewRandomIssuer(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	s := &Server{
		Config:   conf,
		Router:   engine,
		registry: reg,
	}

	s.MountMiddlewares()

	m := metrics.New(reg)
	eventRepo := repository.NewEventRepository(dao.NewEventDAO(db))
	attendanceRepo := repository.NewAttendanceRepository(dao.NewAttendanceDAO(db))

	s.Lifecycle = service.NewLifecycleScheduler(eventRepo, o.issuer, o.clock, zap.L(), m)
	s.Rotation = s.initRotationService(eventRepo, o, m)

	eventSvc := service.NewEventService(eventRepo, attendanceRepo, o.issuer, o.clock)
	attendanceSvc := s.initAttendanceService(eventRepo, attendanceRepo, o, m)

	s.Feed = v1.NewProofFeed(s.Rotation, conf.API.AllowedCORSDomains, zap.L())
	s.Rotation.OnRotated(s.Feed.NotifyRotated)

	eventHandler := v1.NewEventHandler(eventSvc)
	proofHandler := v1.NewProofHandler(eventSvc, s.Rotation, s.Feed)
	attendanceHandler := v1.NewAttendanceHandler(attendanceSvc)
	s.MountHandlers(eventHandler, proofHandler, attendanceHandler)

	return s
}

func (s *Server) initRotationService(repo *repository.EventRepository, o options, m *metrics.Metrics) *service.RotationService {
	state := service.NewRotationState(s.Config.Attendance.RotationInterval, o.clock.Now())
	svc := service.NewRotationService(repo, o.issuer, state, o.clock, zap.L(), m)

	if s.Config.Redis.Enabled() {
		mirror := cache.NewRotationMirror(s.Config.Redis)
		svc.WithMirror(mirror)
		s.closers = append(s.closers, mirror.Close)
	}

	return svc
}

func (s *Server) initAttendanceService(events *repository.EventRepository, attendances *repository.AttendanceRepository, o options, m *metrics.Metrics) *service.AttendanceService {
	svc := service.NewAttendanceService(events, attendances, o.clock, zap.L(), m)

	if s.Config.Kafka.Enabled() {
		producer := kafka.NewProducer(s.Config.Kafka.Brokers, s.Config.Kafka.Topic)
		svc.WithPublisher(producer)
		s.closers = append(s.closers, func() error {
			svc.Wait()
			return producer.Close()
		})
	}

	return svc
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(eventHandler *v1.EventHandler, proofHandler *v1.ProofHandler, attendanceHandler *v1.AttendanceHandler) {
	const basePath = "/api/v1"

	auth := middleware.NewAuthenticator(s.Config.API.JWTSigningKey)

	events := s.Router.Group(basePath, auth.VerifyJWT())
	{
		events.POST("/events", middleware.RequireRole(middleware.RoleOrganizer, middleware.RoleAdmin), eventHandler.HandleCreateEvent)
		events.GET("/events/:eventID", eventHandler.HandleGetEvent)
		events.GET("/events/:eventID/attendance", eventHandler.HandleListAttendance)
		// Proof
		events.GET("/events/:eventID/proof", proofHandler.HandleGetProofStatus)
		events.GET("/events/:eventID/proof/feed", proofHandler.HandleProofFeed)
		events.POST("/events/:eventID/proof/pause", proofHandler.HandlePauseRotation)
		events.POST("/events/:eventID/proof/resume", proofHandler.HandleResumeRotation)
	}

	attendance := s.Router.Group(basePath, auth.VerifyJWT())
	{
		attendance.POST("/attendance", attendanceHandler.HandleSubmitAttendance)
	}

	s.Router.GET("/", v1.HandleHealthcheck)
	s.Router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
		Timeout:           10 * time.Second,
	})))

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Attendance API"
	docs.SwaggerInfo.Description = "Proof-of-presence attendance recording."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}

// Close releases the optional redis and kafka clients.
func (s *Server) Close() error {
	var errs []error
	for _, c := range s.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
