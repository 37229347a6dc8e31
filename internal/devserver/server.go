// Package devserver is a reference implementation of the auth API the
// client talks to: short-lived JWT access tokens, rotating refresh tokens
// in an http-only cookie, and OTP-confirmed registration. One-time codes
// are handed to an OTPSink instead of being mailed.
package devserver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/userauth-app/authclient/internal/auth"
	"github.com/userauth-app/authclient/internal/config"
)

// APIPrefix is where every endpoint is mounted
const APIPrefix = "/api/v1"

// RefreshCookieName is the http-only cookie carrying the refresh token
const RefreshCookieName = "refresh_token"

// OTPSink receives a freshly issued one-time code
type OTPSink func(email, purpose, code string)

// Server represents the HTTP server
type Server struct {
	router    *gin.Engine
	db        *gorm.DB
	config    config.DevServerConfig
	logger    zerolog.Logger
	validator *validator.Validate
	tokens    *TokenIssuer
	otpSink   OTPSink
}

// New creates a new server instance
func New(cfg config.DevServerConfig, zlog zerolog.Logger) (*Server, error) {
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	secret, err := resolveJWTSecret(db, cfg.JWTSecret, zlog)
	if err != nil {
		return nil, err
	}
	tokens, err := NewTokenIssuer(secret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := auth.RegisterPasswordRule(validate); err != nil {
		return nil, fmt.Errorf("failed to register password rule: %w", err)
	}

	server := &Server{
		db:        db,
		config:    cfg,
		logger:    zlog.With().Str("component", "devserver").Logger(),
		validator: validate,
		tokens:    tokens,
	}
	server.otpSink = server.logOTP

	server.setupRouter()

	return server, nil
}

// initDatabase opens the SQLite database with WAL settings
func initDatabase(cfg config.DevServerConfig, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns = 4
		maxIdleConns = 2
		busyTimeout  = 5000 // ms
	)

	db, err := gorm.Open(sqlite.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
	}
	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// resolveJWTSecret prefers the configured secret, then the persisted one,
// and generates and persists a new one on first start
func resolveJWTSecret(db *gorm.DB, configured string, zlog zerolog.Logger) (string, error) {
	if configured != "" {
		return configured, nil
	}

	var settings ServerSettings
	err := db.First(&settings).Error
	if err == nil {
		zlog.Debug().Msg("Loaded JWT secret from database")
		return settings.JWTSecret, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("failed to load server settings: %w", err)
	}

	secret, err := NewSecret()
	if err != nil {
		return "", err
	}
	if err := db.Create(&ServerSettings{JWTSecret: secret}).Error; err != nil {
		return "", fmt.Errorf("failed to store JWT secret: %w", err)
	}
	zlog.Info().Msg("Generated new JWT secret")
	return secret, nil
}

// SetOTPSink replaces where one-time codes are delivered
func (s *Server) SetOTPSink(sink OTPSink) {
	if sink == nil {
		sink = s.logOTP
	}
	s.otpSink = sink
}

func (s *Server) logOTP(email, purpose, code string) {
	s.logger.Info().Str("email", email).Str("purpose", purpose).Str("otp", code).Msg("One-time code issued")
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	origins := s.config.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173"}
	}
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)

	api := s.router.Group(APIPrefix)
	{
		api.POST("/auth/register", s.register)
		api.POST("/auth/verify-otp", s.verifyOTP)
		api.POST("/auth/login", s.login)
		api.POST("/auth/refresh", s.refresh)
		api.POST("/auth/logout", s.logout)
		api.POST("/auth/forgot-password", s.forgotPassword)
		api.POST("/auth/reset-password", s.resetPassword)
	}

	protected := s.router.Group(APIPrefix)
	protected.Use(JWTAuthMiddleware(s.db, s.tokens, s.logger))
	{
		protected.GET("/auth/me", s.getCurrentUser)
		protected.POST("/auth/change-password", s.changePassword)
		protected.PUT("/auth/update-user-profile", s.updateProfile)
		protected.DELETE("/auth/delete-account", s.deleteAccount)
		protected.GET("/settings", s.getSettings)
		protected.PUT("/settings", s.updateSettings)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "authclient-devserver",
	})
}

// Handler exposes the router, mainly for httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// GetDB returns the database connection
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr
	if addr == "" {
		addr = config.DefaultDevServerAddr
	}

	purger, err := s.newPurgeScheduler()
	if err != nil {
		return err
	}
	purger.Start()
	defer purger.Stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Close closes the database connection, flushing WAL writes
func (s *Server) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
