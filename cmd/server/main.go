package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/osoo/membership-backend/internal/config"
	"github.com/osoo/membership-backend/internal/database"
	"github.com/osoo/membership-backend/internal/handlers"
	"github.com/osoo/membership-backend/internal/middleware"
	"github.com/osoo/membership-backend/internal/services"
	"github.com/osoo/membership-backend/pkg/jwt"
	"github.com/osoo/membership-backend/pkg/mail"
	"github.com/osoo/membership-backend/pkg/storage"
	"github.com/sirupsen/logrus"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting OSOO Membership Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	// Initialize repositories
	memberRepository := database.NewMemberRepository(db)
	adminRepository := database.NewAdminRepository(db)

	// Initialize gateways
	mailer := mail.NewMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		FromName: cfg.SMTP.FromName,
	})

	uploader := storage.NewCloudinaryClient(storage.CloudinaryConfig{
		CloudName: cfg.Cloudinary.CloudName,
		APIKey:    cfg.Cloudinary.APIKey,
		APISecret: cfg.Cloudinary.APISecret,
		Folder:    cfg.Cloudinary.Folder,
	})

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.SessionExpiry)

	registrationService := services.NewRegistrationService(
		memberRepository,
		mailer,
		uploader,
		services.RegistrationConfig{
			OTPExpiry:  time.Duration(cfg.OTP.MemberExpiryMinutes) * time.Minute,
			BcryptCost: cfg.Security.BcryptCost,
		},
		logger,
	)

	adminAuthService := services.NewAdminAuthService(
		adminRepository,
		mailer,
		jwtService,
		services.AdminAuthConfig{
			OTPExpiry:  time.Duration(cfg.OTP.AdminExpiryMinutes) * time.Minute,
			BcryptCost: cfg.Security.BcryptCost,
		},
	)

	auditService := services.NewAuditService(db, cfg.Security.EnableAuditLog)
	logger.Info("Services initialized")

	// Initialize handlers
	memberHandler := handlers.NewMemberHandler(registrationService, auditService, logger)
	adminAuthHandler := handlers.NewAdminAuthHandler(adminAuthService, auditService, logger)
	reviewHandler := handlers.NewReviewHandler(registrationService, auditService, logger)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", healthCheckHandler(db))

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// Member routes (public)
		member := v1.Group("/member")
		{
			member.POST("/register", memberHandler.Register)
			member.POST("/verify-otp", memberHandler.VerifyOTP)
			member.POST("/resend-otp", memberHandler.ResendOTP)
			member.POST("/login", memberHandler.Login)
			member.POST("/change-password", memberHandler.ChangePassword)
			member.GET("/profile/:uniqueId", memberHandler.GetProfile)

			// Profile edits require an admin session
			memberProtected := member.Group("")
			memberProtected.Use(middleware.AdminAuth(jwtService, logger))
			{
				memberProtected.PUT("/profile/:uniqueId", memberHandler.UpdateProfile)
			}
		}

		// Admin routes
		admin := v1.Group("/admin")
		{
			// Public: two-step login
			admin.POST("/login", adminAuthHandler.Login)
			admin.POST("/verify-otp", adminAuthHandler.VerifyOTP)

			// Protected: member management and admin account operations
			protected := admin.Group("")
			protected.Use(middleware.AdminAuth(jwtService, logger))
			{
				protected.GET("/members", reviewHandler.ListMembers)
				protected.GET("/members/pending", reviewHandler.ListPending)
				protected.PUT("/members/:id/approve", reviewHandler.Approve)
				protected.PUT("/members/:id/reject", reviewHandler.Reject)
				protected.PUT("/members/:id/toggle-payment", reviewHandler.TogglePayment)
				protected.POST("/members/:id/payments", reviewHandler.RecordPayment)
				protected.DELETE("/members/:id", reviewHandler.Delete)

				protected.POST("/register", adminAuthHandler.Register)
				protected.GET("/profile", adminAuthHandler.GetProfile)
				protected.PUT("/profile", adminAuthHandler.UpdateProfile)
				protected.PUT("/change-password", adminAuthHandler.ChangePassword)
			}
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         c.ClientIP(),
			"latency_ms": latency.Milliseconds(),
			"user_agent": c.Request.UserAgent(),
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
		} else {
			status := c.Writer.Status()
			switch {
			case status >= 500:
				entry.Error("Request completed with server error")
			case status >= 400:
				entry.Warn("Request completed with client error")
			default:
				entry.Info("Request completed successfully")
			}
		}
	}
}

// healthCheckHandler returns a health check endpoint
func healthCheckHandler(db database.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.Ping(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":   "unhealthy",
				"database": "unhealthy",
				"error":    err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"database":  "healthy",
			"version":   version,
			"timestamp": time.Now().Unix(),
		})
	}
}
