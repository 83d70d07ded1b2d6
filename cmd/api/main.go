package main

import (
	"context"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"manuscript-review-api/config"
	"manuscript-review-api/controllers"
	"manuscript-review-api/middleware"
	"manuscript-review-api/models"
	"manuscript-review-api/monitor"
	"manuscript-review-api/routes"
	"manuscript-review-api/services"
	"manuscript-review-api/store"
	"manuscript-review-api/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	closeLog := config.InitLogging()
	defer closeLog()

	st, err := store.Open()
	if err != nil {
		log.Fatal("Failed to open store:", err)
	}
	if m, ok := st.(store.Migrator); ok && os.Getenv("AUTO_MIGRATE") == "true" {
		if err := m.AutoMigrate(); err != nil {
			log.Fatal("Failed to migrate database:", err)
		}
		log.Println("Database schema migrated")
	}
	seedAdmin(st)

	// Set Gin mode
	ginMode := os.Getenv("GIN_MODE")
	if ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	notifications := services.NewNotificationService(st, st)
	manuscripts := services.NewManuscriptService(st, notifications, config.LoadWorkflowSettings())

	secret := config.EnvOrDefault("FILE_SIGNING_SECRET", os.Getenv("JWT_SECRET"))
	files := services.NewLocalFileStorage(
		config.EnvOrDefault("UPLOAD_PATH", "./uploads"),
		[]byte(secret),
		time.Duration(envMinutes("FILE_URL_TTL_MINUTES", 30))*time.Minute,
		config.EnvOrDefault("API_BASE_URL", os.Getenv("APP_BASE_URL")),
	)

	// Create Gin router
	router := gin.New()
	router.Use(gin.LoggerWithWriter(config.LogWriter))
	router.Use(gin.Recovery())

	// Add security headers middleware
	router.Use(func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "DENY")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})
	router.Use(middleware.CORSMiddleware())

	var ping func(ctx context.Context) error
	if p, ok := st.(store.Pinger); ok {
		ping = p.Ping
	}
	monitor.Register(router, monitor.Options{Ping: ping, LogToken: os.Getenv("MONITOR_TOKEN")})

	routes.SetupRoutes(router, routes.Handlers{
		Users:         st,
		Auth:          controllers.NewAuthController(st),
		Manuscripts:   controllers.NewManuscriptController(manuscripts, files),
		Notifications: controllers.NewNotificationController(st),
		Files:         controllers.NewFileController(files),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go runReminderSweeps(ctx, manuscripts, time.Duration(envMinutes("REMINDER_SWEEP_INTERVAL_MINUTES", 60))*time.Minute)

	port := config.EnvOrDefault("SERVER_PORT", "8080")
	log.Printf("Server starting on port %s", port)
	if ginMode == "release" {
		log.Printf("Running in production mode")
	} else {
		log.Printf("Running in development mode")
	}

	if err := router.Run(":" + port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}

// runReminderSweeps sends deadline reminders every interval until ctx ends.
// A zero interval disables the loop.
func runReminderSweeps(ctx context.Context, svc *services.ManuscriptService, interval time.Duration) {
	if interval <= 0 {
		log.Println("Deadline reminder sweep disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sum, err := svc.SendDeadlineReminders(ctx)
			if err != nil {
				log.Printf("[reminders] sweep failed: %v", err)
				continue
			}
			log.Printf("[reminders] scanned=%d reviewers=%d authors=%d failed=%d",
				sum.Scanned, sum.Reviewers, sum.Authors, sum.Failed)
		}
	}
}

// seedAdmin creates the bootstrap admin from SEED_ADMIN_EMAIL and
// SEED_ADMIN_PASSWORD when no user has that email yet.
func seedAdmin(st store.UserRepository) {
	email := strings.TrimSpace(os.Getenv("SEED_ADMIN_EMAIL"))
	password := os.Getenv("SEED_ADMIN_PASSWORD")
	if email == "" || password == "" {
		return
	}
	if !utils.ValidateEmail(email) {
		log.Printf("Warning: SEED_ADMIN_EMAIL %q is not a valid address", email)
		return
	}
	if ok, msg := utils.ValidatePassword(password); !ok {
		log.Printf("Warning: SEED_ADMIN_PASSWORD rejected: %s", msg)
		return
	}
	ctx := context.Background()
	if _, err := st.GetUserByEmail(ctx, email); err == nil {
		return
	}

	hash, err := controllers.HashPassword(password)
	if err != nil {
		log.Printf("Warning: failed to hash seed admin password: %v", err)
		return
	}
	now := time.Now()
	admin := &models.User{
		UserID:    config.EnvOrDefault("SEED_ADMIN_ID", "admin"),
		UserFname: "Administrator",
		Email:     email,
		Password:  hash,
		Role:      models.RoleAdmin,
		CreateAt:  &now,
		UpdateAt:  &now,
	}
	if err := st.CreateUser(ctx, admin); err != nil {
		log.Printf("Warning: failed to seed admin %s: %v", email, err)
		return
	}
	log.Printf("Seeded admin account %s", email)
}

func envMinutes(key string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		log.Printf("Warning: ignoring invalid %s=%q", key, raw)
		return fallback
	}
	return v
}
