package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/communityweb/strtracker/internal/config"
	"github.com/communityweb/strtracker/internal/domain"
	"github.com/communityweb/strtracker/internal/migration"
	"github.com/communityweb/strtracker/internal/repository"
	"github.com/communityweb/strtracker/internal/service"
	"github.com/communityweb/strtracker/pkg/jwt"
	pkglogger "github.com/communityweb/strtracker/pkg/logger"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	env := os.Getenv("APP_ENV")
	configPath := flag.String("config", config.ConfigPath(env), "config file path")
	adminName := flag.String("admin", "", "create an admin account with this name")
	adminEmail := flag.String("admin-email", "", "admin account email")
	verbose := flag.Bool("verbose", false, "verbose SQL logging")
	flag.Parse()

	config.LoadDotEnv(env)
	pkglogger.InitStructured(env)

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logLevel := gormlogger.Warn
	if *verbose {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(cfg.Database.GetDSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("Failed to get underlying DB: %v", err)
	}
	defer sqlDB.Close()

	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	pkglogger.Info("Schema up to date (%d tables)", len(migration.Models()))

	if *adminName == "" {
		return
	}

	// password comes from the environment so it never lands in shell history
	password := os.Getenv("STR_ADMIN_PASSWORD")
	if password == "" {
		log.Fatal("STR_ADMIN_PASSWORD must be set to create an admin account")
	}

	auth := service.NewAuthService(repository.NewUserRepository(db), jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn))
	user, err := auth.CreateUser(context.Background(), *adminName, *adminEmail, password, domain.LevelAdmin)
	if err != nil {
		log.Fatalf("Failed to create admin %q: %v", *adminName, err)
	}
	pkglogger.Info("Created admin account %s (id %d)", user.Name, user.ID)
}
