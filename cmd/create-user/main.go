package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/civic-archive-api/internal/models"
	"github.com/noah-isme/civic-archive-api/internal/repository"
	"github.com/noah-isme/civic-archive-api/pkg/config"
	"github.com/noah-isme/civic-archive-api/pkg/database"
	"github.com/noah-isme/civic-archive-api/pkg/logger"
)

const minPasswordLength = 8

type options struct {
	email    string
	password string
	name     string
	role     string
}

func main() {
	var opts options
	flag.StringVar(&opts.email, "email", "", "account email")
	flag.StringVar(&opts.password, "password", "", "account password (falls back to CREATE_USER_PASSWORD)")
	flag.StringVar(&opts.name, "name", "", "full name")
	flag.StringVar(&opts.role, "role", string(models.RoleMember), "ADMIN or MEMBER")
	flag.Parse()

	if opts.password == "" {
		opts.password = os.Getenv("CREATE_USER_PASSWORD")
	}

	user, err := buildUser(opts)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.Database)
	if err != nil {
		logr.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close() //nolint:errcheck

	if err := repository.NewUserRepository(db).Create(ctx, user); err != nil {
		logr.Fatal("failed to create user", zap.String("email", user.Email), zap.Error(err))
	}
	logr.Info("user created", zap.String("id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
}

func buildUser(opts options) (*models.User, error) {
	email := strings.TrimSpace(opts.email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.New("a valid -email is required")
	}
	if len(opts.password) < minPasswordLength {
		return nil, fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	role := models.UserRole(strings.ToUpper(strings.TrimSpace(opts.role)))
	if !role.Valid() {
		return nil, fmt.Errorf("unknown role %q", opts.role)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	name := strings.TrimSpace(opts.name)
	if name == "" {
		name = email
	}
	return &models.User{
		Email:        email,
		PasswordHash: string(hash),
		FullName:     name,
		Role:         role,
		Active:       true,
	}, nil
}
