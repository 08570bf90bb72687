package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/noah-isme/lesson-scheduler-api/internal/models"
	"github.com/noah-isme/lesson-scheduler-api/internal/service"
	"github.com/noah-isme/lesson-scheduler-api/pkg/config"
)

func main() {
	var (
		userID string
		role   string
		ttl    time.Duration
	)

	flag.StringVar(&userID, "user", "", "User ID placed in the token (student id for STUDENT tokens)")
	flag.StringVar(&role, "role", string(models.RoleStudent), "STUDENT, TEACHER, ADMIN or SUPERADMIN")
	flag.DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	flag.Parse()

	if userID == "" {
		log.Fatal("-user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if cfg.Env == config.EnvProduction {
		log.Fatal("refusing to mint tokens in production")
	}

	token, err := service.NewTokenService(cfg.JWT.Secret).IssueToken(userID, models.UserRole(strings.ToUpper(role)), ttl)
	if err != nil {
		log.Fatalf("failed to issue token: %v", err)
	}
	fmt.Println(token)
}
