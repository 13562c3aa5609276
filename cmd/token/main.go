// Command token signs a development access token with the configured JWT
// secret.
package main

import (
	"flag"
	"fmt"
	"log"

	"stablehub/internal/access"
	"stablehub/internal/shared/config"
	"stablehub/internal/shared/middleware"
	"stablehub/internal/users"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	userID := flag.String("user", "", "user ID (random when empty)")
	email := flag.String("email", "dev@stablehub.local", "email claim")
	name := flag.String("name", "", "display name claim")
	role := flag.String("role", string(users.RoleUser), "USER or ADMIN")
	ttl := flag.Duration("ttl", cfg.JWT.JWTExpiresIn, "token lifetime")
	flag.Parse()

	id := uuid.New()
	if *userID != "" {
		parsed, err := uuid.Parse(*userID)
		if err != nil {
			log.Fatalf("invalid -user: %v", err)
		}
		id = parsed
	}
	if !users.IsValidRole(*role) {
		log.Fatalf("invalid -role %q", *role)
	}

	token, err := middleware.IssueAccessToken(cfg.JWT, access.Actor{
		ID:          id,
		Role:        users.Role(*role),
		Email:       *email,
		DisplayName: *name,
	}, *ttl)
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}
	fmt.Println(token)
}
