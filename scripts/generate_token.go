package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/joho/godotenv"
)

// Mints a signed token for local testing. The -legacy flag produces a
// version-1 token without tenant claims, for exercising the migration path.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Fatal("Error loading .env file")
	}

	subjectID := flag.String("subject", "", "Subject (user) ID for the token")
	role := flag.String("role", "client", "Role: master, admin, agent or client")
	tenantID := flag.String("tenant", "", "Tenant ID (empty for master)")
	tenantKey := flag.String("tenant-key", "", "Tenant key enrichment claim")
	expirationHours := flag.Int("exp", 24, "Token expiration in hours")
	legacy := flag.Bool("legacy", false, "Mint a version-1 token without tenant claims")
	flag.Parse()

	if *subjectID == "" {
		log.Fatal("Subject ID is required")
	}
	if *role != "master" && *tenantID == "" && !*legacy {
		log.Fatal("Tenant ID is required for non-master tokens")
	}

	secret := os.Getenv("JWT_SECRET_KEY")
	if secret == "" {
		log.Fatal("JWT_SECRET_KEY is not set")
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"subject_id":    *subjectID,
		"role":          *role,
		"token_version": 2,
		"iat":           now.Unix(),
		"exp":           now.Add(time.Duration(*expirationHours) * time.Hour).Unix(),
	}
	if *legacy {
		claims["token_version"] = 1
	} else if *role != "master" {
		claims["tenant_id"] = *tenantID
		if *tenantKey != "" {
			claims["tenant_key"] = *tenantKey
		}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		log.Fatalf("Failed to sign token: %v", err)
	}
	fmt.Println(signed)
}
