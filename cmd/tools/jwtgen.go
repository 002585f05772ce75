package main

import (
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	"arka-asset-api/internal/auth"
	"arka-asset-api/internal/config"
	"arka-asset-api/internal/permission"
)

func main() {
	var (
		userID     = flag.String("user", "dev-user", "User ID")
		name       = flag.String("name", "Dev User", "Display name")
		division   = flag.String("division", "Engineering", "Division")
		role       = flag.String("role", permission.RoleAdmin, "Role")
		perms      = flag.String("perms", "", "Comma-separated permissions (default: role defaults)")
		expiryMins = flag.Int("expiry", 1440, "Token expiry in minutes (default: 24 hours)")
		secret     = flag.String("secret", "", "JWT secret (overrides JWT_SECRET env var)")
		issuer     = flag.String("issuer", "", "JWT issuer (overrides JWT_ISS env var)")
		audience   = flag.String("audience", "", "JWT audience (overrides JWT_AUD env var)")
	)
	flag.Parse()

	cfg := config.Load()
	if *secret != "" {
		cfg.JWTSecret = *secret
	}
	if *issuer != "" {
		cfg.JWTIssuer = *issuer
	}
	if *audience != "" {
		cfg.JWTAudience = *audience
	}

	if !permission.IsValidRole(*role) {
		log.Fatalf("Unknown role: %s", *role)
	}

	var permList []string
	if *perms != "" {
		for _, p := range strings.Split(*perms, ",") {
			permList = append(permList, strings.TrimSpace(p))
		}
	} else {
		permList = permission.MustResolver().DefaultsFor(*role)
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience, time.Duration(*expiryMins)*time.Minute)

	token, err := jwtManager.GenerateToken(*userID, *name, *division, *role, permList)
	if err != nil {
		log.Fatalf("Failed to generate token: %v", err)
	}

	fmt.Printf("JWT Token generated successfully!\n\n")
	fmt.Printf("User ID: %s\n", *userID)
	fmt.Printf("Role: %s\n", *role)
	fmt.Printf("Permissions: %s\n", strings.Join(permList, ", "))
	fmt.Printf("Expiry: %d minutes\n", *expiryMins)
	fmt.Printf("Issuer: %s\n", cfg.JWTIssuer)
	fmt.Printf("Audience: %s\n", cfg.JWTAudience)
	fmt.Printf("\nToken:\n%s\n\n", token)

	fmt.Printf("Usage example:\n")
	fmt.Printf("curl -H \"Authorization: Bearer %s\" http://localhost:8080/assets\n", token)
}
