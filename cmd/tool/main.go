// Command tool mints bearer tokens for manual API testing.
//
//	go run ./cmd/tool -email ann@example.com -user 6f1c...
//
// The signing secret comes from JWT_SECRET (a .env file is honoured).
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/baechuer/contacts-service/internal/application/auth"
	"github.com/baechuer/contacts-service/internal/infrastructure/security"
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Getenv, os.Stdout, os.Stderr))
}

func run(args []string, getenv func(string) string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("tool", flag.ContinueOnError)
	fs.SetOutput(stderr)

	userID := fs.String("user", "", "identity id (random when empty)")
	email := fs.String("email", "", "email claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	n := fs.Int("n", 1, "number of tokens, one per line")
	issuer := fs.String("issuer", "", "issuer claim (JWT_ISSUER or contacts-service when empty)")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	secret := getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(stderr, "missing required env var: JWT_SECRET")
		return 1
	}
	if *issuer == "" {
		*issuer = getenv("JWT_ISSUER")
	}
	if *issuer == "" {
		*issuer = "contacts-service"
	}
	if *n < 1 || (*n > 1 && *userID != "") {
		fmt.Fprintln(stderr, "-n must be positive and cannot be combined with -user")
		return 2
	}

	signer := security.NewJWTSigner(secret, *issuer)
	for i := 0; i < *n; i++ {
		uid := *userID
		if uid == "" {
			uid = uuid.NewString()
		}
		tok, err := signer.SignAccessToken(auth.TokenClaims{UserID: uid, Email: *email}, *ttl)
		if err != nil {
			fmt.Fprintf(stderr, "sign token: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, tok)
	}
	return 0
}
