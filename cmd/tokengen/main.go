// Package main is a dev CLI that mints bearer tokens with the development
// signing key, bcrypt-hashes user secrets for seeding and generates
// operator secrets.
// Tokens it mints will NOT verify outside APP_ENV=dev/test.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"salesgate/internal/auth/credentials"
	"salesgate/internal/auth/token"
	"salesgate/internal/platform/config"
	tenantmodels "salesgate/internal/tenant/models"
	id "salesgate/pkg/domain"
	"salesgate/pkg/secrets"
)

const (
	defaultKeyID  = "k1"
	defaultIssuer = "salesgate"
)

type tokenOutput struct {
	Token     string         `json:"token"`
	ExpiresAt time.Time      `json:"expires_at"`
	Claims    map[string]any `json:"claims"`
}

func main() {
	tokenCmd := flag.NewFlagSet("token", flag.ExitOnError)
	userID := tokenCmd.String("user-id", "", "User ID (UUID). Generated if empty.")
	sessionID := tokenCmd.String("session-id", "", "Session ID (UUID). Generated if empty.")
	tenant := tokenCmd.String("tenant", "", "Tenant subdomain scope. Empty for a legacy token.")
	tenantID := tokenCmd.Int64("tenant-id", 0, "Tenant ID bound to the scope")
	ttl := tokenCmd.Duration("ttl", token.DefaultTTL, "Token time-to-live")
	jsonOut := tokenCmd.Bool("json", false, "Output as JSON")

	hashCmd := flag.NewFlagSet("hash", flag.ExitOnError)
	secret := hashCmd.String("secret", "", "Secret to hash. Read from stdin if empty.")
	cost := hashCmd.Int("cost", 12, "bcrypt cost")

	secretCmd := flag.NewFlagSet("secret", flag.ExitOnError)
	size := secretCmd.Int("bytes", secrets.DefaultSize, "Random bytes before encoding")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "token":
		_ = tokenCmd.Parse(os.Args[2:])
		mintToken(*userID, *sessionID, *tenant, *tenantID, *ttl, *jsonOut)
	case "hash":
		_ = hashCmd.Parse(os.Args[2:])
		hashSecret(*secret, *cost)
	case "secret":
		_ = secretCmd.Parse(os.Args[2:])
		generateSecret(*size)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - development helpers for salesgate

WARNING: tokens are signed with the development key and only verify when
         APP_ENV is dev or test. They are not bound to a stored session.

Usage:
  tokengen <command> [flags]

Commands:
  token     Mint a bearer token
  hash      Bcrypt-hash a secret for the users.secret column
  secret    Generate a value for ADMIN_API_TOKEN or JWT_SIGNING_KEY

Examples:
  tokengen token -tenant acme -tenant-id 1
  tokengen token -ttl 1m -json
  echo -n 's3cret' | tokengen hash
  tokengen secret -bytes 48`)
}

func mintToken(userID, sessionID, tenant string, tenantID int64, ttl time.Duration, jsonOutput bool) {
	codec, err := token.New(
		token.Key{ID: defaultKeyID, Secret: []byte(config.DevSigningKey)},
		token.WithIssuer(defaultIssuer),
		token.WithTTL(ttl),
	)
	if err != nil {
		fail("codec: %v", err)
	}

	uid := id.NewUserID()
	if userID != "" {
		if uid, err = id.ParseUserID(userID); err != nil {
			fail("invalid user-id: %v", err)
		}
	}
	sid := id.NewSessionID()
	if sessionID != "" {
		if sid, err = id.ParseSessionID(sessionID); err != nil {
			fail("invalid session-id: %v", err)
		}
	}

	raw, claims, err := codec.Issue(context.Background(), token.IssueParams{
		UserID:      uid,
		SessionID:   sid,
		TenantScope: tenantmodels.NormalizeSubdomain(tenant),
		TenantID:    id.TenantID(tenantID),
	})
	if err != nil {
		fail("issue token: %v", err)
	}

	if jsonOutput {
		printJSON(tokenOutput{
			Token:     raw,
			ExpiresAt: claims.ExpiresAt,
			Claims: map[string]any{
				"user_id":    claims.UserID.String(),
				"session_id": claims.SessionID.String(),
				"tenant":     claims.TenantScope,
				"tenant_id":  int64(claims.TenantID),
				"jti":        claims.JTI,
				"kid":        claims.KeyID,
			},
		})
		return
	}

	fmt.Println("Bearer Token")
	fmt.Println("============")
	fmt.Printf("User ID:     %s\n", claims.UserID)
	fmt.Printf("Session ID:  %s\n", claims.SessionID)
	if claims.TenantScope != "" {
		fmt.Printf("Tenant:      %s (%d)\n", claims.TenantScope, claims.TenantID)
	}
	fmt.Printf("Expires At:  %s\n", claims.ExpiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println(raw)
}

func hashSecret(secret string, cost int) {
	if secret == "" {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			fail("read secret: %v", err)
		}
		secret = strings.TrimRight(line, "\r\n")
	}
	if secret == "" {
		fail("secret is empty")
	}
	hashed, err := credentials.HashSecretCost(secret, cost)
	if err != nil {
		fail("hash: %v", err)
	}
	fmt.Println(hashed)
}

func generateSecret(size int) {
	s, err := secrets.Generate(size)
	if err != nil {
		fail("generate: %v", err)
	}
	fmt.Println(s)
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fail("encode json: %v", err)
	}
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
