// Command admintoken mints a short-lived ADMIN JWT for the operator
// endpoints.  Usage:
//
//	JWT_SECRET=... go run ./cmd/admintoken -sub ops -ttl 1h
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/session-booking/internal/utils"
)

func main() {
	_ = godotenv.Load()

	sub := flag.String("sub", "ops", "token subject (operator name)")
	ttl := flag.Duration("ttl", time.Hour, "token lifetime")
	flag.Parse()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		fmt.Fprintln(os.Stderr, "JWT_SECRET is not set")
		os.Exit(1)
	}

	tok, err := utils.NewAdminToken(secret, *sub, *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "sign token: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(tok.Token)
}
