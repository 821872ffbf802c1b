// migrate applies the embedded SQL migrations to DATABASE_URL.
package main

import (
	"flag"
	"fmt"
	"os"

	"salesgate/internal/platform/config"
	"salesgate/internal/platform/database"
)

func main() {
	direction := flag.String("direction", database.MigrateUp, "Migration direction: up or down")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	if cfg.DatabaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is not set; create a .env or export DATABASE_URL")
		os.Exit(1)
	}

	if err := database.Migrate(cfg.DatabaseURL, *direction); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	version, dirty, err := database.Version(cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "migrate version:", err)
		os.Exit(1)
	}
	fmt.Printf("schema at version %d (dirty=%t)\n", version, dirty)
}
