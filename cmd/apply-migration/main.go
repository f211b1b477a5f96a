// apply-migration applies schema migrations, or an ad-hoc SQL file,
// against the configured database.
//
// Usage:
//
//	go run ./cmd/apply-migration                      # migrate up to the latest version
//	go run ./cmd/apply-migration -version 4           # migrate (up or down) to version 4
//	go run ./cmd/apply-migration -file fix_codes.sql  # execute a raw SQL file
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"citizenly-registry/internal/config"
	"citizenly-registry/internal/database"
)

func main() {
	var (
		sourceDir = flag.String("dir", "file://migrations", "migration source URL")
		version   = flag.Int("version", -1, "target schema version (-1 = latest)")
		sqlFile   = flag.String("file", "", "raw SQL file to execute instead of migrations")
	)
	flag.Parse()

	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n", cfg.Database.Database)

	if *sqlFile != "" {
		raw, err := os.ReadFile(*sqlFile)
		if err != nil {
			log.Fatalf("Cannot read SQL file: %v", err)
		}
		if _, err := db.Exec(string(raw)); err != nil {
			log.Fatalf("Failed to execute %s: %v", *sqlFile, err)
		}
		fmt.Printf("Executed %s\n", *sqlFile)
		return
	}

	if *version >= 0 {
		if err := database.MigrateTo(db, *sourceDir, uint(*version)); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		fmt.Printf("Schema now at version %d\n", *version)
		return
	}

	if err := database.RunMigrations(db, *sourceDir); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("Schema is up to date")
}
