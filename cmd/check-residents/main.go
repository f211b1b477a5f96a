// check-residents inspects resident rows: totals per barangay,
// suspected duplicates, orphaned household references and soft-deleted
// counts. Diagnostic only, never mutates.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"

	"citizenly-registry/internal/config"
	"citizenly-registry/internal/database"
)

func main() {
	var (
		showAll        = flag.Bool("all", false, "list residents (limit 100)")
		showDuplicates = flag.Bool("duplicates", false, "find residents sharing name and birthdate")
		showOrphans    = flag.Bool("orphans", false, "find residents pointing at missing or deleted households")
		showDeleted    = flag.Bool("deleted", false, "count soft-deleted residents per barangay")
		barangay       = flag.String("barangay", "", "restrict to one barangay code")
	)
	flag.Parse()

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	where := ""
	args := []any{}
	if *barangay != "" {
		where = " AND r.barangay_code = $1"
		args = append(args, *barangay)
	}

	printCounts(db, where, args)

	if *showAll {
		listResidents(db, where, args)
	}
	if *showDuplicates {
		findDuplicates(db, where, args)
	}
	if *showOrphans {
		findOrphans(db, where, args)
	}
	if *showDeleted {
		countDeleted(db, *barangay)
	}
}

func printCounts(db *sql.DB, where string, args []any) {
	var total, deleted int
	if err := db.QueryRow(
		`SELECT COUNT(*) FILTER (WHERE r.deleted_at IS NULL),
		        COUNT(*) FILTER (WHERE r.deleted_at IS NOT NULL)
		 FROM residents r WHERE TRUE`+where, args...).Scan(&total, &deleted); err != nil {
		log.Fatalf("Count failed: %v", err)
	}
	fmt.Printf("Residents: %d active, %d soft-deleted\n\n", total, deleted)
}

func listResidents(db *sql.DB, where string, args []any) {
	rows, err := db.Query(
		`SELECT r.id, r.last_name, r.first_name, r.birthdate, r.sex, r.barangay_code,
		        COALESCE(r.household_id::text, '')
		 FROM residents r
		 WHERE r.deleted_at IS NULL`+where+`
		 ORDER BY r.last_name, r.first_name LIMIT 100`, args...)
	if err != nil {
		log.Fatalf("List failed: %v", err)
	}
	defer rows.Close()

	fmt.Println("=== Residents (limit 100) ===")
	for rows.Next() {
		var id, lastName, firstName, birthdate, sex, barangayCode, householdID string
		if err := rows.Scan(&id, &lastName, &firstName, &birthdate, &sex, &barangayCode, &householdID); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("%s  %s, %s  %s  %s  brgy=%s  household=%s\n",
			id, lastName, firstName, birthdate, sex, barangayCode, householdID)
	}
	fmt.Println()
}

func findDuplicates(db *sql.DB, where string, args []any) {
	rows, err := db.Query(
		`SELECT r.first_name, r.last_name, r.birthdate, r.barangay_code, COUNT(*)
		 FROM residents r
		 WHERE r.deleted_at IS NULL`+where+`
		 GROUP BY r.first_name, r.last_name, r.birthdate, r.barangay_code
		 HAVING COUNT(*) > 1
		 ORDER BY COUNT(*) DESC`, args...)
	if err != nil {
		log.Fatalf("Duplicate scan failed: %v", err)
	}
	defer rows.Close()

	fmt.Println("=== Suspected duplicates (same name + birthdate + barangay) ===")
	found := 0
	for rows.Next() {
		var firstName, lastName, birthdate, barangayCode string
		var count int
		if err := rows.Scan(&firstName, &lastName, &birthdate, &barangayCode, &count); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("%s %s  born %s  brgy=%s  x%d\n", firstName, lastName, birthdate, barangayCode, count)
		found++
	}
	if found == 0 {
		fmt.Println("none")
	}
	fmt.Println()
}

func findOrphans(db *sql.DB, where string, args []any) {
	rows, err := db.Query(
		`SELECT r.id, r.household_id
		 FROM residents r
		 LEFT JOIN households h ON h.id = r.household_id AND h.deleted_at IS NULL
		 WHERE r.deleted_at IS NULL AND r.household_id IS NOT NULL AND h.id IS NULL`+where, args...)
	if err != nil {
		log.Fatalf("Orphan scan failed: %v", err)
	}
	defer rows.Close()

	fmt.Println("=== Residents pointing at missing or deleted households ===")
	found := 0
	for rows.Next() {
		var id, householdID string
		if err := rows.Scan(&id, &householdID); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("resident %s -> household %s\n", id, householdID)
		found++
	}
	if found == 0 {
		fmt.Println("none")
	}
	fmt.Println()
}

func countDeleted(db *sql.DB, barangay string) {
	query := `SELECT barangay_code, COUNT(*)
	          FROM residents WHERE deleted_at IS NOT NULL`
	args := []any{}
	if barangay != "" {
		query += ` AND barangay_code = $1`
		args = append(args, barangay)
	}
	query += ` GROUP BY barangay_code ORDER BY COUNT(*) DESC`

	rows, err := db.Query(query, args...)
	if err != nil {
		log.Fatalf("Deleted scan failed: %v", err)
	}
	defer rows.Close()

	fmt.Println("=== Soft-deleted residents per barangay ===")
	for rows.Next() {
		var barangayCode string
		var count int
		if err := rows.Scan(&barangayCode, &count); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		fmt.Printf("brgy=%s  %d\n", barangayCode, count)
	}
	fmt.Println()
}
