// execute-sql runs an ad-hoc statement against the configured database
// and prints the result set. Meant for quick diagnostics during an
// incident, not for regular operation.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"citizenly-registry/internal/config"
	"citizenly-registry/internal/database"
)

func main() {
	var (
		query   = flag.String("query", "", "SQL statement to execute")
		sqlFile = flag.String("file", "", "file containing the SQL statement")
	)
	flag.Parse()

	stmt := *query
	if stmt == "" && *sqlFile != "" {
		raw, err := os.ReadFile(*sqlFile)
		if err != nil {
			log.Fatalf("Cannot read SQL file: %v", err)
		}
		stmt = string(raw)
	}
	if strings.TrimSpace(stmt) == "" {
		log.Fatal("Provide -query or -file")
	}

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(stmt)), "SELECT") {
		result, err := db.Exec(stmt)
		if err != nil {
			log.Fatalf("Execution failed: %v", err)
		}
		affected, _ := result.RowsAffected()
		fmt.Printf("OK, %d row(s) affected\n", affected)
		return
	}

	rows, err := db.Query(stmt)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		log.Fatalf("Cannot read columns: %v", err)
	}
	fmt.Println(strings.Join(columns, " | "))

	values := make([]any, len(columns))
	pointers := make([]any, len(columns))
	for i := range values {
		pointers[i] = &values[i]
	}

	count := 0
	for rows.Next() {
		if err := rows.Scan(pointers...); err != nil {
			log.Fatalf("Scan failed: %v", err)
		}
		cells := make([]string, len(columns))
		for i, v := range values {
			switch value := v.(type) {
			case nil:
				cells[i] = "NULL"
			case []byte:
				cells[i] = string(value)
			default:
				cells[i] = fmt.Sprintf("%v", value)
			}
		}
		fmt.Println(strings.Join(cells, " | "))
		count++
	}
	if err := rows.Err(); err != nil {
		log.Fatalf("Row iteration failed: %v", err)
	}
	fmt.Printf("\n%d row(s)\n", count)
}
