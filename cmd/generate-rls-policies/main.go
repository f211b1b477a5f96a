// generate-rls-policies renders the Postgres row-level-security DDL from
// the same role→tier table the API-layer authorizer uses, so the two
// enforcement surfaces can never drift apart. The output is checked in
// as a migration; re-run this after changing the tier table.
//
//	go run ./cmd/generate-rls-policies > migrations/000006_row_level_security.up.sql
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"citizenly-registry/internal/authz"
)

const fileHeader = `-- Generated by cmd/generate-rls-policies from the access-tier table
-- in internal/authz. Do not edit by hand; regenerate instead.
-- Sessions bind their scope with:
--   %s

`

func main() {
	var out = flag.String("out", "", "write to file instead of stdout")
	flag.Parse()

	rendered := fmt.Sprintf(fileHeader, authz.SessionSetSQL()) + authz.RenderAllPolicies()

	if *out == "" {
		fmt.Print(rendered)
		return
	}
	if err := os.WriteFile(*out, []byte(rendered), 0o644); err != nil {
		log.Fatalf("Cannot write %s: %v", *out, err)
	}
	fmt.Printf("Wrote %s\n", *out)
}
