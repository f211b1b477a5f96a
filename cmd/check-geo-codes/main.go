// check-geo-codes scans user_profiles, households and residents for
// denormalized city/province/region codes that no longer match the PSGC
// reference chain of their barangay_code. Run it from cron as the
// consistency backstop; it exits non-zero when drift is found.
//
//	go run ./cmd/check-geo-codes        # report only
//	go run ./cmd/check-geo-codes -fix   # re-resolve and repair drifted rows
package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"sync/atomic"

	"citizenly-registry/internal/config"
	"citizenly-registry/internal/database"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/store"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// tables carrying the denormalized trio. user_profiles allows a NULL
// barangay_code (national admins), the other two do not.
var checkedTables = []string{"user_profiles", "households", "residents"}

func main() {
	var fix = flag.Bool("fix", false, "repair drifted rows from the reference chain")
	flag.Parse()

	cfg := config.Load()

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	fmt.Printf("Connected to database: %s\n\n", cfg.Database.Database)

	psgcRepo := repository.NewPostgresPSGCRepository(db)
	resolver := geo.NewChainResolver(psgcRepo, store.NewMemoryKV(), zap.NewNop())

	ctx := context.Background()
	var totalDrift, totalBroken, totalFixed int64

	g, gctx := errgroup.WithContext(ctx)
	for _, table := range checkedTables {
		table := table
		g.Go(func() error {
			drift, broken, fixed, err := checkTable(gctx, db, resolver, table, *fix)
			if err != nil {
				return fmt.Errorf("%s: %w", table, err)
			}
			atomic.AddInt64(&totalDrift, int64(drift))
			atomic.AddInt64(&totalBroken, int64(broken))
			atomic.AddInt64(&totalFixed, int64(fixed))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Scan failed: %v", err)
	}

	fmt.Printf("\nTotal: %d drifted row(s), %d on a broken reference chain, %d repaired\n",
		totalDrift, totalBroken, totalFixed)

	if totalDrift > 0 || totalBroken > 0 {
		os.Exit(1)
	}
	fmt.Println("All denormalized geographic codes are consistent")
}

func checkTable(ctx context.Context, db *sql.DB, resolver *geo.ChainResolver, table string, fix bool) (drift, broken, fixed int, err error) {
	rows, err := db.QueryContext(ctx, fmt.Sprintf(
		`SELECT id, barangay_code, COALESCE(city_code, ''), COALESCE(province_code, ''), COALESCE(region_code, '')
		 FROM %s WHERE barangay_code IS NOT NULL`, table))
	if err != nil {
		return 0, 0, 0, err
	}
	defer rows.Close()

	type driftedRow struct {
		id                       string
		city, province, region   string
	}
	var toFix []driftedRow

	scanned := 0
	for rows.Next() {
		var id, barangay, city, province, region string
		if err := rows.Scan(&id, &barangay, &city, &province, &region); err != nil {
			return drift, broken, fixed, err
		}
		scanned++

		ancestry, err := resolver.Resolve(ctx, barangay)
		if err != nil {
			if errors.Is(err, repository.ErrBrokenGeoChain) || errors.Is(err, sql.ErrNoRows) {
				fmt.Printf("%s %s: barangay %s has no resolvable chain (%v)\n", table, id, barangay, err)
				broken++
				continue
			}
			return drift, broken, fixed, err
		}

		if city != ancestry.CityCode || province != ancestry.ProvinceCode || region != ancestry.RegionCode {
			fmt.Printf("%s %s: stored (%s, %s, %s) expected (%s, %s, %s)\n",
				table, id, city, province, region,
				ancestry.CityCode, ancestry.ProvinceCode, ancestry.RegionCode)
			drift++
			if fix {
				toFix = append(toFix, driftedRow{
					id:       id,
					city:     ancestry.CityCode,
					province: ancestry.ProvinceCode,
					region:   ancestry.RegionCode,
				})
			}
		}
	}
	if err := rows.Err(); err != nil {
		return drift, broken, fixed, err
	}

	for _, row := range toFix {
		_, err := db.ExecContext(ctx, fmt.Sprintf(
			`UPDATE %s SET city_code = $1, province_code = $2, region_code = $3, updated_at = NOW() WHERE id = $4`, table),
			row.city, row.province, row.region, row.id)
		if err != nil {
			return drift, broken, fixed, fmt.Errorf("fix %s: %w", row.id, err)
		}
		fixed++
	}

	fmt.Printf("%s: %d row(s) scanned, %d drifted, %d broken, %d repaired\n",
		table, scanned, drift, broken, fixed)
	return drift, broken, fixed, nil
}
