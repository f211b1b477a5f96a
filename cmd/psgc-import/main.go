// psgc-import bulk-loads a PSA PSGC publication workbook into the four
// geographic reference tables. The publication lists every level in one
// sheet; rows are split by the Geographic Level column and written
// parent-first so the foreign keys hold.
//
//	go run ./cmd/psgc-import -file PSGC-2Q-2025-Publication-Datafile.xlsx
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"

	"citizenly-registry/internal/config"
	"citizenly-registry/internal/database"
	"citizenly-registry/internal/domain"
	"citizenly-registry/internal/geo"
	"citizenly-registry/internal/repository"
	"citizenly-registry/internal/store"

	"github.com/go-redis/redis/v8"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const importBatchSize = 500

func main() {
	var (
		file  = flag.String("file", "", "PSGC publication workbook (xlsx)")
		sheet = flag.String("sheet", "", "sheet name (default: first sheet)")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal("Provide -file")
	}

	workbook, err := excelize.OpenFile(*file)
	if err != nil {
		log.Fatalf("Cannot open workbook: %v", err)
	}
	defer workbook.Close()

	sheetName := *sheet
	if sheetName == "" {
		sheetName = workbook.GetSheetName(0)
	}
	rows, err := workbook.GetRows(sheetName)
	if err != nil {
		log.Fatalf("Cannot read sheet %q: %v", sheetName, err)
	}
	if len(rows) < 2 {
		log.Fatalf("Sheet %q has no data rows", sheetName)
	}

	regions, provinces, cities, barangays, skipped := parsePublication(rows)
	fmt.Printf("Parsed %s: %d regions, %d provinces, %d cities/municipalities, %d barangays (%d rows skipped)\n",
		sheetName, len(regions), len(provinces), len(cities), len(barangays), skipped)

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	psgcRepo := repository.NewPostgresPSGCRepository(db)
	ctx := context.Background()

	n, err := upsertRegionBatches(ctx, psgcRepo, regions)
	if err != nil {
		log.Fatalf("Region upsert failed: %v", err)
	}
	fmt.Printf("Upserted %d regions\n", n)

	if n, err = upsertProvinceBatches(ctx, psgcRepo, provinces); err != nil {
		log.Fatalf("Province upsert failed: %v", err)
	}
	fmt.Printf("Upserted %d provinces\n", n)

	if n, err = upsertCityBatches(ctx, psgcRepo, cities); err != nil {
		log.Fatalf("City upsert failed: %v", err)
	}
	fmt.Printf("Upserted %d cities/municipalities\n", n)

	if n, err = upsertBarangayBatches(ctx, psgcRepo, barangays); err != nil {
		log.Fatalf("Barangay upsert failed: %v", err)
	}
	fmt.Printf("Upserted %d barangays\n", n)

	invalidateAncestryCache(ctx, cfg, psgcRepo)

	counts, err := psgcRepo.CountByLevel(ctx)
	if err != nil {
		log.Fatalf("Count failed: %v", err)
	}
	fmt.Printf("\nReference tables now hold %d regions, %d provinces, %d cities, %d barangays\n",
		counts.Regions, counts.Provinces, counts.Cities, counts.Barangays)
}

// parsePublication splits publication rows by geographic level. The
// code column may carry the 10-digit 2023-series code; the 9-digit
// correspondence code is canonical and preferred when present.
func parsePublication(rows [][]string) (
	regions []*domain.Region,
	provinces []*domain.Province,
	cities []*domain.City,
	barangays []*domain.Barangay,
	skipped int,
) {
	codeCol, nameCol, corrCol, levelCol, urbanCol := headerColumns(rows[0])

	for _, row := range rows[1:] {
		code := canonicalCode(cell(row, corrCol), cell(row, codeCol))
		name := strings.TrimSpace(cell(row, nameCol))
		level := strings.TrimSpace(cell(row, levelCol))
		if code == "" || name == "" {
			skipped++
			continue
		}

		switch level {
		case "Reg":
			regions = append(regions, &domain.Region{Code: code[:2], Name: name})
		case "Prov":
			if len(code) < 4 {
				skipped++
				continue
			}
			provinces = append(provinces, &domain.Province{
				Code:       code[:4],
				Name:       name,
				RegionCode: code[:2],
			})
		case "City", "Mun", "SubMun":
			if len(code) < 6 {
				skipped++
				continue
			}
			cities = append(cities, &domain.City{
				Code:         code[:6],
				Name:         name,
				ProvinceCode: code[:4],
				Level:        level,
			})
		case "Bgy":
			if len(code) < 9 {
				skipped++
				continue
			}
			barangays = append(barangays, &domain.Barangay{
				Code:       code[:9],
				Name:       name,
				CityCode:   code[:6],
				UrbanRural: strings.TrimSpace(cell(row, urbanCol)),
			})
		default:
			// summary and district rows carry other level labels
			skipped++
		}
	}
	return regions, provinces, cities, barangays, skipped
}

func headerColumns(header []string) (codeCol, nameCol, corrCol, levelCol, urbanCol int) {
	codeCol, nameCol, corrCol, levelCol, urbanCol = 0, 1, -1, 2, -1
	for i, h := range header {
		normalized := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(normalized, "correspondence"):
			corrCol = i
		case strings.Contains(normalized, "psgc") || normalized == "code":
			codeCol = i
		case normalized == "name":
			nameCol = i
		case strings.Contains(normalized, "level"):
			levelCol = i
		case strings.Contains(normalized, "urban"):
			urbanCol = i
		}
	}
	return codeCol, nameCol, corrCol, levelCol, urbanCol
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

// canonicalCode prefers the 9-digit correspondence code over the
// 10-digit publication code; rows with neither are unusable.
func canonicalCode(correspondence, code string) string {
	correspondence = strings.TrimSpace(correspondence)
	code = strings.TrimSpace(code)
	if len(correspondence) == 9 {
		return correspondence
	}
	if len(code) == 9 {
		return code
	}
	return ""
}

func upsertRegionBatches(ctx context.Context, repo repository.PSGCRepository, rows []*domain.Region) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += importBatchSize {
		end := min(start+importBatchSize, len(rows))
		n, err := repo.UpsertRegions(ctx, rows[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func upsertProvinceBatches(ctx context.Context, repo repository.PSGCRepository, rows []*domain.Province) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += importBatchSize {
		end := min(start+importBatchSize, len(rows))
		n, err := repo.UpsertProvinces(ctx, rows[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func upsertCityBatches(ctx context.Context, repo repository.PSGCRepository, rows []*domain.City) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += importBatchSize {
		end := min(start+importBatchSize, len(rows))
		n, err := repo.UpsertCities(ctx, rows[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func upsertBarangayBatches(ctx context.Context, repo repository.PSGCRepository, rows []*domain.Barangay) (int, error) {
	total := 0
	for start := 0; start < len(rows); start += importBatchSize {
		end := min(start+importBatchSize, len(rows))
		n, err := repo.UpsertBarangays(ctx, rows[start:end])
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

// invalidateAncestryCache drops the Redis-cached chains so the API
// serves the freshly imported data.
func invalidateAncestryCache(ctx context.Context, cfg *config.Config, psgcRepo repository.PSGCRepository) {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		fmt.Printf("Redis unavailable, skipping ancestry cache invalidation: %v\n", err)
		return
	}

	resolver := geo.NewChainResolver(psgcRepo, store.NewRedisKV(redisClient), zap.NewNop())
	if err := resolver.Invalidate(ctx); err != nil {
		fmt.Printf("Cache invalidation failed: %v\n", err)
		return
	}
	fmt.Println("Ancestry cache invalidated")
}
