// psoc-import bulk-loads a PSOC classification workbook into
// psoc_occupations. The level of each entry follows from its code
// length (1-digit major group down to 5-digit occupation) and the
// parent is the code with the last digit dropped.
//
//	go run ./cmd/psoc-import -file PSOC-2012-Updated.xlsx
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
	"citizenly-registry/internal/repository"

	"github.com/xuri/excelize/v2"
)

const importBatchSize = 500

var levelByCodeLength = map[int]string{
	1: domain.PSOCLevelMajorGroup,
	2: domain.PSOCLevelSubMajorGroup,
	3: domain.PSOCLevelMinorGroup,
	4: domain.PSOCLevelUnitGroup,
	5: domain.PSOCLevelOccupation,
}

func main() {
	var (
		file  = flag.String("file", "", "PSOC workbook (xlsx)")
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

	occupations, skipped := parseOccupations(rows)
	fmt.Printf("Parsed %s: %d occupation entries (%d rows skipped)\n", sheetName, len(occupations), skipped)

	cfg := config.Load()
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatalf("Cannot connect to database: %v", err)
	}
	defer db.Close()

	psocRepo := repository.NewPostgresPSOCRepository(db)
	ctx := context.Background()

	total := 0
	for start := 0; start < len(occupations); start += importBatchSize {
		end := min(start+importBatchSize, len(occupations))
		n, err := psocRepo.UpsertOccupations(ctx, occupations[start:end])
		if err != nil {
			log.Fatalf("Upsert failed at batch starting %d: %v", start, err)
		}
		total += n
	}
	fmt.Printf("Upserted %d occupation entries\n", total)

	count, err := psocRepo.CountOccupations(ctx)
	if err != nil {
		log.Fatalf("Count failed: %v", err)
	}
	fmt.Printf("psoc_occupations now holds %d entries\n", count)
}

// parseOccupations reads Code | Title rows. Broader groups must sort
// before their children so the self-referencing foreign key holds;
// sorting by code length achieves that and the workbook is already
// ordered this way, but we keep the sort as a guard.
func parseOccupations(rows [][]string) ([]*domain.Occupation, int) {
	var occupations []*domain.Occupation
	skipped := 0

	codeCol, titleCol := 0, 1
	for i, h := range rows[0] {
		normalized := strings.ToLower(strings.TrimSpace(h))
		switch {
		case strings.Contains(normalized, "code"):
			codeCol = i
		case strings.Contains(normalized, "title") || strings.Contains(normalized, "description"):
			titleCol = i
		}
	}

	for _, row := range rows[1:] {
		code := strings.TrimSpace(cellAt(row, codeCol))
		title := strings.TrimSpace(cellAt(row, titleCol))
		level, known := levelByCodeLength[len(code)]
		if !known || title == "" || !allDigits(code) {
			skipped++
			continue
		}

		occupation := &domain.Occupation{Code: code, Title: title, Level: level}
		if len(code) > 1 {
			parent := code[:len(code)-1]
			occupation.ParentCode = &parent
		}
		occupations = append(occupations, occupation)
	}

	// parents first
	ordered := make([]*domain.Occupation, 0, len(occupations))
	for length := 1; length <= 5; length++ {
		for _, occupation := range occupations {
			if len(occupation.Code) == length {
				ordered = append(ordered, occupation)
			}
		}
	}
	return ordered, skipped
}

func cellAt(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return row[col]
}

func allDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
