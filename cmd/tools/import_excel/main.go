package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"arka-asset-api/internal/models"
	"arka-asset-api/internal/permission"
	"arka-asset-api/internal/store"
	"arka-asset-api/internal/workflow"
	"arka-asset-api/pkg/importer"
)

func main() {
	var (
		filePath    = flag.String("file", "", "Path to the .xlsx workbook")
		mappingPath = flag.String("mapping", "", "YAML mapping config (default: built-in mapping)")
		dryRun      = flag.Bool("dry-run", false, "Parse and validate without writing")
		maxErrors   = flag.Int("max-errors", 50, "Abort after this many row errors")
	)
	flag.Parse()

	if *filePath == "" {
		fmt.Println("Usage: import_excel -file=path.xlsx [-mapping=configs/mapping/assets.yaml] [-dry-run]")
		os.Exit(1)
	}

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		log.Fatal("DB_DSN environment variable is required")
	}

	ctx := context.Background()
	st, err := store.OpenPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	svc := workflow.NewService(st)
	actor := models.Actor{
		ID:          "import-tool",
		Name:        "Import Tool",
		Role:        permission.RoleAdmin,
		Permissions: permission.MustResolver().DefaultsFor(permission.RoleAdmin),
	}

	file, err := os.Open(*filePath)
	if err != nil {
		log.Fatalf("Failed to open Excel file: %v", err)
	}
	defer file.Close()

	fmt.Printf("Importing from %s (dry_run=%v)\n", *filePath, *dryRun)

	summary, err := importer.ImportExcel(ctx, svc, actor, file, importer.ImportOptions{
		MappingPath: *mappingPath,
		DryRun:      *dryRun,
		MaxErrors:   *maxErrors,
	})
	if err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	fmt.Printf("Inserted: %d  Updated: %d  Skipped: %d  Errors: %d\n",
		summary.Inserted, summary.Updated, summary.Skipped, summary.Errors)
	for _, sheet := range summary.Sheets {
		fmt.Printf("  %s: +%d ~%d skip %d err %d\n",
			sheet.Name, sheet.Inserted, sheet.Updated, sheet.Skipped, sheet.Errors)
		for _, sample := range sheet.Samples {
			fmt.Printf("    row %d: %s\n", sample.Row, sample.Message)
		}
	}
}
