// Package importer loads asset master data from Excel workbooks. Column
// layouts vary per source, so the header-to-field mapping lives in a YAML
// config rather than in code. Rows are registered through the asset ledger,
// never written to storage directly.
package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/tealeg/xlsx/v3"
	"gopkg.in/yaml.v3"

	"arka-asset-api/internal/models"
)

// Ledger is the slice of the workflow service the importer needs.
type Ledger interface {
	ListAssets(ctx context.Context) ([]models.Asset, error)
	RegisterAsset(ctx context.Context, actor models.Actor, in models.CreateAssetRequest) (*models.Asset, error)
	UpdateAsset(ctx context.Context, actor models.Actor, id string, in models.UpdateAssetRequest) (*models.Asset, error)
}

// ImportOptions defines the configuration for Excel import operations
type ImportOptions struct {
	MappingPath string // empty means the built-in default mapping
	DryRun      bool
	MaxErrors   int // default 50
}

// RowError represents an error that occurred during row processing
type RowError struct {
	Sheet   string `json:"sheet"`
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// SheetSummary contains the import statistics for a single sheet
type SheetSummary struct {
	Name     string     `json:"name"`
	Inserted int        `json:"inserted"`
	Updated  int        `json:"updated"`
	Skipped  int        `json:"skipped"`
	Errors   int        `json:"errors"`
	Samples  []RowError `json:"error_samples,omitempty"`
}

// ImportSummary contains the overall import statistics
type ImportSummary struct {
	Inserted int            `json:"inserted"`
	Updated  int            `json:"updated"`
	Skipped  int            `json:"skipped"`
	Errors   int            `json:"errors"`
	Sheets   []SheetSummary `json:"sheets"`
	DryRun   bool           `json:"dry_run"`
}

// MappingConfig represents the YAML mapping configuration
type MappingConfig struct {
	Version  int                    `yaml:"version"`
	Defaults map[string]string      `yaml:"defaults"`
	Sheets   map[string]SheetConfig `yaml:"sheets"`
}

// SheetConfig maps one worksheet's headers onto asset fields. Category is
// fixed per sheet; Columns maps a canonical header to an asset field name;
// Aliases lists alternate spellings for a canonical header.
type SheetConfig struct {
	Category string              `yaml:"category"`
	Columns  map[string]string   `yaml:"columns"`
	Aliases  map[string][]string `yaml:"aliases"`
}

// ImportExcel processes an Excel workbook and registers its rows as assets.
// Rows whose serial number matches an existing asset update that asset's
// master data instead of creating a duplicate.
func ImportExcel(ctx context.Context, ledger Ledger, actor models.Actor, r io.Reader, opts ImportOptions) (ImportSummary, error) {
	summary := ImportSummary{
		DryRun: opts.DryRun,
		Sheets: []SheetSummary{},
	}
	if opts.MaxErrors == 0 {
		opts.MaxErrors = 50
	}

	mapping, err := loadMappingConfig(opts.MappingPath)
	if err != nil {
		return summary, fmt.Errorf("failed to load mapping config: %w", err)
	}

	// xlsx needs an io.ReaderAt, so buffer the upload first
	data, err := io.ReadAll(r)
	if err != nil {
		return summary, fmt.Errorf("failed to read Excel file: %w", err)
	}
	xlFile, err := xlsx.OpenBinary(data)
	if err != nil {
		return summary, fmt.Errorf("failed to open Excel file: %w", err)
	}

	// Serial number index for update-vs-insert decisions
	existing, err := ledger.ListAssets(ctx)
	if err != nil {
		return summary, fmt.Errorf("failed to list assets: %w", err)
	}
	bySerial := make(map[string]string, len(existing))
	for _, a := range existing {
		if a.SerialNumber != nil && *a.SerialNumber != "" {
			bySerial[strings.ToUpper(*a.SerialNumber)] = a.ID
		}
	}

	for _, sheet := range xlFile.Sheets {
		cfg, exists := mapping.Sheets[sheet.Name]
		if !exists {
			continue // skip sheets without mapping
		}

		sheetSummary := importSheet(ctx, ledger, actor, sheet, cfg, mapping.Defaults, bySerial, opts.DryRun)
		summary.Sheets = append(summary.Sheets, sheetSummary)

		summary.Inserted += sheetSummary.Inserted
		summary.Updated += sheetSummary.Updated
		summary.Skipped += sheetSummary.Skipped
		summary.Errors += sheetSummary.Errors

		if summary.Errors > opts.MaxErrors {
			return summary, fmt.Errorf("too many errors (%d), stopping import", summary.Errors)
		}
	}

	return summary, nil
}

// DefaultMapping is the built-in column mapping used when no mapping file is
// given. It matches the standard asset register template.
var DefaultMapping = MappingConfig{
	Version: 1,
	Defaults: map[string]string{
		"condition": "Good",
		"location":  "Warehouse",
	},
	Sheets: map[string]SheetConfig{
		"Assets": {
			Category: "",
			Columns: map[string]string{
				"Category":  "category",
				"Type":      "type",
				"Brand":     "brand",
				"Model":     "model",
				"Serial":    "serial_number",
				"Condition": "condition",
				"Location":  "location",
				"PO":        "po_number",
			},
			Aliases: map[string][]string{
				"Serial": {"Serial Number", "S/N", "SN"},
				"PO":     {"PO Number", "Purchase Order"},
				"Type":   {"Asset Type", "Item Type"},
			},
		},
	},
}

func loadMappingConfig(path string) (*MappingConfig, error) {
	if path == "" {
		cfg := DefaultMapping
		return &cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg MappingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if len(cfg.Sheets) == 0 {
		return nil, fmt.Errorf("mapping %s defines no sheets", path)
	}
	return &cfg, nil
}

func importSheet(ctx context.Context, ledger Ledger, actor models.Actor, sheet *xlsx.Sheet, cfg SheetConfig, defaults map[string]string, bySerial map[string]string, dryRun bool) SheetSummary {
	summary := SheetSummary{Name: sheet.Name}

	recordError := func(row int, msg string) {
		summary.Errors++
		if len(summary.Samples) < 10 {
			summary.Samples = append(summary.Samples, RowError{Sheet: sheet.Name, Row: row, Message: msg})
		}
	}

	headerRow, err := sheet.Row(0)
	if err != nil {
		recordError(1, "failed to read header row: "+err.Error())
		return summary
	}

	// Resolve each column index to its canonical header, honoring aliases
	canonical := make(map[string]string) // upper header text -> canonical header
	for header := range cfg.Columns {
		canonical[strings.ToUpper(header)] = header
		for _, alias := range cfg.Aliases[header] {
			canonical[strings.ToUpper(alias)] = header
		}
	}
	// GetCell grows the row instead of reporting the end, so the scan must
	// be bounded by the sheet dimensions.
	fieldByCol := make(map[int]string)
	for colIdx := 0; colIdx < sheet.MaxCol; colIdx++ {
		text := strings.TrimSpace(headerRow.GetCell(colIdx).String())
		if text == "" {
			continue
		}
		if header, ok := canonical[strings.ToUpper(text)]; ok {
			fieldByCol[colIdx] = cfg.Columns[header]
		}
	}
	if len(fieldByCol) == 0 {
		recordError(1, "no mapped columns found in header row")
		return summary
	}

	for rowIdx := 1; rowIdx < sheet.MaxRow; rowIdx++ {
		row, err := sheet.Row(rowIdx)
		if err != nil {
			break
		}

		fields := make(map[string]string)
		for colIdx, field := range fieldByCol {
			if v := strings.TrimSpace(row.GetCell(colIdx).String()); v != "" {
				fields[field] = v
			}
		}
		if len(fields) == 0 {
			summary.Skipped++
			continue
		}

		in, err := buildAsset(fields, cfg, defaults)
		if err != nil {
			recordError(rowIdx+1, err.Error())
			continue
		}

		serial := ""
		if in.SerialNumber != nil {
			serial = strings.ToUpper(*in.SerialNumber)
		}
		if id, ok := bySerial[serial]; serial != "" && ok {
			if !dryRun {
				if _, err := ledger.UpdateAsset(ctx, actor, id, toUpdate(in)); err != nil {
					recordError(rowIdx+1, err.Error())
					continue
				}
			}
			summary.Updated++
			continue
		}

		if !dryRun {
			created, err := ledger.RegisterAsset(ctx, actor, in)
			if err != nil {
				recordError(rowIdx+1, err.Error())
				continue
			}
			if serial != "" {
				bySerial[serial] = created.ID
			}
		}
		summary.Inserted++
	}

	return summary
}

func buildAsset(fields map[string]string, cfg SheetConfig, defaults map[string]string) (models.CreateAssetRequest, error) {
	get := func(name string) string {
		if v, ok := fields[name]; ok {
			return v
		}
		return defaults[name]
	}
	in := models.CreateAssetRequest{
		Category:  get("category"),
		Type:      get("type"),
		Condition: get("condition"),
		Location:  get("location"),
	}
	if in.Category == "" {
		in.Category = cfg.Category
	}
	if in.Category == "" {
		return in, fmt.Errorf("category is required")
	}
	if in.Type == "" {
		return in, fmt.Errorf("type is required")
	}
	if v := fields["brand"]; v != "" {
		in.Brand = &v
	}
	if v := fields["model"]; v != "" {
		in.Model = &v
	}
	if v := fields["serial_number"]; v != "" {
		in.SerialNumber = &v
	}
	if v := fields["po_number"]; v != "" {
		in.PONumber = &v
	}
	return in, nil
}

func toUpdate(in models.CreateAssetRequest) models.UpdateAssetRequest {
	out := models.UpdateAssetRequest{
		Brand:        in.Brand,
		Model:        in.Model,
		SerialNumber: in.SerialNumber,
	}
	if in.Category != "" {
		out.Category = &in.Category
	}
	if in.Type != "" {
		out.Type = &in.Type
	}
	if in.Condition != "" {
		out.Condition = &in.Condition
	}
	if in.Location != "" {
		out.Location = &in.Location
	}
	return out
}
