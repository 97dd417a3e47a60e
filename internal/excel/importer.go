package excel

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/example/lexera/pkg/models"
)

// WordStore receives imported words
type WordStore interface {
	Upsert(ctx context.Context, w models.WordRecord) (created bool, err error)
}

// ImportConfig defines the import configuration
type ImportConfig struct {
	FilePath         string // Path to the Excel or CSV file
	SheetName        string // Sheet to import; empty means the first sheet
	IDColumn         string // Column with the stable id, optional
	WordColumn       string // Column with the correct spelling
	OptionsColumn    string // Column with the offered spellings, "|" or "," separated
	ImageColumn      string // Column with the illustration URL
	SoundColumn      string // Column with the recorded pronunciation URL
	DifficultyColumn string // Column with easy/medium/hard/expert
	StartRow         int    // The row to start importing from (1-based index)
}

// DefaultImportConfig returns the default import configuration
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		IDColumn:         "A",
		WordColumn:       "B",
		OptionsColumn:    "C",
		ImageColumn:      "D",
		SoundColumn:      "E",
		DifficultyColumn: "F",
		StartRow:         2, // By default, start from the second row (skip header)
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	Created        int
	Updated        int
	Skipped        int
	Errors         []string
}

// ImportWords imports words from an Excel or CSV file
func ImportWords(ctx context.Context, store WordStore, config ImportConfig) (*ImportResult, error) {
	cols, err := resolveColumns(config)
	if err != nil {
		return nil, err
	}

	var rows [][]string
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow {
			continue
		}
		if blank(row) {
			result.Skipped++
			continue
		}
		result.TotalProcessed++

		w, err := parseRow(row, cols)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
			continue
		}
		if err := save(ctx, store, w, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}
	return result, nil
}

// SeedWords stores the given words, typically the local fallback catalog
func SeedWords(ctx context.Context, store WordStore, words []models.WordRecord) (*ImportResult, error) {
	result := &ImportResult{Errors: make([]string, 0)}
	for _, w := range words {
		result.TotalProcessed++
		if err := save(ctx, store, w, result); err != nil {
			return result, fmt.Errorf("seed %q: %w", w.ID, err)
		}
	}
	return result, nil
}

func save(ctx context.Context, store WordStore, w models.WordRecord, result *ImportResult) error {
	created, err := store.Upsert(ctx, w)
	if err != nil {
		return fmt.Errorf("failed to save word: %w", err)
	}
	if created {
		result.Created++
	} else {
		result.Updated++
	}
	return nil
}

// readExcel returns all rows of the sheet
func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		sheet = sheets[0]
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to get rows: %w", err)
	}
	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // Allow variable number of fields
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// columns holds 0-based cell indexes; -1 marks an unused column
type columns struct {
	id, word, options, image, sound, difficulty int
}

func resolveColumns(config ImportConfig) (columns, error) {
	var cols columns
	var err error
	resolve := func(name string, required bool) int {
		if err != nil {
			return -1
		}
		if name == "" {
			if required {
				err = fmt.Errorf("word column is required")
			}
			return -1
		}
		n, convErr := excelize.ColumnNameToNumber(name)
		if convErr != nil {
			err = fmt.Errorf("invalid column %q: %w", name, convErr)
			return -1
		}
		return n - 1
	}
	cols.id = resolve(config.IDColumn, false)
	cols.word = resolve(config.WordColumn, true)
	cols.options = resolve(config.OptionsColumn, false)
	cols.image = resolve(config.ImageColumn, false)
	cols.sound = resolve(config.SoundColumn, false)
	cols.difficulty = resolve(config.DifficultyColumn, false)
	return cols, err
}

func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// parseRow builds a word record from one row
func parseRow(row []string, cols columns) (models.WordRecord, error) {
	w := models.WordRecord{
		ID:    cell(row, cols.id),
		Word:  cell(row, cols.word),
		Image: cell(row, cols.image),
		Sound: cell(row, cols.sound),
	}
	if w.Word == "" {
		return w, fmt.Errorf("word cannot be empty")
	}
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	w.Difficulty = models.Easy
	if raw := cell(row, cols.difficulty); raw != "" {
		d, err := models.ParseDifficulty(raw)
		if err != nil {
			return w, err
		}
		w.Difficulty = d
	}

	w.Options = splitOptions(cell(row, cols.options))
	if !w.HasOption(w.Word) {
		w.Options = append(w.Options, w.Word)
	}
	return w, nil
}

// splitOptions splits on "|" when present, otherwise on ","
func splitOptions(raw string) []string {
	if raw == "" {
		return nil
	}
	sep := ","
	if strings.Contains(raw, "|") {
		sep = "|"
	}
	var out []string
	for _, part := range strings.Split(raw, sep) {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
