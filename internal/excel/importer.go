package excel

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/example/retype/internal/database"
	"github.com/example/retype/pkg/models"
)

// ImportConfig defines where each field of a content row is found
type ImportConfig struct {
	FilePath          string // Path to the Excel or CSV file
	SheetName         string // Sheet to import from an Excel file
	StartRow          int    // First row to import (1-based)
	SetIDColumn       string
	SetTitleColumn    string
	SetSubtitleColumn string
	KindColumn        string // paragraph or wisdom
	ItemIDColumn      string
	OrderColumn       string // paragraphs only
	TypeColumn        string // wisdom only, e.g. quote
	TitleColumn       string // wisdom only
	ContentColumn     string
}

// DefaultImportConfig returns the layout
// set_id,set_title,set_subtitle,kind,item_id,order,type,title,content
// with a header row
func DefaultImportConfig() ImportConfig {
	return ImportConfig{
		SheetName:         "Sheet1",
		StartRow:          2,
		SetIDColumn:       "A",
		SetTitleColumn:    "B",
		SetSubtitleColumn: "C",
		KindColumn:        "D",
		ItemIDColumn:      "E",
		OrderColumn:       "F",
		TypeColumn:        "G",
		TitleColumn:       "H",
		ContentColumn:     "I",
	}
}

// ImportResult holds the result of an import operation
type ImportResult struct {
	TotalProcessed int
	SetsCreated    int
	SetsUpdated    int
	Paragraphs     int
	Wisdom         int
	Skipped        int
	Errors         []string
}

// Importer loads content sets into the remote store
type Importer struct {
	repo *database.ContentRepository
	now  func() time.Time
}

// NewImporter creates an importer writing to store
func NewImporter(store database.Store) *Importer {
	return &Importer{repo: database.NewContentRepository(store), now: time.Now}
}

// Import reads an Excel or CSV file, chosen by extension, and saves every
// row. Row level problems are collected in the result; only failures to read
// the file are returned as errors.
func (im *Importer) Import(ctx context.Context, config ImportConfig) (*ImportResult, error) {
	var (
		rows [][]string
		err  error
	)
	if strings.ToLower(filepath.Ext(config.FilePath)) == ".csv" {
		rows, err = readCSV(config.FilePath)
	} else {
		rows, err = readExcel(config.FilePath, config.SheetName)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Errors: make([]string, 0)}
	sets := make(map[string]bool)
	nextOrder := make(map[string]int)
	for i, row := range rows {
		rowNum := i + 1
		if rowNum < config.StartRow {
			continue
		}
		if blank(row) {
			result.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}

		result.TotalProcessed++
		if err := im.processRow(ctx, row, config, sets, nextOrder, result); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("Row %d: %v", rowNum, err))
		}
	}
	return result, nil
}

func readExcel(path, sheet string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

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
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("error reading CSV: %w", err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (im *Importer) processRow(ctx context.Context, row []string, config ImportConfig, sets map[string]bool, nextOrder map[string]int, result *ImportResult) error {
	setID := cell(row, config.SetIDColumn)
	kind := models.ContentType(strings.ToLower(cell(row, config.KindColumn)))
	itemID := cell(row, config.ItemIDColumn)
	text := cell(row, config.ContentColumn)

	switch {
	case setID == "":
		return fmt.Errorf("set id cannot be empty")
	case !kind.Valid():
		return fmt.Errorf("unknown kind %q", kind)
	case itemID == "":
		return fmt.Errorf("item id cannot be empty")
	case text == "":
		return fmt.Errorf("content cannot be empty")
	}

	if !sets[setID] {
		set := &models.ContentSet{
			ID:       setID,
			Title:    cell(row, config.SetTitleColumn),
			Subtitle: cell(row, config.SetSubtitleColumn),
		}
		created, err := im.repo.SaveSet(ctx, set, database.Timestamp(im.now()))
		if err != nil {
			return err
		}
		if created {
			result.SetsCreated++
		} else {
			result.SetsUpdated++
		}
		sets[setID] = true
	}

	if kind == models.ContentWisdom {
		wisdomType := cell(row, config.TypeColumn)
		if wisdomType == "" {
			wisdomType = "quote"
		}
		err := im.repo.SaveWisdomSection(ctx, &models.WisdomSection{
			ID:           itemID,
			ContentSetID: setID,
			Type:         wisdomType,
			Title:        cell(row, config.TitleColumn),
			Content:      text,
		})
		if err != nil {
			return err
		}
		result.Wisdom++
		return nil
	}

	nextOrder[setID]++
	order := parseIntOrDefault(cell(row, config.OrderColumn), 1, 1<<20, nextOrder[setID])
	if order >= nextOrder[setID] {
		nextOrder[setID] = order
	}
	err := im.repo.SaveParagraph(ctx, &models.Paragraph{
		ID:           itemID,
		ContentSetID: setID,
		OrderIndex:   order,
		Content:      text,
	})
	if err != nil {
		return err
	}
	result.Paragraphs++
	return nil
}

func cell(row []string, column string) string {
	if column == "" {
		return ""
	}
	if idx := columnToIndex(column); idx >= 0 && idx < len(row) {
		return strings.TrimSpace(row[idx])
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// columnToIndex converts an Excel column letter to a 0-based index
func columnToIndex(column string) int {
	column = strings.ToUpper(column)
	index := 0
	for i := 0; i < len(column); i++ {
		index = index*26 + int(column[i]-'A'+1)
	}
	return index - 1
}

func parseIntInRange(s string, min, max int) (int, error) {
	var val int
	if _, err := fmt.Sscanf(s, "%d", &val); err != nil {
		return min, err
	}
	if val < min {
		return min, nil
	}
	if val > max {
		return max, nil
	}
	return val, nil
}

// parseIntOrDefault parses s clamped to [min, max], or returns defaultVal
func parseIntOrDefault(s string, min, max, defaultVal int) int {
	if val, err := parseIntInRange(s, min, max); err == nil {
		return val
	}
	return defaultVal
}
