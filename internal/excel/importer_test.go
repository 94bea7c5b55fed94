package excel

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/example/retype/internal/database"
)

const header = "set_id,set_title,set_subtitle,kind,item_id,order,type,title,content\n"

func TestImportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.csv")
	data := header +
		"oras,Laisvės vėjas,oro reikšmė,paragraph,p1,1,,,Kai žmonės iškovoja laisvę\n" +
		"oras,,,paragraph,p2,,,,Tačiau ne visi gali laisvai kvėpuoti\n" +
		",,,,,,,,\n" +
		"oras,,,wisdom,w1,,,Išmintis,Laisvė arba uždusimas\n" +
		"oras,,,video,v1,,,,nope\n" +
		"oras,,,paragraph,p3,,,,\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	store := database.NewMemoryStore()
	config := DefaultImportConfig()
	config.FilePath = path
	result, err := NewImporter(store).Import(context.Background(), config)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}

	if result.SetsCreated != 1 || result.Paragraphs != 2 || result.Wisdom != 1 {
		t.Errorf("result = %+v", result)
	}
	if result.Skipped != 1 || len(result.Errors) != 2 {
		t.Errorf("skipped %d, errors %v", result.Skipped, result.Errors)
	}

	repo := database.NewContentRepository(store)
	ctx := context.Background()
	paragraphs, err := repo.Paragraphs(ctx, "oras")
	if err != nil {
		t.Fatalf("Paragraphs: %v", err)
	}
	if len(paragraphs) != 2 || paragraphs[1].ID != "p2" || paragraphs[1].OrderIndex != 2 {
		t.Errorf("paragraphs = %+v", paragraphs)
	}
	wisdom, err := repo.WisdomSections(ctx, "oras")
	if err != nil {
		t.Fatalf("WisdomSections: %v", err)
	}
	if len(wisdom) != 1 || wisdom[0].Type != "quote" || wisdom[0].Title != "Išmintis" {
		t.Errorf("wisdom = %+v", wisdom)
	}
}

func TestImportExcelTwiceUpdates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "content.xlsx")
	f := excelize.NewFile()
	rows := [][]interface{}{
		{"set_id", "set_title", "set_subtitle", "kind", "item_id", "order", "type", "title", "content"},
		{"oras", "Laisvės vėjas", "", "paragraph", "p1", 1, "", "", "Oras nematomas"},
		{"oras", "", "", "wisdom", "w1", "", "quote", "Išmintis", "Laisvė kaip oras"},
	}
	for i, row := range rows {
		r := row
		addr, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow("Sheet1", addr, &r); err != nil {
			t.Fatalf("SetSheetRow: %v", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("SaveAs: %v", err)
	}
	f.Close()

	store := database.NewMemoryStore()
	config := DefaultImportConfig()
	config.FilePath = path
	im := NewImporter(store)
	ctx := context.Background()

	first, err := im.Import(ctx, config)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if first.SetsCreated != 1 || first.Paragraphs != 1 || first.Wisdom != 1 || len(first.Errors) != 0 {
		t.Errorf("first import = %+v", first)
	}

	second, err := im.Import(ctx, config)
	if err != nil {
		t.Fatalf("second Import: %v", err)
	}
	if second.SetsCreated != 0 || second.SetsUpdated != 1 {
		t.Errorf("second import = %+v", second)
	}
	if n := len(store.Rows(database.TableParagraphs)); n != 1 {
		t.Errorf("paragraph rows = %d, want 1", n)
	}
}

func TestImportMissingFile(t *testing.T) {
	config := DefaultImportConfig()
	config.FilePath = filepath.Join(t.TempDir(), "missing.csv")
	if _, err := NewImporter(database.NewMemoryStore()).Import(context.Background(), config); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestColumnToIndex(t *testing.T) {
	tests := map[string]int{"A": 0, "i": 8, "Z": 25, "AA": 26}
	for col, want := range tests {
		if got := columnToIndex(col); got != want {
			t.Errorf("columnToIndex(%q) = %d, want %d", col, got, want)
		}
	}
}
