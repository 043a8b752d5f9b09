package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"shopforge/internal/tabular"
)

func writeFakeImages(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, n := range names {
		if err := os.WriteFile(filepath.Join(dir, n), []byte("img"), 0644); err != nil {
			t.Fatalf("write fake image: %v", err)
		}
	}
}

func TestPrepareImagesRoundRobin(t *testing.T) {
	imagesDir := t.TempDir()
	outDir := filepath.Join(t.TempDir(), "renamed")
	writeFakeImages(t, imagesDir, "IMG_0001.JPG", "IMG_0002.png", "IMG_0003.jpeg", "notes.txt")

	products := &tabular.Table{
		Columns: []string{"Title", "Tags"},
		Rows: []map[string]string{
			{"Title": "Minimal Desk Mat", "Tags": "desk-mat, minimalist"},
			{"Title": "Cable Tray", "Tags": ""},
		},
	}
	records, err := PrepareImages(products, ImageOptions{
		ImagesDir:  imagesDir,
		OutputDir:  outDir,
		PerProduct: 2,
	})
	if err != nil {
		t.Fatalf("PrepareImages failed: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want 3 (all images assigned)", len(records))
	}

	first := records[0]
	if first.Handle != "minimal-desk-mat" || first.Position != 1 {
		t.Fatalf("first record = %+v", first)
	}
	if first.NewFilename != "minimal-desk-mat-1.jpg" {
		t.Fatalf("NewFilename = %q", first.NewFilename)
	}
	if records[1].Position != 2 {
		t.Fatalf("second position = %d", records[1].Position)
	}
	if records[2].Handle != "cable-tray" || records[2].Position != 1 {
		t.Fatalf("third record = %+v", records[2])
	}
	if first.Alt != "Minimal Desk Mat — desk-mat, minimalist" {
		t.Fatalf("heuristic alt = %q", first.Alt)
	}
	if records[2].Alt != "Cable Tray" {
		t.Fatalf("tagless alt = %q", records[2].Alt)
	}

	if _, err := os.Stat(filepath.Join(outDir, "minimal-desk-mat-1.jpg")); err != nil {
		t.Fatalf("renamed copy missing: %v", err)
	}
}

func TestPrepareImagesEmptyDir(t *testing.T) {
	products := &tabular.Table{
		Columns: []string{"Title"},
		Rows:    []map[string]string{{"Title": "Desk Mat"}},
	}
	records, err := PrepareImages(products, ImageOptions{
		ImagesDir: filepath.Join(t.TempDir(), "does-not-exist"),
		OutputDir: t.TempDir(),
	})
	if err != nil {
		t.Fatalf("missing images dir should not fail: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("records = %d, want 0", len(records))
	}
}

func TestImageTable(t *testing.T) {
	records := []ImageRecord{
		{Handle: "desk-mat", NewFilename: "desk-mat-1.jpg", Alt: "Desk mat", Position: 1},
	}
	out := ImageTable(records)
	if len(out.Columns) != len(ImageColumns) {
		t.Fatalf("columns = %v", out.Columns)
	}
	r := out.Rows[0]
	if r["Image Src"] != "desk-mat-1.jpg" || r["Image Position"] != "1" {
		t.Fatalf("row = %+v", r)
	}
}

func TestWriteURLMapTemplate(t *testing.T) {
	imagesDir := t.TempDir()
	writeFakeImages(t, imagesDir, "a.jpg", "b.png")
	outPath := filepath.Join(t.TempDir(), "file_urls.csv")

	n, err := WriteURLMapTemplate(imagesDir, outPath)
	if err != nil {
		t.Fatalf("WriteURLMapTemplate failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("n = %d, want 2", n)
	}

	table, err := tabular.ReadFile(outPath, "")
	if err != nil {
		t.Fatalf("read template: %v", err)
	}
	if table.Columns[0] != "new_filename" || table.Columns[1] != "url" {
		t.Fatalf("columns = %v", table.Columns)
	}
	if table.Rows[0]["new_filename"] != "a.jpg" || table.Rows[0]["url"] != "" {
		t.Fatalf("row = %+v", table.Rows[0])
	}
}
