package pipeline

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"shopforge/internal/tabular"
)

var imageExts = map[string]bool{".png": true, ".jpg": true, ".jpeg": true, ".webp": true}

// ImageRecord associates one renamed image asset with a product handle.
// Position is 1-based and strictly increasing per handle with no gaps.
type ImageRecord struct {
	Handle      string
	Title       string
	OrigPath    string
	NewFilename string
	NewPath     string
	Alt         string
	Position    int
}

type ImageOptions struct {
	ImagesDir  string
	OutputDir  string
	PerProduct int
	Gen        Generator // nil: heuristic alt text only
}

const altSystemPrompt = "You write concise, descriptive ALT text for product images."

// PrepareImages assigns raw images round-robin to products (up to the
// per-product cap), copies each under an SEO filename slug(title)-N.ext,
// and produces alt text. Stops when either products or images run out.
func PrepareImages(products *tabular.Table, opts ImageOptions) ([]ImageRecord, error) {
	if err := products.RequireColumns("products CSV", "Title"); err != nil {
		return nil, err
	}
	if opts.PerProduct < 1 {
		opts.PerProduct = 3
	}
	imgs, err := discoverImages(opts.ImagesDir)
	if err != nil {
		return nil, err
	}
	if len(imgs) == 0 {
		return nil, nil
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	var records []ImageRecord
	i := 0
	for _, row := range products.Rows {
		title := tabular.Get(row, "Title")
		tags := tabular.Get(row, "Tags")
		handle := Slugify(title)
		alt := altText(opts.Gen, title, tags)

		for assigned := 0; assigned < opts.PerProduct && i < len(imgs); assigned++ {
			src := imgs[i]
			i++
			position := assigned + 1

			stem := Slugify(fmt.Sprintf("%s-%d", title, position))
			newName := stem + strings.ToLower(filepath.Ext(src))
			newPath := filepath.Join(opts.OutputDir, newName)
			if err := copyFile(src, newPath); err != nil {
				return nil, fmt.Errorf("copy image %s: %w", src, err)
			}

			records = append(records, ImageRecord{
				Handle:      handle,
				Title:       title,
				OrigPath:    src,
				NewFilename: newName,
				NewPath:     newPath,
				Alt:         alt,
				Position:    position,
			})
		}
		if i >= len(imgs) {
			break
		}
	}
	return records, nil
}

// MappingTable renders the reference mapping artifact.
func MappingTable(records []ImageRecord) *tabular.Table {
	t := &tabular.Table{Columns: []string{"handle", "title", "orig_path", "new_filename", "new_path", "alt"}}
	for _, r := range records {
		t.Rows = append(t.Rows, map[string]string{
			"handle":       r.Handle,
			"title":        r.Title,
			"orig_path":    r.OrigPath,
			"new_filename": r.NewFilename,
			"new_path":     r.NewPath,
			"alt":          r.Alt,
		})
	}
	return t
}

// ImageTable renders the image import artifact consumed by the merge stage.
func ImageTable(records []ImageRecord) *tabular.Table {
	t := &tabular.Table{Columns: ImageColumns}
	for _, r := range records {
		t.Rows = append(t.Rows, map[string]string{
			"Handle":         r.Handle,
			"Image Src":      r.NewFilename,
			"Image Alt Text": r.Alt,
			"Image Position": strconv.Itoa(r.Position),
		})
	}
	return t
}

// altText asks the gateway for alt text when a generator is configured and
// degrades to the heuristic on any failure.
func altText(gen Generator, title, tags string) string {
	if gen == nil {
		return heuristicAlt(title, tags)
	}
	user := fmt.Sprintf("Write a concise, descriptive ALT text (max 12 words) for an e-commerce product image. "+
		"No emojis, no promotional fluff. Include 1-2 key attributes.\nTITLE: %s\nTAGS: %s", title, tags)
	out, err := gen.GenerateText(altSystemPrompt, user, 60, 0.3)
	if err != nil || strings.TrimSpace(out) == "" {
		log.Printf("stage=images alt fallback title=%q err=%v", title, err)
		return heuristicAlt(title, tags)
	}
	return truncate(strings.TrimSpace(out), 120)
}

func heuristicAlt(title, tags string) string {
	base := strings.TrimSpace(title)
	var extra []string
	for _, t := range strings.Split(tags, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			extra = append(extra, t)
		}
		if len(extra) == 3 {
			break
		}
	}
	if len(extra) > 0 {
		return fmt.Sprintf("%s — %s", base, strings.Join(extra, ", "))
	}
	return base
}

func discoverImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read images dir: %w", err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(e.Name()))] {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(out)
	return out, nil
}

// WriteURLMapTemplate lists the renamed images and writes the
// new_filename,url template with blank URLs for manual fill-in after
// upload. Returns the number of filenames written.
func WriteURLMapTemplate(imagesDir, outPath string) (int, error) {
	files, err := discoverImages(imagesDir)
	if err != nil {
		return 0, err
	}
	t := &tabular.Table{Columns: []string{"new_filename", "url"}}
	for _, f := range files {
		t.Rows = append(t.Rows, map[string]string{"new_filename": filepath.Base(f), "url": ""})
	}
	if err := t.WriteFile(outPath); err != nil {
		return 0, err
	}
	return len(files), nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer out.Close()
	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
