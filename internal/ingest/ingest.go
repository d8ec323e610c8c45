// Package ingest loads product catalogs into the vector index. It reads
// channel-dump JSON files (one file per sales channel, each a list of posts)
// and converts posts into products with a best-effort price extraction, or
// seeds the built-in sample catalog when no dataset is given. Seeding is
// idempotent: products already in the index are skipped unless a fresh run
// is requested.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/hunterwarburton/porsa/internal/core"
	"github.com/hunterwarburton/porsa/internal/logger"
	"github.com/hunterwarburton/porsa/internal/normalize"
	"github.com/hunterwarburton/porsa/internal/rag"
)

// nameRuneLimit caps how much of a post's text becomes the product name.
const nameRuneLimit = 100

// pricePattern matches a number followed by a toman or million marker. The
// digit class admits both ASCII and Persian group separators.
var pricePattern = regexp.MustCompile(`([0-9][0-9,،٬]*)\s*(میلیون|تومان)`)

var separatorStripper = strings.NewReplacer(",", "", "،", "", "٬", "")

// Post is one message from a sales channel dump.
type Post struct {
	ID    int64  `json:"id"`
	Text  string `json:"text"`
	Date  string `json:"date,omitempty"`
	Views int64  `json:"views,omitempty"`
}

// LoadPosts reads one channel dump file.
func LoadPosts(path string) ([]Post, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var posts []Post
	if err := json.Unmarshal(data, &posts); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return posts, nil
}

// PostToProduct converts one channel post into a product. The post text
// doubles as name (truncated) and description; availability defaults to in
// stock since channels rarely advertise what they cannot sell.
func PostToProduct(post Post, channel string) core.Product {
	name := firstRunes(post.Text, nameRuneLimit)
	if name == "" {
		name = fmt.Sprintf("محصول %d", post.ID)
	}

	features := map[string]interface{}{
		"channel": channel,
		"post_id": post.ID,
	}
	if post.Date != "" {
		features["date"] = post.Date
	}
	if post.Views > 0 {
		features["views"] = post.Views
	}

	return core.Product{
		ID:          fmt.Sprintf("%s_%d", channel, post.ID),
		Name:        name,
		Price:       ExtractPrice(post.Text),
		Currency:    "تومان",
		InStock:     true,
		Description: post.Text,
		Features:    features,
	}
}

// ExtractPrice pulls the first price mention out of free text. A number
// marked میلیون is scaled to toman; a number marked تومان is taken as-is.
// Returns 0 when nothing matches.
func ExtractPrice(text string) int64 {
	m := pricePattern.FindStringSubmatch(normalize.FoldDigits(text))
	if m == nil {
		return 0
	}

	value, err := strconv.ParseInt(separatorStripper.Replace(m[1]), 10, 64)
	if err != nil {
		return 0
	}
	if m[2] == "میلیون" {
		value *= 1_000_000
	}
	return value
}

// Options tune a seeding run.
type Options struct {
	// Fresh skips the existence check and overwrites whatever is indexed.
	Fresh bool
	// BatchSize bounds how many passages go to the embedder per call.
	BatchSize int
}

// Seeder writes products and their embeddings into the vector index.
type Seeder struct {
	embedder core.EmbedService
	store    core.ProductStore
	opts     Options
}

// New builds a seeder. A zero BatchSize defaults to 16.
func New(embedder core.EmbedService, store core.ProductStore, opts Options) *Seeder {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 16
	}
	return &Seeder{embedder: embedder, store: store, opts: opts}
}

// Seed upserts the products that are not already indexed and reports how
// many were written.
func (s *Seeder) Seed(ctx context.Context, products []core.Product) (int, error) {
	pending := make([]core.Product, 0, len(products))
	skipped := 0
	for _, p := range products {
		if p.ID == "" || p.Name == "" {
			logger.IngestWarn("Skipping product with missing id or name (id=%q)", p.ID)
			continue
		}
		if !s.opts.Fresh {
			_, exists, err := s.store.Get(ctx, p.ID)
			if err != nil {
				return 0, fmt.Errorf("failed to check product %s: %w", p.ID, err)
			}
			if exists {
				skipped++
				continue
			}
		}
		pending = append(pending, p)
	}

	written := 0
	for start := 0; start < len(pending); start += s.opts.BatchSize {
		end := start + s.opts.BatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		texts := make([]string, len(batch))
		for i, p := range batch {
			texts[i] = rag.EmbedText(p)
		}
		vectors, err := s.embedder.EmbedPassages(ctx, texts)
		if err != nil {
			return written, fmt.Errorf("failed to embed batch of %d products: %w", len(batch), err)
		}
		if err := s.store.Upsert(ctx, batch, vectors); err != nil {
			return written, fmt.Errorf("failed to upsert batch of %d products: %w", len(batch), err)
		}
		written += len(batch)
		logger.IngestDebug("Upserted %d/%d products", written, len(pending))
	}

	logger.IngestInfo("Seeded %d new products, %d already present", written, skipped)
	return written, nil
}

// SeedDir ingests every channel dump in dir, deriving the channel name from
// the file name.
func (s *Seeder) SeedDir(ctx context.Context, dir string) (int, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", dir, err)
	}
	if len(paths) == 0 {
		return 0, fmt.Errorf("no channel dumps found in %s", dir)
	}

	total := 0
	for _, path := range paths {
		posts, err := LoadPosts(path)
		if err != nil {
			return total, err
		}
		channel := strings.TrimSuffix(filepath.Base(path), ".json")

		products := make([]core.Product, 0, len(posts))
		for _, post := range posts {
			products = append(products, PostToProduct(post, channel))
		}

		written, err := s.Seed(ctx, products)
		total += written
		if err != nil {
			return total, err
		}
		logger.IngestInfo("Processed %s: %d posts", filepath.Base(path), len(posts))
	}
	return total, nil
}

// firstRunes truncates on rune boundaries; a byte slice would cut Persian
// text mid-character.
func firstRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return strings.TrimSpace(string(runes[:n]))
}
