package loader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"csrdesk/database"
	"csrdesk/model"
	"csrdesk/parsers"
	"csrdesk/resources"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var ErrInvalidCSV = errors.New("invalid csv")

// numericColumns lists the CSV columns stored as numbers per collection.
// Values that do not parse are kept as text.
var numericColumns = map[string][]string{
	"tickets":     {"Quantity", "QtySold", "Amount"},
	"sku_listing": {"QtySold"},
}

// Importer loads CSV files into the document store.
type Importer struct {
	store  *database.Store
	logger *zap.Logger
	// OnImported is called with the collection and row count after each load.
	OnImported func(collection string, n int)
}

func NewImporter(store *database.Store, logger *zap.Logger) *Importer {
	return &Importer{store: store, logger: logger, OnImported: func(string, int) {}}
}

// target resolves an import key to its collection and required CSV headers.
func target(key string) (collection string, required []string, err error) {
	if key == database.UsersResource {
		return database.UsersResource, []string{"ReferenceID"}, nil
	}
	res, err := resources.LookupWritable(key)
	if err != nil {
		return "", nil, err
	}
	if res.RequireCompany {
		required = []string{"CompanyName"}
	}
	return res.Collection, required, nil
}

// Import parses r and inserts every row into the collection behind key.
func (im *Importer) Import(ctx context.Context, key string, r io.Reader) (int, error) {
	collection, required, err := target(key)
	if err != nil {
		return 0, err
	}
	recs, err := parsers.ParseRecordCSV(r, required)
	if err != nil {
		return 0, fmt.Errorf("%w for %s: %w", ErrInvalidCSV, key, err)
	}
	for _, rec := range recs {
		convertNumbers(rec, numericColumns[collection])
	}
	n, err := im.store.InsertMany(ctx, collection, recs)
	if err != nil {
		return 0, err
	}
	im.logger.Info("imported records", zap.String("resource", key), zap.String("collection", collection), zap.Int("rows", n))
	im.OnImported(collection, n)
	return n, nil
}

func convertNumbers(rec model.Record, columns []string) {
	for _, c := range columns {
		s, ok := rec[c].(string)
		if !ok {
			continue
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			rec[c] = f
		}
	}
}

// InitDatabase applies the schema and seeds empty collections from
// <seedDir>/<key>.csv when such a file exists.
func InitDatabase(ctx context.Context, db *sqlx.DB, im *Importer, seedDir string) error {
	im.logger.Info("applying database schema")
	if err := database.ApplySchema(ctx, db); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	if seedDir == "" {
		return nil
	}

	keys := append([]string{database.UsersResource}, resources.Keys()...)
	seeded := make(map[string]bool)
	for _, key := range keys {
		if res, err := resources.Lookup(key); err == nil && res.ReadOnly {
			continue
		}
		path := filepath.Join(seedDir, key+".csv")
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			continue
		}
		collection, _, err := target(key)
		if err != nil {
			return err
		}
		if seeded[collection] {
			continue
		}
		n, err := im.store.Count(ctx, collection)
		if err != nil {
			return err
		}
		if n > 0 {
			im.logger.Info("collection already populated, skipping seed", zap.String("collection", collection), zap.Int("documents", n))
			continue
		}
		if err := im.importFile(ctx, key, path); err != nil {
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
		seeded[collection] = true
	}
	return nil
}

func (im *Importer) importFile(ctx context.Context, key, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("could not open file %s: %w", path, err)
	}
	defer f.Close()
	_, err = im.Import(ctx, key, f)
	return err
}
