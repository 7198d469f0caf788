// Command mortality-import loads the county reference and mortality CSV
// exports into the sqlite store served by mortality-server.
//
// Usage:
//
//	mortality-import -db mortality.db -counties data/points.csv -facts data/cdc-mortality.csv
//	mortality-import -db mortality.db migrate up|down|version
//	mortality-import -db mortality.db runs
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/banshee-data/mortality.report/internal/dataset"
	"github.com/banshee-data/mortality.report/internal/db"
	"github.com/banshee-data/mortality.report/internal/version"
)

var (
	dbPath      = flag.String("db", "mortality.db", "Path to the sqlite store")
	countiesCSV = flag.String("counties", "data/points.csv", "County reference CSV")
	factsCSV    = flag.String("facts", "data/cdc-mortality.csv", "Mortality fact CSV")
	runsLimit   = flag.Int("limit", 10, "Number of import runs listed by the runs command")
	showVersion = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{DBPath: *dbPath, Counties: *countiesCSV, Facts: *factsCSV, Limit: *runsLimit}
	if err := run(ctx, os.Stdout, opts, flag.Args()); err != nil {
		log.Fatal(err)
	}
}

type options struct {
	DBPath   string
	Counties string
	Facts    string
	Limit    int
}

func run(ctx context.Context, out io.Writer, opts options, args []string) error {
	if len(args) > 0 && args[0] == "migrate" {
		return runMigrate(out, opts.DBPath, args[1:])
	}

	store, err := db.Open(opts.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	if len(args) > 0 {
		switch args[0] {
		case "runs":
			return listRuns(ctx, out, store, opts.Limit)
		default:
			return fmt.Errorf("unknown command %q", args[0])
		}
	}

	imported, err := importTables(ctx, store, opts.Counties, opts.Facts)
	if err != nil {
		return err
	}
	return writeJSON(out, imported)
}

// importTables replaces the store's contents with the two CSV exports and
// records the run.
func importTables(ctx context.Context, store *db.DB, countiesPath, factsPath string) (db.ImportRun, error) {
	tables, err := dataset.FromCSV(countiesPath, factsPath)
	if err != nil {
		return db.ImportRun{}, err
	}

	nc, err := store.ImportCounties(ctx, tables.Counties)
	if err != nil {
		return db.ImportRun{}, fmt.Errorf("import counties: %w", err)
	}
	nr, err := store.ImportRecords(ctx, tables.Facts)
	if err != nil {
		return db.ImportRun{}, fmt.Errorf("import records: %w", err)
	}
	log.Printf("imported %d counties and %d records into %s", nc, nr, store.Path())

	return store.RecordImportRun(ctx, db.ImportRun{
		CountiesSource: countiesPath,
		FactsSource:    factsPath,
		CountyRows:     nc,
		RecordRows:     nr,
		SkippedRows:    tables.Stats.Skipped,
	})
}

func runMigrate(out io.Writer, path string, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: mortality-import migrate up|down|version")
	}

	// OpenDB skips the automatic MigrateUp so down and version see the
	// schema as it is on disk.
	store, err := db.OpenDB(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	switch args[0] {
	case "up":
		if err := store.MigrateUp(); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
	case "down":
		if err := store.MigrateDown(); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
	case "version":
	default:
		return fmt.Errorf("unknown migrate action %q", args[0])
	}

	v, dirty, err := store.MigrateVersion()
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	fmt.Fprintf(out, "Current version: %d (dirty: %v)\n", v, dirty)
	return nil
}

func listRuns(ctx context.Context, out io.Writer, store *db.DB, limit int) error {
	runs, err := store.ListImportRuns(ctx, limit)
	if err != nil {
		return err
	}
	return writeJSON(out, runs)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
