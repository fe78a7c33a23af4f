package main

import (
	"flag"
	"fmt"
	"os"

	"nanodet/internal/journal"
	"nanodet/internal/models"
	"nanodet/internal/repository/sqlite"
)

func main() {
	dbPath := flag.String("db", os.Getenv("DB_PATH"), "Run journal path")
	input := flag.String("input", "", "Only runs of this input image")
	label := flag.String("label", "", "Only runs that detected this label")
	limit := flag.Int("limit", 20, "Maximum number of runs to list")
	offset := flag.Int("offset", 0, "Number of runs to skip")
	show := flag.Int64("show", 0, "Print the detections of one run")
	stats := flag.Bool("stats", false, "Print detection counts per label")
	remove := flag.Int64("delete", 0, "Delete one run and its detections")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "journal: -db or DB_PATH is required")
		flag.Usage()
		os.Exit(-1)
	}

	if err := run(*dbPath, func(r *journal.Reader) error {
		switch {
		case *remove > 0:
			return r.Delete(*remove)
		case *show > 0:
			return r.Show(*show)
		case *stats:
			return r.Stats()
		default:
			return r.List(&models.RunFilter{InputPath: *input, Label: *label, Limit: *limit, Offset: *offset})
		}
	}); err != nil {
		fmt.Fprintf(os.Stderr, "journal: %v\n", err)
		os.Exit(-1)
	}
}

func run(dbPath string, action func(*journal.Reader) error) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}

	db, err := sqlite.New(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	return action(journal.NewReader(sqlite.NewRunRepository(db), sqlite.NewDetectionRepository(db), os.Stdout))
}
