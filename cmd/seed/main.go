// Package main loads course and enrollment fixtures into the database.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"tagattend/internal/attendance"
	"tagattend/internal/config"
	"tagattend/internal/seed"
	"tagattend/internal/store"
)

func main() {
	var file string
	var dryRun bool
	flag.StringVar(&file, "file", "fixtures/courses.yaml", "fixture file")
	flag.BoolVar(&dryRun, "dry-run", false, "validate the fixtures without writing")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, file, dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, file string, dryRun bool) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	fixtures, err := seed.Parse(f)
	if err != nil {
		return err
	}
	if dryRun {
		fmt.Printf("%s: %d courses, %d enrollments OK\n", file, len(fixtures.Courses), len(fixtures.Enrollments))
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	db, err := store.NewDB(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := store.Migrate(ctx, db); err != nil {
		return err
	}

	if err := seed.Apply(ctx, attendance.NewRepository(db.Client), fixtures); err != nil {
		return err
	}
	fmt.Printf("seeded %d courses, %d enrollments\n", len(fixtures.Courses), len(fixtures.Enrollments))
	return nil
}
