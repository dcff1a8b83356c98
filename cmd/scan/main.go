// Package main runs a scan kiosk: a keyboard-wedge tag reader types one tag
// id per line on stdin and each read marks attendance for the student.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"tagattend/internal/attendance"
	"tagattend/internal/config"
	"tagattend/internal/scanner"
	"tagattend/internal/store"
)

func main() {
	var studentID string
	var once bool
	flag.StringVar(&studentID, "student", "", "student id to mark (required)")
	flag.BoolVar(&once, "once", false, "exit after the first scan")
	flag.Parse()

	if studentID == "" {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, studentID, once, os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, studentID string, once bool, in io.Reader, out io.Writer) error {
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

	pipeline := attendance.NewPipeline(attendance.NewRepository(db.Client), attendance.WithLocation(cfg.Location))
	return loop(ctx, pipeline, scanner.NewLineScanner(in), studentID, once, out)
}

// loop scans until the reader is exhausted, ctx ends or once is set.
func loop(ctx context.Context, p *attendance.Pipeline, sc scanner.Scanner, studentID string, once bool, out io.Writer) error {
	for {
		fmt.Fprintln(out, "Hold the tag near the reader...")
		res := p.Scan(ctx, sc, studentID)
		fmt.Fprintln(out, describe(res))

		// The line scanner reports end of input as ErrNoTag.
		if errors.Is(res.Err, scanner.ErrCancelled) || errors.Is(res.Err, scanner.ErrNoTag) {
			return nil
		}
		if once {
			return nil
		}
	}
}

func describe(out attendance.Outcome) string {
	if out.Recorded() {
		return fmt.Sprintf("OK %s: %s (%s)", out.CourseName(), out.Status, out.Record.SessionDate)
	}
	msg := out.Reason.Message()
	if out.Err != nil {
		msg += ": " + out.Err.Error()
	}
	return fmt.Sprintf("FAILED %s: %s", out.Reason, msg)
}
