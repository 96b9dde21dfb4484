package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/completion-engine/internal/app"
	"github.com/yungbote/completion-engine/internal/platform/dbctx"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*l = append(*l, part)
		}
	}
	return nil
}

func main() {
	var enrollments idList
	var course string
	var concurrency int
	var dryRun bool
	flag.Var(&enrollments, "enrollment", "enrollment_id to recompute (repeatable or comma separated)")
	flag.StringVar(&course, "course", "", "recompute every enrollment of this course_id")
	flag.IntVar(&concurrency, "concurrency", 4, "parallel recomputes")
	flag.BoolVar(&dryRun, "dry-run", false, "print planned enrollments without recomputing")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx)
	if err != nil {
		fmt.Printf("init app: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ids := make([]uuid.UUID, 0, len(enrollments))
	for _, s := range enrollments {
		id, err := uuid.Parse(s)
		if err != nil || id == uuid.Nil {
			fmt.Printf("skipping invalid enrollment_id %q\n", s)
			continue
		}
		ids = append(ids, id)
	}
	if course != "" {
		courseID, err := uuid.Parse(strings.TrimSpace(course))
		if err != nil {
			fmt.Printf("invalid course_id %q\n", course)
			os.Exit(1)
		}
		byCourse, err := application.Repos.Enrollments.ListIDsByCourseID(dbctx.Context{Ctx: ctx}, courseID)
		if err != nil {
			fmt.Printf("list enrollments: %v\n", err)
			os.Exit(1)
		}
		ids = append(ids, byCourse...)
	}
	if len(ids) == 0 {
		fmt.Println("no enrollments to recompute; pass -enrollment or -course")
		return
	}

	if dryRun {
		for _, id := range ids {
			fmt.Printf("[dry-run] recompute enrollment_id=%s\n", id)
		}
		return
	}

	if concurrency < 1 {
		concurrency = 1
	}
	var done, failed, completed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, id := range ids {
		g.Go(func() error {
			res, err := application.Services.Aggregate.Recalculate(gctx, id)
			if err != nil {
				failed.Add(1)
				fmt.Printf("recompute failed enrollment_id=%s: %v\n", id, err)
				return nil
			}
			done.Add(1)
			if res.Transitioned {
				completed.Add(1)
			}
			fmt.Printf("enrollment_id=%s progress=%.2f completed=%t\n", id, res.ProgressPercentage, res.Completed)
			return nil
		})
	}
	_ = g.Wait()

	fmt.Printf("done; recomputed=%d newly_completed=%d failed=%d\n", done.Load(), completed.Load(), failed.Load())
	if failed.Load() > 0 {
		os.Exit(1)
	}
}
