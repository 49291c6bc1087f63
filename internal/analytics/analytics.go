// Package analytics computes per-owner task statistics: completion counts, a
// trailing seven day creation histogram and the tag distribution.
//
// Days are UTC calendar dates. The histogram only carries days that saw at
// least one task created; callers that need a dense series use FillWeek.
package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	// DateLayout is the format of DayCount.Date
	DateLayout = "2006-01-02"

	// WindowDays is the length of the creation histogram, today included
	WindowDays = 7
)

type DayCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

type TagCount struct {
	Tag   string `json:"tag"`
	Count int64  `json:"count"`
}

type Summary struct {
	TotalTasks     int64      `json:"totalTasks"`
	CompletedTasks int64      `json:"completedTasks"`
	PendingTasks   int64      `json:"pendingTasks"`
	WeeklyTasks    []DayCount `json:"weeklyTasks"`
	TagStats       []TagCount `json:"tagStats"`
}

// Store provides the raw figures the aggregator combines. The calls are
// independent and need not observe the same snapshot.
//
// CountCreatedPerDay groups the owner's tasks created at or after since by
// their UTC creation date. ListTagSets returns the tag list of every task of
// the owner, in listing order (order ascending, newest first on ties).
type Store interface {
	CountTasks(ctx context.Context, ownerID uuid.UUID, completed *bool) (int64, error)
	CountCreatedPerDay(ctx context.Context, ownerID uuid.UUID, since time.Time) ([]DayCount, error)
	ListTagSets(ctx context.Context, ownerID uuid.UUID) ([][]string, error)
}

type Aggregator struct {
	store Store
	now   func() time.Time
}

// Option customizes an Aggregator
type Option func(*Aggregator)

// WithClock replaces the wall clock used to place the weekly window.
func WithClock(now func() time.Time) Option {
	return func(a *Aggregator) {
		a.now = now
	}
}

func NewAggregator(store Store, opts ...Option) *Aggregator {
	a := &Aggregator{store: store, now: time.Now}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Summarize computes the statistics of ownerID. An owner without tasks gets
// zero counts and empty lists.
func (a *Aggregator) Summarize(ctx context.Context, ownerID uuid.UUID) (*Summary, error) {
	total, err := a.store.CountTasks(ctx, ownerID, nil)
	if err != nil {
		return nil, fmt.Errorf("count tasks: %w", err)
	}

	done := true
	completed, err := a.store.CountTasks(ctx, ownerID, &done)
	if err != nil {
		return nil, fmt.Errorf("count completed tasks: %w", err)
	}

	now := a.now()
	start := WindowStart(now)
	days, err := a.store.CountCreatedPerDay(ctx, ownerID, start)
	if err != nil {
		return nil, fmt.Errorf("count created per day: %w", err)
	}

	tagSets, err := a.store.ListTagSets(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}

	return &Summary{
		TotalTasks:     total,
		CompletedTasks: completed,
		PendingTasks:   total - completed,
		WeeklyTasks:    compactWeek(days, start, now),
		TagStats:       CountTags(tagSets),
	}, nil
}

// WindowStart returns UTC midnight of the first day of the weekly window
// ending on now's UTC date.
func WindowStart(now time.Time) time.Time {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return today.AddDate(0, 0, -(WindowDays - 1))
}

// compactWeek merges rows reported for the same date, drops empty or
// out-of-window dates and sorts the rest ascending.
func compactWeek(days []DayCount, start, now time.Time) []DayCount {
	first := start.Format(DateLayout)
	last := now.UTC().Format(DateLayout)

	counts := make(map[string]int64, len(days))
	for _, d := range days {
		if d.Count <= 0 || d.Date < first || d.Date > last {
			continue
		}
		counts[d.Date] += d.Count
	}

	out := make([]DayCount, 0, len(counts))
	for date, count := range counts {
		out = append(out, DayCount{Date: date, Count: count})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// FillWeek expands a sparse histogram to exactly WindowDays entries ending on
// now's UTC date, using zero for missing days.
func FillWeek(days []DayCount, now time.Time) []DayCount {
	counts := make(map[string]int64, len(days))
	for _, d := range days {
		counts[d.Date] += d.Count
	}

	start := WindowStart(now)
	out := make([]DayCount, WindowDays)
	for i := range out {
		date := start.AddDate(0, 0, i).Format(DateLayout)
		out[i] = DayCount{Date: date, Count: counts[date]}
	}
	return out
}

// FillWeek expands days to a dense histogram of the window ending today
func (a *Aggregator) FillWeek(days []DayCount) []DayCount {
	return FillWeek(days, a.now())
}

// CountTags counts how many tag sets carry each tag. A tag repeated inside one
// set counts once. The result is sorted by count, highest first; equal counts
// keep the order in which the tags were first seen.
func CountTags(tagSets [][]string) []TagCount {
	out := make([]TagCount, 0)
	index := make(map[string]int)
	for _, tags := range tagSets {
		seen := make(map[string]struct{}, len(tags))
		for _, tag := range tags {
			if _, dup := seen[tag]; dup {
				continue
			}
			seen[tag] = struct{}{}

			if i, ok := index[tag]; ok {
				out[i].Count++
				continue
			}
			index[tag] = len(out)
			out = append(out, TagCount{Tag: tag, Count: 1})
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Count > out[j].Count })
	return out
}
