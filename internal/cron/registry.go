package cron

import (
	"context"
	"time"
)

// Job represents a scheduled task that runs inside the cron worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// Entry pairs a job with how often it should run.
type Entry struct {
	Job   Job
	Every time.Duration
}

// Registry tracks registered cron jobs and their cadence.
type Registry struct {
	entries []Entry
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a job. A non-positive interval falls back to daily.
func (r *Registry) Register(job Job, every time.Duration) {
	if job == nil {
		return
	}
	if every <= 0 {
		every = defaultInterval
	}
	r.entries = append(r.entries, Entry{Job: job, Every: every})
}

// Entries returns the registered jobs in the order they were added.
func (r *Registry) Entries() []Entry {
	entries := make([]Entry, len(r.entries))
	copy(entries, r.entries)
	return entries
}
