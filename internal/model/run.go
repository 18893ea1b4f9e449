package model

import "time"

// RunSummary describes one ingestion pass for reporting.
type RunSummary struct {
	RunID    string
	Started  time.Time
	Elapsed  time.Duration
	Sources  int
	Failed   []string // keys of sources that returned an error
	Fetched  int      // postings after merge
	Fresh    int
	Queued   int
	Pruned   int
	TimedOut bool
}

// DispatchSummary describes one queue drain.
type DispatchSummary struct {
	Items            int // queue items processed, dropped ones included
	Subscribers      int
	Dropped          int // items for unknown subscribers or unreadable snapshots
	Sent             map[string]int
	Failed           map[string]int
	NothingFoundSent int
}
