package api

import (
	"net/http"
	"time"

	"github.com/amishk599/bankradar/internal/aggregator"
	"github.com/amishk599/bankradar/internal/filter"
	"github.com/amishk599/bankradar/internal/model"
)

type liveJobsResponse struct {
	Jobs  []model.Posting `json:"jobs"`
	Count int             `json:"count"`
	Error string          `json:"error,omitempty"`
}

// handleLiveJobs fetches one source on demand. Upstream failures still
// answer 200 with an empty list.
func (s *Server) handleLiveJobs(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("source")
	src, err := s.liveSource(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	start := time.Now()
	postings, err := src.Fetch(r.Context())
	if err != nil {
		s.logger.Warn("live fetch failed", "source", key, "error", err)
		writeJSON(w, http.StatusOK, liveJobsResponse{Jobs: []model.Posting{}, Error: err.Error()})
		return
	}

	jobs := aggregator.Merge([]aggregator.Result{{
		Key:      src.Key(),
		Name:     src.Name(),
		Postings: postings,
		Elapsed:  time.Since(start),
	}})
	if jobs == nil {
		jobs = []model.Posting{}
	}
	writeJSON(w, http.StatusOK, liveJobsResponse{Jobs: jobs, Count: len(jobs)})
}

type recentJob struct {
	Link          string  `json:"link"`
	Title         string  `json:"title"`
	Location      string  `json:"location"`
	Bank          string  `json:"bank"`
	BankKey       string  `json:"bankKey"`
	Category      string  `json:"category"`
	PostedDate    *string `json:"postedDate"`
	DetectedAt    int64   `json:"detectedAt"`  // unix ms
	EffectiveAt   int64   `json:"effectiveAt"` // unix ms, min(detected, posted)
	HasActualDate bool    `json:"hasActualDate"`
}

type jobsNewResponse struct {
	Last48h       []recentJob `json:"last48h"`
	ThisWeek      []recentJob `json:"thisWeek"`
	Last48hCount  int         `json:"last48hCount"`
	ThisWeekCount int         `json:"thisWeekCount"`
}

func toRecentJob(r model.FirstSeenRecord) recentJob {
	j := recentJob{
		Link:          r.Link,
		Title:         r.Title,
		Location:      r.Location,
		Bank:          r.Bank,
		BankKey:       r.BankKey,
		Category:      r.Category,
		DetectedAt:    r.DetectedAt.UnixMilli(),
		EffectiveAt:   r.EffectiveAge().UnixMilli(),
		HasActualDate: r.PostedDate != nil,
	}
	if r.PostedDate != nil {
		d := r.PostedDate.UTC().Format(time.RFC3339)
		j.PostedDate = &d
	}
	return j
}

// handleJobsNew serves the recent view. Counts are always visible; the
// lists only for the pro tier.
func (s *Server) handleJobsNew(w http.ResponseWriter, r *http.Request) {
	now := s.now().UTC()
	records, err := s.deps.Freshness.ListRecent(r.Context(), now, s.cfg.ThisWeek)
	if err != nil {
		s.logger.Error("listing recent postings", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load recent postings")
		return
	}

	resp := jobsNewResponse{Last48h: []recentJob{}, ThisWeek: []recentJob{}}
	pro := r.Header.Get(HeaderTier) == TierPro
	cutoff := now.Add(-s.cfg.Last48h)
	for _, rec := range records {
		if !filter.IsAnalystOrIntern(rec.Title) {
			continue
		}
		in48h := !rec.EffectiveAge().Before(cutoff)
		resp.ThisWeekCount++
		if in48h {
			resp.Last48hCount++
		}
		if !pro {
			continue
		}
		j := toRecentJob(rec)
		resp.ThisWeek = append(resp.ThisWeek, j)
		if in48h {
			resp.Last48h = append(resp.Last48h, j)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
