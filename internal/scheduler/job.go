package scheduler

import (
	"context"
	"time"
)

// maxHistory bounds the per-job result log
const maxHistory = 100

// Job is a portfolio operation triggered on a cron schedule
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run performs one execution; an error triggers the scheduler's retry
	Run(ctx context.Context) error

	// Schedule returns a robfig/cron spec with seconds, e.g. "0 30 16 * * 1-5" or "@monthly"
	Schedule() string
}

// JobResult is the outcome of one scheduled execution including its retries
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
}

// JobStats summarizes a job's recorded runs
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}

// JobHistory keeps the most recent results of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// AddResult appends a result, dropping the oldest past maxHistory
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > maxHistory {
		h.Results = h.Results[len(h.Results)-maxHistory:]
	}
}

// Summarize folds the history into run counts and last outcome times
func (h *JobHistory) Summarize(jobName, schedule string) JobStats {
	stats := JobStats{
		JobName:   jobName,
		Schedule:  schedule,
		TotalRuns: len(h.Results),
	}

	for _, r := range h.Results {
		start := r.StartTime
		stats.LastRun = &start
		if r.Success {
			stats.SuccessCount++
			stats.LastSuccess = &start
		} else {
			stats.FailureCount++
			stats.LastFailure = &start
		}
	}

	if stats.TotalRuns > 0 {
		stats.SuccessRate = float64(stats.SuccessCount) / float64(stats.TotalRuns)
	}
	return stats
}
