package jobs

import (
	"context"
	"errors"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/internal/portfolio"
	"github.com/wonny/quantfolio/pkg/logger"
)

// PortfolioOperator is the part of portfolio.Manager the jobs drive
type PortfolioOperator interface {
	Update(ctx context.Context) (*portfolio.Report, error)
	Rebalance(ctx context.Context) (*portfolio.Report, error)
}

// UpdateJob marks the portfolio to market
type UpdateJob struct {
	operator PortfolioOperator
	schedule string
	logger   *logger.Logger
}

// NewUpdateJob creates a new mark-to-market job
func NewUpdateJob(operator PortfolioOperator, schedule string, log *logger.Logger) *UpdateJob {
	return &UpdateJob{
		operator: operator,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *UpdateJob) Name() string {
	return "portfolio_update"
}

// Schedule returns the cron schedule (default: weekdays after the close)
func (j *UpdateJob) Schedule() string {
	return j.schedule
}

// Run executes the update
func (j *UpdateJob) Run(ctx context.Context) error {
	report, err := j.operator.Update(ctx)
	if err != nil {
		return skipUninitialized(j.logger, j.Name(), err)
	}

	j.logger.WithFields(map[string]interface{}{
		"holdings":    len(report.Holdings),
		"total_value": report.Snapshot.TotalValue.StringFixed(2),
	}).Info("Scheduled update completed")
	return nil
}

// RebalanceJob re-ranks the universe and trades toward the new targets
type RebalanceJob struct {
	operator PortfolioOperator
	schedule string
	logger   *logger.Logger
}

// NewRebalanceJob creates a new rebalance job
func NewRebalanceJob(operator PortfolioOperator, schedule string, log *logger.Logger) *RebalanceJob {
	return &RebalanceJob{
		operator: operator,
		schedule: schedule,
		logger:   log,
	}
}

// Name returns the job name
func (j *RebalanceJob) Name() string {
	return "portfolio_rebalance"
}

// Schedule returns the cron schedule (default: first day of the month)
func (j *RebalanceJob) Schedule() string {
	return j.schedule
}

// Run executes the rebalance
func (j *RebalanceJob) Run(ctx context.Context) error {
	report, err := j.operator.Rebalance(ctx)
	if err != nil {
		return skipUninitialized(j.logger, j.Name(), err)
	}

	j.logger.WithFields(map[string]interface{}{
		"holdings":    len(report.Holdings),
		"orders":      len(report.Orders),
		"total_value": report.Snapshot.TotalValue.StringFixed(2),
	}).Info("Scheduled rebalance completed")
	return nil
}

// skipUninitialized turns "portfolio not created yet" into a no-op run
func skipUninitialized(log *logger.Logger, job string, err error) error {
	if errors.Is(err, contracts.ErrInvalidState) {
		log.WithField("job", job).Warn("Portfolio not created yet, skipping")
		return nil
	}
	return err
}
