package strategyconfig

import (
	"fmt"
	"regexp"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// maxBatchLimit is the provider's per-request symbol cap
const maxBatchLimit = 100

var rangeRe = regexp.MustCompile(`^(\d+[dmy]|ytd|max)$`)

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}

	// === Universe / Portfolio ===
	if cfg.Universe.CandidateCount < 1 {
		return ValidationError{"universe.candidate_count", "must be >= 1"}
	}
	if cfg.Portfolio.TopN < 1 {
		return ValidationError{"portfolio.top_n", "must be >= 1"}
	}
	if cfg.Portfolio.TopN > cfg.Universe.CandidateCount {
		return ValidationError{"portfolio.top_n", "must not exceed universe.candidate_count"}
	}
	if err := validateRange(cfg.Portfolio.UpdateRange); err != nil {
		return ValidationError{"portfolio.update_range", err.Error()}
	}

	// === Momentum ===
	if err := validateRange(cfg.Momentum.Range); err != nil {
		return ValidationError{"momentum.range", err.Error()}
	}
	if cfg.Momentum.TradingDaysPerMonth < 1 || cfg.Momentum.TradingDaysPerMonth > 31 {
		return ValidationError{"momentum.trading_days_per_month", "must be in [1, 31]"}
	}

	// === Fetch ===
	if cfg.Fetch.Workers < 0 {
		return ValidationError{"fetch.workers", "must be >= 0"}
	}
	if cfg.Fetch.ChunkSize < 0 {
		return ValidationError{"fetch.chunk_size", "must be >= 0"}
	}
	if cfg.Fetch.BatchLimit < 1 || cfg.Fetch.BatchLimit > maxBatchLimit {
		return ValidationError{"fetch.batch_limit", fmt.Sprintf("must be in [1, %d]", maxBatchLimit)}
	}

	// === Quality ===
	if err := validateRatio(cfg.Quality.MinPriceCoverage); err != nil {
		return ValidationError{"quality.min_price_coverage", err.Error()}
	}
	if err := validateRatio(cfg.Quality.MinFundamentalsCoverage); err != nil {
		return ValidationError{"quality.min_fundamentals_coverage", err.Error()}
	}

	return nil
}

// Warn returns non-fatal recommendations
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Portfolio.TopN == cfg.Universe.CandidateCount {
		warnings = append(warnings, Warning{
			Code:    "RANKING_NO_EFFECT",
			Message: "top_n equals candidate_count; every candidate is bought",
		})
	}

	if cfg.Universe.CandidateCount < 2*cfg.Portfolio.TopN {
		warnings = append(warnings, Warning{
			Code:    "THIN_CANDIDATE_POOL",
			Message: fmt.Sprintf("candidate_count %d leaves little room after dropping incomplete metrics", cfg.Universe.CandidateCount),
		})
	}

	if cfg.Quality.MinPriceCoverage == 0 && cfg.Quality.MinFundamentalsCoverage == 0 {
		warnings = append(warnings, Warning{
			Code:    "QUALITY_GATE_OFF",
			Message: "coverage thresholds are zero",
		})
	}

	return warnings
}

// validateRange checks provider range notation ("5d", "3m", "1y", "ytd", "max")
func validateRange(s string) error {
	if !rangeRe.MatchString(s) {
		return fmt.Errorf("invalid range %q", s)
	}
	return nil
}

func validateRatio(v float64) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("must be in [0, 1], got %v", v)
	}
	return nil
}
