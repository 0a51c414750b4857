package strategyconfig

// Config는 랭킹/리밸런싱 전략의 전체 설정
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Universe  Universe  `yaml:"universe" json:"universe"`
	Momentum  Momentum  `yaml:"momentum" json:"momentum"`
	Portfolio Portfolio `yaml:"portfolio" json:"portfolio"`
	Fetch     Fetch     `yaml:"fetch" json:"fetch"`
	Quality   Quality   `yaml:"quality" json:"quality"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Universe 후보군: 지수 비중 상위 N개
type Universe struct {
	CandidateCount int `yaml:"candidate_count" json:"candidate_count"`
}

// Momentum 월평균 수익률 계산
type Momentum struct {
	Range               string `yaml:"range" json:"range"` // provider range notation, e.g. "3m"
	TradingDaysPerMonth int    `yaml:"trading_days_per_month" json:"trading_days_per_month"`
}

// Portfolio 동일 금액 가중 포트폴리오
type Portfolio struct {
	TopN        int      `yaml:"top_n" json:"top_n"`
	UpdateRange string   `yaml:"update_range" json:"update_range"` // mark-to-market price window
	Exclude     []string `yaml:"exclude" json:"exclude"`           // never bought
}

// Fetch 외부 데이터 조회 샤딩
type Fetch struct {
	Workers    int `yaml:"workers" json:"workers"`       // 0 = runtime/env default
	ChunkSize  int `yaml:"chunk_size" json:"chunk_size"` // 0 = ceil(n / workers)
	BatchLimit int `yaml:"batch_limit" json:"batch_limit"`
}

// Quality 데이터 커버리지 임계값
type Quality struct {
	MinPriceCoverage        float64 `yaml:"min_price_coverage" json:"min_price_coverage"`
	MinFundamentalsCoverage float64 `yaml:"min_fundamentals_coverage" json:"min_fundamentals_coverage"`
}

// Default returns the built-in strategy used when no file is configured
func Default() *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "sp500_value_momentum",
			Version:    "1.0.0",
		},
		Universe: Universe{CandidateCount: 25},
		Momentum: Momentum{
			Range:               "3m",
			TradingDaysPerMonth: 21,
		},
		Portfolio: Portfolio{
			TopN:        10,
			UpdateRange: "5d",
		},
		Fetch: Fetch{
			BatchLimit: 100,
		},
		Quality: Quality{
			MinPriceCoverage:        0.80,
			MinFundamentalsCoverage: 0.80,
		},
	}
}
