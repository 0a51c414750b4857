package portfolio

import "slices"

// Constraints defines portfolio construction constraints
// ⭐ SSOT: 포트폴리오 제약조건은 여기서만
type Constraints struct {
	BlackList []string // 제외 종목 리스트
}

// IsBlackListed checks if a symbol is in the blacklist
func (c *Constraints) IsBlackListed(symbol string) bool {
	return slices.Contains(c.BlackList, symbol)
}

// DefaultConstraints returns default constraint configuration
func DefaultConstraints() Constraints {
	return Constraints{
		BlackList: []string{},
	}
}
