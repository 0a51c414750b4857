package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/wonny/quantfolio/internal/contracts"
	"github.com/wonny/quantfolio/pkg/logger"
	"github.com/wonny/quantfolio/pkg/redis"
)

// UniverseRanker scores the current candidate universe
type UniverseRanker interface {
	Rank(ctx context.Context) ([]contracts.RankedSymbol, *contracts.Universe, error)
}

// RankingHandler handles ranking-related API endpoints
// ⭐ SSOT: 랭킹 API 핸들러는 이 구조체에서만
type RankingHandler struct {
	ranker UniverseRanker
	cache  *redis.Cache
	logger *logger.Logger
}

// NewRankingHandler creates a new ranking handler. cache may be nil.
func NewRankingHandler(ranker UniverseRanker, cache *redis.Cache, log *logger.Logger) *RankingHandler {
	return &RankingHandler{
		ranker: ranker,
		cache:  cache,
		logger: log,
	}
}

// RankingResponse is the ranking payload
type RankingResponse struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Ranked      []contracts.RankedSymbol `json:"ranked"`
}

const rankingCacheKey = "ranking:latest"

// GetRanking returns the composite ranking of the current candidates
// GET /api/ranking?limit=10
func (h *RankingHandler) GetRanking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			respondError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	var resp RankingResponse
	found, err := h.cache.Get(ctx, rankingCacheKey, &resp)
	if err != nil {
		h.logger.WithError(err).Warn("Ranking cache read failed")
	}

	if !found {
		ranked, _, err := h.ranker.Rank(ctx)
		if err != nil {
			h.logger.WithError(err).Error("Failed to rank universe")
			respondError(w, statusFor(err), err.Error())
			return
		}
		resp = RankingResponse{GeneratedAt: time.Now(), Ranked: ranked}

		if err := h.cache.Set(ctx, rankingCacheKey, resp, redis.TTLShort); err != nil {
			h.logger.WithError(err).Warn("Ranking cache write failed")
		}
	}

	if limit > 0 && limit < len(resp.Ranked) {
		resp.Ranked = resp.Ranked[:limit]
	}

	respondJSON(w, http.StatusOK, resp)
}
