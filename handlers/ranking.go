package handlers

import (
	"net/http"

	"github.com/akinalp/forumcore/models"
	"github.com/akinalp/forumcore/pkg"
	"github.com/akinalp/forumcore/services"
)

type RankingHandler struct {
	rankingService services.RankingService
}

func NewRankingHandler(rankingService services.RankingService) *RankingHandler {
	return &RankingHandler{rankingService: rankingService}
}

// TopThreads godoc
// GET /api/rankings/threads?sort=hot|controversial|top&limit=
func (h *RankingHandler) TopThreads(w http.ResponseWriter, r *http.Request) {
	sort := models.RankingSort(r.URL.Query().Get("sort"))

	ranked, err := h.rankingService.TopThreads(r.Context(), sort, queryLimit(r))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, ranked)
}

// Get godoc
// GET /api/rankings/{targetType}/{targetId}
func (h *RankingHandler) Get(w http.ResponseWriter, r *http.Request) {
	ranking, err := h.rankingService.GetRanking(r.Context(), models.TargetType(r.PathValue("targetType")), r.PathValue("targetId"))
	if err != nil {
		RespondError(w, r, err)
		return
	}

	pkg.JSON(w, http.StatusOK, ranking)
}
