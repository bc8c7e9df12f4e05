package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/seenimoa/kospifeed/internal/feed"
	"github.com/seenimoa/kospifeed/internal/providers/naver"
	"github.com/seenimoa/kospifeed/pkg/models"
	"github.com/seenimoa/kospifeed/pkg/utils"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	tz := s.cfg.Timezone
	if tz == "" {
		tz = utils.DefaultZone
	}
	s.writeJSON(w, http.StatusOK, HealthResponse{OK: true, TZ: tz})
}

// handleUpdates serves the aggregated feed. Upstream failures are absorbed
// by the providers; a 500 here means the request itself failed.
func (s *Server) handleUpdates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := feed.UpdatesRequest{
		Since:   q.Get("since"),
		Limit:   intParam(q.Get("limit")),
		Symbols: utils.SplitList(q.Get("symbols"), feed.MaxSymbols),
		Market:  strings.TrimSpace(q.Get("market")),
	}

	res, err := s.updates.Updates(r.Context(), req)
	if err != nil {
		s.logger.Error("GET /updates failed", "error", err)
		s.writeError(w, http.StatusInternalServerError, msgUpdatesInternal)
		return
	}
	s.writeJSON(w, http.StatusOK, ItemsResponse{Items: res.Items})
}

// handleNews serves a single-keyword lookup and surfaces upstream failures.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := strings.TrimSpace(q.Get("query"))
	if query == "" {
		s.writeError(w, http.StatusBadRequest, msgQueryRequired)
		return
	}

	sort := naver.SortDate
	if q.Get("sort") == naver.SortSim {
		sort = naver.SortSim
	}
	items, err := s.news.Search(r.Context(), naver.SearchParams{
		Query: query,
		Limit: intParam(q.Get("limit")),
		Start: intParam(q.Get("start")),
		Sort:  sort,
	})
	if err != nil {
		s.logger.Error("GET /news failed", "error", err)
		if errors.Is(err, naver.ErrRateLimited) {
			s.writeError(w, http.StatusTooManyRequests, msgRateLimited)
			return
		}
		s.writeError(w, http.StatusInternalServerError, msgNewsInternal)
		return
	}
	if items == nil {
		items = []models.Event{}
	}
	s.writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// intParam parses a query integer; anything non-numeric reads as 0 so the
// callee applies its default.
func intParam(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
