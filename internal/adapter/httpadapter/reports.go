package httpadapter

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
	"github.com/couchcryptid/crisis-signal-etl/internal/store/sqlite"
)

const defaultTopN = 10

// parseFilter reads risk, state, since (RFC3339) and limit query parameters.
func parseFilter(q url.Values) (sqlite.Filter, string) {
	var f sqlite.Filter
	if risk := q.Get("risk"); risk != "" {
		tier, ok := domain.ParseRiskTier(risk)
		if !ok {
			return f, "risk must be one of Low, Moderate, High"
		}
		f.Tier = tier
	}
	f.State = q.Get("state")
	if since := q.Get("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			return f, "since must be an RFC3339 timestamp"
		}
		f.Since = t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 0 {
			return f, "limit must be a non-negative integer"
		}
		f.Limit = n
	}
	return f, ""
}

// loadPosts lists posts for the request's filter, writing an error response
// and returning ok=false on failure.
func (s *Server) loadPosts(w http.ResponseWriter, r *http.Request) ([]domain.AnalyzedPost, bool) {
	f, msg := parseFilter(r.URL.Query())
	if msg != "" {
		errorResponse(w, http.StatusBadRequest, msg)
		return nil, false
	}
	posts, err := s.posts.List(r.Context(), f)
	if err != nil {
		s.logger.Error("list posts", "error", err)
		errorResponse(w, http.StatusInternalServerError, "failed to load posts")
		return nil, false
	}
	return posts, true
}

func (s *Server) handlePosts(w http.ResponseWriter, r *http.Request) {
	posts, ok := s.loadPosts(w, r)
	if !ok {
		return
	}
	if posts == nil {
		posts = []domain.AnalyzedPost{}
	}
	sharedobs.WriteJSON(w, http.StatusOK, posts)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	posts, ok := s.loadPosts(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.BuildRiskStats(posts))
}

func (s *Server) handleCrossTab(w http.ResponseWriter, r *http.Request) {
	posts, ok := s.loadPosts(w, r)
	if !ok {
		return
	}
	ct := domain.BuildCrossTab(posts)
	sharedobs.WriteJSON(w, http.StatusOK, map[string]any{
		"counts":      ct,
		"percentages": ct.Percentages(),
	})
}

func (s *Server) handleTopLocations(w http.ResponseWriter, r *http.Request) {
	n := defaultTopN
	if raw := r.URL.Query().Get("n"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil {
			errorResponse(w, http.StatusBadRequest, "n must be an integer")
			return
		}
		n = v
	}
	posts, ok := s.loadPosts(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.TopLocations(posts, n))
}

func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	posts, ok := s.loadPosts(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.BuildStateBreakdown(posts, s.gazetteer))
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	posts, ok := s.loadPosts(w, r)
	if !ok {
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, domain.BuildHeatPoints(posts))
}
