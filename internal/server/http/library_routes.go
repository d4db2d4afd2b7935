package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	gin "github.com/gin-gonic/gin"

	"github.com/gamerack/gamerack/internal/ports"
	"github.com/gamerack/gamerack/internal/service/library"
)

func (s *Server) libraryRoutes(g *gin.RouterGroup) {
	g.POST("/library/:game_id/transition", func(c *gin.Context) {
		user := c.GetString(userKey)
		gameID, err := strconv.ParseInt(c.Param("game_id"), 10, 64)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, "bad_request", "invalid game id")
			return
		}
		var in struct {
			Category string `json:"category"`
			Priority int    `json:"priority"`
			Notes    string `json:"notes"`
		}
		if err := c.BindJSON(&in); err != nil {
			s.respondError(c, http.StatusBadRequest, "bad_request", "invalid payload")
			return
		}
		target, ok := ports.ParseCategory(in.Category)
		if !ok {
			s.respondError(c, http.StatusBadRequest, "bad_request", "unknown category")
			return
		}
		res, err := s.svc.RequestTransition(c.Request.Context(), user, gameID, target, library.Metadata{Priority: in.Priority, Notes: in.Notes})
		if err != nil {
			s.respondTransitionError(c, err)
			return
		}
		s.JSON(c, http.StatusOK, gin.H{
			"entry": entryView(res.Entry),
			"from":  res.From.String(),
			"noop":  res.NoOp,
		})
	})

	g.DELETE("/library/:game_id", func(c *gin.Context) {
		user := c.GetString(userKey)
		gameID, err := strconv.ParseInt(c.Param("game_id"), 10, 64)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, "bad_request", "invalid game id")
			return
		}
		res, err := s.svc.Remove(c.Request.Context(), user, gameID)
		if err != nil {
			s.respondTransitionError(c, err)
			return
		}
		s.JSON(c, http.StatusOK, gin.H{"from": res.From.String(), "noop": res.NoOp})
	})

	g.GET("/library", func(c *gin.Context) {
		user := c.GetString(userKey)
		cat, ok := ports.ParseCategory(c.Query("category"))
		if !ok {
			s.respondError(c, http.StatusBadRequest, "bad_request", "unknown category")
			return
		}
		items, err := s.query.ListByCategory(c.Request.Context(), user, cat)
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, "internal_error", "failed to list library")
			return
		}
		out := make([]gin.H, 0, len(items))
		for _, e := range items {
			out = append(out, entryView(e))
		}
		s.JSON(c, http.StatusOK, gin.H{"entries": out})
	})

	g.GET("/library/:game_id/history", func(c *gin.Context) {
		user := c.GetString(userKey)
		gameID, err := strconv.ParseInt(c.Param("game_id"), 10, 64)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, "bad_request", "invalid game id")
			return
		}
		items, err := s.query.History(c.Request.Context(), user, gameID)
		if err != nil {
			s.respondError(c, http.StatusInternalServerError, "internal_error", "failed to load history")
			return
		}
		out := make([]gin.H, 0, len(items))
		for _, a := range items {
			out = append(out, gin.H{
				"id":         a.ID,
				"from":       categoryOrNil(a.From),
				"to":         categoryOrNil(a.To),
				"reason":     a.Reason,
				"meta":       a.Meta,
				"created_at": a.CreatedAt.Format(time.RFC3339),
			})
		}
		s.JSON(c, http.StatusOK, gin.H{"history": out})
	})

	g.GET("/games/:game_id", func(c *gin.Context) {
		gameID, err := strconv.ParseInt(c.Param("game_id"), 10, 64)
		if err != nil {
			s.respondError(c, http.StatusBadRequest, "bad_request", "invalid game id")
			return
		}
		game, err := s.catalog.Get(c.Request.Context(), gameID)
		if err != nil {
			s.respondError(c, http.StatusNotFound, "not_found", "game not found")
			return
		}
		s.JSON(c, http.StatusOK, gin.H{
			"id":      game.ID,
			"name":    game.Name,
			"slug":    game.Slug,
			"summary": game.Summary,
			"cover":   game.CoverURL,
			"rating":  game.Rating,
		})
	})
}

// respondTransitionError maps the service taxonomy onto HTTP codes. A no-op is
// never an error; it never reaches here.
func (s *Server) respondTransitionError(c *gin.Context, err error) {
	var adv *library.AlreadyAdvancedError
	var nf *library.GameNotFoundError
	var inv *library.InvalidCategoryError
	switch {
	case errors.As(err, &inv):
		s.respondError(c, http.StatusBadRequest, "bad_request", inv.Error())
	case errors.As(err, &adv):
		s.respondError(c, http.StatusConflict, "already_advanced", adv.Error())
	case errors.As(err, &nf):
		s.respondError(c, http.StatusNotFound, "not_found", nf.Error())
	case errors.Is(err, library.ErrConcurrentModification):
		s.respondError(c, http.StatusServiceUnavailable, "conflict", "transition conflicted, retry")
	default:
		s.respondError(c, http.StatusInternalServerError, "internal_error", "transition failed")
	}
}

func entryView(e *ports.LibraryEntry) gin.H {
	if e == nil {
		return nil
	}
	v := gin.H{
		"user_id":    e.UserID,
		"game_id":    e.GameID,
		"category":   e.Category.String(),
		"updated_at": e.UpdatedAt.Format(time.RFC3339),
	}
	if e.Category == ports.CategoryWishlist {
		v["priority"] = e.Priority
		v["notes"] = e.Notes
	}
	if e.StartedAt != nil {
		v["started_at"] = e.StartedAt.Format(time.RFC3339)
	}
	if e.CompletedAt != nil {
		v["completed_at"] = e.CompletedAt.Format(time.RFC3339)
	}
	return v
}

func categoryOrNil(c *ports.Category) any {
	if c == nil {
		return nil
	}
	return c.String()
}
