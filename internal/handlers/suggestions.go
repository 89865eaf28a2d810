package handlers

import (
	"context"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/services"
	"github.com/funlynk/funlynk-backend/internal/types"
)

// SuggestionHandler exposes the friend-suggestion surface: ranked lists,
// durable suggestion rows and interaction tracking. Every route acts on the
// authenticated user.
type SuggestionHandler struct {
	suggestionService services.SuggestionService
}

func NewSuggestionHandler(suggestionService services.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService}
}

func (sh *SuggestionHandler) GetSuggestions(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}

	filters := types.SuggestionFilters{
		Reason: types.SuggestionReason(c.Query("reason")),
	}
	if raw := c.Query("min_score"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			RespondError(c, apierr.InvalidArgument("invalid min_score: %q", raw))
			return
		}
		filters.MinScore = &v
	}
	if raw := c.Query("exclude"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			id, err := uuid.Parse(strings.TrimSpace(part))
			if err != nil {
				RespondError(c, apierr.InvalidArgument("invalid exclude id: %q", part))
				return
			}
			filters.ExcludeIDs = append(filters.ExcludeIDs, id)
		}
	}

	suggestions, err := sh.suggestionService.GetSuggestions(c.Request.Context(), userID, queryInt(c, "limit", 0), filters)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": suggestions, "count": len(suggestions)})
}

func (sh *SuggestionHandler) GetPeopleYouMayKnow(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	suggestions, err := sh.suggestionService.GetPeopleYouMayKnow(c.Request.Context(), userID, queryInt(c, "limit", 0))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": suggestions, "count": len(suggestions)})
}

func (sh *SuggestionHandler) GetTrendingUsers(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	trending, err := sh.suggestionService.GetTrendingUsers(c.Request.Context(), userID, c.Query("timeframe"), queryInt(c, "limit", 0))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"trending": trending, "count": len(trending)})
}

func (sh *SuggestionHandler) RefreshSuggestions(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	count, err := sh.suggestionService.RefreshSuggestions(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"refreshed": count})
}

func (sh *SuggestionHandler) GetActiveSuggestions(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	rows, err := sh.suggestionService.ActiveSuggestions(c.Request.Context(), userID, queryInt(c, "limit", 0))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"suggestions": rows, "count": len(rows)})
}

func (sh *SuggestionHandler) DismissSuggestion(c *gin.Context) {
	sh.mark(c, sh.suggestionService.DismissSuggestion)
}

func (sh *SuggestionHandler) MarkContacted(c *gin.Context) {
	sh.mark(c, sh.suggestionService.MarkContacted)
}

func (sh *SuggestionHandler) MarkFollowed(c *gin.Context) {
	sh.mark(c, sh.suggestionService.MarkFollowed)
}

func (sh *SuggestionHandler) mark(c *gin.Context, fn func(ctx context.Context, userID, suggestedUserID uuid.UUID) error) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	suggestedID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	if err := fn(c.Request.Context(), userID, suggestedID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"ok": true})
}

func (sh *SuggestionHandler) BulkDismiss(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	dismissed, err := sh.suggestionService.BulkDismiss(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"dismissed": dismissed})
}

func (sh *SuggestionHandler) RecordInteraction(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	suggestedID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}
	var body struct {
		Action string `json:"action" binding:"required"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.InvalidArgument("invalid body: %v", err))
		return
	}

	if err := sh.suggestionService.RecordInteraction(c.Request.Context(), userID, suggestedID, body.Action, body.Reason); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"ok": true})
}

func (sh *SuggestionHandler) GetAnalytics(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	analytics, err := sh.suggestionService.GetAnalytics(c.Request.Context(), userID, c.Query("timeframe"))
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, analytics)
}

func (sh *SuggestionHandler) GetStats(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	stats, err := sh.suggestionService.GetStats(c.Request.Context(), userID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, stats)
}
