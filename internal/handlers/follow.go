package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/funlynk/funlynk-backend/internal/apierr"
	"github.com/funlynk/funlynk-backend/internal/requestdata"
	"github.com/funlynk/funlynk-backend/internal/services"
)

type FollowHandler struct {
	followService services.FollowService
}

func NewFollowHandler(followService services.FollowService) *FollowHandler {
	return &FollowHandler{followService: followService}
}

// actingUser resolves the authenticated user set by the identity middleware.
func actingUser(c *gin.Context) (uuid.UUID, bool) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
		return uuid.Nil, false
	}
	return rd.UserID, true
}

func (fh *FollowHandler) Follow(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	var body struct {
		FollowingID uuid.UUID `json:"following_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, apierr.InvalidArgument("invalid body: %v", err))
		return
	}

	if err := fh.followService.Follow(c.Request.Context(), userID, body.FollowingID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"following": true})
}

func (fh *FollowHandler) Unfollow(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	followingID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}

	if err := fh.followService.Unfollow(c.Request.Context(), userID, followingID); err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"following": false})
}

func (fh *FollowHandler) IsFollowing(c *gin.Context) {
	userID, ok := actingUser(c)
	if !ok {
		return
	}
	followingID, err := pathUUID(c, "id")
	if err != nil {
		RespondError(c, err)
		return
	}

	following, err := fh.followService.IsFollowing(c.Request.Context(), userID, followingID)
	if err != nil {
		RespondError(c, err)
		return
	}
	RespondOK(c, gin.H{"following": following})
}
