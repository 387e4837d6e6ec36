package sessions

import (
	"github.com/gin-gonic/gin"

	"github.com/dalmia/vidly/api/types"
)

// List godoc
// @Summary      List sessions
// @Description  Returns every session, most recent first
// @Tags         sessions
// @Produce      json
// @Success      200 {object} types.SessionsResponse
// @Router       /api/v1/sessions [get]
func List(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessions, err := deps.Sessions.List(c.Request.Context())
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.SessionsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Sessions:     sessions,
			Count:        len(sessions),
		})
	}
}

// Create godoc
// @Summary      Create a session
// @Description  Creates a new session, activates it and resets the pipeline
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        request body types.SessionCreateRequest false "Optional session name"
// @Success      201 {object} types.SingleSessionResponse
// @Router       /api/v1/sessions [post]
func Create(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SessionCreateRequest
		// Body is optional: an empty body creates an unnamed session.
		_ = c.ShouldBindJSON(&req)

		session, err := deps.Sessions.Create(c.Request.Context(), req.Name)
		if err != nil {
			types.SendError(c, err)
			return
		}
		resetTracker(deps)
		types.SendCreated(c, types.SingleSessionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Session:      session,
		})
	}
}

// Active godoc
// @Summary      Get the active session
// @Tags         sessions
// @Produce      json
// @Success      200 {object} types.SingleSessionResponse
// @Failure      404 {object} types.ErrorResponse "No active session"
// @Router       /api/v1/sessions/active [get]
func Active(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := deps.Sessions.Active(c.Request.Context())
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.SingleSessionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Session:      session,
		})
	}
}

// Get godoc
// @Summary      Get a session
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} types.SingleSessionResponse
// @Failure      404 {object} types.ErrorResponse "Session not found"
// @Router       /api/v1/sessions/{id} [get]
func Get(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := deps.Sessions.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.SingleSessionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Session:      session,
		})
	}
}

// Rename godoc
// @Summary      Rename a session
// @Tags         sessions
// @Accept       json
// @Produce      json
// @Param        id path string true "Session ID"
// @Param        request body types.SessionRenameRequest true "New name"
// @Success      200 {object} types.SingleSessionResponse
// @Failure      400 {object} types.ErrorResponse "Empty name"
// @Failure      404 {object} types.ErrorResponse "Session not found"
// @Router       /api/v1/sessions/{id} [put]
func Rename(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.SessionRenameRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		session, err := deps.Sessions.Rename(c.Request.Context(), c.Param("id"), req.Name)
		if err != nil {
			types.SendError(c, err)
			return
		}
		types.SendSuccess(c, types.SingleSessionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Session:      session,
		})
	}
}

// Activate godoc
// @Summary      Switch to a session
// @Description  Activates the session and resets the pipeline, cancelling in-flight work for the previous video
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} types.SingleSessionResponse
// @Failure      404 {object} types.ErrorResponse "Session not found"
// @Router       /api/v1/sessions/{id}/activate [post]
func Activate(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		session, err := deps.Sessions.Switch(c.Request.Context(), c.Param("id"))
		if err != nil {
			types.SendError(c, err)
			return
		}
		resetTracker(deps)
		types.SendSuccess(c, types.SingleSessionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Session:      session,
		})
	}
}

// resetTracker forgets the playback scroll state whenever the active video
// changes. The new session's sections may start at the same offsets as the
// old one's, so syncing blocks alone would keep stale scroll history.
func resetTracker(deps *types.Dependencies) {
	if deps.Tracker != nil {
		deps.Tracker.Reset()
	}
}

// Delete godoc
// @Summary      Delete a session
// @Description  Deletes the session; deleting the active one activates the most recent remaining session
// @Tags         sessions
// @Produce      json
// @Param        id path string true "Session ID"
// @Success      200 {object} types.BaseResponse
// @Failure      404 {object} types.ErrorResponse "Session not found"
// @Router       /api/v1/sessions/{id} [delete]
func Delete(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := deps.Sessions.Delete(c.Request.Context(), c.Param("id")); err != nil {
			types.SendError(c, err)
			return
		}
		resetTracker(deps)
		types.SendSuccess(c, types.BaseResponse{
			Status:  types.StatusOK,
			Message: "Session deleted",
		})
	}
}
