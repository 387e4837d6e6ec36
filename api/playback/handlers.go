package playback

import (
	"github.com/gin-gonic/gin"

	"github.com/dalmia/vidly/api/types"
	"github.com/dalmia/vidly/internal/models"
	"github.com/dalmia/vidly/pkg/timecode"
)

// Position godoc
// @Summary      Report the playback position
// @Description  Recomputes the active section index for the reported position and decides whether the viewport should scroll to it
// @Tags         playback
// @Accept       json
// @Produce      json
// @Param        request body types.PositionRequest true "Playback position"
// @Success      200 {object} types.PositionResponse
// @Failure      400 {object} types.ErrorResponse "Invalid request body"
// @Router       /api/v1/playback/position [post]
func Position(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.PositionRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		snap := deps.Pipeline.Snapshot()
		deps.Tracker.SyncBlocks(sectionStarts(snap.Sections))
		deps.Tracker.SetActive(req.ActiveView)

		decision := deps.Tracker.Update(req.Seconds)
		types.SendSuccess(c, types.PositionResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			ActiveIndex:  decision.ActiveIndex,
			Scroll:       decision.Scroll,
		})
	}
}

func sectionStarts(sections []models.Section) []float64 {
	starts := make([]float64, len(sections))
	for i, section := range sections {
		starts[i] = timecode.Parse(section.Start)
	}
	return starts
}
