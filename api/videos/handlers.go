package videos

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dalmia/vidly/api/types"
)

// Process godoc
// @Summary      Start processing a video
// @Description  Resolves the video reference and drives the full pipeline (metadata, audio extraction, transcription, sectioning) for the active session
// @Tags         videos
// @Accept       json
// @Produce      json
// @Param        request body types.ProcessRequest true "Video URL"
// @Success      202 {object} types.BaseResponse "Processing started"
// @Failure      400 {object} types.ErrorResponse "Invalid or unrecognizable video URL"
// @Failure      409 {object} types.ErrorResponse "Pipeline is already busy"
// @Router       /api/v1/videos/process [post]
func Process(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ProcessRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		if err := deps.Pipeline.Process(req.URL); err != nil {
			types.SendError(c, err)
			return
		}

		c.JSON(http.StatusAccepted, types.BaseResponse{
			Status:  types.StatusProcessing,
			Message: "Video processing started",
		})
	}
}

// Reset godoc
// @Summary      Reset the pipeline
// @Description  Cancels in-flight work and clears every derived artifact for the active session
// @Tags         videos
// @Produce      json
// @Success      200 {object} types.BaseResponse
// @Router       /api/v1/videos/reset [post]
func Reset(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		deps.Pipeline.Reset()
		types.SendSuccess(c, types.BaseResponse{
			Status:  types.StatusOK,
			Message: "Pipeline reset",
		})
	}
}

// Status godoc
// @Summary      Pipeline status
// @Description  Returns the pipeline state, the error message if any, and the video metadata once resolved
// @Tags         videos
// @Produce      json
// @Success      200 {object} types.PipelineStatusResponse
// @Router       /api/v1/videos/status [get]
func Status(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := deps.Pipeline.Snapshot()
		types.SendSuccess(c, types.PipelineStatusResponse{
			BaseResponse:   types.BaseResponse{Status: types.StatusOK},
			PipelineStatus: snap.Status,
			Error:          snap.Error,
			Video:          snap.Video,
		})
	}
}

// Sections godoc
// @Summary      Section list
// @Description  Returns the chronological section list once the pipeline is ready
// @Tags         videos
// @Produce      json
// @Success      200 {object} types.SectionsResponse
// @Router       /api/v1/videos/sections [get]
func Sections(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := deps.Pipeline.Snapshot()
		types.SendSuccess(c, types.SectionsResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Sections:     snap.Sections,
			Count:        len(snap.Sections),
		})
	}
}

// Transcript godoc
// @Summary      Derived transcript
// @Description  Returns the transcript segments and the concatenated full text
// @Tags         videos
// @Produce      json
// @Success      200 {object} types.TranscriptResponse
// @Router       /api/v1/videos/transcript [get]
func Transcript(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := deps.Pipeline.Snapshot()
		response := types.TranscriptResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
		}
		if snap.Transcription != nil {
			response.Segments = snap.Transcription.Segments
			response.FullText = snap.Transcription.FullText
		}
		types.SendSuccess(c, response)
	}
}

// Messages godoc
// @Summary      Conversation history
// @Description  Returns the chat messages for the active session in submission order
// @Tags         videos
// @Produce      json
// @Success      200 {object} types.MessagesResponse
// @Router       /api/v1/videos/messages [get]
func Messages(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		snap := deps.Pipeline.Snapshot()
		types.SendSuccess(c, types.MessagesResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusOK},
			Messages:     snap.Messages,
			Count:        len(snap.Messages),
		})
	}
}

// Chat godoc
// @Summary      Ask a question about the video
// @Description  Appends the question and a loading placeholder; the answer resolves asynchronously into the message list
// @Tags         videos
// @Accept       json
// @Produce      json
// @Param        request body types.ChatRequest true "Question with playback position"
// @Success      202 {object} types.ChatAcceptedResponse "Question accepted"
// @Failure      400 {object} types.ErrorResponse "Empty question"
// @Failure      409 {object} types.ErrorResponse "Video is not ready for questions"
// @Router       /api/v1/videos/chat [post]
func Chat(deps *types.Dependencies) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req types.ChatRequest
		if !types.BindJSONOrError(c, &req) {
			return
		}

		question := req.Question
		if instructions := strings.TrimSpace(req.Instructions); instructions != "" {
			question = fmt.Sprintf("[Instructions: %s]\n\n%s", instructions, question)
		}

		messageID, err := deps.Pipeline.Ask(question, req.PlaybackSeconds)
		if err != nil {
			types.SendError(c, err)
			return
		}

		snap := deps.Pipeline.Snapshot()
		c.JSON(http.StatusAccepted, types.ChatAcceptedResponse{
			BaseResponse: types.BaseResponse{Status: types.StatusProcessing},
			MessageID:    messageID,
			Messages:     snap.Messages,
		})
	}
}
