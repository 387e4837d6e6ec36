package types

import (
	"github.com/dalmia/vidly/internal/database"
	"github.com/dalmia/vidly/internal/services/dictation"
	"github.com/dalmia/vidly/internal/services/pipeline"
	"github.com/dalmia/vidly/internal/services/playback"
	"github.com/dalmia/vidly/internal/services/sessions"
)

// Dependencies holds all the dependencies needed by handlers
type Dependencies struct {
	DB       *database.DB
	Pipeline pipeline.Service
	Sessions sessions.SessionService
	Tracker  *playback.Tracker

	// NewEngine builds a fresh recognition engine per dictation session.
	NewEngine func() dictation.Engine
	Dictation dictation.Config
}
