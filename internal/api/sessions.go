package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/toolkitvision/toolcheck-go/internal/datastore"
	"github.com/toolkitvision/toolcheck-go/internal/detection"
	"github.com/toolkitvision/toolcheck-go/internal/errors"
)

// allowedImageTypes are the upload content types that reach the detector.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

// initSessionRoutes registers session lifecycle endpoints. Auth is
// optional here, the owner is recorded when a token is present.
func (c *Controller) initSessionRoutes() {
	sessions := c.Group.Group("/sessions", c.OptionalAuth)
	sessions.POST("", c.CreateSession)
	sessions.GET("/:id", c.GetSession)
	sessions.POST("/:id/analyse", c.AnalyseSession)
}

type createSessionRequest struct {
	Mode            string   `json:"mode"`
	ExpectedToolIDs []string `json:"expected_tool_ids"`
	Threshold       *float64 `json:"threshold"`
}

type sessionResponse struct {
	SessionID       string             `json:"session_id"`
	Mode            string             `json:"mode"`
	ExpectedToolIDs []string           `json:"expected_tool_ids"`
	Threshold       float64            `json:"threshold"`
	Status          string             `json:"status"`
	Engineer        string             `json:"engineer,omitempty"`
	CreatedAt       time.Time          `json:"created_at"`
	Analyses        []analysisResponse `json:"analyses"`
}

type analysisResponse struct {
	RequestID        string                `json:"request_id"`
	ImageFilename    string                `json:"image_filename"`
	Detected         []detection.Detection `json:"detected"`
	MatchedToolIDs   []string              `json:"matched_tool_ids"`
	MissingToolIDs   []string              `json:"missing_tool_ids"`
	UnexpectedLabels []string              `json:"unexpected_labels"`
	MatchRatio       float64               `json:"match_ratio"`
	BelowThreshold   bool                  `json:"below_threshold"`
	CreatedAt        time.Time             `json:"created_at"`
}

type analyseResponse struct {
	Analysis analysisResponse `json:"analysis"`
	Session  sessionResponse  `json:"session"`
}

func toSessionResponse(s *datastore.Session) sessionResponse {
	resp := sessionResponse{
		SessionID:       s.SessionID,
		Mode:            s.Mode,
		ExpectedToolIDs: s.ExpectedToolIDs,
		Threshold:       s.Threshold,
		Status:          s.Status,
		CreatedAt:       s.CreatedAt,
		Analyses:        make([]analysisResponse, 0, len(s.Analyses)),
	}
	if s.Engineer != nil {
		resp.Engineer = s.Engineer.Username
	}
	for i := range s.Analyses {
		resp.Analyses = append(resp.Analyses, toAnalysisResponse(&s.Analyses[i]))
	}
	return resp
}

func toAnalysisResponse(a *datastore.Analysis) analysisResponse {
	return analysisResponse{
		RequestID:        a.RequestID,
		ImageFilename:    a.ImageFilename,
		Detected:         a.Detected,
		MatchedToolIDs:   a.MatchedToolIDs,
		MissingToolIDs:   a.MissingToolIDs,
		UnexpectedLabels: a.UnexpectedLabels,
		MatchRatio:       a.MatchRatio,
		BelowThreshold:   a.BelowThreshold,
		CreatedAt:        a.CreatedAt,
	}
}

// CreateSession opens a hand-out or hand-over session.
func (c *Controller) CreateSession(ctx echo.Context) error {
	var req createSessionRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, "Invalid session payload", http.StatusBadRequest)
	}

	threshold := c.Settings.Session.DefaultThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}

	created, err := c.Sessions.Create(req.Mode, req.ExpectedToolIDs, threshold, engineerID(ctx))
	if err != nil {
		return c.HandleError(ctx, err, "Failed to create session", 0)
	}

	return ctx.JSON(http.StatusCreated, toSessionResponse(&created))
}

// GetSession returns a session with its full analysis history.
func (c *Controller) GetSession(ctx echo.Context) error {
	s, err := c.Sessions.Get(ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err, "Session not found", 0)
	}
	return ctx.JSON(http.StatusOK, toSessionResponse(&s))
}

// AnalyseSession runs detection on an uploaded tray image and appends
// the reconciliation outcome to the session log.
func (c *Controller) AnalyseSession(ctx echo.Context) error {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		return c.HandleError(ctx, err, "Image file is required", http.StatusBadRequest)
	}

	contentType := fileHeader.Header.Get(echo.HeaderContentType)
	if !allowedImageTypes[contentType] {
		return c.HandleError(ctx,
			errors.ValidationError("unsupported media type %q", contentType),
			"Only JPEG, PNG and WebP images are accepted",
			http.StatusUnsupportedMediaType)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return c.HandleError(ctx, err, "Failed to read uploaded image", http.StatusBadRequest)
	}
	defer file.Close()

	analysis, updated, err := c.Sessions.Analyse(ctx.Request().Context(),
		ctx.Param("id"), fileHeader.Filename, file)
	if err != nil {
		return c.HandleError(ctx, err, "Analysis failed", 0)
	}

	return ctx.JSON(http.StatusOK, analyseResponse{
		Analysis: toAnalysisResponse(&analysis),
		Session:  toSessionResponse(&updated),
	})
}
