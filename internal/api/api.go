package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/victornm/livequiz/internal/domain"
	"github.com/victornm/livequiz/internal/errors"
	"github.com/victornm/livequiz/internal/leaderboard"
	"github.com/victornm/livequiz/internal/room"
	"github.com/victornm/livequiz/internal/session"
)

type Config struct {
	Router      gin.IRouter
	Engine      *session.Engine
	Hub         *room.Hub
	Leaderboard Leaderboard
	Metadata    Metadata
}

// Leaderboard returns leaderboards stored after their session is gone.
type Leaderboard interface {
	GetLeaderboard(ctx context.Context, req leaderboard.GetLeaderboardRequest) (*domain.Leaderboard, error)
}

// Metadata reads the session records kept after teardown.
type Metadata interface {
	GetSession(ctx context.Context, sessionID string) (*domain.SessionInfo, error)
	GetDoubleSelections(ctx context.Context, sessionID string) (map[string]string, error)
}

// SessionRecord is what is known about a session from its stored records.
type SessionRecord struct {
	Session domain.SessionInfo `json:"session"`
	Doubles map[string]string  `json:"doubles"`
}

type API struct {
	engine *session.Engine
	hub    *room.Hub
	ls     Leaderboard
	md     Metadata
}

func New(c Config) *API {
	a := &API{
		engine: c.Engine,
		hub:    c.Hub,
		ls:     c.Leaderboard,
		md:     c.Metadata,
	}

	v1 := c.Router.Group("/v1/sessions")
	v1.POST("", a.CreateSession)
	v1.PUT("/:id/quiz", a.AttachQuiz)
	v1.GET("/:id", a.GetSession)
	v1.GET("/:id/leaderboard", a.GetLeaderboard)
	v1.GET("/:id/progress", a.GetProgress)
	if a.md != nil {
		v1.GET("/:id/record", a.GetRecord)
	}
	v1.DELETE("/:id", a.EndSession)
	v1.GET("/:id/ws", a.Connect)

	return a
}

func (a *API) CreateSession(c *gin.Context) {
	var req session.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength != 0 {
		abort(c, errors.InvalidArgument("invalid request body: %v", err))
		return
	}

	ss, err := a.engine.CreateSession(c.Request.Context(), req)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusCreated, ss)
}

func (a *API) AttachQuiz(c *gin.Context) {
	var req session.AttachQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abort(c, errors.InvalidArgument("invalid request body: %v", err))
		return
	}
	req.SessionID = c.Param("id")

	if err := a.engine.AttachQuiz(c.Request.Context(), req); err != nil {
		abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (a *API) GetSession(c *gin.Context) {
	snap, err := a.engine.Snapshot(c.Request.Context(), session.GetSessionRequest{
		SessionID: c.Param("id"),
		TeamID:    c.Query("team_id"),
	})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}

// GetLeaderboard returns the live leaderboard, or the stored one once the session is gone.
func (a *API) GetLeaderboard(c *gin.Context) {
	ctx := c.Request.Context()
	id := session.NormalizeID(c.Param("id"))

	l, err := a.engine.Leaderboard(ctx, session.GetSessionRequest{SessionID: id})
	if errors.Is(err, errors.CodeNotFound) && a.ls != nil {
		l, err = a.ls.GetLeaderboard(ctx, leaderboard.GetLeaderboardRequest{SessionID: id})
	}
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, l)
}

func (a *API) GetProgress(c *gin.Context) {
	p, err := a.engine.Progress(c.Request.Context(), session.GetSessionRequest{SessionID: c.Param("id")})
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// GetRecord reads the stored metadata and double selections, live or ended.
func (a *API) GetRecord(c *gin.Context) {
	ctx := c.Request.Context()
	id := session.NormalizeID(c.Param("id"))

	info, err := a.md.GetSession(ctx, id)
	if err != nil {
		abort(c, err)
		return
	}

	doubles, err := a.md.GetDoubleSelections(ctx, id)
	if err != nil {
		abort(c, err)
		return
	}

	c.JSON(http.StatusOK, SessionRecord{Session: *info, Doubles: doubles})
}

func (a *API) EndSession(c *gin.Context) {
	if err := a.engine.EndSession(c.Request.Context(), session.HostRequest{SessionID: c.Param("id")}); err != nil {
		abort(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// Connect upgrades to a websocket bound to the session in the path. The connection joins the
// room with a join command.
func (a *API) Connect(c *gin.Context) {
	id := session.NormalizeID(c.Param("id"))
	if id == "" {
		abort(c, errors.InvalidArgument("session id is required"))
		return
	}

	if err := a.hub.Serve(c.Writer, c.Request, id, &router{engine: a.engine, hub: a.hub}); err != nil {
		slog.WarnContext(c.Request.Context(), "api: websocket upgrade failed", "session", id, "error", err)
	}
}

func abort(c *gin.Context, err error) {
	e := errors.Convert(err)
	if e.Code == errors.CodeInternal {
		slog.ErrorContext(c.Request.Context(), "api: request failed", "path", c.FullPath(), "error", err)
	}

	c.AbortWithStatusJSON(e.HTTPStatusCode(), e)
}
