// Package http wires the REST and websocket routes.
package http

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/aakashbhandari1000/Meeting/internal/adapters/signal"
	"github.com/aakashbhandari1000/Meeting/internal/app"
	"github.com/aakashbhandari1000/Meeting/internal/config"
	"github.com/aakashbhandari1000/Meeting/internal/core"
	"github.com/aakashbhandari1000/Meeting/internal/domain"
)

func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie("ct")
		if token == "" {
			token = uuid.NewString()
			c.SetCookie("ct", token, 3600*24*7, "/", "", false, true)
		}
		c.Set("client_token", token)
		c.Next()
	}
}

// AuthRequired validates the bearer token against the identity
// provider. 401 without a token, 403 when it does not verify.
func AuthRequired(provider core.IdentityProvider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "access token required"})
			return
		}
		identity, err := provider.Verify(c.Request.Context(), token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			return
		}
		c.Set("user_id", string(identity.UserID))
		c.Next()
	}
}

type createMeetingRequest struct {
	WaitingRoom bool   `json:"waitingRoom"`
	Password    string `json:"password"`
}

func SetupRouter(ctx context.Context, cfg *config.Config, coord *app.Coordinator, provider core.IdentityProvider) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())

	store := cookie.NewStore([]byte(cfg.Secret))
	r.Use(sessions.Sessions("MeetingSessions", store))
	r.Use(ClientTokenMiddleware())

	r.Static("/static", cfg.StaticPath)
	r.GET("/", func(c *gin.Context) {
		c.File(cfg.StaticPath + "/index.html")
	})

	log.Info().Str("module", "adapters.http").Str("static", cfg.StaticPath).Msg("router setup")

	api := r.Group("/api")

	meetings := api.Group("/meetings", AuthRequired(provider))

	meetings.POST("", func(c *gin.Context) {
		var req createMeetingRequest
		// Body is optional; defaults apply when absent.
		_ = c.ShouldBindJSON(&req)

		settings := domain.DefaultSettings()
		settings.WaitingRoom = req.WaitingRoom
		settings.Password = req.Password

		host := domain.UserID(c.GetString("user_id"))
		id, err := coord.CreateMeeting(c.Request.Context(), host, settings)
		if err != nil {
			log.Error().Err(err).Str("module", "adapters.http").Msg("create meeting")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create meeting"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"meetingId": id})
	})

	meetings.GET("/:id", func(c *gin.Context) {
		id := domain.MeetingID(c.Param("id"))
		doc, err := coord.MeetingDoc(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, core.ErrNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "meeting not found"})
				return
			}
			log.Error().Err(err).Str("module", "adapters.http").Str("meeting", string(id)).Msg("fetch meeting")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch meeting"})
			return
		}
		c.JSON(http.StatusOK, doc)
	})

	ctl := signal.NewController(coord, cfg.ReadLimit, cfg.SendBuffer)
	api.GET("/ws/signal", func(c *gin.Context) {
		log.Info().Str("module", "adapters.http").Str("handle", c.GetString("client_token")).Msg("ws signal endpoint hit")
		ctl.HandleSignal(ctx, c)
	})

	return r
}
