package http

import (
	"context"
	"time"

	"github.com/dkeye/watchroom/internal/adapters/signal"
	"github.com/dkeye/watchroom/internal/app"
	"github.com/dkeye/watchroom/internal/config"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const clientTokenKey = "client_token"

// StatsSource is the read side of the engine the router serves.
type StatsSource interface {
	Stats() app.Stats
	Uptime() time.Duration
}

// ClientTokenMiddleware gives every browser a stable id kept in the cookie
// session. The engine uses it as the user id of new sessions.
func ClientTokenMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := sessions.Default(c)
		token, _ := sess.Get("ct").(string)
		if token == "" {
			token = uuid.NewString()
			sess.Set("ct", token)
			if err := sess.Save(); err != nil {
				log.Warn().Err(err).Str("module", "adapters.http").Msg("client token not saved")
			}
		}
		c.Set(clientTokenKey, token)
		c.Next()
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, stats StatsSource, ws *signal.Server) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(SecurityHeaders())
	r.Use(CORS(cfg.AllowedOrigins))

	store := cookie.NewStore([]byte(cfg.Secret))
	store.Options(sessions.Options{Path: "/", MaxAge: 3600 * 24 * 7, HttpOnly: true})
	r.Use(sessions.Sessions("WatchroomSessions", store))
	r.Use(ClientTokenMiddleware())

	h := &handlers{secret: cfg.Secret, stats: stats}
	limit := RateLimit(app.NewRateLimiter(cfg.HTTPRateLimit, cfg.HTTPRateInterval))
	r.GET("/", h.index)
	r.GET("/health", h.health)
	r.GET("/stats", limit, h.requireBearer, h.statsHandler)

	api := r.Group("/api", limit, h.requireBearer)
	api.GET("/rooms", h.rooms)

	r.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("client", c.GetString(clientTokenKey)).Msg("ws endpoint hit")
		ws.HandleSignal(ctx, c)
	})

	r.NoRoute(h.notFound)

	log.Info().Str("module", "adapters.http").Msg("router setup")
	return r
}
