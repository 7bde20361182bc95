package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/beesaferoot/lotassign/domain"
)

// ActorHeader carries the caller's identity.
const ActorHeader = "X-Actor"

const actorKey = "actor"

// RequireActor rejects requests without an actor header.
func RequireActor() gin.HandlerFunc {
	return func(c *gin.Context) {
		actor := c.GetHeader(ActorHeader)
		if actor == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, Response{Code: -1, Msg: ActorHeader + " header required"})
			return
		}
		c.Set(actorKey, domain.Actor(actor))
		c.Next()
	}
}

func actorOf(c *gin.Context) domain.Actor {
	if v, ok := c.Get(actorKey); ok {
		if actor, ok := v.(domain.Actor); ok {
			return actor
		}
	}
	return ""
}

func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1", RequireActor())
	{
		lots := api.Group("/lots")
		{
			lots.POST("", h.CreateLot)
			lots.GET("/:id", h.GetLot)
			lots.POST("/:id/assignments", h.Assign)
			lots.POST("/:id/complete-sale", h.CompleteSale)
		}
		contracts := api.Group("/contracts")
		{
			contracts.GET("/:id", h.GetContract)
			contracts.PUT("/:id/terms", h.AmendTerms)
		}
		api.POST("/clients", h.CreateClient)
	}
}

// NewRouter builds the engine with logging and recovery.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	RegisterRoutes(r, h)
	return r
}
