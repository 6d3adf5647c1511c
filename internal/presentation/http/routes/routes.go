// Package routes provides HTTP route configuration for the presentation layer.
package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/bernice-stories/bernice/internal/application/container"
	"github.com/bernice-stories/bernice/internal/presentation/http/handlers"
	"github.com/bernice-stories/bernice/internal/presentation/http/middleware"
)

// SetupRoutes configures all HTTP routes and middleware with dependency injection.
func SetupRoutes(container *container.Container) *gin.Engine {
	r := gin.Default()

	r.Use(middleware.CORSMiddleware(container.Settings.AllowedOrigins))

	// Initialize handlers
	authHandlers := handlers.NewAuthHandlers(container.AuthService, container.Logger, container.PerfTracker)
	chainHandlers := handlers.NewChainHandlers(container.ChainService, container.Logger, container.PerfTracker)
	demoHandlers := handlers.NewDemoHandlers(container.StoryService, container.Logger, container.PerfTracker)
	draftHandlers := handlers.NewDraftHandlers(container.DraftService, container.Logger)
	eventHandlers := handlers.NewEventHandlers(container.Broadcaster, container.Hub, container.Settings.AllowedOrigins, container.Logger, container.PerfTracker)
	systemHandlers := handlers.NewSystemHandlers(container)

	identity := middleware.IdentityMiddleware(container.AuthService, container.Settings.DemoAddress, container.Logger, container.PerfTracker)

	api := r.Group("/api/v1")
	{
		api.GET("/health", systemHandlers.GetHealth)

		system := api.Group("/system")
		{
			system.GET("/stats", systemHandlers.GetStats)
			system.GET("/log-levels", systemHandlers.GetLogLevels)
			system.PUT("/log-levels", systemHandlers.SetLogLevel)
		}

		auth := api.Group("/auth")
		{
			auth.POST("/session", authHandlers.PostSession)
			auth.GET("/me", identity, authHandlers.GetMe)
		}

		chainAPI := api.Group("/chain")
		{
			chainAPI.GET("/status", chainHandlers.GetStatus)
			chainAPI.GET("/networks", chainHandlers.GetNetworks)
			chainAPI.GET("/stories", chainHandlers.GetStories)
			chainAPI.GET("/stories/count", chainHandlers.GetStoryCount)
			chainAPI.GET("/stories/:id", chainHandlers.GetStory)
			chainAPI.GET("/stories/:id/chapters/:number", chainHandlers.GetChapter)
			chainAPI.GET("/stories/:id/submissions/count", chainHandlers.GetSubmissionsCount)
			chainAPI.GET("/stories/:id/chapters/:number/submissions/:index", chainHandlers.GetSubmission)
			chainAPI.GET("/stories/:id/chapters/:number/voters/:address", chainHandlers.GetHasVoted)
			chainAPI.GET("/stories/:id/voting-status", chainHandlers.GetVotingStatus)

			chainAPI.POST("/stories", chainHandlers.PostStory)
			chainAPI.POST("/stories/:id/continuations", chainHandlers.PostContinuation)
			chainAPI.POST("/stories/:id/votes", chainHandlers.PostVote)
			chainAPI.POST("/stories/:id/finalize", chainHandlers.PostFinalize)
			chainAPI.POST("/stories/:id/extend", chainHandlers.PostExtend)

			chainAPI.GET("/tx", chainHandlers.GetRecentTx)
			chainAPI.GET("/tx/:requestId", chainHandlers.GetTx)
		}

		demo := api.Group("/demo")
		demo.Use(identity)
		{
			demo.GET("/stories", demoHandlers.GetStories)
			demo.POST("/stories", demoHandlers.PostStory)
			demo.GET("/stories/:id", demoHandlers.GetStory)
			demo.GET("/stories/:id/progress", demoHandlers.GetProgress)
			demo.POST("/stories/:id/chapters", demoHandlers.PostChapter)
			demo.GET("/stories/:id/chapters/:number/submissions", demoHandlers.GetSubmissions)
			demo.POST("/stories/:id/chapters/:number/finalize", demoHandlers.PostFinalize)
			demo.POST("/submissions/:id/votes", demoHandlers.PostVote)
			demo.GET("/voting", demoHandlers.GetVotingRounds)
			demo.GET("/users/:address/votes", demoHandlers.GetUserVotes)
			demo.GET("/users/:address/submissions", demoHandlers.GetUserSubmissions)
		}

		drafts := api.Group("/drafts")
		drafts.Use(identity)
		{
			drafts.GET("", draftHandlers.GetDrafts)
			drafts.GET("/:key", draftHandlers.GetDraft)
			drafts.PUT("/:key", draftHandlers.PutDraft)
			drafts.DELETE("/:key", draftHandlers.DeleteDraft)
		}

		eventsAPI := api.Group("/events")
		{
			eventsAPI.GET("/sse", eventHandlers.GetSSE)
			eventsAPI.GET("/ws", eventHandlers.GetWebSocket)
		}
	}

	return r
}
