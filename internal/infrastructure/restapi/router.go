package restapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// SetupRouter builds the gin engine with CORS, request logging, recovery and
// the API, health and metrics routes.
func SetupRouter(portfolioHandler *PortfolioHandler, allowedOrigins []string, zapLogger *zap.Logger) *gin.Engine {
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	if len(allowedOrigins) == 0 {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	router.Use(ZapLoggerMiddleware(zapLogger.Named("http")))
	router.Use(gin.Recovery())

	v1 := router.Group("/api/v1")
	{
		v1.GET("/portfolio", portfolioHandler.GetPortfolioHandler)
		v1.GET("/snapshots", portfolioHandler.GetSnapshotsHandler)
	}

	router.GET("/healthz", HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}
