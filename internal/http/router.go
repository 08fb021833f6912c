package http

import (
	"os"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/filevault-backend/internal/http/handlers"
	httpMW "github.com/yungbote/filevault-backend/internal/http/middleware"
)

type RouterConfig struct {
	FileHandler   *httpH.FileHandler
	SearchHandler *httpH.SearchHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(httpMW.CORS())
	if os.Getenv("OTEL_ENABLED") != "" {
		r.Use(otelgin.Middleware("filevault"))
	}

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		if cfg.FileHandler != nil {
			api.POST("/files", cfg.FileHandler.Upload)
			api.GET("/files", cfg.FileHandler.ListFiles)
			api.GET("/files/:id", cfg.FileHandler.GetFile)
			api.GET("/files/:id/download", cfg.FileHandler.Download)
			api.GET("/files/:id/versions", cfg.FileHandler.ListVersions)
			api.DELETE("/files/:id", cfg.FileHandler.DeleteFile)
			api.PUT("/files/:id/tags", cfg.FileHandler.ReplaceTags)

			api.POST("/uploads/presign", cfg.FileHandler.PresignUpload)
			api.POST("/uploads/complete", cfg.FileHandler.CompleteUpload)
		}

		if cfg.SearchHandler != nil {
			api.GET("/search", cfg.SearchHandler.Search)
		}
	}

	return r
}
