package app

import (
	httpH "github.com/yungbote/filevault-backend/internal/http/handlers"
	"github.com/yungbote/filevault-backend/internal/platform/logger"
)

type Handlers struct {
	File   *httpH.FileHandler
	Search *httpH.SearchHandler
	Health *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, serviceset Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		File:   httpH.NewFileHandler(log, serviceset.Ingest, serviceset.File),
		Search: httpH.NewSearchHandler(log, serviceset.Search),
		Health: httpH.NewHealthHandler(),
	}
}
