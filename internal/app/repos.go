package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/repos"
)

type Repos struct {
	FileRecord repos.FileRecordRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		FileRecord: repos.NewFileRecordRepo(db, log),
	}
}
