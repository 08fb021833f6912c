package app

import (
	"github.com/yungbote/filevault-backend/internal/platform/logger"
	"github.com/yungbote/filevault-backend/internal/services"
)

type Services struct {
	Validator services.ValidatorService
	Scanner   services.ScannerService
	Extractor services.ExtractorService
	Ingest    services.IngestService
	File      services.FileService
	Search    services.SearchService
}

func wireServices(log *logger.Logger, cfg Config, clients Clients, reposet Repos) (Services, error) {
	log.Info("Wiring services...")

	validator, err := services.NewValidatorService(log)
	if err != nil {
		return Services{}, err
	}
	scanner, err := services.NewScannerService(log, services.NewSignatureEngine())
	if err != nil {
		return Services{}, err
	}
	extractor, err := services.NewExtractorService(log, clients.Vision, clients.Document)
	if err != nil {
		return Services{}, err
	}
	ingest, err := services.NewIngestService(
		log,
		services.IngestConfig{ExtractMode: cfg.ExtractMode, PresignTTL: cfg.PresignTTL},
		validator,
		scanner,
		extractor,
		clients.Bucket,
		reposet.FileRecord,
		clients.Queue,
		clients.Notifier,
	)
	if err != nil {
		return Services{}, err
	}
	file, err := services.NewFileService(log, services.FileConfig{DownloadTTL: cfg.DownloadTTL}, clients.Bucket, reposet.FileRecord)
	if err != nil {
		return Services{}, err
	}
	search, err := services.NewSearchService(log, reposet.FileRecord)
	if err != nil {
		return Services{}, err
	}

	return Services{
		Validator: validator,
		Scanner:   scanner,
		Extractor: extractor,
		Ingest:    ingest,
		File:      file,
		Search:    search,
	}, nil
}
