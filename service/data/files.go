package data

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/khaledhikmat/vs-prep/model"
	"github.com/khaledhikmat/vs-prep/service/config"
	"golang.org/x/xerrors"
)

type filesDBService struct {
	CfgSvc config.IService
	mu     sync.Mutex
}

// NewFilesDB keeps one JSON array per entity kind in the stats folder
func NewFilesDB(cfgsvc config.IService) IService {
	return &filesDBService{
		CfgSvc: cfgsvc,
	}
}

func (svc *filesDBService) NewError(err interface{}) error {
	// Determine if the error is custom
	var customErr model.CustomError
	switch e := err.(type) {
	case model.CustomError:
		customErr = e
	case error:
		customErr.Processor = "N/A"
		customErr.Inner = e
		customErr.Message = e.Error()
		customErr.StackTrace = "N/A"
	default:
		customErr.Processor = "N/A"
		customErr.Message = fmt.Sprintf("%v", err)
		customErr.StackTrace = "N/A"
	}

	inner := ""
	if customErr.Inner != nil {
		inner = customErr.Inner.Error()
	}

	// Create an error object to persist
	errorData := struct {
		Timestamp  int64                  `json:"timestamp"`
		Processor  string                 `json:"processor"`
		Inner      string                 `json:"innerError"`
		Message    string                 `json:"message"`
		StackTrace string                 `json:"stackTrace"`
		Misc       map[string]interface{} `json:"misc"`
	}{
		Timestamp:  time.Now().Unix(),
		Processor:  customErr.Processor,
		Inner:      inner,
		Message:    customErr.Message,
		StackTrace: customErr.StackTrace,
		Misc:       customErr.Misc,
	}
	return newEntity(svc, errorData, "errors")
}

func (svc *filesDBService) NewExtractorStats(stats model.ExtractorStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, "extractor-stats")
}

func (svc *filesDBService) NewReaderStats(stats model.ReaderStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, "reader-stats")
}

func (svc *filesDBService) NewMaskerStats(stats model.MaskerStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, "masker-stats")
}

func (svc *filesDBService) NewDatasetStats(stats model.DatasetStats) error {
	stats.Timestamp = time.Now().Unix()
	return newEntity(svc, stats, "dataset-stats")
}

func (svc *filesDBService) entityPath(filename string) string {
	return filepath.Join(svc.CfgSvc.GetStatsFolder(), filename+".json")
}

func newEntity[T any](svc *filesDBService, entity T, filename string) error {
	svc.mu.Lock()
	defer svc.mu.Unlock()

	output := svc.entityPath(filename)
	entities, err := retrieveEntities[T](output)
	if err != nil {
		return err
	}

	entities = append(entities, entity)

	data, err := json.MarshalIndent(entities, "", "  ")
	if err != nil {
		return xerrors.Errorf("marshal %s: %w", filename, err)
	}

	if err := os.MkdirAll(filepath.Dir(output), 0755); err != nil {
		return xerrors.Errorf("create stats folder: %w", err)
	}

	// Write the JSON data to the file (with truncation)
	if err := os.WriteFile(output, data, 0644); err != nil {
		return xerrors.Errorf("write %s: %w", output, err)
	}

	return nil
}

func retrieveEntities[T any](path string) ([]T, error) {
	entities := []T{}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		// WARNING: File not found, return empty slice
		return entities, nil
	}
	if err != nil {
		return nil, xerrors.Errorf("read %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, xerrors.Errorf("unmarshal %s: %w", path, err)
	}

	return entities, nil
}
