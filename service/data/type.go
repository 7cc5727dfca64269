package data

import "github.com/khaledhikmat/vs-prep/model"

type IService interface {
	NewError(err interface{}) error
	NewExtractorStats(stats model.ExtractorStats) error
	NewReaderStats(stats model.ReaderStats) error
	NewMaskerStats(stats model.MaskerStats) error
	NewDatasetStats(stats model.DatasetStats) error
}
