package config

type IService interface {
	GetModeMaxShutdownTime() int
	GetSourceRoot() string
	GetDatasetRoot() string
	GetStatsFolder() string

	GetModelWeightsPath() string
	GetModelConfigPath() string
	GetModelLabelsPath() string
	GetModelLabelSet() string
	GetModelClassOffset() int
	GetModelConfidenceThreshold() float32
	GetModelMaskThreshold() float32

	GetFrameSampleInterval() int
	GetFrameFilePrefix() string
	GetFrameFileExt() string

	GetLogLevel() string
	GetLogFile() string
	GetDetectionsLog() string
	IsDetectionsLogging() bool
}
