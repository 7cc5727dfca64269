package config

import (
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"golang.org/x/xerrors"
)

// Settings is the recognized configuration. Empty paths are derived from SourceRoot.
type Settings struct {
	SourceRoot  string `env:"SOURCE_ROOT"  envDefault:".."`
	DatasetRoot string `env:"DATASET_ROOT"`
	StatsFolder string `env:"STATS_FOLDER" envDefault:"./stats"`

	ModelWeightsPath         string  `env:"MODEL_WEIGHTS_PATH"`
	ModelConfigPath          string  `env:"MODEL_CONFIG_PATH"`
	ModelLabelsPath          string  `env:"MODEL_LABELS_PATH"`
	ModelLabelSet            string  `env:"MODEL_LABEL_SET"            envDefault:"coco90"`
	ModelClassOffset         int     `env:"MODEL_CLASS_OFFSET"         envDefault:"1"`
	ModelConfidenceThreshold float32 `env:"MODEL_CONFIDENCE_THRESHOLD" envDefault:"0.7"`
	ModelMaskThreshold       float32 `env:"MODEL_MASK_THRESHOLD"       envDefault:"0.3"`

	FrameSampleInterval int    `env:"FRAME_SAMPLE_INTERVAL" envDefault:"6"`
	FrameFilePrefix     string `env:"FRAME_FILE_PREFIX"     envDefault:"frame"`
	FrameFileExt        string `env:"FRAME_FILE_EXT"        envDefault:".jpg"`

	LogLevel          string `env:"LOG_LEVEL"          envDefault:"info"`
	LogFile           string `env:"LOG_FILE"           envDefault:"vs-prep.log"`
	DetectionsLog     string `env:"DETECTIONS_LOG"     envDefault:"detections.log"`
	DetectionsLogging bool   `env:"DETECTIONS_LOGGING" envDefault:"false"`

	ModeMaxShutdownTime int `env:"MODE_MAX_SHUTDOWN_TIME" envDefault:"5"`
}

type envService struct {
	settings Settings
}

// NewEnv reads the settings from the process environment.
// The caller is expected to have loaded any .env file already.
func NewEnv() (IService, error) {
	settings := Settings{}
	if err := env.Parse(&settings); err != nil {
		return nil, xerrors.Errorf("parse env settings: %w", err)
	}

	return NewWithSettings(settings)
}

func NewWithSettings(settings Settings) (IService, error) {
	if settings.FrameSampleInterval <= 0 {
		return nil, xerrors.Errorf("frame sample interval must be positive, got %d", settings.FrameSampleInterval)
	}

	if settings.FrameFileExt == "" {
		settings.FrameFileExt = ".jpg"
	}

	if settings.FrameFileExt[0] != '.' {
		settings.FrameFileExt = "." + settings.FrameFileExt
	}

	return &envService{
		settings: settings,
	}, nil
}

func (svc *envService) GetModeMaxShutdownTime() int {
	return svc.settings.ModeMaxShutdownTime
}

func (svc *envService) GetSourceRoot() string {
	return svc.settings.SourceRoot
}

func (svc *envService) GetDatasetRoot() string {
	if svc.settings.DatasetRoot != "" {
		return svc.settings.DatasetRoot
	}
	return filepath.Join(svc.settings.SourceRoot, "dataset")
}

func (svc *envService) GetStatsFolder() string {
	return svc.settings.StatsFolder
}

func (svc *envService) GetModelWeightsPath() string {
	if svc.settings.ModelWeightsPath != "" {
		return svc.settings.ModelWeightsPath
	}
	return filepath.Join(svc.settings.SourceRoot, "dependencies", "mask_rcnn", "frozen_inference_graph.pb")
}

func (svc *envService) GetModelConfigPath() string {
	return svc.settings.ModelConfigPath
}

// An empty labels path selects the built-in table named by the label set
func (svc *envService) GetModelLabelsPath() string {
	return svc.settings.ModelLabelsPath
}

// Which built-in table class ids index when no labels file is set: coco90 or coco80
func (svc *envService) GetModelLabelSet() string {
	return svc.settings.ModelLabelSet
}

func (svc *envService) GetModelClassOffset() int {
	return svc.settings.ModelClassOffset
}

func (svc *envService) GetModelConfidenceThreshold() float32 {
	return svc.settings.ModelConfidenceThreshold
}

func (svc *envService) GetModelMaskThreshold() float32 {
	return svc.settings.ModelMaskThreshold
}

func (svc *envService) GetFrameSampleInterval() int {
	return svc.settings.FrameSampleInterval
}

func (svc *envService) GetFrameFilePrefix() string {
	return svc.settings.FrameFilePrefix
}

func (svc *envService) GetFrameFileExt() string {
	return svc.settings.FrameFileExt
}

func (svc *envService) GetLogLevel() string {
	return svc.settings.LogLevel
}

func (svc *envService) GetLogFile() string {
	return svc.settings.LogFile
}

func (svc *envService) GetDetectionsLog() string {
	return svc.settings.DetectionsLog
}

func (svc *envService) IsDetectionsLogging() bool {
	return svc.settings.DetectionsLogging
}
