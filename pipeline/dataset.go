package pipeline

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/khaledhikmat/vs-prep/model"
	"github.com/khaledhikmat/vs-prep/service/lgr"
	"golang.org/x/xerrors"
)

var videoExtensions = map[string]bool{
	".avi":  true,
	".mp4":  true,
	".mkv":  true,
	".mov":  true,
	".mpg":  true,
	".mpeg": true,
	".webm": true,
}

// FramesRoot is where a collection's frames land, e.g. dataset/HMDB51 -> dataset/HMDB51(frames)
func FramesRoot(collectionRoot string) string {
	return filepath.Clean(collectionRoot) + "(frames)"
}

// ExtractDataset extracts every video of a <collection>/<class>/<video> tree into
// <collection>(frames)/<class>/<video name>/. Videos that fail are counted and skipped.
func ExtractDataset(canxCtx context.Context, svcs ServicesFactory, collection string) (stats model.DatasetStats, err error) {
	startTime := time.Now()
	root := ResolveVideoPath(svcs.CfgSvc, collection)
	stats = model.DatasetStats{
		Root: root,
	}

	defer func() {
		stats.Uptime = int64(time.Since(startTime).Seconds())
	}()

	classes, err := os.ReadDir(root)
	if err != nil {
		return stats, lgr.Traced(xerrors.Errorf("read collection %s: %w", root, err))
	}

	output := FramesRoot(root)
	for _, class := range classes {
		if !class.IsDir() {
			continue
		}

		videos, err := os.ReadDir(filepath.Join(root, class.Name()))
		if err != nil {
			return stats, lgr.Traced(xerrors.Errorf("read class %s: %w", class.Name(), err))
		}

		for _, video := range videos {
			ext := strings.ToLower(filepath.Ext(video.Name()))
			if video.IsDir() || !videoExtensions[ext] {
				continue
			}

			if err := canxCtx.Err(); err != nil {
				return stats, err
			}

			source := filepath.Join(root, class.Name(), video.Name())
			destination := filepath.Join(output, class.Name(), strings.TrimSuffix(video.Name(), filepath.Ext(video.Name())))

			videoStats, err := ExtractFrames(canxCtx, svcs, source, destination)
			if err != nil {
				if canxCtx.Err() != nil {
					return stats, canxCtx.Err()
				}

				stats.Failed++
				lgr.Logger.WarnContext(canxCtx,
					"dataset video skipped",
					slog.String("video", source),
					slog.Any("error", err),
				)
				if svcs.DataSvc != nil {
					errTemp := svcs.DataSvc.NewError(model.GenError("dataset_extractor",
						err,
						map[string]interface{}{"video": source},
						"error extracting video %s",
						video.Name()))
					if errTemp != nil {
						lgr.Logger.Error(
							"failed to store error",
							slog.Any("error", errTemp),
						)
					}
				}
				continue
			}

			stats.Videos++
			stats.FramesSaved += videoStats.FramesSaved

			if svcs.DataSvc != nil {
				if err := svcs.DataSvc.NewExtractorStats(videoStats); err != nil {
					lgr.Logger.Error(
						"failed to store extractor stats",
						slog.Any("stats", videoStats),
						slog.Any("error", err),
					)
				}
			}
		}
	}

	return stats, nil
}
