package inference

import (
	"os"
	"strings"

	"github.com/khaledhikmat/vs-prep/service/lgr"
	"golang.org/x/xerrors"
)

const PersonLabel = "person"

// COCO class names as ordered by the Mask R-CNN COCO weights. Index 0 is the background.
var cocoLabels = []string{
	"BG", "person", "bicycle", "car", "motorcycle", "airplane",
	"bus", "train", "truck", "boat", "traffic light",
	"fire hydrant", "stop sign", "parking meter", "bench", "bird",
	"cat", "dog", "horse", "sheep", "cow", "elephant", "bear",
	"zebra", "giraffe", "backpack", "umbrella", "handbag", "tie",
	"suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard",
	"surfboard", "tennis racket", "bottle", "wine glass", "cup",
	"fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza",
	"donut", "cake", "chair", "couch", "potted plant", "bed",
	"dining table", "toilet", "tv", "laptop", "mouse", "remote",
	"keyboard", "cell phone", "microwave", "oven", "toaster",
	"sink", "refrigerator", "book", "clock", "vase", "scissors",
	"teddy bear", "hair drier", "toothbrush",
}

const (
	// LabelSetCOCO90 indexes by the 90 id COCO numbering the TensorFlow Mask R-CNN graphs emit
	LabelSetCOCO90 = "coco90"
	// LabelSetCOCO80 indexes the 80 classes contiguously, as Matterport style weights do
	LabelSetCOCO80 = "coco80"
)

// Slots of the 90 id numbering that no COCO class uses
var coco90Gaps = map[int]bool{
	12: true, 26: true, 29: true, 30: true, 45: true,
	66: true, 68: true, 69: true, 71: true, 83: true,
}

// DefaultLabels returns the contiguous 81 entry table
func DefaultLabels() []string {
	labels := make([]string, len(cocoLabels))
	copy(labels, cocoLabels)
	return labels
}

// COCO90Labels spreads the same 81 entries over the 91 slots of the 90 id numbering.
// Unused slots are empty and resolve to "unknown".
func COCO90Labels() []string {
	labels := make([]string, 0, len(cocoLabels)+len(coco90Gaps))
	for _, name := range cocoLabels {
		for coco90Gaps[len(labels)] {
			labels = append(labels, "")
		}
		labels = append(labels, name)
	}
	return labels
}

// SelectLabels loads path when set, otherwise the built-in table for set
func SelectLabels(set, path string) ([]string, error) {
	if path != "" {
		return LoadLabels(path)
	}

	switch set {
	case "", LabelSetCOCO90:
		return COCO90Labels(), nil
	case LabelSetCOCO80:
		return DefaultLabels(), nil
	default:
		return nil, lgr.Traced(xerrors.Errorf("unknown label set %q", set))
	}
}

// LoadLabels reads one label per line. An empty path yields the COCO table.
func LoadLabels(path string) ([]string, error) {
	if path == "" {
		return DefaultLabels(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, lgr.Traced(xerrors.Errorf("read labels %s: %w", path, err))
	}

	labels := []string{}
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		labels = append(labels, strings.TrimSpace(line))
	}

	if len(labels) == 0 || (len(labels) == 1 && labels[0] == "") {
		return nil, lgr.Traced(xerrors.Errorf("labels file %s is empty", path))
	}

	return labels, nil
}

// Label maps a model class id to its name, "unknown" when out of range
func Label(labels []string, classID, offset int) string {
	idx := classID + offset
	if idx < 0 || idx >= len(labels) || labels[idx] == "" {
		return "unknown"
	}
	return labels[idx]
}

func IsPerson(label string) bool {
	return strings.EqualFold(label, PersonLabel)
}
