package model

import (
	"fmt"
	"image"
	"runtime/debug"
)

type CustomError struct {
	Processor  string                 `json:"processor"`
	Inner      error                  `json:"innerError"`
	Message    string                 `json:"message"`
	StackTrace string                 `json:"stackTrace"`
	Misc       map[string]interface{} `json:"misc"`
}

func (e CustomError) Error() string {
	if e.Inner == nil {
		return fmt.Sprintf("%s: %s", e.Processor, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Processor, e.Message, e.Inner)
}

func (e CustomError) Unwrap() error {
	return e.Inner
}

func GenError(proc string, err error, misc map[string]interface{}, messagef string, args ...interface{}) CustomError {
	return CustomError{
		Processor:  proc,
		Inner:      err,
		Message:    fmt.Sprintf(messagef, args...),
		StackTrace: string(debug.Stack()),
		Misc:       misc,
	}
}

// Detection is one object instance reported by the segmentation model for a single image
type Detection struct {
	ClassID    int             `json:"classId"`
	Label      string          `json:"label"`
	Confidence float32         `json:"confidence"`
	Box        image.Rectangle `json:"box"`
	Mask       Mask            `json:"-"`
}

type ExtractorStats struct {
	RunID       string `json:"runId"`
	Source      string `json:"source"`
	Destination string `json:"destination"`
	FramesRead  int    `json:"framesRead"`
	FramesSaved int    `json:"framesSaved"`
	Errors      int    `json:"errors"`
	Uptime      int64  `json:"uptime"`
	Timestamp   int64  `json:"timestamp"`
}

type ReaderStats struct {
	RunID     string `json:"runId"`
	Source    string `json:"source"`
	Frames    int    `json:"frames"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Uptime    int64  `json:"uptime"`
	Timestamp int64  `json:"timestamp"`
}

type MaskerStats struct {
	RunID       string  `json:"runId"`
	Source      string  `json:"source"`
	Images      int     `json:"images"`
	Persons     int     `json:"persons"`     // Images where at least one person was found
	PassThrough int     `json:"passThrough"` // Images returned unchanged
	Errors      int     `json:"errors"`
	AvgProcTime float64 `json:"avgProcTime"`
	Uptime      int64   `json:"uptime"`
	Timestamp   int64   `json:"timestamp"`
}

type DatasetStats struct {
	RunID       string `json:"runId"`
	Root        string `json:"root"`
	Videos      int    `json:"videos"`
	Failed      int    `json:"failed"`
	FramesSaved int    `json:"framesSaved"`
	Uptime      int64  `json:"uptime"`
	Timestamp   int64  `json:"timestamp"`
}
