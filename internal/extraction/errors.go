package extraction

import "fmt"

// Stage identifies which extraction stage failed.
type Stage string

const (
	StageVision    Stage = "vision"
	StageParse     Stage = "parse"
	StageRasterize Stage = "rasterize"
)

// Error is a fatal extraction failure. It aborts the whole import run;
// there is no partial-document fallback.
type Error struct {
	Stage Stage
	Page  int
	Err   error
}

func (e *Error) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("extraction failed at %s stage (page %d): %v", e.Stage, e.Page, e.Err)
	}
	return fmt.Sprintf("extraction failed at %s stage: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
