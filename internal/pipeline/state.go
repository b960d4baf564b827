package pipeline

import (
	"errors"
	"fmt"
	"time"

	"narrator/internal/assets"
	"narrator/internal/cleanup"
	"narrator/internal/render"
	"narrator/internal/timeline"
	"narrator/internal/workspace"
)

// State is a build pipeline state.
type State string

const (
	StateResolving      State = "resolving"
	StateScanning       State = "scanning"
	StateAudioConcat    State = "audio_concat"
	StateRendering      State = "rendering"
	StateIntroNormalize State = "intro_normalize"
	StateVideoConcat    State = "video_concat"
	StateFinalMux       State = "final_mux"
	StateCleanup        State = "cleanup"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// StageError reports the stage a build failed in.
type StageError struct {
	Stage State
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error { return e.Err }

// FailedStage returns the stage recorded in err, if any.
func FailedStage(err error) (State, bool) {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr.Stage, true
	}
	return "", false
}

var (
	// ErrIntroNormalize marks a dropped intro. It is logged, never returned.
	ErrIntroNormalize = errors.New("intro normalization failed")
	// ErrNoNarration is returned when the asset tree holds no narration clips.
	ErrNoNarration = errors.New("no narration clips found")
	// ErrIncompleteRender is returned when fewer segments rendered than were dispatched.
	ErrIncompleteRender = errors.New("segment rendering incomplete")
)

// Run is the transient record of one build. The pipeline owns every path it
// holds; nothing outside the pipeline deletes them.
type Run struct {
	ID        string
	VideoID   string
	Workspace *workspace.Workspace
	Assets    Assets

	Folders  []assets.Folder
	Timeline timeline.Timeline
	Segments []render.Segment

	ConcatAudio string
	ConcatVideo string
	FinalAudio  string
	Final       string
	IntroUsed   bool

	State       State
	FailedStage State
	Err         error
	Cleanup     cleanup.Result

	StartedAt  time.Time
	FinishedAt time.Time
}

// Narration returns the summed narration duration in seconds.
func (r *Run) Narration() float64 { return r.Timeline.Narration }

// Intro returns the intro duration that made it into the output.
func (r *Run) Intro() float64 {
	if !r.IntroUsed {
		return 0
	}
	return r.Timeline.Intro
}

// Elapsed returns the wall time of the build so far.
func (r *Run) Elapsed() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
