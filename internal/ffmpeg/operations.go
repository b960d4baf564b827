package ffmpeg

import (
	"context"
	"errors"
	"strconv"
)

// AudioSettings controls narration encoding.
type AudioSettings struct {
	Codec      string
	Bitrate    string
	SampleRate int
	Channels   int
}

func (a AudioSettings) args() []string {
	args := []string{"-c:a", a.Codec}
	if a.Bitrate != "" {
		args = append(args, "-b:a", a.Bitrate)
	}
	if a.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(a.SampleRate))
	}
	if a.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(a.Channels))
	}
	return args
}

// VideoSettings controls the encoded frame format shared by segments and the
// normalized intro so they can be concatenated without re-encoding.
type VideoSettings struct {
	Width     int
	Height    int
	FrameRate int
	Preset    string
}

func (v VideoSettings) args() []string {
	return []string{
		"-c:v", "libx264",
		"-preset", v.Preset,
		"-pix_fmt", "yuv420p",
		"-r", strconv.Itoa(v.FrameRate),
	}
}

// ConcatAudio joins the clips listed in manifest into one re-encoded track.
func (e *Executor) ConcatAudio(ctx context.Context, manifest, output, progressFile string, audio AudioSettings) error {
	args := []string{
		"-f", "concat", "-safe", "0", "-i", manifest,
		"-filter_complex", "[0:a]anull[out]", "-map", "[out]",
	}
	args = append(args, audio.args()...)
	args = append(args, output)
	return e.Run(ctx, "audio concat", progressFile, args...)
}

// SegmentRequest describes one rendered section.
type SegmentRequest struct {
	Background string
	Image      string
	Border     string
	Duration   float64
	Output     string
	Graph      GraphOptions
	Video      VideoSettings
}

// RenderSegment composites the looping background, image, border and title
// into a clip pinned to req.Duration.
func (e *Executor) RenderSegment(ctx context.Context, req SegmentRequest) error {
	if req.Duration <= 0 {
		return errors.New("segment duration must be positive")
	}
	args := []string{
		"-stream_loop", "-1", "-i", req.Background,
		"-loop", "1", "-r", "1", "-i", req.Image,
		"-loop", "1", "-r", "1", "-i", req.Border,
		"-filter_complex", SegmentGraph(req.Graph),
		"-t", formatSeconds(req.Duration),
	}
	args = append(args, req.Video.args()...)
	args = append(args, req.Output)
	return e.Run(ctx, "render segment", "", args...)
}

// NormalizeIntro re-encodes the intro to the segment frame format, keeping
// its audio as AAC.
func (e *Executor) NormalizeIntro(ctx context.Context, input, output string, video VideoSettings) error {
	args := []string{"-i", input}
	args = append(args, video.args()...)
	args = append(args,
		"-s", strconv.Itoa(video.Width)+"x"+strconv.Itoa(video.Height),
		"-c:a", "aac",
		output,
	)
	return e.Run(ctx, "normalize intro", "", args...)
}

// ConcatVideo joins the clips in list by stream copy and drops audio.
func (e *Executor) ConcatVideo(ctx context.Context, list, output, progressFile string) error {
	return e.Run(ctx, "video concat", progressFile,
		"-f", "concat", "-safe", "0", "-i", list,
		"-c:v", "copy", "-an",
		output,
	)
}

// ExtractAudio writes the first audio stream of input encoded with audio.
func (e *Executor) ExtractAudio(ctx context.Context, input, output string, audio AudioSettings) error {
	args := []string{"-i", input, "-vn", "-map", "0:a:0"}
	args = append(args, audio.args()...)
	args = append(args, output)
	return e.Run(ctx, "extract intro audio", "", args...)
}

// Silence writes seconds of silence encoded with audio.
func (e *Executor) Silence(ctx context.Context, seconds float64, output string, audio AudioSettings) error {
	layout := "stereo"
	if audio.Channels == 1 {
		layout = "mono"
	}
	rate := audio.SampleRate
	if rate <= 0 {
		rate = 44100
	}
	args := []string{
		"-f", "lavfi", "-i", "anullsrc=r=" + strconv.Itoa(rate) + ":cl=" + layout,
		"-t", formatSeconds(seconds),
	}
	args = append(args, audio.args()...)
	args = append(args, output)
	return e.Run(ctx, "generate intro silence", "", args...)
}

// ConcatCopy joins the files in list without re-encoding.
func (e *Executor) ConcatCopy(ctx context.Context, list, output string) error {
	return e.Run(ctx, "concat copy", "",
		"-f", "concat", "-safe", "0", "-i", list,
		"-c", "copy",
		output,
	)
}

// Mux combines the video stream of video with the audio stream of audio.
// Video is copied and audio re-encoded with codec.
func (e *Executor) Mux(ctx context.Context, video, audio, output, codec, progressFile string) error {
	return e.Run(ctx, "final mux", progressFile,
		"-i", video,
		"-i", audio,
		"-c:v", "copy",
		"-c:a", codec,
		"-map", "0:v", "-map", "1:a",
		output,
	)
}

func formatSeconds(seconds float64) string {
	return strconv.FormatFloat(seconds, 'f', 3, 64)
}
