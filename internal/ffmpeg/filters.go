package ffmpeg

import (
	"fmt"
	"strconv"
	"strings"

	"narrator/internal/textutil"
)

// GraphOptions parameterizes the segment composite.
type GraphOptions struct {
	Width      int
	Height     int
	ImageScale float64
	Title      string
	FontSize   int
	TitleY     int
	FontFile   string
}

// SegmentGraph builds the filter_complex for a segment. Inputs are the
// background (0), the image (1) and the border (2). The image and border are
// scaled by ImageScale and centred over the background, and a white title is
// drawn near the top when one is set.
func SegmentGraph(opts GraphOptions) string {
	scale := strconv.FormatFloat(opts.ImageScale, 'f', -1, 64)

	var b strings.Builder
	fmt.Fprintf(&b, "[0:v]scale=%d:%d[bg];", opts.Width, opts.Height)
	fmt.Fprintf(&b, "[1:v]scale=iw*%s:ih*%s[img];", scale, scale)
	fmt.Fprintf(&b, "[2:v]scale=iw*%s:ih*%s[border];", scale, scale)
	b.WriteString("[bg][img]overlay=(W-w)/2:(H-h)/2[temp];")
	b.WriteString("[temp][border]overlay=(W-w)/2:(H-h)/2")

	if title := strings.TrimSpace(opts.Title); title != "" {
		b.WriteString(",drawtext=")
		if opts.FontFile != "" {
			b.WriteString("fontfile=")
			b.WriteString(textutil.EscapeDrawtext(opts.FontFile))
			b.WriteByte(':')
		}
		fmt.Fprintf(&b, "text=%s:expansion=none:fontcolor=white:fontsize=%d:x=(w-text_w)/2:y=%d", textutil.EscapeDrawtext(title), opts.FontSize, opts.TitleY)
		b.WriteString(":shadowcolor=black:shadowx=3:shadowy=3:borderw=2:bordercolor=white")
	}
	return b.String()
}
