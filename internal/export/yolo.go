package export

import (
	"fmt"
	"strings"

	"github.com/lewtec/revisor/internal/domain"
)

// EncodeYOLO emits one normalized line per non-rejected annotation:
// "classIndex centerX centerY width height", each coordinate divided by
// the image dimension and formatted to six decimal places.
func EncodeYOLO(annotations []*domain.Annotation, meta ImageMeta, classes []string) (Result, error) {
	if meta.Width <= 0 || meta.Height <= 0 {
		return Result{}, fmt.Errorf("export: yolo needs positive image dimensions, got %dx%d", meta.Width, meta.Height)
	}
	w, h := float64(meta.Width), float64(meta.Height)
	var b strings.Builder
	for _, a := range annotations {
		if a.State == domain.StateRejected {
			continue
		}
		center := a.BBox.Center()
		fmt.Fprintf(&b, "%d %.6f %.6f %.6f %.6f\n",
			classIndex(classes, a.ClassName),
			center.X/w, center.Y/h,
			a.BBox.Width/w, a.BBox.Height/h)
	}
	return Result{
		Data:     []byte(b.String()),
		Filename: baseName(meta) + ".txt",
		MIMEType: "text/plain",
	}, nil
}
