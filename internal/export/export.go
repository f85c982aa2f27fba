// Package export turns an annotation list plus image metadata into the
// interchange formats detection pipelines consume. Encoders are pure
// and order-preserving so exports stay diffable.
package export

import (
	"fmt"
	"path"
	"strings"

	"github.com/lewtec/revisor/internal/domain"
)

// Format selects an output encoding.
type Format string

const (
	FormatYOLO      Format = "yolo"
	FormatPascalVOC Format = "pascal_voc"
	FormatCOCO      Format = "coco"
	FormatJSON      Format = "json"
)

// Formats lists the supported encodings.
var Formats = []Format{FormatYOLO, FormatPascalVOC, FormatCOCO, FormatJSON}

// ImageMeta is the image-level metadata encoders need.
type ImageMeta struct {
	ID       string
	Filename string
	Width    int
	Height   int
}

// Result is an encoded document ready to be served or written out.
type Result struct {
	Data     []byte
	Filename string
	MIMEType string
}

// Export dispatches to the encoder for a format. The class list is the
// closed set the annotations were coerced against; its order defines
// the class indexes.
func Export(format Format, annotations []*domain.Annotation, meta ImageMeta, classes []string) (Result, error) {
	switch format {
	case FormatYOLO:
		return EncodeYOLO(annotations, meta, classes)
	case FormatPascalVOC:
		return EncodePascalVOC(annotations, meta)
	case FormatCOCO:
		return EncodeCOCO(annotations, meta, classes)
	case FormatJSON:
		return EncodeBundle(annotations, meta)
	default:
		return Result{}, fmt.Errorf("export: unknown format %q", format)
	}
}

// classIndex resolves a class name to its zero-based index in the
// closed set, falling back to the catch-all for anything unknown.
func classIndex(classes []string, name string) int {
	fallback := 0
	for i, c := range classes {
		if c == name {
			return i
		}
		if c == "Other" {
			fallback = i
		}
	}
	return fallback
}

// baseName strips the extension off the source image filename so every
// export for one image shares a stem.
func baseName(meta ImageMeta) string {
	name := meta.Filename
	if name == "" {
		name = meta.ID
	}
	if name == "" {
		name = "annotations"
	}
	return strings.TrimSuffix(name, path.Ext(name))
}
