package export

import (
	"encoding/json"
	"fmt"

	"github.com/lewtec/revisor/internal/domain"
)

type cocoDocument struct {
	Images      []cocoImage      `json:"images"`
	Categories  []cocoCategory   `json:"categories"`
	Annotations []cocoAnnotation `json:"annotations"`
}

type cocoImage struct {
	ID       int    `json:"id"`
	FileName string `json:"file_name"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type cocoCategory struct {
	ID            int    `json:"id"`
	Name          string `json:"name"`
	Supercategory string `json:"supercategory"`
}

type cocoAnnotation struct {
	ID           int         `json:"id"`
	ImageID      int         `json:"image_id"`
	CategoryID   int         `json:"category_id"`
	BBox         [4]float64  `json:"bbox"`
	Area         float64     `json:"area"`
	Score        float64     `json:"score"`
	Segmentation [][]float64 `json:"segmentation,omitempty"`
	IsCrowd      int         `json:"iscrowd"`
}

// EncodeCOCO emits one COCO JSON document for the image. Category ids
// are the 1-based indexes into the closed class list; rejected
// annotations are skipped.
func EncodeCOCO(annotations []*domain.Annotation, meta ImageMeta, classes []string) (Result, error) {
	doc := cocoDocument{
		Images: []cocoImage{{
			ID:       1,
			FileName: meta.Filename,
			Width:    meta.Width,
			Height:   meta.Height,
		}},
		Annotations: []cocoAnnotation{},
	}
	for i, name := range classes {
		doc.Categories = append(doc.Categories, cocoCategory{
			ID:            i + 1,
			Name:          name,
			Supercategory: "vehicle",
		})
	}
	next := 1
	for _, a := range annotations {
		if a.State == domain.StateRejected {
			continue
		}
		ann := cocoAnnotation{
			ID:         next,
			ImageID:    1,
			CategoryID: classIndex(classes, a.ClassName) + 1,
			BBox:       [4]float64{a.BBox.X, a.BBox.Y, a.BBox.Width, a.BBox.Height},
			Area:       a.BBox.Width * a.BBox.Height,
			Score:      a.Confidence,
		}
		if len(a.Mask) > 0 {
			ring := make([]float64, 0, len(a.Mask)*2)
			for _, p := range a.Mask {
				ring = append(ring, p.X, p.Y)
			}
			ann.Segmentation = [][]float64{ring}
		}
		doc.Annotations = append(doc.Annotations, ann)
		next++
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("while encoding coco document: %w", err)
	}
	return Result{
		Data:     data,
		Filename: baseName(meta) + ".json",
		MIMEType: "application/json",
	}, nil
}
