package export

import (
	"encoding/json"
	"fmt"

	"github.com/lewtec/revisor/internal/domain"
)

type bundleImage struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

type bundleSummary struct {
	Total   int            `json:"total"`
	ByState map[string]int `json:"byState"`
	ByClass map[string]int `json:"byClass"`
}

type bundleDocument struct {
	Image       bundleImage          `json:"image"`
	Annotations []*domain.Annotation `json:"annotations"`
	Summary     bundleSummary        `json:"summary"`
}

// EncodeBundle emits the generic JSON export: a full-fidelity dump of
// every annotation including state and timestamps, with summary counts
// by state and class. Nothing is filtered out.
func EncodeBundle(annotations []*domain.Annotation, meta ImageMeta) (Result, error) {
	doc := bundleDocument{
		Image: bundleImage{
			ID:       meta.ID,
			Filename: meta.Filename,
			Width:    meta.Width,
			Height:   meta.Height,
		},
		Annotations: annotations,
		Summary: bundleSummary{
			Total:   len(annotations),
			ByState: map[string]int{},
			ByClass: map[string]int{},
		},
	}
	if doc.Annotations == nil {
		doc.Annotations = []*domain.Annotation{}
	}
	for _, a := range annotations {
		doc.Summary.ByState[string(a.State)]++
		doc.Summary.ByClass[a.ClassName]++
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("while encoding annotation bundle: %w", err)
	}
	return Result{
		Data:     data,
		Filename: baseName(meta) + ".annotations.json",
		MIMEType: "application/json",
	}, nil
}
