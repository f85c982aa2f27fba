package export

import (
	"encoding/xml"
	"fmt"
	"math"

	"github.com/lewtec/revisor/internal/domain"
)

type vocDocument struct {
	XMLName  xml.Name  `xml:"annotation"`
	Folder   string    `xml:"folder"`
	Filename string    `xml:"filename"`
	Size     vocSize   `xml:"size"`
	Objects  []vocObject `xml:"object"`
}

type vocSize struct {
	Width  int `xml:"width"`
	Height int `xml:"height"`
	Depth  int `xml:"depth"`
}

type vocObject struct {
	Name      string `xml:"name"`
	Pose      string `xml:"pose"`
	Truncated int    `xml:"truncated"`
	Difficult int    `xml:"difficult"`
	BndBox    vocBox `xml:"bndbox"`
}

type vocBox struct {
	Xmin int `xml:"xmin"`
	Ymin int `xml:"ymin"`
	Xmax int `xml:"xmax"`
	Ymax int `xml:"ymax"`
}

// EncodePascalVOC emits one Pascal VOC XML document for the image.
// Rejected annotations are skipped; modified ones carry the difficult
// flag so downstream training can treat hand-corrected boxes apart.
func EncodePascalVOC(annotations []*domain.Annotation, meta ImageMeta) (Result, error) {
	doc := vocDocument{
		Folder:   "images",
		Filename: meta.Filename,
		Size:     vocSize{Width: meta.Width, Height: meta.Height, Depth: 3},
	}
	for _, a := range annotations {
		if a.State == domain.StateRejected {
			continue
		}
		difficult := 0
		if a.State == domain.StateModified {
			difficult = 1
		}
		doc.Objects = append(doc.Objects, vocObject{
			Name:      a.ClassName,
			Pose:      "Unspecified",
			Difficult: difficult,
			BndBox: vocBox{
				Xmin: int(math.Round(a.BBox.X)),
				Ymin: int(math.Round(a.BBox.Y)),
				Xmax: int(math.Round(a.BBox.Right())),
				Ymax: int(math.Round(a.BBox.Bottom())),
			},
		})
	}
	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return Result{}, fmt.Errorf("while encoding pascal voc document: %w", err)
	}
	return Result{
		Data:     append([]byte(xml.Header), data...),
		Filename: baseName(meta) + ".xml",
		MIMEType: "application/xml",
	}, nil
}
