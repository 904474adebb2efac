package upload

import (
	"encoding/json"

	"github.com/abduss/imgbed/internal/gallery"
	"github.com/abduss/imgbed/internal/hoster"
)

// Target formats accepted by the upload endpoint.
const (
	FormatOriginal = "original"
	FormatWebP     = "webp"
	FormatAVIF     = "avif"
)

// Candidate is an image moving through the pipeline. Each stage returns a new value.
// When Data is nil, Open supplies the bytes; it is called only once the
// declared type and size have passed validation.
type Candidate struct {
	OriginalName string
	Name         string
	MIMEType     string
	Size         int64
	Data         []byte
	Open         func() ([]byte, error)
}

func (c Candidate) replace(name, mimeType string, data []byte) Candidate {
	return Candidate{
		OriginalName: c.OriginalName,
		Name:         name,
		MIMEType:     mimeType,
		Size:         int64(len(data)),
		Data:         data,
	}
}

// Batch is one upload request.
type Batch struct {
	ClientID string
	Files    []Candidate
	Category string
	Format   string
}

// Outcome is the per-file result.
type Outcome struct {
	Success      bool           `json:"success"`
	FileName     string         `json:"fileName,omitempty"`
	Message      string         `json:"message,omitempty"`
	Data         *hoster.Result `json:"data,omitempty"`
	Cached       bool           `json:"cached,omitempty"`
	OriginalSize int64          `json:"originalSize,omitempty"`
	Status       int            `json:"status,omitempty"`
	Response     string         `json:"response,omitempty"`
}

// Response aggregates a batch. It serializes to the single-file shape when
// exactly one file was submitted.
type Response struct {
	Outcomes []Outcome
	Gallery  []gallery.Record
}

// Successful counts succeeded outcomes.
func (r Response) Successful() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Success {
			n++
		}
	}
	return n
}

type singleBody struct {
	Success  bool             `json:"success"`
	Message  string           `json:"message"`
	Data     *hoster.Result   `json:"data,omitempty"`
	Cached   bool             `json:"cached,omitempty"`
	Status   int              `json:"status,omitempty"`
	Response string           `json:"response,omitempty"`
	Gallery  []gallery.Record `json:"gallery"`
}

type multiBody struct {
	Success    bool             `json:"success"`
	Results    []Outcome        `json:"results"`
	Total      int              `json:"total"`
	Successful int              `json:"successful"`
	Gallery    []gallery.Record `json:"gallery"`
}

func (r Response) MarshalJSON() ([]byte, error) {
	snapshot := r.Gallery
	if snapshot == nil {
		snapshot = []gallery.Record{}
	}
	if len(r.Outcomes) == 1 {
		o := r.Outcomes[0]
		body := singleBody{Success: o.Success, Message: o.Message, Gallery: snapshot}
		if o.Success {
			body.Message = "upload succeeded"
			body.Data = o.Data
			body.Cached = o.Cached
		} else {
			body.Status = o.Status
			body.Response = o.Response
		}
		return json.Marshal(body)
	}
	results := r.Outcomes
	if results == nil {
		results = []Outcome{}
	}
	return json.Marshal(multiBody{
		Success:    true,
		Results:    results,
		Total:      len(results),
		Successful: r.Successful(),
		Gallery:    snapshot,
	})
}
