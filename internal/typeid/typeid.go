package typeid

import "go.jetify.com/typeid/v2"

const (
	PrefixImage   = "img"
	PrefixPolygon = "poly"
	PrefixJob     = "job"
)

func New(prefix string) string {
	id := typeid.MustGenerate(prefix)
	return id.String()
}

func NewPolygonID() string { return New(PrefixPolygon) }
func NewImageID() string   { return New(PrefixImage) }
func NewJobID() string     { return New(PrefixJob) }
