package pipeline

import (
	"github.com/couchcryptid/occurrence-metrics/internal/domain"
)

// Classifier implements Transformer using the domain date inference chain and
// record classifier. It is stateless and safe for concurrent use.
type Classifier struct{}

// NewClassifier creates a Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Transform runs date inference once per record and derives every
// classification flag from the record and its resolution.
func (c *Classifier) Transform(rec domain.OccurrenceRecord) domain.Classified {
	date := domain.InferEventDate(rec)
	return domain.Classified{
		Record: rec,
		Date:   date,
		Flags:  domain.ClassifyRecord(rec, date),
	}
}
