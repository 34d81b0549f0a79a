package nlp

import (
	"log/slog"
	"sync"

	"github.com/jdkato/prose/v2"

	"github.com/couchcryptid/crisis-signal-etl/internal/domain"
)

// ProseRecognizer finds named entities with prose's averaged perceptron model.
// The model is read-only after loading and shared across goroutines.
type ProseRecognizer struct {
	logger *slog.Logger

	once  sync.Once
	model *prose.Model
	loads int
}

// NewProseRecognizer creates a recognizer. The tagger and NER model load once,
// on the first call to Entities.
func NewProseRecognizer(logger *slog.Logger) *ProseRecognizer {
	return &ProseRecognizer{logger: logger}
}

func (r *ProseRecognizer) loadModel() *prose.Model {
	r.once.Do(func() {
		doc, err := prose.NewDocument("", prose.WithSegmentation(false))
		if err != nil {
			r.logger.Warn("load entity model", "error", err)
			return
		}
		r.model = doc.Model
		r.loads++
	})
	return r.model
}

// Entities returns entities in document order. prose tags places as GPE;
// other labels pass through unchanged. A tokenizer failure yields no entities.
func (r *ProseRecognizer) Entities(text string) []domain.Entity {
	if text == "" {
		return nil
	}
	model := r.loadModel()
	if model == nil {
		return nil
	}
	doc, err := prose.NewDocument(text, prose.WithSegmentation(false), prose.UsingModel(model))
	if err != nil {
		r.logger.Debug("entity recognition failed", "error", err)
		return nil
	}
	ents := doc.Entities()
	out := make([]domain.Entity, 0, len(ents))
	for _, e := range ents {
		out = append(out, domain.Entity{Text: e.Text, Label: e.Label})
	}
	return out
}
