// Package nlp adapts natural language libraries to the domain's
// PolarityScorer and EntityRecognizer interfaces.
//
// Vader wraps a VADER sentiment analyzer and produces the primary polarity
// that drives the sentiment label. Lexicon is a small word-list scorer kept
// as the independent secondary signal. ProseRecognizer runs prose's named
// entity model and maps its GPE entities onto domain place labels.
package nlp
