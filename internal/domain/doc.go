// Package domain classifies social posts for mental-health crisis signals and
// resolves where they were written from.
//
// # Text Variants
//
// Two derived texts are computed from "<title> <body>":
//
//	NormalizedText  URLs and emoji removed, every non-word character replaced by a
//	                space, whitespace collapsed. Used for risk and sentiment.
//	LocationText    URLs and emoji removed, whitespace collapsed. Case and
//	                punctuation survive so "Austin, TX" keeps its comma and the
//	                uppercase state code. Used for location extraction.
//
// Feeding NormalizedText to the location patterns would lose the comma in
// "City, ST", so the extractor never sees it.
//
// # Risk Tiers
//
// Two regex alternations are evaluated in order against NormalizedText:
//
//	High:     suicide/suicidal, kill myself, end it all, can't take it anymore, ...
//	Moderate: help needed, can't cope, overwhelmed, panic attack, hopeless, ...
//
// The first tier that matches wins; with no match the tier is Low.
//
// # Sentiment
//
// Two polarity scores in [-1, 1] are kept side by side. The primary (VADER
// compound) drives the label:
//
//	score >  0.05  Positive
//	score < -0.05  Negative
//	otherwise      Neutral
//
// The secondary (lexicon polarity) is stored for ranking and never blended in.
//
// # Location Resolution
//
// Strategies run in order and the first hit wins:
//
//	1. pattern     "stuck in Denver CO", "in Austin, TX", "Boise, ID", "TX area"
//	2. entity      first GPE/LOC named entity
//	3. gazetteer   first token (or 2-3 word window) naming a known city or state
//	4. state_code  first isolated uppercase two-letter valid state code
//
// The resulting candidate is geocoded through the shared, rate-limited
// Geocoder. Bare gazetteer names are sent as "<name>, USA".
package domain
