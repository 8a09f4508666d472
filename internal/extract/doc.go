// Package extract pulls structured order slots out of free-text caller
// utterances using pattern matching. Extraction is a pure function over
// one utterance plus the fields collected so far.
package extract
