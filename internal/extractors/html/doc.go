// Package html provides an Extractor that recovers readable text from
// HTML documents.
//
// Markup is removed with regular expressions rather than a full parser:
// script, style, head and svg elements are dropped, entities decoded and
// block-level elements turned into paragraph breaks.
package html
