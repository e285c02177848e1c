// Package render turns transcripts into text for terminals and HTML for export.
//
// Agent replies are markdown and are converted with goldmark; raw HTML in a
// reply is dropped. User and system bodies are escaped verbatim.
package render
