// Package documentai provides an Extractor backed by Google Cloud
// Document AI.
//
// Documents are sent inline as raw bytes to a processor addressed by
// project, location and processor ID (optionally pinned to a processor
// version). The regional endpoint "<location>-documentai.googleapis.com"
// is used so data stays in the processor's region.
//
// Credentials come from GOOGLE_APPLICATION_CREDENTIALS_JSON (inline JSON)
// or GOOGLE_APPLICATION_CREDENTIALS (a file path). When neither is set the
// client falls back to Application Default Credentials.
package documentai
