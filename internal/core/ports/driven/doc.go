// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Interfaces
//
//   - Source: Enumerates documents from the corpus directory
//   - Extractor: Turns document bytes into plain text (Document AI, plaintext)
//   - PostProcessor: Splits extracted text into located chunks
//   - EmbeddingService: Generates vector embeddings (Ollama, OpenAI)
//   - Exporter: The vector store export target (Postgres, SQLite, memory)
//   - TrackingStore: Per-file record of what was last exported
//   - TransformCache: Versioned memo of expensive transform outputs
//   - ConfigStore: Application configuration
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, connector, or postprocessor package
package driven
