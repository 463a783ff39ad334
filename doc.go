// Package etl contains the core types of an embeddable ETL engine. Batches of
// Rows are pulled from an Extractor and pushed through a chain of Pipes
// (Transformers and Loaders) by a pipeline. This root package defines the
// record model (Row, Rows), the collaborator interfaces that extractors,
// transformers, loaders, error handlers and caches implement, and the sort
// references used by the external sort. It is an excellent overview of the
// engine's key concepts; execution lives in the pipeline package.
package etl
