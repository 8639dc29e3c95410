// Package simpledocs provides the storage layer of a document manager that
// keeps uploaded PDF and Excel files in an object store.
//
// A Gateway validates an upload, embeds provenance metadata into PDFs, derives
// a collision-resistant key and writes the object. The same Gateway lists the
// stored documents of both categories as one view, removes objects under the
// known category prefixes only, and hands out retrieval URLs.
//
// Capabilities
//
// The object store (ObjectStore, optionally Presigner) and the PDF metadata
// library (DocumentCodec) are injected at construction. Implementations live
// under storage/s3, storage/memory and pdfmeta.
//
// Errors
//
// Every failure is one of ValidationError, MetadataWriteError,
// InvalidKeyError or StoreError, and can be told apart with errors.Is on
// ErrSizeExceeded, ErrInvalidType, ErrMetadataWrite, ErrInvalidKey and ErrStore.
package simpledocs
