// Package elastic implements driven.SearchIndex on Elasticsearch 7.
//
// Index bodies (settings plus strict mappings) are embedded from the
// mappings directory and created on demand. Bulk requests report
// per-document rejections without failing the request.
package elastic
