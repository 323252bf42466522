// Package opensearch implements driver.Driver with opensearch-go.
//
// Indices play the role of databases. A session is bound to one index;
// Query posts the statement as a _search body (params are merged in as
// top-level keys) and returns the _source of every hit. Collections lists
// the mapped top-level field names.
package opensearch
