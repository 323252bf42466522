// Package orientdb implements driver.Driver over the OrientDB HTTP REST API.
//
// Connect authenticates with GET /listDatabases. Each session calls
// GET /connect/{db} and keeps the OSESSIONID cookie it returns; queries are
// posted to /command/{db}/{language} and Collections reads the cluster list
// from GET /database/{db}. Closing a session calls GET /disconnect.
//
// HTTP transport comes from go-cleanhttp, so idle connections are pooled per
// server and no global state is shared with http.DefaultClient.
package orientdb
