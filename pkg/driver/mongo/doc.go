// Package mongo implements driver.Driver with the official MongoDB v2 driver.
//
// The host connection is a *mongo.Client. Sessions are logical MongoDB
// sessions bound to one database; Query takes a database command as Extended
// JSON, for example {"find": "users", "filter": {"active": true}}, runs it
// with RunCommand inside the session and returns the reply as one record.
package mongo
