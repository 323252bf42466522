// Package neo4j implements driver.Driver with the official Neo4j Go driver.
//
// One DriverWithContext is opened per server and verified with
// VerifyConnectivity. Databases are listed with SHOW DATABASES against the
// system database, sessions are Neo4j sessions bound to one database, and
// Collections returns the node labels. Nodes and relationships in results are
// flattened into plain maps so they encode cleanly as JSON.
package neo4j
