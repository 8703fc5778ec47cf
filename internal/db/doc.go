// Package db opens Snowflake sessions for deployments.
//
// NewConnector picks a CredentialProvider from the configured auth method
// (password or RSA key pair) and returns a connector that retries transient
// failures while connecting. The resulting Session pins one connection for
// the whole run, so USE SCHEMA and the statement batch that follows always
// share a session.
package db
