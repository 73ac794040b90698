// Package secret resolves environment variables and secret references in
// configuration values before they are decoded.
//
// Two forms are recognised in any string value:
//   - ${VAR} is replaced with the environment variable VAR and fails when unset
//   - secretref:<provider>:<ref> is replaced with the value the named provider returns
//
// References may make up the whole value or appear inline:
//
//	password: secretref:file:/run/secrets/db-password
//	authorization: Bearer secretref:env:API_TOKEN
//
// The env and file providers are built in; others are added through a Registry.
package secret
