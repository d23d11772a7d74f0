// Package ctl implements sgicsctl, the operator command line for SGICS.
//
// Commands:
//   - migrate check: resolve the embedded migration catalogue, no database needed
//   - migrate plan: print the resolved order with kinds and applied state
//   - migrate apply: run the core migrations, then every pending app migration
//   - createsuperuser: create the initial administrator from ADMIN_* settings
//
// Configuration is loaded the same way as the server's, so DATABASE_DSN,
// ENVIRONMENT and the ADMIN_* variables (or a .env file) apply to both.
package ctl
