// Package sqlite is the device registry: simulators created by provisioning
// runs and their enrollments, stored in a local SQLite database.
package sqlite
