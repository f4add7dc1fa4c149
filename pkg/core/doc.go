// Package core defines the shared language of ormlite.
//
// This package contains:
//   - Declarations (Field, Descriptor, Namespace)
//   - Runtime values (Entity, Relation)
//   - The error taxonomy shared by the query builders and the Dao
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// pkg/query and pkg/dao depend on core, not the reverse.
package core
