// Package distconf models the configuration documents of a Dream
// distribution: the JSON pipeline descriptor and the YAML compose variants
// (override, dev, proxy, local). Documents load into typed structures that
// keep every unmodeled field in an extra bag, so arbitrary container
// definitions survive a load/save round trip. Filtering and the service
// lookups operate purely on the in-memory documents.
package distconf
