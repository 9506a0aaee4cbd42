// Package core contains the event registration domain: desired-state
// extraction from the deployment manifest, provider resolution, routing
// topology provisioning, and the reconciliation engine that diffs desired
// subscriptions against the remote registry. Transport, persistence, and
// interactive adapters depend on this package; core never depends on them.
package core
