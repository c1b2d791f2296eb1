// Package services implements the driving port interfaces.
// Services contain the sync pipeline: change extraction, film
// transformation, bulk indexing, the pass orchestrator and the outer
// scheduler loop. They call out only through driven ports.
package services
