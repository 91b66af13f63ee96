// Package entities registers the staged business entities with the core registry.
// Import it for side effects wherever a pipeline is built.
package entities

// Each file registers one entity from init().
