/*
Package observability turns workflow lifecycle hooks into logs and Prometheus metrics.

Hooks built here are plain domain.LifecycleHooks values and can be merged with Compose
before being handed to workflow.WithHooks.
*/
package observability
