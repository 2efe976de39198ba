package telemetry

import "go.opentelemetry.io/otel/attribute"

// Span attribute keys shared across packages.
const (
	AttrLocationSource   = attribute.Key("location.source")
	AttrLocationPriority = attribute.Key("location.priority")
	AttrLocationInterval = attribute.Key("location.interval_ms")
	AttrUserID           = attribute.Key("user.id")
	AttrCatalogQuery     = attribute.Key("catalog.query")
)
