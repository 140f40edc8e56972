package module

import "visionkit/internal/services/detect/domain"

// Ports exposes the detect service for cross-module lookups
type Ports struct {
	Service domain.ServicePort
}
