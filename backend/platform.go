package backend

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// CreatePlatformApplication registers a mobile push application.
func (b *Backend) CreatePlatformApplication(name, platform string, attributes map[string]string) *PlatformApplication {
	app := &PlatformApplication{
		ARN:        fmt.Sprintf("arn:aws:sns:%s:%s:app/%s/%s", b.region, b.accountID, platform, name),
		Name:       name,
		Platform:   platform,
		Attributes: make(map[string]string, len(attributes)),
	}
	for k, v := range attributes {
		app.Attributes[k] = v
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.applications[app.ARN]; !ok {
		b.appOrder = append(b.appOrder, app.ARN)
	}
	b.applications[app.ARN] = app
	return app
}

// GetApplication returns the application with the given ARN.
func (b *Backend) GetApplication(arn string) (*PlatformApplication, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getApplicationLocked(arn)
}

func (b *Backend) getApplicationLocked(arn string) (*PlatformApplication, error) {
	app, ok := b.applications[arn]
	if !ok {
		return nil, &NotFoundError{Message: fmt.Sprintf("Application with arn %s not found", arn)}
	}
	return app, nil
}

// SetApplicationAttributes merges attributes into the application's
// attribute map.
func (b *Backend) SetApplicationAttributes(arn string, attributes map[string]string) (*PlatformApplication, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	app, err := b.getApplicationLocked(arn)
	if err != nil {
		return nil, err
	}
	for k, v := range attributes {
		app.Attributes[k] = v
	}
	return app, nil
}

// ListPlatformApplications returns all registered applications in creation
// order.
func (b *Backend) ListPlatformApplications() []*PlatformApplication {
	b.mu.Lock()
	defer b.mu.Unlock()

	apps := make([]*PlatformApplication, 0, len(b.appOrder))
	for _, arn := range b.appOrder {
		apps = append(apps, b.applications[arn])
	}
	return apps
}

// DeletePlatformApplication removes an application and cascades deletion of
// its endpoints.
func (b *Backend) DeletePlatformApplication(arn string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.applications[arn]; !ok {
		return &NotFoundError{Message: fmt.Sprintf("Application with arn %s not found", arn)}
	}
	delete(b.applications, arn)
	b.appOrder = removeString(b.appOrder, arn)

	for epARN, ep := range b.endpoints {
		if ep.ApplicationARN == arn {
			delete(b.endpoints, epARN)
			b.endpointOrder = removeString(b.endpointOrder, epARN)
		}
	}
	return nil
}

// CreatePlatformEndpoint registers a device endpoint under an application.
// A request carrying an already-registered token returns the existing
// endpoint when the Enabled attribute agrees, and fails otherwise.
func (b *Backend) CreatePlatformEndpoint(applicationARN, token, customUserData string, attributes map[string]string) (*PlatformEndpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	app, err := b.getApplicationLocked(applicationARN)
	if err != nil {
		return nil, err
	}

	for _, arn := range b.endpointOrder {
		ep := b.endpoints[arn]
		if ep.Token == token {
			if strings.ToLower(attributes["Enabled"]) == ep.Attributes["Enabled"] {
				return ep, nil
			}
			return nil, &InvalidParameterError{
				Message: fmt.Sprintf("Duplicate endpoint token with different attributes: %s", token),
			}
		}
	}

	id := uuid.New().String()
	ep := &PlatformEndpoint{
		ARN:            fmt.Sprintf("arn:aws:sns:%s:%s:endpoint/%s/%s/%s", b.region, b.accountID, app.Platform, app.Name, id),
		ID:             id,
		ApplicationARN: app.ARN,
		Token:          token,
		CustomUserData: customUserData,
		Attributes:     make(map[string]string, len(attributes)+2),
	}
	for k, v := range attributes {
		ep.Attributes[k] = v
	}
	// The attribute map always carries Token and a lowercased Enabled flag,
	// defaulting to enabled.
	if _, ok := ep.Attributes["Token"]; !ok {
		ep.Attributes["Token"] = token
	}
	if enabled, ok := ep.Attributes["Enabled"]; ok {
		ep.Attributes["Enabled"] = strings.ToLower(enabled)
	} else {
		ep.Attributes["Enabled"] = "true"
	}

	b.endpoints[ep.ARN] = ep
	b.endpointOrder = append(b.endpointOrder, ep.ARN)
	return ep, nil
}

// GetEndpoint returns the endpoint with the given ARN.
func (b *Backend) GetEndpoint(arn string) (*PlatformEndpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getEndpointLocked(arn)
}

func (b *Backend) getEndpointLocked(arn string) (*PlatformEndpoint, error) {
	ep, ok := b.endpoints[arn]
	if !ok {
		return nil, &NotFoundError{Message: "Endpoint does not exist"}
	}
	return ep, nil
}

// GetEndpointAttributes returns a copy of the endpoint's attribute map.
func (b *Backend) GetEndpointAttributes(arn string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ep, err := b.getEndpointLocked(arn)
	if err != nil {
		return nil, err
	}
	attrs := make(map[string]string, len(ep.Attributes))
	for k, v := range ep.Attributes {
		attrs[k] = v
	}
	return attrs, nil
}

// SetEndpointAttributes merges attributes into the endpoint's attribute
// map, normalizing the Enabled flag.
func (b *Backend) SetEndpointAttributes(arn string, attributes map[string]string) (*PlatformEndpoint, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ep, err := b.getEndpointLocked(arn)
	if err != nil {
		return nil, err
	}
	for k, v := range attributes {
		if k == "Enabled" {
			v = strings.ToLower(v)
		}
		ep.Attributes[k] = v
	}
	return ep, nil
}

// DeleteEndpoint removes a platform endpoint.
func (b *Backend) DeleteEndpoint(arn string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.endpoints[arn]; !ok {
		return &NotFoundError{Message: fmt.Sprintf("Endpoint with arn %s not found", arn)}
	}
	delete(b.endpoints, arn)
	b.endpointOrder = removeString(b.endpointOrder, arn)
	return nil
}

// ListEndpointsByPlatformApplication returns the application's endpoints in
// creation order.
func (b *Backend) ListEndpointsByPlatformApplication(applicationARN string) []*PlatformEndpoint {
	b.mu.Lock()
	defer b.mu.Unlock()

	var eps []*PlatformEndpoint
	for _, arn := range b.endpointOrder {
		if ep := b.endpoints[arn]; ep.ApplicationARN == applicationARN {
			eps = append(eps, ep)
		}
	}
	return eps
}
