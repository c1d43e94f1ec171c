// Package server exposes the notification engine over HTTP. Following the
// AWS convention, all actions are multiplexed over a single RPC-style
// endpoint where the action is selected by the X-Amz-Target header.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tabeth/concretens/backend"
	"github.com/tabeth/concretens/models"
)

// Backend is the registry surface the handlers depend on. The concrete
// implementation lives in the backend package; tests may substitute their
// own.
type Backend interface {
	CreateTopic(name string, attributes, tags map[string]string) (*backend.Topic, error)
	DeleteTopic(arn string) error
	ListTopics(nextToken string) ([]string, string, error)
	GetTopicAttributes(arn string) (map[string]string, error)
	SetTopicAttribute(arn, name, value string) error

	Subscribe(topicARN, endpoint, protocol string) (*backend.Subscription, bool, error)
	Unsubscribe(arn string) error
	ListSubscriptions(nextToken string) ([]*backend.Subscription, string, error)
	ListSubscriptionsByTopic(topicARN, nextToken string) ([]*backend.Subscription, string, error)
	GetSubscriptionAttributes(arn string) (map[string]string, error)
	SetSubscriptionAttribute(arn, name, value string) error

	Publish(ctx context.Context, in backend.PublishInput) (string, error)
	PublishBatch(ctx context.Context, topicARN string, entries []models.PublishBatchRequestEntry) ([]models.PublishBatchResultEntry, []models.BatchResultErrorEntry, error)

	TagResource(arn string, tags map[string]string) error
	UntagResource(arn string, keys []string) error
	ListTagsForResource(arn string) (map[string]string, error)

	AddPermission(arn, label string, accountIDs, actions []string) error
	RemovePermission(arn, label string) error

	CreatePlatformApplication(name, platform string, attributes map[string]string) *backend.PlatformApplication
	DeletePlatformApplication(arn string) error
	ListPlatformApplications() []*backend.PlatformApplication
	SetApplicationAttributes(arn string, attributes map[string]string) (*backend.PlatformApplication, error)

	CreatePlatformEndpoint(applicationARN, token, customUserData string, attributes map[string]string) (*backend.PlatformEndpoint, error)
	DeleteEndpoint(arn string) error
	GetEndpointAttributes(arn string) (map[string]string, error)
	SetEndpointAttributes(arn string, attributes map[string]string) (*backend.PlatformEndpoint, error)
	ListEndpointsByPlatformApplication(applicationARN string) []*backend.PlatformEndpoint

	SetSMSAttributes(attrs map[string]string)
	GetSMSAttributes() map[string]string
}

// App encapsulates the application's dependencies, primarily the registry
// backend. This struct is the receiver for all HTTP handlers.
type App struct {
	Backend Backend
}

// NewApp constructs the HTTP application around a backend.
func NewApp(b Backend) *App {
	return &App{Backend: b}
}

// RegisterHandlers registers the RPC endpoint with the Chi router.
func (app *App) RegisterHandlers(r *chi.Mux) {
	r.Post("/", app.RootHandler)
}

// RootHandler dispatches on the X-Amz-Target header, which has the form
// "AmazonSNS.<ActionName>".
func (app *App) RootHandler(w http.ResponseWriter, r *http.Request) {
	target := r.Header.Get("X-Amz-Target")

	parts := strings.Split(target, ".")
	if len(parts) != 2 || parts[0] != "AmazonSNS" {
		app.sendErrorResponse(w, "InvalidAction", "Invalid X-Amz-Target header", http.StatusBadRequest)
		return
	}

	switch parts[1] {
	case "CreateTopic":
		app.CreateTopicHandler(w, r)
	case "DeleteTopic":
		app.DeleteTopicHandler(w, r)
	case "GetTopicAttributes":
		app.GetTopicAttributesHandler(w, r)
	case "SetTopicAttributes":
		app.SetTopicAttributesHandler(w, r)
	case "ListTopics":
		app.ListTopicsHandler(w, r)
	case "Subscribe":
		app.SubscribeHandler(w, r)
	case "Unsubscribe":
		app.UnsubscribeHandler(w, r)
	case "ListSubscriptions":
		app.ListSubscriptionsHandler(w, r)
	case "ListSubscriptionsByTopic":
		app.ListSubscriptionsByTopicHandler(w, r)
	case "GetSubscriptionAttributes":
		app.GetSubscriptionAttributesHandler(w, r)
	case "SetSubscriptionAttributes":
		app.SetSubscriptionAttributesHandler(w, r)
	case "Publish":
		app.PublishHandler(w, r)
	case "PublishBatch":
		app.PublishBatchHandler(w, r)
	case "TagResource":
		app.TagResourceHandler(w, r)
	case "UntagResource":
		app.UntagResourceHandler(w, r)
	case "ListTagsForResource":
		app.ListTagsForResourceHandler(w, r)
	case "AddPermission":
		app.AddPermissionHandler(w, r)
	case "RemovePermission":
		app.RemovePermissionHandler(w, r)
	case "CreatePlatformApplication":
		app.CreatePlatformApplicationHandler(w, r)
	case "DeletePlatformApplication":
		app.DeletePlatformApplicationHandler(w, r)
	case "ListPlatformApplications":
		app.ListPlatformApplicationsHandler(w, r)
	case "SetPlatformApplicationAttributes":
		app.SetPlatformApplicationAttributesHandler(w, r)
	case "CreatePlatformEndpoint":
		app.CreatePlatformEndpointHandler(w, r)
	case "DeleteEndpoint":
		app.DeleteEndpointHandler(w, r)
	case "GetEndpointAttributes":
		app.GetEndpointAttributesHandler(w, r)
	case "SetEndpointAttributes":
		app.SetEndpointAttributesHandler(w, r)
	case "ListEndpointsByPlatformApplication":
		app.ListEndpointsByPlatformApplicationHandler(w, r)
	case "SetSMSAttributes":
		app.SetSMSAttributesHandler(w, r)
	case "GetSMSAttributes":
		app.GetSMSAttributesHandler(w, r)
	default:
		app.sendErrorResponse(w, "InvalidAction", "Unsupported action: "+parts[1], http.StatusBadRequest)
	}
}

// sendErrorResponse formats and sends error responses compatible with the
// AWS JSON protocol.
func (app *App) sendErrorResponse(w http.ResponseWriter, errorType, message string, statusCode int) {
	errResp := models.ErrorResponse{
		Type:    errorType,
		Message: message,
	}
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errResp)
}

// handleError maps the backend error taxonomy onto HTTP status codes and
// AWS error codes.
func (app *App) handleError(w http.ResponseWriter, err error) {
	switch err.(type) {
	case *backend.NotFoundError:
		app.sendErrorResponse(w, "NotFound", err.Error(), http.StatusNotFound)
	case *backend.InvalidParameterError:
		app.sendErrorResponse(w, "InvalidParameter", err.Error(), http.StatusBadRequest)
	case *backend.LimitExceededError:
		app.sendErrorResponse(w, "LimitExceeded", err.Error(), http.StatusBadRequest)
	default:
		app.sendErrorResponse(w, "InternalFailure", err.Error(), http.StatusInternalServerError)
	}
}

// decodeRequest decodes a JSON request body, reporting malformed bodies in
// the standard error format.
func (app *App) decodeRequest(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		app.sendErrorResponse(w, "InvalidParameter", "Invalid request body", http.StatusBadRequest)
		return false
	}
	return true
}

// sendJSONResponse writes a success payload.
func (app *App) sendJSONResponse(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/x-amz-json-1.0")
	json.NewEncoder(w).Encode(payload)
}
