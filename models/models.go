// Package models contains the data structures used throughout the application.
// These structures define the shape of API requests and responses, as well as
// shared value types such as message attributes and access-policy documents.
// They are often referred to as Data Transfer Objects (DTOs).
package models

// MessageAttributeValue represents the value of a custom message attribute
// attached to a published message. The DataType determines how the value is
// interpreted by subscription filter policies: "String", "String.Array"
// (a JSON array encoded as text in StringValue), "Number" (a decimal encoded
// as text in StringValue), or "Binary".
type MessageAttributeValue struct {
	// DataType indicates the type of the attribute (e.g., "String", "Number", "Binary", "String.Array").
	DataType string `json:"DataType"`
	// StringValue holds the value for all non-binary data types.
	StringValue string `json:"StringValue,omitempty"`
	// BinaryValue holds the value for the "Binary" data type.
	BinaryValue []byte `json:"BinaryValue,omitempty"`
}

// PolicyDocument is a topic's access-policy document: a versioned list of
// statements controlling who may perform which actions on the topic.
type PolicyDocument struct {
	Version   string            `json:"Version"`
	ID        string            `json:"Id"`
	Statement []PolicyStatement `json:"Statement"`
}

// PolicyStatement is a single statement within a PolicyDocument. Principal
// and Action mirror the AWS policy grammar: each is either a single value or
// a list, so both are kept loosely typed.
type PolicyStatement struct {
	Sid       string                       `json:"Sid"`
	Effect    string                       `json:"Effect"`
	Principal map[string]interface{}       `json:"Principal"`
	Action    interface{}                  `json:"Action"`
	Resource  string                       `json:"Resource"`
	Condition map[string]map[string]string `json:"Condition,omitempty"`
}

// Tag is a single key/value pair attached to a topic.
type Tag struct {
	Key   string `json:"Key"`
	Value string `json:"Value"`
}

// ErrorResponse defines the standard AWS JSON error response format.
// This ensures that clients interacting with this service can parse errors
// in a familiar way.
type ErrorResponse struct {
	// Type is the error code (e.g., "InvalidParameter").
	Type string `json:"__type"`
	// Message is the descriptive error message.
	Message string `json:"message"`
}

// --- Topic operations ---

// CreateTopicRequest maps to the input of the CreateTopic action.
type CreateTopicRequest struct {
	// Name is the name of the topic to create. FIFO topic names must carry
	// the ".fifo" suffix.
	Name string `json:"Name"`
	// Attributes is a map of topic attributes (e.g., "FifoTopic", "DisplayName").
	Attributes map[string]string `json:"Attributes,omitempty"`
	// Tags is a list of tags to attach to the topic on creation.
	Tags []Tag `json:"Tags,omitempty"`
}

// CreateTopicResponse maps to the output of a successful CreateTopic action.
type CreateTopicResponse struct {
	TopicArn string `json:"TopicArn"`
}

// DeleteTopicRequest defines the parameters for the DeleteTopic action.
type DeleteTopicRequest struct {
	TopicArn string `json:"TopicArn"`
}

// GetTopicAttributesRequest defines the parameters for the GetTopicAttributes action.
type GetTopicAttributesRequest struct {
	TopicArn string `json:"TopicArn"`
}

// GetTopicAttributesResponse returns the topic's attributes as a flat string map.
type GetTopicAttributesResponse struct {
	Attributes map[string]string `json:"Attributes"`
}

// SetTopicAttributesRequest defines the parameters for the SetTopicAttributes
// action. One attribute is set per call.
type SetTopicAttributesRequest struct {
	TopicArn       string `json:"TopicArn"`
	AttributeName  string `json:"AttributeName"`
	AttributeValue string `json:"AttributeValue"`
}

// ListTopicsRequest supports token-based pagination with a fixed page size.
type ListTopicsRequest struct {
	NextToken string `json:"NextToken,omitempty"`
}

// TopicSummary is a single entry in a ListTopics response.
type TopicSummary struct {
	TopicArn string `json:"TopicArn"`
}

// ListTopicsResponse defines the structure of the ListTopics action's output.
type ListTopicsResponse struct {
	Topics    []TopicSummary `json:"Topics"`
	NextToken string         `json:"NextToken,omitempty"`
}

// --- Subscription operations ---

// SubscribeRequest maps to the input of the Subscribe action.
type SubscribeRequest struct {
	TopicArn string `json:"TopicArn"`
	// Protocol selects the delivery transport: "sqs", "http", "https",
	// "lambda", "sms", "email", "email-json", "application" or "firehose".
	Protocol string `json:"Protocol"`
	// Endpoint is the transport-specific destination (queue ARN, URL,
	// function ARN, phone number, ...).
	Endpoint string `json:"Endpoint"`
	// Attributes are optional subscription attributes applied after creation
	// (e.g., "FilterPolicy", "RawMessageDelivery").
	Attributes map[string]string `json:"Attributes,omitempty"`
}

// SubscribeResponse maps to the output of a successful Subscribe action.
type SubscribeResponse struct {
	SubscriptionArn string `json:"SubscriptionArn"`
}

// UnsubscribeRequest defines the parameters for the Unsubscribe action.
type UnsubscribeRequest struct {
	SubscriptionArn string `json:"SubscriptionArn"`
}

// SubscriptionSummary is a single entry in a subscription listing.
type SubscriptionSummary struct {
	SubscriptionArn string `json:"SubscriptionArn"`
	Owner           string `json:"Owner"`
	Protocol        string `json:"Protocol"`
	Endpoint        string `json:"Endpoint"`
	TopicArn        string `json:"TopicArn"`
}

// ListSubscriptionsRequest supports token-based pagination.
type ListSubscriptionsRequest struct {
	NextToken string `json:"NextToken,omitempty"`
}

// ListSubscriptionsByTopicRequest lists only the subscriptions of one topic.
type ListSubscriptionsByTopicRequest struct {
	TopicArn  string `json:"TopicArn"`
	NextToken string `json:"NextToken,omitempty"`
}

// ListSubscriptionsResponse is shared by ListSubscriptions and
// ListSubscriptionsByTopic.
type ListSubscriptionsResponse struct {
	Subscriptions []SubscriptionSummary `json:"Subscriptions"`
	NextToken     string                `json:"NextToken,omitempty"`
}

// GetSubscriptionAttributesRequest defines the parameters for the
// GetSubscriptionAttributes action.
type GetSubscriptionAttributesRequest struct {
	SubscriptionArn string `json:"SubscriptionArn"`
}

// GetSubscriptionAttributesResponse returns the subscription's attributes.
type GetSubscriptionAttributesResponse struct {
	Attributes map[string]string `json:"Attributes"`
}

// SetSubscriptionAttributesRequest defines the parameters for the
// SetSubscriptionAttributes action. The attribute name must belong to a
// fixed whitelist; setting "FilterPolicy" re-validates the policy document.
type SetSubscriptionAttributesRequest struct {
	SubscriptionArn string `json:"SubscriptionArn"`
	AttributeName   string `json:"AttributeName"`
	AttributeValue  string `json:"AttributeValue"`
}

// --- Publish operations ---

// PublishRequest maps to the input of the Publish action. Exactly one of
// TopicArn, TargetArn, or PhoneNumber must identify the destination.
type PublishRequest struct {
	// TopicArn is the topic to fan the message out to.
	TopicArn string `json:"TopicArn,omitempty"`
	// TargetArn is a direct destination (platform endpoint), bypassing fan-out.
	TargetArn string `json:"TargetArn,omitempty"`
	// PhoneNumber is a direct SMS destination.
	PhoneNumber string `json:"PhoneNumber,omitempty"`
	// Message is the message body.
	Message string `json:"Message"`
	// Subject is an optional subject line (at most 100 characters).
	Subject string `json:"Subject,omitempty"`
	// MessageAttributes is a map of custom attributes evaluated by
	// subscription filter policies.
	MessageAttributes map[string]MessageAttributeValue `json:"MessageAttributes,omitempty"`
	// MessageGroupId is the ordering group tag (FIFO topics only).
	MessageGroupId string `json:"MessageGroupId,omitempty"`
	// MessageDeduplicationId is the deduplication token (FIFO topics only).
	MessageDeduplicationId string `json:"MessageDeduplicationId,omitempty"`
}

// PublishResponse maps to the output of a successful Publish action.
type PublishResponse struct {
	MessageId string `json:"MessageId"`
}

// PublishBatchRequest defines the parameters for the PublishBatch action.
type PublishBatchRequest struct {
	TopicArn string `json:"TopicArn"`
	// PublishBatchRequestEntries holds up to 10 messages to publish.
	PublishBatchRequestEntries []PublishBatchRequestEntry `json:"PublishBatchRequestEntries"`
}

// PublishBatchRequestEntry is a single message within a batch publish
// request. Ids must be distinct within the batch.
type PublishBatchRequestEntry struct {
	Id                     string                           `json:"Id"`
	Message                string                           `json:"Message"`
	Subject                string                           `json:"Subject,omitempty"`
	MessageAttributes      map[string]MessageAttributeValue `json:"MessageAttributes,omitempty"`
	MessageGroupId         string                           `json:"MessageGroupId,omitempty"`
	MessageDeduplicationId string                           `json:"MessageDeduplicationId,omitempty"`
}

// PublishBatchResultEntry contains the details of a successfully published
// batch entry.
type PublishBatchResultEntry struct {
	Id        string `json:"Id"`
	MessageId string `json:"MessageId"`
}

// BatchResultErrorEntry contains the details of a failed entry in a batch
// operation, including whether the sender was at fault.
type BatchResultErrorEntry struct {
	Id          string `json:"Id"`
	Code        string `json:"Code"`
	Message     string `json:"Message"`
	SenderFault bool   `json:"SenderFault"`
}

// PublishBatchResponse separates results into successful and failed entries.
// Callers always receive both lists; a per-entry failure never cancels the
// remaining entries.
type PublishBatchResponse struct {
	Successful []PublishBatchResultEntry `json:"Successful"`
	Failed     []BatchResultErrorEntry   `json:"Failed"`
}

// --- Tagging operations ---

// TagResourceRequest defines the parameters for the TagResource action.
type TagResourceRequest struct {
	ResourceArn string `json:"ResourceArn"`
	Tags        []Tag  `json:"Tags"`
}

// UntagResourceRequest defines the parameters for the UntagResource action.
type UntagResourceRequest struct {
	ResourceArn string   `json:"ResourceArn"`
	TagKeys     []string `json:"TagKeys"`
}

// ListTagsForResourceRequest defines the parameters for the
// ListTagsForResource action.
type ListTagsForResourceRequest struct {
	ResourceArn string `json:"ResourceArn"`
}

// ListTagsForResourceResponse returns the resource's tags.
type ListTagsForResourceResponse struct {
	Tags []Tag `json:"Tags"`
}

// --- SMS operations ---

// SetSMSAttributesRequest merges account-level SMS attributes (e.g.
// "DefaultSMSType", "MonthlySpendLimit").
type SetSMSAttributesRequest struct {
	Attributes map[string]string `json:"attributes"`
}

// GetSMSAttributesResponse returns the account-level SMS attributes.
type GetSMSAttributesResponse struct {
	Attributes map[string]string `json:"attributes"`
}

// --- Permission operations ---

// AddPermissionRequest adds a named statement to a topic's access policy.
type AddPermissionRequest struct {
	TopicArn string `json:"TopicArn"`
	// Label is the statement id (Sid); it must not already exist.
	Label string `json:"Label"`
	// AWSAccountId lists the account ids granted the actions.
	AWSAccountId []string `json:"AWSAccountId"`
	// ActionName lists the granted actions; each must belong to the closed
	// set of topic actions.
	ActionName []string `json:"ActionName"`
}

// RemovePermissionRequest removes the statement with the given label.
type RemovePermissionRequest struct {
	TopicArn string `json:"TopicArn"`
	Label    string `json:"Label"`
}

// --- Platform application / endpoint operations ---

// CreatePlatformApplicationRequest registers a mobile push application.
type CreatePlatformApplicationRequest struct {
	Name       string            `json:"Name"`
	Platform   string            `json:"Platform"`
	Attributes map[string]string `json:"Attributes,omitempty"`
}

// CreatePlatformApplicationResponse returns the application's ARN.
type CreatePlatformApplicationResponse struct {
	PlatformApplicationArn string `json:"PlatformApplicationArn"`
}

// DeletePlatformApplicationRequest defines the parameters for the
// DeletePlatformApplication action.
type DeletePlatformApplicationRequest struct {
	PlatformApplicationArn string `json:"PlatformApplicationArn"`
}

// PlatformApplicationSummary is a single entry in a platform application
// listing.
type PlatformApplicationSummary struct {
	PlatformApplicationArn string            `json:"PlatformApplicationArn"`
	Attributes             map[string]string `json:"Attributes"`
}

// ListPlatformApplicationsResponse lists all registered applications.
type ListPlatformApplicationsResponse struct {
	PlatformApplications []PlatformApplicationSummary `json:"PlatformApplications"`
}

// SetPlatformApplicationAttributesRequest merges attributes into an
// application's attribute map.
type SetPlatformApplicationAttributesRequest struct {
	PlatformApplicationArn string            `json:"PlatformApplicationArn"`
	Attributes             map[string]string `json:"Attributes"`
}

// CreatePlatformEndpointRequest registers a device endpoint under an
// application. Requests carrying a token that already exists return the
// existing endpoint, provided the attributes agree.
type CreatePlatformEndpointRequest struct {
	PlatformApplicationArn string            `json:"PlatformApplicationArn"`
	Token                  string            `json:"Token"`
	CustomUserData         string            `json:"CustomUserData,omitempty"`
	Attributes             map[string]string `json:"Attributes,omitempty"`
}

// CreatePlatformEndpointResponse returns the endpoint's ARN.
type CreatePlatformEndpointResponse struct {
	EndpointArn string `json:"EndpointArn"`
}

// DeleteEndpointRequest defines the parameters for the DeleteEndpoint action.
type DeleteEndpointRequest struct {
	EndpointArn string `json:"EndpointArn"`
}

// GetEndpointAttributesRequest defines the parameters for the
// GetEndpointAttributes action.
type GetEndpointAttributesRequest struct {
	EndpointArn string `json:"EndpointArn"`
}

// GetEndpointAttributesResponse returns the endpoint's attributes.
type GetEndpointAttributesResponse struct {
	Attributes map[string]string `json:"Attributes"`
}

// SetEndpointAttributesRequest merges attributes into an endpoint's
// attribute map.
type SetEndpointAttributesRequest struct {
	EndpointArn string            `json:"EndpointArn"`
	Attributes  map[string]string `json:"Attributes"`
}

// EndpointSummary is a single entry in an endpoint listing.
type EndpointSummary struct {
	EndpointArn string            `json:"EndpointArn"`
	Attributes  map[string]string `json:"Attributes"`
}

// ListEndpointsByPlatformApplicationRequest lists the endpoints registered
// under one application.
type ListEndpointsByPlatformApplicationRequest struct {
	PlatformApplicationArn string `json:"PlatformApplicationArn"`
}

// ListEndpointsByPlatformApplicationResponse returns the application's
// endpoints.
type ListEndpointsByPlatformApplicationResponse struct {
	Endpoints []EndpointSummary `json:"Endpoints"`
}
