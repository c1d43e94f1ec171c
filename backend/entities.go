package backend

import (
	"time"

	"github.com/tabeth/concretens/filter"
	"github.com/tabeth/concretens/models"
)

// Topic is a named fan-out channel. Its ARN is derived deterministically
// from account, region, and name and is stable for the topic's lifetime.
// The backend exclusively owns every Topic; callers must not mutate one
// outside a backend operation.
type Topic struct {
	ARN       string
	Name      string
	AccountID string
	Region    string

	DisplayName             string
	DeliveryPolicy          string
	KmsMasterKeyID          string
	EffectiveDeliveryPolicy string

	FifoTopic                 bool
	ContentBasedDeduplication bool

	Policy models.PolicyDocument
	Tags   map[string]string

	// SentNotifications is the append-only log of messages published to this
	// topic, in publish-call order. It is the durable record consulted by
	// test and verification collaborators.
	SentNotifications []SentNotification

	CreatedTime time.Time
}

// SentNotification is one entry of a topic's sent-message log.
type SentNotification struct {
	MessageID         string
	Message           string
	Subject           string
	MessageAttributes map[string]models.MessageAttributeValue
	GroupID           string
}

// Subscription binds a topic to an endpoint under one delivery protocol.
// It holds a non-owning back-reference to its topic via TopicARN. The
// (topic, endpoint, protocol) triple is unique; a duplicate subscribe
// returns the existing subscription.
type Subscription struct {
	ARN      string
	TopicARN string
	Endpoint string
	Protocol string
	Owner    string

	Attributes map[string]string

	// Policy is the compiled filter policy; nil means match everything.
	Policy filter.Policy
	// RawPolicy is the policy document as submitted, kept for attribute
	// reads.
	RawPolicy string
}

// RawDelivery reports whether the subscriber receives the message body and
// attributes unmodified instead of wrapped in a notification envelope.
func (s *Subscription) RawDelivery() bool {
	return s.Attributes["RawMessageDelivery"] == "true"
}

// PlatformApplication represents a registered mobile push application.
type PlatformApplication struct {
	ARN        string
	Name       string
	Platform   string
	Attributes map[string]string
}

// PlatformEndpoint represents one device registered under a platform
// application. Its lifecycle is independent of topics; it serves as an
// alternate direct-publish target that bypasses topic fan-out.
type PlatformEndpoint struct {
	ARN            string
	ID             string
	ApplicationARN string
	Token          string
	CustomUserData string
	Attributes     map[string]string

	// Messages is the per-endpoint message log, in publish order.
	Messages []EndpointMessage
}

// EndpointMessage is one entry of a platform endpoint's message log.
type EndpointMessage struct {
	MessageID string
	Message   string
}

// Enabled reports whether the endpoint accepts publishes.
func (e *PlatformEndpoint) Enabled() bool {
	return e.Attributes["Enabled"] != "false"
}

// SMSMessage is one entry of the backend's SMS log.
type SMSMessage struct {
	MessageID   string
	PhoneNumber string
	Message     string
}
