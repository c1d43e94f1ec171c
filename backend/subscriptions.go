package backend

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"github.com/tabeth/concretens/filter"
)

// SMS endpoint validation: separators may not repeat or sit at either end,
// and the digits must form an E.164 number once separators are stripped.
var (
	smsRepeatedSeparators = regexp.MustCompile(`[./-]{2,}`)
	smsEdgeSeparators     = regexp.MustCompile(`(^[./-]|[./-]$)`)
	smsSeparators         = regexp.MustCompile(`[./-]`)
	e164Regex             = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// subscriptionProtocols is the closed set of accepted protocols.
var subscriptionProtocols = map[string]bool{
	"http":        true,
	"https":       true,
	"email":       true,
	"email-json":  true,
	"sms":         true,
	"sqs":         true,
	"application": true,
	"lambda":      true,
	"firehose":    true,
}

// mutableSubscriptionAttributes is the whitelist SetSubscriptionAttribute
// accepts.
var mutableSubscriptionAttributes = map[string]bool{
	"RawMessageDelivery":  true,
	"DeliveryPolicy":      true,
	"FilterPolicy":        true,
	"RedrivePolicy":       true,
	"SubscriptionRoleArn": true,
}

// Subscribe attaches an endpoint to a topic under one protocol. If an
// identical topic+endpoint+protocol subscription already exists it is
// returned instead with created=false; no duplicates are ever created. All
// subscriptions auto-confirm.
func (b *Backend) Subscribe(topicARN, endpoint, protocol string) (*Subscription, bool, error) {
	if !subscriptionProtocols[protocol] {
		return nil, false, &InvalidParameterError{Message: fmt.Sprintf("Invalid parameter: Protocol %s", protocol)}
	}
	if protocol == "sms" {
		if err := validateSMSEndpoint(endpoint); err != nil {
			return nil, false, err
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing := b.findSubscriptionLocked(topicARN, endpoint, protocol); existing != nil {
		return existing, false, nil
	}

	topic, err := b.getTopicLocked(topicARN)
	if err != nil {
		return nil, false, err
	}

	sub := &Subscription{
		ARN:      fmt.Sprintf("%s:%s", topic.ARN, uuid.New().String()),
		TopicARN: topic.ARN,
		Endpoint: endpoint,
		Protocol: protocol,
		Owner:    b.accountID,
	}
	sub.Attributes = map[string]string{
		"PendingConfirmation":          "false",
		"ConfirmationWasAuthenticated": "true",
		"Endpoint":                     endpoint,
		"TopicArn":                     topicARN,
		"Protocol":                     protocol,
		"SubscriptionArn":              sub.ARN,
		"Owner":                        b.accountID,
		"RawMessageDelivery":           "false",
	}
	if protocol == "http" || protocol == "https" {
		sub.Attributes["EffectiveDeliveryPolicy"] = topic.EffectiveDeliveryPolicy
	}

	b.subscriptions[sub.ARN] = sub
	b.subOrder = append(b.subOrder, sub.ARN)
	return sub, true, nil
}

func validateSMSEndpoint(endpoint string) error {
	if smsRepeatedSeparators.MatchString(endpoint) || smsEdgeSeparators.MatchString(endpoint) {
		return &InvalidParameterError{Message: fmt.Sprintf("Invalid SMS endpoint: %s", endpoint)}
	}
	reduced := smsSeparators.ReplaceAllString(endpoint, "")
	if !e164Regex.MatchString(reduced) {
		return &InvalidParameterError{Message: fmt.Sprintf("Invalid SMS endpoint: %s", endpoint)}
	}
	return nil
}

func (b *Backend) findSubscriptionLocked(topicARN, endpoint, protocol string) *Subscription {
	for _, arn := range b.subOrder {
		sub := b.subscriptions[arn]
		if sub.TopicARN == topicARN && sub.Endpoint == endpoint && sub.Protocol == protocol {
			return sub
		}
	}
	return nil
}

// Unsubscribe removes a subscription. Removing a missing subscription is
// not an error.
func (b *Backend) Unsubscribe(arn string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subscriptions[arn]; ok {
		delete(b.subscriptions, arn)
		b.subOrder = removeString(b.subOrder, arn)
	}
	return nil
}

// GetSubscription returns the subscription with the given ARN.
func (b *Backend) GetSubscription(arn string) (*Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscriptions[arn]
	if !ok {
		return nil, &NotFoundError{Message: "Subscription does not exist"}
	}
	return sub, nil
}

// ListSubscriptions returns one page of all subscriptions.
func (b *Backend) ListSubscriptions(nextToken string) ([]*Subscription, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	page, next, err := paginate(b.subOrder, nextToken)
	if err != nil {
		return nil, "", err
	}
	subs := make([]*Subscription, 0, len(page))
	for _, arn := range page {
		subs = append(subs, b.subscriptions[arn])
	}
	return subs, next, nil
}

// ListSubscriptionsByTopic returns one page of the topic's subscriptions.
func (b *Backend) ListSubscriptionsByTopic(topicARN, nextToken string) ([]*Subscription, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.getTopicLocked(topicARN); err != nil {
		return nil, "", err
	}

	var order []string
	for _, arn := range b.subOrder {
		if b.subscriptions[arn].TopicARN == topicARN {
			order = append(order, arn)
		}
	}
	page, next, err := paginate(order, nextToken)
	if err != nil {
		return nil, "", err
	}
	subs := make([]*Subscription, 0, len(page))
	for _, arn := range page {
		subs = append(subs, b.subscriptions[arn])
	}
	return subs, next, nil
}

// GetSubscriptionAttributes returns a copy of the subscription's attribute
// map, including the raw filter policy when one is set.
func (b *Backend) GetSubscriptionAttributes(arn string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscriptions[arn]
	if !ok {
		return nil, &NotFoundError{Message: "Subscription does not exist"}
	}

	attrs := make(map[string]string, len(sub.Attributes)+1)
	for k, v := range sub.Attributes {
		attrs[k] = v
	}
	if sub.RawPolicy != "" {
		attrs["FilterPolicy"] = sub.RawPolicy
	}
	return attrs, nil
}

// SetSubscriptionAttribute mutates one subscription attribute. The name
// must belong to the whitelist. Setting FilterPolicy validates the policy
// document and atomically swaps the compiled policy; an invalid policy
// leaves the previous one in place.
func (b *Backend) SetSubscriptionAttribute(arn, name, value string) error {
	if !mutableSubscriptionAttributes[name] {
		return &InvalidParameterError{Message: "Invalid parameter: AttributeName"}
	}

	var policy filter.Policy
	if name == "FilterPolicy" {
		compiled, err := filter.Validate(value)
		if err != nil {
			return wrapFilterError(err)
		}
		policy = compiled
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subscriptions[arn]
	if !ok {
		return &NotFoundError{Message: fmt.Sprintf("Subscription with arn %s not found", arn)}
	}

	sub.Attributes[name] = value
	if name == "FilterPolicy" {
		sub.Policy = policy
		sub.RawPolicy = value
	}
	return nil
}

// wrapFilterError maps filter package errors into the backend taxonomy.
func wrapFilterError(err error) error {
	switch e := err.(type) {
	case *filter.TooComplexError:
		return &LimitExceededError{Message: e.Message}
	case *filter.InvalidPolicyError:
		return &InvalidParameterError{Message: e.Message}
	case *filter.InternalError:
		return &InternalError{Message: e.Message}
	}
	return err
}
