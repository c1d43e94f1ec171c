package backend

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/tabeth/concretens/models"
)

// Topic name constraints. FIFO topics share the charset but must carry the
// ".fifo" suffix.
var (
	topicNameRegex     = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,256}$`)
	fifoTopicNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,256}\.fifo$`)
)

// maxTagsPerTopic is the tag-count ceiling per resource.
const maxTagsPerTopic = 50

// validPolicyActions is the closed set of action names AddPermission
// accepts.
var validPolicyActions = []string{
	"GetTopicAttributes",
	"SetTopicAttributes",
	"AddPermission",
	"RemovePermission",
	"DeleteTopic",
	"Subscribe",
	"ListSubscriptionsByTopic",
	"Publish",
	"Receive",
}

// CreateTopic creates a topic, validating its name against the standard or
// FIFO constraints. Creation is idempotent: if a topic with the same name
// already exists, the existing topic is returned unchanged.
func (b *Backend) CreateTopic(name string, attributes map[string]string, tags map[string]string) (*Topic, error) {
	fifo := attributes["FifoTopic"] == "true"

	if fifo {
		if !fifoTopicNameRegex.MatchString(name) {
			return nil, &InvalidParameterError{
				Message: "Fifo Topic names must end with .fifo and must be made up of only uppercase and lowercase ASCII letters, numbers, underscores, and hyphens, and must be between 1 and 256 characters long.",
			}
		}
	} else if !topicNameRegex.MatchString(name) {
		return nil, &InvalidParameterError{
			Message: "Topic names must be made up of only uppercase and lowercase ASCII letters, numbers, underscores, and hyphens, and must be between 1 and 256 characters long.",
		}
	}

	arn := b.topicARN(name)

	b.mu.Lock()
	defer b.mu.Unlock()

	if existing, ok := b.topics[arn]; ok {
		return existing, nil
	}

	topic := &Topic{
		ARN:                     arn,
		Name:                    name,
		AccountID:               b.accountID,
		Region:                  b.region,
		EffectiveDeliveryPolicy: defaultEffectiveDeliveryPolicy,
		Policy:                  defaultTopicPolicy(arn, b.accountID),
		Tags:                    make(map[string]string),
		CreatedTime:             time.Now(),
	}
	for name, value := range attributes {
		if err := setTopicAttribute(topic, name, value); err != nil {
			return nil, err
		}
	}
	for k, v := range tags {
		topic.Tags[k] = v
	}

	b.topics[arn] = topic
	b.topicOrder = append(b.topicOrder, arn)
	return topic, nil
}

// GetTopic returns the topic with the given ARN.
func (b *Backend) GetTopic(arn string) (*Topic, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.getTopicLocked(arn)
}

func (b *Backend) getTopicLocked(arn string) (*Topic, error) {
	topic, ok := b.topics[arn]
	if !ok {
		return nil, &NotFoundError{Message: fmt.Sprintf("Topic with arn %s not found", arn)}
	}
	return topic, nil
}

// DeleteTopic removes a topic and cascades deletion of its subscriptions.
func (b *Backend) DeleteTopic(arn string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.getTopicLocked(arn); err != nil {
		return err
	}

	for subARN, sub := range b.subscriptions {
		if sub.TopicARN == arn {
			delete(b.subscriptions, subARN)
			b.subOrder = removeString(b.subOrder, subARN)
		}
	}

	delete(b.topics, arn)
	b.topicOrder = removeString(b.topicOrder, arn)
	return nil
}

// ListTopics returns one page of topic ARNs plus the token for the next
// page ("" when exhausted).
func (b *Backend) ListTopics(nextToken string) ([]string, string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return paginate(b.topicOrder, nextToken)
}

// GetTopicAttributes renders the topic's attributes as a flat string map.
func (b *Backend) GetTopicAttributes(arn string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, err := b.getTopicLocked(arn)
	if err != nil {
		return nil, err
	}

	confirmed := 0
	for _, sub := range b.subscriptions {
		if sub.TopicARN == arn {
			confirmed++
		}
	}

	policy, err := json.Marshal(topic.Policy)
	if err != nil {
		return nil, &InternalError{Message: "Unknown"}
	}

	attrs := map[string]string{
		"TopicArn":                topic.ARN,
		"Owner":                   topic.AccountID,
		"Policy":                  string(policy),
		"DisplayName":             topic.DisplayName,
		"DeliveryPolicy":          topic.DeliveryPolicy,
		"EffectiveDeliveryPolicy": topic.EffectiveDeliveryPolicy,
		"SubscriptionsPending":    "0",
		"SubscriptionsConfirmed":  strconv.Itoa(confirmed),
		"SubscriptionsDeleted":    "0",
	}
	if topic.KmsMasterKeyID != "" {
		attrs["KmsMasterKeyId"] = topic.KmsMasterKeyID
	}
	if topic.FifoTopic {
		attrs["FifoTopic"] = "true"
		attrs["ContentBasedDeduplication"] = strconv.FormatBool(topic.ContentBasedDeduplication)
	}
	return attrs, nil
}

// SetTopicAttribute mutates one topic attribute. The attribute name must
// belong to the closed set of recognized attributes.
func (b *Backend) SetTopicAttribute(arn, name, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, err := b.getTopicLocked(arn)
	if err != nil {
		return err
	}
	return setTopicAttribute(topic, name, value)
}

// setTopicAttribute applies one attribute to the topic. Unknown names are
// rejected at the boundary; there is deliberately no dynamic field setting.
func setTopicAttribute(topic *Topic, name, value string) error {
	switch name {
	case "DisplayName":
		topic.DisplayName = value
	case "DeliveryPolicy":
		topic.DeliveryPolicy = value
	case "KmsMasterKeyId":
		topic.KmsMasterKeyID = value
	case "Policy":
		var doc models.PolicyDocument
		if err := json.Unmarshal([]byte(value), &doc); err != nil {
			return &InvalidParameterError{Message: "Invalid parameter: Policy"}
		}
		topic.Policy = doc
	case "FifoTopic":
		topic.FifoTopic = value == "true"
	case "ContentBasedDeduplication":
		topic.ContentBasedDeduplication = value == "true"
	default:
		return &InvalidParameterError{Message: fmt.Sprintf("Invalid parameter: AttributeName %s", name)}
	}
	return nil
}

// TagResource merges tags into the topic's tag map, enforcing the tag-count
// ceiling before mutating.
func (b *Backend) TagResource(arn string, tags map[string]string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, ok := b.topics[arn]
	if !ok {
		return &NotFoundError{Message: "Resource does not exist"}
	}

	merged := make(map[string]string, len(topic.Tags)+len(tags))
	for k, v := range topic.Tags {
		merged[k] = v
	}
	for k, v := range tags {
		merged[k] = v
	}
	if len(merged) > maxTagsPerTopic {
		return &LimitExceededError{Message: "Could not complete request: tag quota of per resource exceeded"}
	}

	topic.Tags = merged
	return nil
}

// UntagResource removes the given tag keys; missing keys are ignored.
func (b *Backend) UntagResource(arn string, keys []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, ok := b.topics[arn]
	if !ok {
		return &NotFoundError{Message: "Resource does not exist"}
	}
	for _, k := range keys {
		delete(topic.Tags, k)
	}
	return nil
}

// ListTagsForResource returns a copy of the topic's tag map.
func (b *Backend) ListTagsForResource(arn string) (map[string]string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, ok := b.topics[arn]
	if !ok {
		return nil, &NotFoundError{Message: "Resource does not exist"}
	}
	tags := make(map[string]string, len(topic.Tags))
	for k, v := range topic.Tags {
		tags[k] = v
	}
	return tags, nil
}

// AddPermission appends an Allow statement under the given label to the
// topic's access policy. The label must be unused and every action must
// belong to the closed action set.
func (b *Backend) AddPermission(arn, label string, accountIDs, actions []string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, ok := b.topics[arn]
	if !ok {
		return &NotFoundError{Message: "Topic does not exist"}
	}

	for _, stmt := range topic.Policy.Statement {
		if stmt.Sid == label {
			return &InvalidParameterError{Message: "Statement already exists"}
		}
	}
	for _, action := range actions {
		if !isValidPolicyAction(action) {
			return &InvalidParameterError{Message: "Policy statement action out of service scope!"}
		}
	}

	principals := make([]string, len(accountIDs))
	for i, id := range accountIDs {
		principals[i] = fmt.Sprintf("arn:aws:iam::%s:root", id)
	}
	qualified := make([]string, len(actions))
	for i, action := range actions {
		qualified[i] = "SNS:" + action
	}

	topic.Policy.Statement = append(topic.Policy.Statement, models.PolicyStatement{
		Sid:       label,
		Effect:    "Allow",
		Principal: map[string]interface{}{"AWS": singleOrList(principals)},
		Action:    singleOrList(qualified),
		Resource:  arn,
	})
	return nil
}

// RemovePermission deletes the statement with the given label, if present.
func (b *Backend) RemovePermission(arn, label string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, ok := b.topics[arn]
	if !ok {
		return &NotFoundError{Message: "Topic does not exist"}
	}

	kept := topic.Policy.Statement[:0]
	for _, stmt := range topic.Policy.Statement {
		if stmt.Sid != label {
			kept = append(kept, stmt)
		}
	}
	topic.Policy.Statement = kept
	return nil
}

func isValidPolicyAction(action string) bool {
	for _, a := range validPolicyActions {
		if a == action {
			return true
		}
	}
	return false
}

// singleOrList collapses a one-element slice to its element, matching the
// policy document grammar.
func singleOrList(values []string) interface{} {
	if len(values) == 1 {
		return values[0]
	}
	return values
}

// defaultTopicPolicy is the access policy every topic starts with.
func defaultTopicPolicy(arn, accountID string) models.PolicyDocument {
	return models.PolicyDocument{
		Version: "2008-10-17",
		ID:      "__default_policy_ID",
		Statement: []models.PolicyStatement{
			{
				Effect:    "Allow",
				Sid:       "__default_statement_ID",
				Principal: map[string]interface{}{"AWS": "*"},
				Action: []string{
					"SNS:GetTopicAttributes",
					"SNS:SetTopicAttributes",
					"SNS:AddPermission",
					"SNS:RemovePermission",
					"SNS:DeleteTopic",
					"SNS:Subscribe",
					"SNS:ListSubscriptionsByTopic",
					"SNS:Publish",
					"SNS:Receive",
				},
				Resource:  arn,
				Condition: map[string]map[string]string{"StringEquals": {"AWS:SourceOwner": accountID}},
			},
		},
	}
}

const defaultEffectiveDeliveryPolicy = `{"defaultHealthyRetryPolicy":{"numNoDelayRetries":0,"numMinDelayRetries":0,"minDelayTarget":20,"maxDelayTarget":20,"numMaxDelayRetries":0,"numRetries":3,"backoffFunction":"linear"},"sicklyRetryPolicy":null,"throttlePolicy":null,"guaranteed":false}`
