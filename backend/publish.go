package backend

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/tabeth/concretens/models"
)

const (
	// maxMessageLength is the topic publish body ceiling (256 KiB).
	maxMessageLength = 262144
	// maxSMSMessageBytes is the ceiling for a single SMS publish.
	maxSMSMessageBytes = 1600
	// maxSubjectLength is the subject-line ceiling.
	maxSubjectLength = 100
	// maxBatchEntries is the batch publish entry ceiling.
	maxBatchEntries = 10
)

// PublishInput identifies a publish destination and payload. Exactly one of
// TopicARN, TargetARN, or PhoneNumber must be set.
type PublishInput struct {
	TopicARN    string
	TargetARN   string
	PhoneNumber string

	Message           string
	Subject           string
	MessageAttributes map[string]models.MessageAttributeValue

	MessageGroupID         string
	MessageDeduplicationID string
}

// Publish validates the request, records the message in the destination's
// log, and fans it out to matching subscriptions. All validation happens
// before any state mutation. The returned message id is freshly generated
// for every successful path.
func (b *Backend) Publish(ctx context.Context, in PublishInput) (string, error) {
	if err := validateTarget(in); err != nil {
		return "", err
	}
	if len(in.Subject) > maxSubjectLength {
		return "", &InvalidParameterError{Message: "Subject must be less than 100 characters"}
	}

	if in.PhoneNumber != "" {
		return b.publishSMS(in)
	}

	if len(in.Message) > maxMessageLength {
		return "", &InvalidParameterError{Message: "Invalid parameter: Message too long"}
	}

	arn := in.TopicARN
	if arn == "" {
		arn = in.TargetARN
	}

	b.mu.Lock()
	topic, ok := b.topics[arn]
	if !ok {
		// Not a topic: try a direct platform endpoint publish.
		ep, epOK := b.endpoints[arn]
		if !epOK {
			b.mu.Unlock()
			return "", &NotFoundError{Message: "Endpoint does not exist"}
		}
		id, err := publishToEndpointLocked(ep, in.Message)
		b.mu.Unlock()
		return id, err
	}

	if err := validateFIFOParameters(topic, in); err != nil {
		b.mu.Unlock()
		return "", err
	}

	messageID := uuid.New().String()
	// The log append happens under the lock so a single topic's log always
	// preserves publish-call ordering.
	topic.SentNotifications = append(topic.SentNotifications, SentNotification{
		MessageID:         messageID,
		Message:           in.Message,
		Subject:           in.Subject,
		MessageAttributes: in.MessageAttributes,
		GroupID:           in.MessageGroupID,
	})

	// Matching and the per-subscription snapshot both happen under the lock;
	// the dispatcher only ever sees these copies.
	var matched []DeliveryTarget
	for _, subARN := range b.subOrder {
		sub := b.subscriptions[subARN]
		if sub.TopicARN == arn && sub.Policy.Matches(in.MessageAttributes) {
			matched = append(matched, DeliveryTarget{
				SubscriptionARN: sub.ARN,
				TopicARN:        sub.TopicARN,
				Endpoint:        sub.Endpoint,
				Protocol:        sub.Protocol,
				RawDelivery:     sub.RawDelivery(),
			})
		}
	}
	b.mu.Unlock()

	b.deliverer.Dispatch(ctx, matched, &OutboundMessage{
		MessageID:         messageID,
		TopicARN:          arn,
		Message:           in.Message,
		Subject:           in.Subject,
		MessageAttributes: in.MessageAttributes,
		GroupID:           in.MessageGroupID,
		DedupID:           in.MessageDeduplicationID,
	})
	return messageID, nil
}

func validateTarget(in PublishInput) error {
	targets := 0
	for _, t := range []string{in.TopicARN, in.TargetARN, in.PhoneNumber} {
		if t != "" {
			targets++
		}
	}
	switch targets {
	case 0:
		return &InvalidParameterError{Message: "Either TopicArn or TargetArn is required."}
	case 1:
		return nil
	}
	return &InvalidParameterError{Message: "Invalid parameter: Only one of TopicArn, TargetArn, or PhoneNumber may be set"}
}

func validateFIFOParameters(topic *Topic, in PublishInput) error {
	if topic.FifoTopic {
		if in.MessageGroupID == "" {
			return &InvalidParameterError{Message: "The request must contain the parameter MessageGroupId."}
		}
		if in.MessageDeduplicationID == "" && !topic.ContentBasedDeduplication {
			return &InvalidParameterError{
				Message: "The topic should either have ContentBasedDeduplication enabled or MessageDeduplicationId provided explicitly",
			}
		}
		return nil
	}
	if in.MessageGroupID != "" || in.MessageDeduplicationID != "" {
		parameter := "MessageGroupId"
		if in.MessageGroupID == "" {
			parameter = "MessageDeduplicationId"
		}
		return &InvalidParameterError{
			Message: fmt.Sprintf("Invalid parameter: %s Reason: The request includes %s parameter that is not valid for this topic type", parameter, parameter),
		}
	}
	return nil
}

func (b *Backend) publishSMS(in PublishInput) (string, error) {
	if len(in.Message) > maxSMSMessageBytes {
		return "", &InvalidParameterError{Message: "SMS message must be less than 1600 bytes"}
	}

	messageID := uuid.New().String()
	b.mu.Lock()
	b.smsMessages = append(b.smsMessages, SMSMessage{
		MessageID:   messageID,
		PhoneNumber: in.PhoneNumber,
		Message:     in.Message,
	})
	b.mu.Unlock()
	return messageID, nil
}

func publishToEndpointLocked(ep *PlatformEndpoint, message string) (string, error) {
	if !ep.Enabled() {
		return "", &InvalidParameterError{Message: fmt.Sprintf("Endpoint %s disabled", ep.ID)}
	}
	messageID := uuid.New().String()
	ep.Messages = append(ep.Messages, EndpointMessage{MessageID: messageID, Message: message})
	return messageID, nil
}

// PublishBatch publishes up to ten entries to one topic. Batch-level
// violations (too many entries, duplicate ids, FIFO entries without group
// ids) reject the whole batch; otherwise each entry is published
// independently and per-entry failures are captured in the failed list
// while the remaining entries still succeed.
func (b *Backend) PublishBatch(ctx context.Context, topicARN string, entries []models.PublishBatchRequestEntry) ([]models.PublishBatchResultEntry, []models.BatchResultErrorEntry, error) {
	b.mu.Lock()
	topic, ok := b.topics[topicARN]
	if !ok {
		b.mu.Unlock()
		return nil, nil, &NotFoundError{Message: "Topic does not exist"}
	}
	fifo := topic.FifoTopic
	b.mu.Unlock()

	if len(entries) > maxBatchEntries {
		return nil, nil, &InvalidParameterError{Message: "The batch request contains more entries than permissible."}
	}

	seen := make(map[string]bool, len(entries))
	for _, entry := range entries {
		if seen[entry.Id] {
			return nil, nil, &InvalidParameterError{Message: "Two or more batch entries in the request have the same Id."}
		}
		seen[entry.Id] = true
	}

	if fifo {
		for _, entry := range entries {
			if entry.MessageGroupId == "" {
				return nil, nil, &InvalidParameterError{
					Message: "Invalid parameter: The MessageGroupId parameter is required for FIFO topics",
				}
			}
		}
	}

	successful := []models.PublishBatchResultEntry{}
	failed := []models.BatchResultErrorEntry{}
	for _, entry := range entries {
		messageID, err := b.Publish(ctx, PublishInput{
			TopicARN:               topicARN,
			Message:                entry.Message,
			Subject:                entry.Subject,
			MessageAttributes:      entry.MessageAttributes,
			MessageGroupID:         entry.MessageGroupId,
			MessageDeduplicationID: entry.MessageDeduplicationId,
		})
		if err != nil {
			failed = append(failed, batchFailure(entry.Id, err))
			continue
		}
		successful = append(successful, models.PublishBatchResultEntry{Id: entry.Id, MessageId: messageID})
	}
	return successful, failed, nil
}

func batchFailure(id string, err error) models.BatchResultErrorEntry {
	entry := models.BatchResultErrorEntry{Id: id, Message: err.Error()}
	switch err.(type) {
	case *InvalidParameterError:
		entry.Code = "InvalidParameter"
		entry.SenderFault = true
	case *NotFoundError:
		entry.Code = "NotFound"
		entry.SenderFault = true
	default:
		entry.Code = "InternalFailure"
	}
	return entry
}

// SetSMSAttributes merges account-level SMS attributes.
func (b *Backend) SetSMSAttributes(attrs map[string]string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for k, v := range attrs {
		b.smsAttributes[k] = v
	}
}

// GetSMSAttributes returns a copy of the account-level SMS attributes.
func (b *Backend) GetSMSAttributes() map[string]string {
	b.mu.Lock()
	defer b.mu.Unlock()
	attrs := make(map[string]string, len(b.smsAttributes))
	for k, v := range b.smsAttributes {
		attrs[k] = v
	}
	return attrs
}

// SentNotifications returns a copy of the topic's sent-message log. This is
// the verification hook used by tests and external collaborators.
func (b *Backend) SentNotifications(topicARN string) ([]SentNotification, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	topic, err := b.getTopicLocked(topicARN)
	if err != nil {
		return nil, err
	}
	log := make([]SentNotification, len(topic.SentNotifications))
	copy(log, topic.SentNotifications)
	return log, nil
}

// SMSMessages returns a copy of the account's SMS log.
func (b *Backend) SMSMessages() []SMSMessage {
	b.mu.Lock()
	defer b.mu.Unlock()
	log := make([]SMSMessage, len(b.smsMessages))
	copy(log, b.smsMessages)
	return log
}

// EndpointMessages returns a copy of a platform endpoint's message log.
func (b *Backend) EndpointMessages(arn string) ([]EndpointMessage, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ep, err := b.getEndpointLocked(arn)
	if err != nil {
		return nil, err
	}
	log := make([]EndpointMessage, len(ep.Messages))
	copy(log, ep.Messages)
	return log, nil
}
