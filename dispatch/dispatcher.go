// Package dispatch delivers published messages to subscription endpoints.
// Each protocol is served by an adapter behind a small interface so that
// downstream collaborators (queue service, webhook receivers, function
// runtime) stay replaceable; the dispatcher itself only decides which
// adapter to call and how to shape the payload.
package dispatch

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/tabeth/concretens/backend"
	"github.com/tabeth/concretens/models"
)

// QueueForwarder forwards a message body to a downstream queue.
type QueueForwarder interface {
	Enqueue(ctx context.Context, queueName, region, body string, attrs map[string]models.MessageAttributeValue, groupID, dedupID string) error
}

// WebhookPoster posts a JSON payload to a subscriber URL.
type WebhookPoster interface {
	PostJSON(ctx context.Context, url string, payload interface{}) (int, error)
}

// FunctionInvoker invokes a downstream function with the raw message.
type FunctionInvoker interface {
	Invoke(ctx context.Context, functionName, payload, subject, qualifier string) error
}

// Envelope is the notification object delivered to non-raw subscribers:
// the original message body wrapped with metadata and signature placeholder
// fields.
type Envelope struct {
	Type              string                                   `json:"Type"`
	MessageId         string                                   `json:"MessageId"`
	TopicArn          string                                   `json:"TopicArn"`
	Subject           string                                   `json:"Subject,omitempty"`
	Message           string                                   `json:"Message"`
	Timestamp         string                                   `json:"Timestamp"`
	SignatureVersion  string                                   `json:"SignatureVersion"`
	Signature         string                                   `json:"Signature"`
	SigningCertURL    string                                   `json:"SigningCertURL"`
	UnsubscribeURL    string                                   `json:"UnsubscribeURL"`
	MessageAttributes map[string]models.MessageAttributeValue `json:"MessageAttributes,omitempty"`
}

const (
	defaultWorkers  = 8
	defaultTimeout  = 10 * time.Second
	placeholderSig  = "EXAMPLElDMXvB8r9R83tGoNn0ecwd5UjllzsvSvbItzfaMpN2nk5HVSw7XnOn/49IkxDKz8YrlH2qJXj2iZB0Zo2O71c4qQk1fMUDi3LGpij7RCW7AW9vYYsSqIKRnFS94ilu7NFhUzLiieYr4BKHpdTmdD6c0esKEYBpabxDSc="
	placeholderCert = "https://sns.us-east-1.amazonaws.com/SimpleNotificationService-f3ecfb7224c7233fe7bb5f59f96de52f.pem"
)

// Dispatcher fans published messages out to matching subscriptions. Fan-out
// runs on a bounded worker pool and every adapter call is bounded by a
// timeout; a failed or timed-out delivery is logged and dropped without
// affecting other subscribers or the publish call.
type Dispatcher struct {
	queues    QueueForwarder
	webhooks  WebhookPoster
	functions FunctionInvoker

	workers int
	timeout time.Duration
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithQueueForwarder wires the queue collaborator.
func WithQueueForwarder(q QueueForwarder) Option {
	return func(d *Dispatcher) { d.queues = q }
}

// WithWebhookPoster wires the webhook collaborator.
func WithWebhookPoster(w WebhookPoster) Option {
	return func(d *Dispatcher) { d.webhooks = w }
}

// WithFunctionInvoker wires the function collaborator.
func WithFunctionInvoker(f FunctionInvoker) Option {
	return func(d *Dispatcher) { d.functions = f }
}

// WithWorkers bounds the fan-out worker pool.
func WithWorkers(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithTimeout bounds each adapter call.
func WithTimeout(t time.Duration) Option {
	return func(d *Dispatcher) {
		if t > 0 {
			d.timeout = t
		}
	}
}

// New constructs a Dispatcher. Protocols without a wired adapter are
// skipped at delivery time.
func New(opts ...Option) *Dispatcher {
	d := &Dispatcher{
		workers: defaultWorkers,
		timeout: defaultTimeout,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch delivers the message to every target, at most workers at a
// time, and returns once all deliveries have completed or failed.
func (d *Dispatcher) Dispatch(ctx context.Context, targets []backend.DeliveryTarget, msg *backend.OutboundMessage) {
	if len(targets) == 0 {
		return
	}

	sem := make(chan struct{}, d.workers)
	var wg sync.WaitGroup
	for _, target := range targets {
		wg.Add(1)
		sem <- struct{}{}
		go func(target backend.DeliveryTarget) {
			defer wg.Done()
			defer func() { <-sem }()

			deliveryCtx, cancel := context.WithTimeout(ctx, d.timeout)
			defer cancel()

			if err := d.deliver(deliveryCtx, target, msg); err != nil {
				log.Printf("delivery to %s (%s) failed: %v", target.Endpoint, target.Protocol, err)
			}
		}(target)
	}
	wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, target backend.DeliveryTarget, msg *backend.OutboundMessage) error {
	switch target.Protocol {
	case "sqs":
		return d.deliverQueue(ctx, target, msg)
	case "http", "https":
		return d.deliverWebhook(ctx, target, msg)
	case "lambda":
		return d.deliverFunction(ctx, target, msg)
	}
	// sms/email/application subscriptions have no transport adapter here.
	return nil
}

// deliverQueue forwards to the downstream queue named by the target's
// endpoint ARN. Raw subscribers receive the body and attributes unmodified;
// everyone else receives the JSON envelope as the body.
func (d *Dispatcher) deliverQueue(ctx context.Context, target backend.DeliveryTarget, msg *backend.OutboundMessage) error {
	if d.queues == nil {
		return nil
	}

	parts := strings.Split(target.Endpoint, ":")
	if len(parts) < 6 {
		return fmt.Errorf("malformed queue endpoint %q", target.Endpoint)
	}
	queueName := parts[len(parts)-1]
	region := parts[3]

	if target.RawDelivery {
		return d.queues.Enqueue(ctx, queueName, region, msg.Message, msg.MessageAttributes, msg.GroupID, msg.DedupID)
	}

	body, err := marshalEnvelope(newEnvelope(msg, target.SubscriptionARN, true))
	if err != nil {
		return err
	}
	return d.queues.Enqueue(ctx, queueName, region, body, nil, msg.GroupID, msg.DedupID)
}

func (d *Dispatcher) deliverWebhook(ctx context.Context, target backend.DeliveryTarget, msg *backend.OutboundMessage) error {
	if d.webhooks == nil {
		return nil
	}

	status, err := d.webhooks.PostJSON(ctx, target.Endpoint, newEnvelope(msg, target.SubscriptionARN, false))
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("webhook returned status %d", status)
	}
	return nil
}

// deliverFunction parses the function endpoint ARN into name and optional
// qualifier and invokes it with the raw message.
func (d *Dispatcher) deliverFunction(ctx context.Context, target backend.DeliveryTarget, msg *backend.OutboundMessage) error {
	if d.functions == nil {
		return nil
	}

	functionName, qualifier, err := parseFunctionEndpoint(target.Endpoint)
	if err != nil {
		return err
	}
	return d.functions.Invoke(ctx, functionName, msg.Message, msg.Subject, qualifier)
}

// parseFunctionEndpoint splits a function ARN of the form
// arn:aws:lambda:region:account:function:name[:qualifier].
func parseFunctionEndpoint(endpoint string) (functionName, qualifier string, err error) {
	parts := strings.Split(endpoint, ":")
	switch {
	case len(parts) == 7 && parts[5] == "function":
		return parts[6], "", nil
	case len(parts) == 8 && parts[5] == "function":
		return parts[6], parts[7], nil
	}
	return "", "", fmt.Errorf("malformed function endpoint %q", endpoint)
}

// newEnvelope builds the notification envelope. Message attributes are
// included for queue delivery only, matching the upstream payloads.
func newEnvelope(msg *backend.OutboundMessage, subscriptionARN string, withAttributes bool) *Envelope {
	env := &Envelope{
		Type:             "Notification",
		MessageId:        msg.MessageID,
		TopicArn:         msg.TopicARN,
		Subject:          msg.Subject,
		Message:          msg.Message,
		Timestamp:        time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
		SignatureVersion: "1",
		Signature:        placeholderSig,
		SigningCertURL:   placeholderCert,
		UnsubscribeURL:   fmt.Sprintf("https://sns.us-east-1.amazonaws.com/?Action=Unsubscribe&SubscriptionArn=%s", subscriptionARN),
	}
	if withAttributes {
		env.MessageAttributes = msg.MessageAttributes
	}
	return env
}
