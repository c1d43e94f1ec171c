// Package backend implements the pub/sub registry: topics, subscriptions,
// platform applications and endpoints, tags, access policies, and the
// publish pipeline. One Backend instance covers one account+region scope;
// all entity maps are guarded by a single exclusive lock, so every
// administrative mutation is atomic with respect to concurrent reads.
package backend

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/tabeth/concretens/models"
)

// defaultPageSize is the fixed page size of every token-paginated listing.
const defaultPageSize = 100

// OutboundMessage carries a published message into the delivery dispatcher.
type OutboundMessage struct {
	MessageID         string
	TopicARN          string
	Message           string
	Subject           string
	MessageAttributes map[string]models.MessageAttributeValue
	GroupID           string
	DedupID           string
}

// DeliveryTarget is an immutable snapshot of one matching subscription,
// taken under the registry lock at publish time. The dispatcher works off
// these copies; live Subscription state is never read outside the lock.
type DeliveryTarget struct {
	SubscriptionARN string
	TopicARN        string
	Endpoint        string
	Protocol        string
	RawDelivery     bool
}

// Deliverer fans a published message out to its matching subscriptions.
// Implementations must isolate per-subscription failures: an adapter error
// for one subscriber never surfaces as a publish failure.
type Deliverer interface {
	Dispatch(ctx context.Context, targets []DeliveryTarget, msg *OutboundMessage)
}

// noopDeliverer drops all deliveries. Used when no dispatcher is wired.
type noopDeliverer struct{}

func (noopDeliverer) Dispatch(context.Context, []DeliveryTarget, *OutboundMessage) {}

// Backend is the registry for one account+region scope. Constructed once
// and passed by reference to all operations; it exclusively owns every
// entity it stores, and no entity outlives it.
type Backend struct {
	accountID string
	region    string
	deliverer Deliverer

	mu sync.Mutex

	topics     map[string]*Topic
	topicOrder []string

	subscriptions map[string]*Subscription
	subOrder      []string

	applications map[string]*PlatformApplication
	appOrder     []string

	endpoints     map[string]*PlatformEndpoint
	endpointOrder []string

	smsAttributes map[string]string
	smsMessages   []SMSMessage
}

// Option configures a Backend.
type Option func(*Backend)

// WithDeliverer wires the delivery dispatcher invoked on publish.
func WithDeliverer(d Deliverer) Option {
	return func(b *Backend) { b.deliverer = d }
}

// New constructs the registry for one account+region scope.
func New(accountID, region string, opts ...Option) *Backend {
	b := &Backend{
		accountID:     accountID,
		region:        region,
		deliverer:     noopDeliverer{},
		topics:        make(map[string]*Topic),
		subscriptions: make(map[string]*Subscription),
		applications:  make(map[string]*PlatformApplication),
		endpoints:     make(map[string]*PlatformEndpoint),
		smsAttributes: make(map[string]string),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// AccountID returns the account scope of this backend.
func (b *Backend) AccountID() string { return b.accountID }

// Region returns the region scope of this backend.
func (b *Backend) Region() string { return b.region }

func (b *Backend) topicARN(name string) string {
	return fmt.Sprintf("arn:aws:sns:%s:%s:%s", b.region, b.accountID, name)
}

// paginate returns the page of keys starting at the integer offset encoded
// in nextToken, plus the token for the following page ("" when the listing
// is exhausted). A token beyond the end yields an empty page.
func paginate(order []string, nextToken string) ([]string, string, error) {
	offset := 0
	if nextToken != "" {
		n, err := strconv.Atoi(nextToken)
		if err != nil || n < 0 {
			return nil, "", &InvalidParameterError{Message: "Invalid parameter: NextToken"}
		}
		offset = n
	}

	if offset >= len(order) {
		return nil, "", nil
	}

	end := offset + defaultPageSize
	if end > len(order) {
		end = len(order)
	}
	page := order[offset:end]
	next := ""
	if len(page) == defaultPageSize {
		next = strconv.Itoa(end)
	}
	return page, next, nil
}

// removeString deletes the first occurrence of v from s, preserving order.
func removeString(s []string, v string) []string {
	for i, x := range s {
		if x == v {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}
