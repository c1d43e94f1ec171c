package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabeth/concretens/backend"
	"github.com/tabeth/concretens/models"
)

func newTestServer(t *testing.T) (*httptest.Server, *backend.Backend) {
	t.Helper()
	b := backend.New("123456789012", "us-east-1")
	app := NewApp(b)

	r := chi.NewRouter()
	app.RegisterHandlers(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, b
}

func doAction(t *testing.T, srv *httptest.Server, action string, body interface{}) (*http.Response, []byte) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/", bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-amz-json-1.0")
	req.Header.Set("X-Amz-Target", "AmazonSNS."+action)

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	return resp, buf.Bytes()
}

func decodeAs(t *testing.T, data []byte, dst interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(data, dst))
}

func TestRootHandlerRejectsBadTarget(t *testing.T) {
	srv, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/", bytes.NewReader([]byte("{}")))
	require.NoError(t, err)
	req.Header.Set("X-Amz-Target", "AmazonSQS.SendMessage")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRootHandlerRejectsUnknownAction(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doAction(t, srv, "ConfirmSubscription", struct{}{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp models.ErrorResponse
	decodeAs(t, body, &errResp)
	assert.Equal(t, "InvalidAction", errResp.Type)
}

func TestCreateTopicEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doAction(t, srv, "CreateTopic", models.CreateTopicRequest{
		Name: "orders",
		Tags: []models.Tag{{Key: "team", Value: "payments"}},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-amz-json-1.0", resp.Header.Get("Content-Type"))

	var created models.CreateTopicResponse
	decodeAs(t, body, &created)
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:orders", created.TopicArn)

	resp, body = doAction(t, srv, "ListTagsForResource", models.ListTagsForResourceRequest{ResourceArn: created.TopicArn})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tags models.ListTagsForResourceResponse
	decodeAs(t, body, &tags)
	assert.Equal(t, []models.Tag{{Key: "team", Value: "payments"}}, tags.Tags)
}

func TestCreateTopicEndpointInvalidName(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doAction(t, srv, "CreateTopic", models.CreateTopicRequest{Name: "orders!"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp models.ErrorResponse
	decodeAs(t, body, &errResp)
	assert.Equal(t, "InvalidParameter", errResp.Type)
}

func TestErrorMapping(t *testing.T) {
	srv, _ := newTestServer(t)
	missing := "arn:aws:sns:us-east-1:123456789012:missing"

	resp, body := doAction(t, srv, "DeleteTopic", models.DeleteTopicRequest{TopicArn: missing})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var errResp models.ErrorResponse
	decodeAs(t, body, &errResp)
	assert.Equal(t, "NotFound", errResp.Type)
	assert.Equal(t, fmt.Sprintf("Topic with arn %s not found", missing), errResp.Message)
}

func TestListTopicsEndpointPagination(t *testing.T) {
	srv, b := newTestServer(t)
	for i := 0; i < 101; i++ {
		_, err := b.CreateTopic(fmt.Sprintf("topic-%03d", i), nil, nil)
		require.NoError(t, err)
	}

	resp, body := doAction(t, srv, "ListTopics", models.ListTopicsRequest{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var page models.ListTopicsResponse
	decodeAs(t, body, &page)
	assert.Len(t, page.Topics, 100)
	require.NotEmpty(t, page.NextToken)

	resp, body = doAction(t, srv, "ListTopics", models.ListTopicsRequest{NextToken: page.NextToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = models.ListTopicsResponse{}
	decodeAs(t, body, &page)
	assert.Len(t, page.Topics, 1)
	assert.Empty(t, page.NextToken)
}

func TestSubscribeEndpoint(t *testing.T) {
	srv, b := newTestServer(t)
	topic, err := b.CreateTopic("orders", nil, nil)
	require.NoError(t, err)

	resp, body := doAction(t, srv, "Subscribe", models.SubscribeRequest{
		TopicArn: topic.ARN,
		Protocol: "sqs",
		Endpoint: "arn:aws:sqs:us-east-1:123456789012:orders-queue",
		Attributes: map[string]string{
			"RawMessageDelivery": "true",
			"FilterPolicy":       `{"store": ["example_corp"]}`,
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var subscribed models.SubscribeResponse
	decodeAs(t, body, &subscribed)
	require.NotEmpty(t, subscribed.SubscriptionArn)

	resp, body = doAction(t, srv, "GetSubscriptionAttributes",
		models.GetSubscriptionAttributesRequest{SubscriptionArn: subscribed.SubscriptionArn})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var attrs models.GetSubscriptionAttributesResponse
	decodeAs(t, body, &attrs)
	assert.Equal(t, "true", attrs.Attributes["RawMessageDelivery"])
	assert.Equal(t, `{"store": ["example_corp"]}`, attrs.Attributes["FilterPolicy"])
}

func TestSubscribeEndpointRollsBackOnBadAttribute(t *testing.T) {
	srv, b := newTestServer(t)
	topic, err := b.CreateTopic("orders", nil, nil)
	require.NoError(t, err)

	resp, _ := doAction(t, srv, "Subscribe", models.SubscribeRequest{
		TopicArn:   topic.ARN,
		Protocol:   "sqs",
		Endpoint:   "arn:aws:sqs:us-east-1:123456789012:orders-queue",
		Attributes: map[string]string{"FilterPolicy": `{"store": [{"suffix": "corp"}]}`},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	subs, _, err := b.ListSubscriptions("")
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestSubscribeEndpointKeepsExistingOnBadAttribute(t *testing.T) {
	srv, b := newTestServer(t)
	topic, err := b.CreateTopic("orders", nil, nil)
	require.NoError(t, err)
	existing, _, err := b.Subscribe(topic.ARN, "arn:aws:sqs:us-east-1:123456789012:orders-queue", "sqs")
	require.NoError(t, err)

	// A rejected duplicate subscribe must leave the pre-existing
	// subscription in place.
	resp, _ := doAction(t, srv, "Subscribe", models.SubscribeRequest{
		TopicArn:   topic.ARN,
		Protocol:   "sqs",
		Endpoint:   "arn:aws:sqs:us-east-1:123456789012:orders-queue",
		Attributes: map[string]string{"BogusAttribute": "x"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	sub, err := b.GetSubscription(existing.ARN)
	require.NoError(t, err)
	assert.Equal(t, existing.ARN, sub.ARN)
}

func TestPublishEndpoint(t *testing.T) {
	srv, b := newTestServer(t)
	topic, err := b.CreateTopic("orders", nil, nil)
	require.NoError(t, err)

	resp, body := doAction(t, srv, "Publish", models.PublishRequest{
		TopicArn: topic.ARN,
		Message:  "hello",
		Subject:  "greeting",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var published models.PublishResponse
	decodeAs(t, body, &published)
	assert.NotEmpty(t, published.MessageId)

	log, err := b.SentNotifications(topic.ARN)
	require.NoError(t, err)
	require.Len(t, log, 1)
	assert.Equal(t, published.MessageId, log[0].MessageID)
}

func TestPublishEndpointWithoutTarget(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doAction(t, srv, "Publish", models.PublishRequest{Message: "hello"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp models.ErrorResponse
	decodeAs(t, body, &errResp)
	assert.Equal(t, "InvalidParameter", errResp.Type)
	assert.Equal(t, "Either TopicArn or TargetArn is required.", errResp.Message)
}

func TestPublishBatchEndpoint(t *testing.T) {
	srv, b := newTestServer(t)
	topic, err := b.CreateTopic("orders", nil, nil)
	require.NoError(t, err)

	resp, body := doAction(t, srv, "PublishBatch", models.PublishBatchRequest{
		TopicArn: topic.ARN,
		PublishBatchRequestEntries: []models.PublishBatchRequestEntry{
			{Id: "1", Message: "first"},
			{Id: "2", Message: "second"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var batch models.PublishBatchResponse
	decodeAs(t, body, &batch)
	assert.Len(t, batch.Successful, 2)
	assert.Empty(t, batch.Failed)
}

func TestTopicAttributeEndpoints(t *testing.T) {
	srv, b := newTestServer(t)
	topic, err := b.CreateTopic("orders", nil, nil)
	require.NoError(t, err)

	resp, _ := doAction(t, srv, "SetTopicAttributes", models.SetTopicAttributesRequest{
		TopicArn:       topic.ARN,
		AttributeName:  "DisplayName",
		AttributeValue: "Orders",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doAction(t, srv, "GetTopicAttributes", models.GetTopicAttributesRequest{TopicArn: topic.ARN})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var attrs models.GetTopicAttributesResponse
	decodeAs(t, body, &attrs)
	assert.Equal(t, "Orders", attrs.Attributes["DisplayName"])
}

func TestPermissionEndpoints(t *testing.T) {
	srv, b := newTestServer(t)
	topic, err := b.CreateTopic("orders", nil, nil)
	require.NoError(t, err)

	resp, _ := doAction(t, srv, "AddPermission", models.AddPermissionRequest{
		TopicArn:     topic.ARN,
		Label:        "grant-1",
		AWSAccountId: []string{"111122223333"},
		ActionName:   []string{"Publish"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doAction(t, srv, "AddPermission", models.AddPermissionRequest{
		TopicArn:     topic.ARN,
		Label:        "grant-1",
		AWSAccountId: []string{"111122223333"},
		ActionName:   []string{"Publish"},
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var errResp models.ErrorResponse
	decodeAs(t, body, &errResp)
	assert.Equal(t, "Statement already exists", errResp.Message)

	resp, _ = doAction(t, srv, "RemovePermission", models.RemovePermissionRequest{
		TopicArn: topic.ARN,
		Label:    "grant-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlatformEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, body := doAction(t, srv, "CreatePlatformApplication", models.CreatePlatformApplicationRequest{
		Name:     "my-app",
		Platform: "APNS",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var appResp models.CreatePlatformApplicationResponse
	decodeAs(t, body, &appResp)
	require.NotEmpty(t, appResp.PlatformApplicationArn)

	resp, body = doAction(t, srv, "CreatePlatformEndpoint", models.CreatePlatformEndpointRequest{
		PlatformApplicationArn: appResp.PlatformApplicationArn,
		Token:                  "token-1",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var epResp models.CreatePlatformEndpointResponse
	decodeAs(t, body, &epResp)
	require.NotEmpty(t, epResp.EndpointArn)

	resp, body = doAction(t, srv, "ListEndpointsByPlatformApplication",
		models.ListEndpointsByPlatformApplicationRequest{PlatformApplicationArn: appResp.PlatformApplicationArn})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listResp models.ListEndpointsByPlatformApplicationResponse
	decodeAs(t, body, &listResp)
	require.Len(t, listResp.Endpoints, 1)
	assert.Equal(t, epResp.EndpointArn, listResp.Endpoints[0].EndpointArn)

	resp, _ = doAction(t, srv, "DeleteEndpoint", models.DeleteEndpointRequest{EndpointArn: epResp.EndpointArn})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = doAction(t, srv, "DeletePlatformApplication",
		models.DeletePlatformApplicationRequest{PlatformApplicationArn: appResp.PlatformApplicationArn})
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestSMSAttributeEndpoints(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, _ := doAction(t, srv, "SetSMSAttributes", models.SetSMSAttributesRequest{
		Attributes: map[string]string{"DefaultSMSType": "Transactional"},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doAction(t, srv, "GetSMSAttributes", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var attrs models.GetSMSAttributesResponse
	decodeAs(t, body, &attrs)
	assert.Equal(t, "Transactional", attrs.Attributes["DefaultSMSType"])
}

func TestFilterPolicyLimitMapsToLimitExceeded(t *testing.T) {
	srv, b := newTestServer(t)
	topic, err := b.CreateTopic("orders", nil, nil)
	require.NoError(t, err)
	sub, _, err := b.Subscribe(topic.ARN, "arn:aws:sqs:us-east-1:123456789012:q", "sqs")
	require.NoError(t, err)

	resp, body := doAction(t, srv, "SetSubscriptionAttributes", models.SetSubscriptionAttributesRequest{
		SubscriptionArn: sub.ARN,
		AttributeName:   "FilterPolicy",
		AttributeValue:  `{"a": ["1","2","3","4","5","6"], "b": ["1","2","3","4","5","6"], "c": ["1","2","3","4","5"]}`,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errResp models.ErrorResponse
	decodeAs(t, body, &errResp)
	assert.Equal(t, "LimitExceeded", errResp.Type)
}
