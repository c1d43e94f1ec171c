package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/tabeth/concretens/models"
)

func marshalEnvelope(env *Envelope) (string, error) {
	data, err := json.Marshal(env)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// NewHTTPClient returns the client shared by the default transports.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: defaultTimeout}
}

// HTTPWebhook posts notification envelopes to subscriber URLs.
type HTTPWebhook struct {
	Client *http.Client
}

// PostJSON performs a best-effort POST of the payload. Retrying on failure
// is a collaborator concern, not handled here.
func (h *HTTPWebhook) PostJSON(ctx context.Context, endpoint string, payload interface{}) (int, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "text/plain; charset=UTF-8")
	if env, ok := payload.(*Envelope); ok {
		req.Header.Set("x-amz-sns-message-type", env.Type)
		req.Header.Set("x-amz-sns-message-id", env.MessageId)
		req.Header.Set("x-amz-sns-topic-arn", env.TopicArn)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// SQSForwarder forwards messages to an SQS-compatible queue service over
// its JSON protocol.
type SQSForwarder struct {
	// BaseURL is the queue service root, e.g. "http://localhost:8080".
	BaseURL string
	Client  *http.Client
}

type sqsAttributeValue struct {
	DataType    string  `json:"DataType"`
	StringValue *string `json:"StringValue,omitempty"`
	BinaryValue []byte  `json:"BinaryValue,omitempty"`
}

type sqsSendMessageRequest struct {
	QueueUrl               string                       `json:"QueueUrl"`
	MessageBody            string                       `json:"MessageBody"`
	MessageAttributes      map[string]sqsAttributeValue `json:"MessageAttributes,omitempty"`
	MessageGroupId         string                       `json:"MessageGroupId,omitempty"`
	MessageDeduplicationId string                       `json:"MessageDeduplicationId,omitempty"`
}

// Enqueue sends the body to the named queue via an SQS SendMessage call.
func (s *SQSForwarder) Enqueue(ctx context.Context, queueName, region, body string, attrs map[string]models.MessageAttributeValue, groupID, dedupID string) error {
	payload := sqsSendMessageRequest{
		QueueUrl:               fmt.Sprintf("%s/queues/%s", s.BaseURL, queueName),
		MessageBody:            body,
		MessageGroupId:         groupID,
		MessageDeduplicationId: dedupID,
	}
	if len(attrs) > 0 {
		payload.MessageAttributes = make(map[string]sqsAttributeValue, len(attrs))
		for k, v := range attrs {
			val := v.StringValue
			payload.MessageAttributes[k] = sqsAttributeValue{
				DataType:    v.DataType,
				StringValue: &val,
				BinaryValue: v.BinaryValue,
			}
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.BaseURL+"/", bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-amz-json-1.0")
	req.Header.Set("X-Amz-Target", "AmazonSQS.SendMessage")

	resp, err := s.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("queue service returned %s: %s", resp.Status, string(respBody))
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// LambdaInvoker invokes functions on a Lambda-compatible runtime endpoint.
type LambdaInvoker struct {
	// BaseURL is the function service root.
	BaseURL string
	Client  *http.Client
}

// Invoke posts the raw message to the function's invocation endpoint.
func (l *LambdaInvoker) Invoke(ctx context.Context, functionName, payload, subject, qualifier string) error {
	invokeURL := fmt.Sprintf("%s/2015-03-31/functions/%s/invocations", l.BaseURL, url.PathEscape(functionName))
	if qualifier != "" {
		invokeURL += "?Qualifier=" + url.QueryEscape(qualifier)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, invokeURL, bytes.NewReader([]byte(payload)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if subject != "" {
		req.Header.Set("x-amz-sns-subject", subject)
	}

	resp, err := l.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("function %s returned status %d", functionName, resp.StatusCode)
	}
	return nil
}
