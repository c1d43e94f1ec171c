package server

import (
	"net/http"

	"github.com/tabeth/concretens/backend"
	"github.com/tabeth/concretens/models"
)

// CreateTopicHandler creates a topic, applying creation-time attributes and
// tags. Repeating the call with the same name returns the existing ARN.
func (app *App) CreateTopicHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTopicRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}

	tags := make(map[string]string, len(req.Tags))
	for _, t := range req.Tags {
		tags[t.Key] = t.Value
	}

	topic, err := app.Backend.CreateTopic(req.Name, req.Attributes, tags)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, models.CreateTopicResponse{TopicArn: topic.ARN})
}

func (app *App) DeleteTopicHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteTopicRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if err := app.Backend.DeleteTopic(req.TopicArn); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) GetTopicAttributesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GetTopicAttributesRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	attrs, err := app.Backend.GetTopicAttributes(req.TopicArn)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, models.GetTopicAttributesResponse{Attributes: attrs})
}

func (app *App) SetTopicAttributesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SetTopicAttributesRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if err := app.Backend.SetTopicAttribute(req.TopicArn, req.AttributeName, req.AttributeValue); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) ListTopicsHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ListTopicsRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	arns, nextToken, err := app.Backend.ListTopics(req.NextToken)
	if err != nil {
		app.handleError(w, err)
		return
	}

	resp := models.ListTopicsResponse{Topics: make([]models.TopicSummary, 0, len(arns)), NextToken: nextToken}
	for _, arn := range arns {
		resp.Topics = append(resp.Topics, models.TopicSummary{TopicArn: arn})
	}
	app.sendJSONResponse(w, resp)
}

// SubscribeHandler creates a subscription and applies any creation-time
// attributes. An invalid attribute rolls a newly created subscription back
// so the call stays all-or-nothing; a pre-existing subscription returned by
// the duplicate path is left untouched.
func (app *App) SubscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SubscribeRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}

	sub, created, err := app.Backend.Subscribe(req.TopicArn, req.Endpoint, req.Protocol)
	if err != nil {
		app.handleError(w, err)
		return
	}

	for name, value := range req.Attributes {
		if err := app.Backend.SetSubscriptionAttribute(sub.ARN, name, value); err != nil {
			if created {
				app.Backend.Unsubscribe(sub.ARN)
			}
			app.handleError(w, err)
			return
		}
	}
	app.sendJSONResponse(w, models.SubscribeResponse{SubscriptionArn: sub.ARN})
}

func (app *App) UnsubscribeHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UnsubscribeRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if err := app.Backend.Unsubscribe(req.SubscriptionArn); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) ListSubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ListSubscriptionsRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	subs, nextToken, err := app.Backend.ListSubscriptions(req.NextToken)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, subscriptionListResponse(subs, nextToken))
}

func (app *App) ListSubscriptionsByTopicHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ListSubscriptionsByTopicRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	subs, nextToken, err := app.Backend.ListSubscriptionsByTopic(req.TopicArn, req.NextToken)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, subscriptionListResponse(subs, nextToken))
}

func subscriptionListResponse(subs []*backend.Subscription, nextToken string) models.ListSubscriptionsResponse {
	resp := models.ListSubscriptionsResponse{
		Subscriptions: make([]models.SubscriptionSummary, 0, len(subs)),
		NextToken:     nextToken,
	}
	for _, sub := range subs {
		resp.Subscriptions = append(resp.Subscriptions, models.SubscriptionSummary{
			SubscriptionArn: sub.ARN,
			Owner:           sub.Owner,
			Protocol:        sub.Protocol,
			Endpoint:        sub.Endpoint,
			TopicArn:        sub.TopicARN,
		})
	}
	return resp
}

func (app *App) GetSubscriptionAttributesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GetSubscriptionAttributesRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	attrs, err := app.Backend.GetSubscriptionAttributes(req.SubscriptionArn)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, models.GetSubscriptionAttributesResponse{Attributes: attrs})
}

func (app *App) SetSubscriptionAttributesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SetSubscriptionAttributesRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if err := app.Backend.SetSubscriptionAttribute(req.SubscriptionArn, req.AttributeName, req.AttributeValue); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) PublishHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PublishRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}

	messageID, err := app.Backend.Publish(r.Context(), backend.PublishInput{
		TopicARN:               req.TopicArn,
		TargetARN:              req.TargetArn,
		PhoneNumber:            req.PhoneNumber,
		Message:                req.Message,
		Subject:                req.Subject,
		MessageAttributes:      req.MessageAttributes,
		MessageGroupID:         req.MessageGroupId,
		MessageDeduplicationID: req.MessageDeduplicationId,
	})
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, models.PublishResponse{MessageId: messageID})
}

func (app *App) PublishBatchHandler(w http.ResponseWriter, r *http.Request) {
	var req models.PublishBatchRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	successful, failed, err := app.Backend.PublishBatch(r.Context(), req.TopicArn, req.PublishBatchRequestEntries)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, models.PublishBatchResponse{Successful: successful, Failed: failed})
}

func (app *App) TagResourceHandler(w http.ResponseWriter, r *http.Request) {
	var req models.TagResourceRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}

	tags := make(map[string]string, len(req.Tags))
	for _, t := range req.Tags {
		tags[t.Key] = t.Value
	}
	if err := app.Backend.TagResource(req.ResourceArn, tags); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) UntagResourceHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UntagResourceRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if err := app.Backend.UntagResource(req.ResourceArn, req.TagKeys); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) ListTagsForResourceHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ListTagsForResourceRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	tags, err := app.Backend.ListTagsForResource(req.ResourceArn)
	if err != nil {
		app.handleError(w, err)
		return
	}

	resp := models.ListTagsForResourceResponse{Tags: make([]models.Tag, 0, len(tags))}
	for k, v := range tags {
		resp.Tags = append(resp.Tags, models.Tag{Key: k, Value: v})
	}
	app.sendJSONResponse(w, resp)
}

func (app *App) AddPermissionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.AddPermissionRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if err := app.Backend.AddPermission(req.TopicArn, req.Label, req.AWSAccountId, req.ActionName); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) RemovePermissionHandler(w http.ResponseWriter, r *http.Request) {
	var req models.RemovePermissionRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if err := app.Backend.RemovePermission(req.TopicArn, req.Label); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) CreatePlatformApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlatformApplicationRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	platformApp := app.Backend.CreatePlatformApplication(req.Name, req.Platform, req.Attributes)
	app.sendJSONResponse(w, models.CreatePlatformApplicationResponse{PlatformApplicationArn: platformApp.ARN})
}

func (app *App) DeletePlatformApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeletePlatformApplicationRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if err := app.Backend.DeletePlatformApplication(req.PlatformApplicationArn); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) ListPlatformApplicationsHandler(w http.ResponseWriter, r *http.Request) {
	apps := app.Backend.ListPlatformApplications()

	resp := models.ListPlatformApplicationsResponse{
		PlatformApplications: make([]models.PlatformApplicationSummary, 0, len(apps)),
	}
	for _, a := range apps {
		resp.PlatformApplications = append(resp.PlatformApplications, models.PlatformApplicationSummary{
			PlatformApplicationArn: a.ARN,
			Attributes:             a.Attributes,
		})
	}
	app.sendJSONResponse(w, resp)
}

func (app *App) SetPlatformApplicationAttributesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SetPlatformApplicationAttributesRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if _, err := app.Backend.SetApplicationAttributes(req.PlatformApplicationArn, req.Attributes); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) CreatePlatformEndpointHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePlatformEndpointRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	ep, err := app.Backend.CreatePlatformEndpoint(req.PlatformApplicationArn, req.Token, req.CustomUserData, req.Attributes)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, models.CreatePlatformEndpointResponse{EndpointArn: ep.ARN})
}

func (app *App) DeleteEndpointHandler(w http.ResponseWriter, r *http.Request) {
	var req models.DeleteEndpointRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if err := app.Backend.DeleteEndpoint(req.EndpointArn); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) GetEndpointAttributesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.GetEndpointAttributesRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	attrs, err := app.Backend.GetEndpointAttributes(req.EndpointArn)
	if err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, models.GetEndpointAttributesResponse{Attributes: attrs})
}

func (app *App) SetEndpointAttributesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SetEndpointAttributesRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	if _, err := app.Backend.SetEndpointAttributes(req.EndpointArn, req.Attributes); err != nil {
		app.handleError(w, err)
		return
	}
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) SetSMSAttributesHandler(w http.ResponseWriter, r *http.Request) {
	var req models.SetSMSAttributesRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	app.Backend.SetSMSAttributes(req.Attributes)
	app.sendJSONResponse(w, struct{}{})
}

func (app *App) GetSMSAttributesHandler(w http.ResponseWriter, r *http.Request) {
	app.sendJSONResponse(w, models.GetSMSAttributesResponse{Attributes: app.Backend.GetSMSAttributes()})
}

func (app *App) ListEndpointsByPlatformApplicationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.ListEndpointsByPlatformApplicationRequest
	if !app.decodeRequest(w, r, &req) {
		return
	}
	eps := app.Backend.ListEndpointsByPlatformApplication(req.PlatformApplicationArn)

	resp := models.ListEndpointsByPlatformApplicationResponse{
		Endpoints: make([]models.EndpointSummary, 0, len(eps)),
	}
	for _, ep := range eps {
		resp.Endpoints = append(resp.Endpoints, models.EndpointSummary{
			EndpointArn: ep.ARN,
			Attributes:  ep.Attributes,
		})
	}
	app.sendJSONResponse(w, resp)
}
