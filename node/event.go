package node

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-rdstation/api"
	"github.com/goliatone/go-rdstation/shape"
)

const (
	EventTypeConversion      = "CONVERSION"
	EventTypeSale            = "SALE"
	EventTypeOpportunity     = "OPPORTUNITY"
	EventTypeOpportunityLost = "OPPORTUNITY_LOST"

	EventFamilyCDP = "CDP"
)

func registerConversion(ctx context.Context, call Call) ([]map[string]any, error) {
	return conversionEvent(ctx, call, "register a conversion")
}

// createLead registers the lead form data as a conversion, which creates
// the contact when it does not exist yet.
func createLead(ctx context.Context, call Call) ([]map[string]any, error) {
	return conversionEvent(ctx, call, "create a lead")
}

func conversionEvent(ctx context.Context, call Call, action string) ([]map[string]any, error) {
	email, err := call.Params.RequiredString("email", "Email is required to "+action)
	if err != nil {
		return nil, err
	}
	conversionID, err := call.Params.RequiredString("conversion_identifier", "Conversion identifier is required to "+action)
	if err != nil {
		return nil, err
	}
	payload := call.Params.Object("additionalFields")
	payload["email"] = email
	payload["conversion_identifier"] = conversionID
	return sendEvent(ctx, call, EventTypeConversion, payload)
}

func registerSale(ctx context.Context, call Call) ([]map[string]any, error) {
	email, err := call.Params.RequiredString("email", "Email is required to register a sale")
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"email":       email,
		"funnel_name": funnelName(call.Params),
	}
	if value, ok := call.Params.Number("value"); ok {
		payload["value"] = value
	}
	return sendEvent(ctx, call, EventTypeSale, payload)
}

func markOpportunity(ctx context.Context, call Call) ([]map[string]any, error) {
	email, err := call.Params.RequiredString("email", "Email is required to mark a lead as opportunity")
	if err != nil {
		return nil, err
	}
	return sendEvent(ctx, call, EventTypeOpportunity, map[string]any{
		"email":       email,
		"funnel_name": funnelName(call.Params),
	})
}

func markLost(ctx context.Context, call Call) ([]map[string]any, error) {
	email, err := call.Params.RequiredString("email", "Email is required to mark a lead as lost")
	if err != nil {
		return nil, err
	}
	payload := map[string]any{
		"email":       email,
		"funnel_name": funnelName(call.Params),
	}
	if reason := call.Params.String("reason"); reason != "" {
		payload["reason"] = reason
	}
	return sendEvent(ctx, call, EventTypeOpportunityLost, payload)
}

// sendEvent posts {event_type, event_family, payload} to the events
// endpoint with the lower-cased event type as query parameter.
func sendEvent(ctx context.Context, call Call, eventType string, payload map[string]any) ([]map[string]any, error) {
	sanitized, err := shape.SanitizeContactData(payload)
	if err != nil {
		return nil, err
	}
	body := snakeBody(shape.PrepareLeadData(map[string]any{
		"event_type":   eventType,
		"event_family": EventFamilyCDP,
		"payload":      sanitized,
	}))
	query := map[string]any{"event_type": strings.ToLower(eventType)}
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodPost, api.EventsPath, body, query))
	if err != nil {
		return nil, err
	}
	return responseRecords(response), nil
}

func funnelName(p Params) string {
	if name := p.String("funnel_name"); name != "" {
		return name
	}
	return DefaultFunnel
}
