package node

import (
	"context"
	"net/http"

	"github.com/goliatone/go-rdstation/api"
	"github.com/goliatone/go-rdstation/shape"
)

func getFunnel(ctx context.Context, call Call) ([]map[string]any, error) {
	identifier, value, err := contactIdentifier(call.Params, "get a contact funnel")
	if err != nil {
		return nil, err
	}
	path := api.ContactFunnelPath(identifier, value)
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodGet, path, nil, nil))
	if err != nil {
		return nil, err
	}
	return responseRecords(response), nil
}

func updateFunnel(ctx context.Context, call Call) ([]map[string]any, error) {
	identifier, value, err := contactIdentifier(call.Params, "update a contact funnel")
	if err != nil {
		return nil, err
	}
	fields, err := shape.SanitizeContactData(call.Params.Object("updateFields"))
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, &OperationError{
			Parameter: "updateFields",
			Message:   "At least one field is required to update a contact funnel",
		}
	}
	path := api.ContactFunnelPath(identifier, value)
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodPut, path, snakeBody(fields), nil))
	if err != nil {
		return nil, err
	}
	return responseRecords(response), nil
}
