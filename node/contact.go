package node

import (
	"context"
	"net/http"

	"github.com/goliatone/go-rdstation/api"
	"github.com/goliatone/go-rdstation/shape"
)

func createContact(ctx context.Context, call Call) ([]map[string]any, error) {
	email, err := call.Params.RequiredString("email", "Email is required to create a contact")
	if err != nil {
		return nil, err
	}
	fields := call.Params.Object("additionalFields")
	fields["email"] = email
	body, err := contactBody(fields)
	if err != nil {
		return nil, err
	}
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodPost, api.ContactsPath, body, nil))
	if err != nil {
		return nil, err
	}
	return responseRecords(response), nil
}

// upsertContact creates the contact or updates the existing one addressed
// by email.
func upsertContact(ctx context.Context, call Call) ([]map[string]any, error) {
	email, err := call.Params.RequiredString("email", "Email is required to create or update a contact")
	if err != nil {
		return nil, err
	}
	if !shape.ValidateEmail(email) {
		return nil, shape.InvalidEmailError("email", email)
	}
	fields := call.Params.Object("additionalFields")
	delete(fields, "email")
	body, err := contactBody(fields)
	if err != nil {
		return nil, err
	}
	path := api.ContactPath(api.IdentifierEmail, email)
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodPatch, path, body, nil))
	if err != nil {
		return nil, err
	}
	return withoutLinks(responseRecords(response)), nil
}

func updateContact(ctx context.Context, call Call) ([]map[string]any, error) {
	identifier, value, err := contactIdentifier(call.Params, "update a contact")
	if err != nil {
		return nil, err
	}
	fields := call.Params.Object("additionalFields")
	if identifier == api.IdentifierUUID {
		// the email is optional here and becomes part of the update
		if email := call.Params.String("email"); email != "" {
			fields["email"] = email
		}
	}
	body, err := contactBody(fields)
	if err != nil {
		return nil, err
	}
	path := api.ContactPath(identifier, value)
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodPatch, path, body, nil))
	if err != nil {
		return nil, err
	}
	return withoutLinks(responseRecords(response)), nil
}

func getContact(ctx context.Context, call Call) ([]map[string]any, error) {
	identifier, value, err := contactIdentifier(call.Params, "get a contact")
	if err != nil {
		return nil, err
	}
	path := api.ContactPath(identifier, value)
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodGet, path, nil, nil))
	if err != nil {
		return nil, err
	}
	return withoutLinks(responseRecords(response)), nil
}

func deleteContact(ctx context.Context, call Call) ([]map[string]any, error) {
	identifier, value, err := contactIdentifier(call.Params, "delete a contact")
	if err != nil {
		return nil, err
	}
	path := api.ContactPath(identifier, value)
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodDelete, path, nil, nil))
	if err != nil {
		return nil, err
	}
	if response == nil {
		return []map[string]any{{"success": true}}, nil
	}
	return responseRecords(response), nil
}

func tagContact(ctx context.Context, call Call) ([]map[string]any, error) {
	identifier, value, err := contactIdentifier(call.Params, "tag a contact")
	if err != nil {
		return nil, err
	}
	raw, err := call.Params.RequiredString("tags", "Tags are required to tag a contact")
	if err != nil {
		return nil, err
	}
	tags := shape.FormatTags(raw)
	if len(tags) == 0 {
		return nil, &OperationError{Parameter: "tags", Message: "Tags are required to tag a contact"}
	}
	path := api.ContactTagPath(identifier, value)
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodPost, path, map[string]any{"tags": tags}, nil))
	if err != nil {
		return nil, err
	}
	return responseRecords(response), nil
}

// listContacts emits one record per contact of a segmentation. With
// returnAll every page is fetched, otherwise a single page of limit
// contacts.
func listContacts(ctx context.Context, call Call) ([]map[string]any, error) {
	segmentationID, err := call.Params.RequiredString("segmentation_id", "Segmentation is required to list contacts")
	if err != nil {
		return nil, err
	}
	path := api.SegmentationContactsPath(segmentationID)

	if call.Params.Bool("returnAll") {
		paginator := api.Paginator{
			Client:   call.Client,
			Field:    "contacts",
			Style:    api.StopOnHasMore,
			PageSize: call.PageSize,
		}
		return paginator.All(ctx, http.MethodGet, path, nil, nil)
	}

	limit := call.Params.Int("limit", DefaultLimit)
	if limit < 1 {
		limit = 1
	}
	response, err := call.Client.Do(ctx, api.NewRequest(http.MethodGet, path, nil, map[string]any{
		api.DefaultPageSizeParam: limit,
	}))
	if err != nil {
		return nil, err
	}
	records := api.Records(response, "contacts")
	if len(records) > limit {
		records = records[:limit]
	}
	return records, nil
}
