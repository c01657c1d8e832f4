package node

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-rdstation/api"
	"github.com/goliatone/go-rdstation/shape"
)

func builtinHandlers() map[Key]Handler {
	return map[Key]Handler{
		{ResourceContact, OperationCreate}: createContact,
		{ResourceContact, OperationUpdate}: updateContact,
		{ResourceContact, OperationUpsert}: upsertContact,
		{ResourceContact, OperationGet}:    getContact,
		{ResourceContact, OperationGetAll}: listContacts,
		{ResourceContact, OperationDelete}: deleteContact,
		{ResourceContact, OperationTag}:    tagContact,

		{ResourceEvent, OperationConversion}: registerConversion,
		{ResourceEvent, OperationSale}:       registerSale,

		{ResourceLead, OperationCreate}:          createLead,
		{ResourceLead, OperationMarkOpportunity}: markOpportunity,
		{ResourceLead, OperationMarkLost}:        markLost,

		{ResourceFunnel, OperationGet}:    getFunnel,
		{ResourceFunnel, OperationUpdate}: updateFunnel,
	}
}

// contactIdentifier resolves the identifier type and value selected for
// the item. action completes the missing value message, as in
// "Email is required to <action> by email".
func contactIdentifier(p Params, action string) (identifier string, value string, err error) {
	identifier = strings.ToLower(p.String("identifier"))
	if identifier == "" {
		identifier = api.IdentifierEmail
	}
	switch identifier {
	case api.IdentifierEmail:
		value, err = p.RequiredString("email", fmt.Sprintf("Email is required to %s by email", action))
		if err != nil {
			return "", "", err
		}
		if !shape.ValidateEmail(value) {
			return "", "", shape.InvalidEmailError("email", value)
		}
	case api.IdentifierUUID:
		value, err = p.RequiredString("uuid", fmt.Sprintf("UUID is required to %s by UUID", action))
		if err != nil {
			return "", "", err
		}
		if !shape.ValidateUUID(value) {
			return "", "", shape.InvalidUUIDError("uuid", value)
		}
	default:
		return "", "", &OperationError{
			Parameter: "identifier",
			Message:   fmt.Sprintf("Contact identifier %q is not supported", identifier),
		}
	}
	return identifier, value, nil
}

// contactBody applies the shared body transforms (custom field flattening,
// tag lists, birthdate truncation) and then sanitizes the result, so a blank
// custom field never reaches the API. Keys go out in snake_case.
func contactBody(fields map[string]any) (map[string]any, error) {
	sanitized, err := shape.SanitizeContactData(shape.PrepareLeadData(fields))
	if err != nil {
		return nil, err
	}
	return snakeBody(sanitized), nil
}

func snakeBody(body map[string]any) map[string]any {
	converted, ok := shape.KeysToSnakeCase(body).(map[string]any)
	if !ok {
		return map[string]any{}
	}
	return converted
}

// responseRecords turns a decoded single-resource response into output
// records. An empty response body yields one empty record.
func responseRecords(response any) []map[string]any {
	switch typed := response.(type) {
	case nil:
		return []map[string]any{{}}
	case map[string]any, []any:
		return api.Records(typed, "")
	default:
		return []map[string]any{{"value": typed}}
	}
}

func withoutLinks(records []map[string]any) []map[string]any {
	for index, record := range records {
		if _, ok := record["links"]; !ok {
			continue
		}
		trimmed := make(map[string]any, len(record))
		for key, value := range record {
			if key == "links" {
				continue
			}
			trimmed[key] = value
		}
		records[index] = trimmed
	}
	return records
}
