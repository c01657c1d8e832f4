package node

import (
	"github.com/goliatone/go-rdstation/api"
	"github.com/goliatone/go-rdstation/credential"
	"github.com/goliatone/go-rdstation/schema"
)

const (
	ResourceContact = "contact"
	ResourceEvent   = "event"
	ResourceLead    = "lead"
	ResourceFunnel  = "funnel"
)

const (
	OperationCreate          = "create"
	OperationUpdate          = "update"
	OperationUpsert          = "upsert"
	OperationGet             = "get"
	OperationGetAll          = "getAll"
	OperationDelete          = "delete"
	OperationTag             = "tag"
	OperationConversion      = "conversion"
	OperationSale            = "sale"
	OperationMarkOpportunity = "markOpportunity"
	OperationMarkLost        = "markLost"
)

const (
	DefaultResource = ResourceContact
	DefaultLimit    = 50
	DefaultFunnel   = "default"
)

type CredentialRef struct {
	Name     string `json:"name"`
	Required bool   `json:"required"`
}

// Description is the static node declaration handed to the host runtime.
type Description struct {
	DisplayName string            `json:"displayName"`
	Name        string            `json:"name"`
	Icon        string            `json:"icon"`
	Group       []string          `json:"group"`
	Version     int               `json:"version"`
	Subtitle    string            `json:"subtitle"`
	Summary     string            `json:"description"`
	Defaults    map[string]string `json:"defaults"`
	Credentials []CredentialRef   `json:"credentials"`
	Properties  schema.Properties `json:"properties"`
}

func NewDescription() Description {
	return Description{
		DisplayName: "RD Station Marketing",
		Name:        "rdStationMarketing",
		Icon:        "file:rdstation.svg",
		Group:       []string{"transform"},
		Version:     1,
		Subtitle:    `={{$parameter["operation"] + ": " + $parameter["resource"]}}`,
		Summary:     "Consume RD Station Marketing API",
		Defaults:    map[string]string{"name": "RD Station Marketing"},
		Credentials: []CredentialRef{{Name: credential.Name, Required: true}},
		Properties:  nodeProperties(),
	}
}

// ParameterDefaults returns the default value of every property visible for the
// given resource and operation.
func (d Description) ParameterDefaults(resource, operation string) map[string]any {
	values := map[string]any{"resource": resource, "operation": operation}
	out := map[string]any{}
	// identifier and returnAll drive the visibility of other fields, so
	// resolve them before the rest
	for _, name := range []string{"identifier", "returnAll"} {
		if property, ok := d.Properties.Find(name, values); ok {
			values[name] = property.Default
			out[name] = property.Default
		}
	}
	for _, property := range d.Properties.Visible(values) {
		if _, exists := out[property.Name]; exists {
			continue
		}
		out[property.Name] = property.Default
	}
	return out
}

// DefaultOperation returns the default operation declared for resource.
func (d Description) DefaultOperation(resource string) string {
	property, ok := d.Properties.Find("operation", map[string]any{"resource": resource})
	if !ok {
		return ""
	}
	operation, _ := property.Default.(string)
	return operation
}

func nodeProperties() schema.Properties {
	properties := schema.Properties{
		{
			DisplayName:      "Resource",
			Name:             "resource",
			Type:             schema.TypeOptions,
			NoDataExpression: true,
			Options: []schema.Option{
				{Name: "Contact", Value: ResourceContact},
				{Name: "Event", Value: ResourceEvent},
				{Name: "Funnel", Value: ResourceFunnel},
				{Name: "Lead", Value: ResourceLead},
			},
			Default: DefaultResource,
		},
		operationProperty(ResourceContact, OperationCreate,
			schema.Option{Name: "Create", Value: OperationCreate, Description: "Create a contact", Action: "Create a contact"},
			schema.Option{Name: "Create or Update", Value: OperationUpsert, Description: "Create a new contact, or update the current one if it already exists", Action: "Create or update a contact"},
			schema.Option{Name: "Delete", Value: OperationDelete, Description: "Delete a contact", Action: "Delete a contact"},
			schema.Option{Name: "Get", Value: OperationGet, Description: "Get a contact", Action: "Get a contact"},
			schema.Option{Name: "Get Many", Value: OperationGetAll, Description: "Get many contacts", Action: "Get many contacts"},
			schema.Option{Name: "Tag", Value: OperationTag, Description: "Add tags to a contact", Action: "Tag a contact"},
			schema.Option{Name: "Update", Value: OperationUpdate, Description: "Update a contact", Action: "Update a contact"},
		),
		operationProperty(ResourceEvent, OperationConversion,
			schema.Option{Name: "Standard Conversion", Value: OperationConversion, Description: "Register a standard conversion event", Action: "Standard conversion"},
			schema.Option{Name: "Sale", Value: OperationSale, Description: "Register a sale event", Action: "Register a sale"},
		),
		operationProperty(ResourceLead, OperationCreate,
			schema.Option{Name: "Create", Value: OperationCreate, Description: "Create a lead through a conversion", Action: "Create a lead"},
			schema.Option{Name: "Mark as Lost", Value: OperationMarkLost, Description: "Mark a lead as a lost opportunity", Action: "Mark a lead as lost"},
			schema.Option{Name: "Mark as Opportunity", Value: OperationMarkOpportunity, Description: "Mark a lead as an opportunity", Action: "Mark a lead as opportunity"},
		),
		operationProperty(ResourceFunnel, OperationGet,
			schema.Option{Name: "Get", Value: OperationGet, Description: "Get the funnel stage of a contact", Action: "Get a contact funnel"},
			schema.Option{Name: "Update", Value: OperationUpdate, Description: "Update the funnel stage of a contact", Action: "Update a contact funnel"},
		),
	}
	properties = append(properties, contactProperties()...)
	properties = append(properties, eventProperties()...)
	properties = append(properties, funnelProperties()...)
	return properties
}

func operationProperty(resource, defaultOperation string, options ...schema.Option) schema.Property {
	return schema.Property{
		DisplayName:      "Operation",
		Name:             "operation",
		Type:             schema.TypeOptions,
		NoDataExpression: true,
		DisplayOptions:   schema.ShowFor(resource),
		Options:          options,
		Default:          defaultOperation,
	}
}

var identifiedContactOperations = []string{OperationGet, OperationDelete, OperationTag, OperationUpdate}

func identifierProperties(resource string, operations ...string) schema.Properties {
	return schema.Properties{
		{
			DisplayName: "Contact Identifier",
			Name:        "identifier",
			Type:        schema.TypeOptions,
			Options: []schema.Option{
				{Name: "UUID", Value: api.IdentifierUUID},
				{Name: "Email", Value: api.IdentifierEmail},
			},
			Default:        api.IdentifierEmail,
			Required:       true,
			Description:    "It's possible to consult the Contacts, using the Lead's uuid or email",
			DisplayOptions: schema.ShowFor(resource, operations...),
		},
		{
			DisplayName:    "Email",
			Name:           "email",
			Type:           schema.TypeString,
			Required:       true,
			Default:        "",
			Placeholder:    "name@email.com",
			Description:    "Contact email address",
			DisplayOptions: withShow(schema.ShowFor(resource, operations...), "identifier", api.IdentifierEmail),
		},
		{
			DisplayName:    "UUID",
			Name:           "uuid",
			Type:           schema.TypeString,
			Required:       true,
			Default:        "",
			Placeholder:    "a111bc22-1234-1234-a1a1-ab12c345d67f",
			Description:    "Unique contact UUID",
			DisplayOptions: withShow(schema.ShowFor(resource, operations...), "identifier", api.IdentifierUUID),
		},
	}
}

func contactProperties() schema.Properties {
	properties := identifierProperties(ResourceContact, identifiedContactOperations...)
	properties = append(properties,
		schema.Property{
			DisplayName: "Email",
			Name:        "email",
			Type:        schema.TypeString,
			Required:    true,
			Default:     "",
			Placeholder: "name@email.com",
			Description: "Contact email address",
			DisplayOptions: schema.Show(map[string][]any{
				"resource":  {ResourceContact, ResourceEvent, ResourceLead},
				"operation": {OperationCreate, OperationUpsert, OperationConversion, OperationSale, OperationMarkOpportunity, OperationMarkLost},
			}),
		},
		schema.Property{
			DisplayName:    "Email",
			Name:           "email",
			Type:           schema.TypeString,
			Default:        "",
			Placeholder:    "name@email.com",
			Description:    "Contact email address",
			DisplayOptions: withShow(schema.ShowFor(ResourceContact, OperationUpdate), "identifier", api.IdentifierUUID),
		},
		schema.Property{
			DisplayName:    "Tags",
			Name:           "tags",
			Type:           schema.TypeString,
			Required:       true,
			Default:        "",
			Placeholder:    "customer, newsletter",
			Description:    "Comma separated list of tags to add to the contact",
			DisplayOptions: schema.ShowFor(ResourceContact, OperationTag),
		},
		schema.Property{
			DisplayName:    "Segmentation Name or ID",
			Name:           "segmentation_id",
			Type:           schema.TypeOptions,
			TypeOptions:    &schema.PropertyTypeOptions{LoadOptionsMethod: api.LoadSegmentationOptions},
			Default:        "",
			Required:       true,
			Description:    "Segmentation to list contacts from. Choose from the list, or specify an ID using an expression.",
			DisplayOptions: schema.ShowFor(ResourceContact, OperationGetAll),
		},
		schema.Property{
			DisplayName:    "Return All",
			Name:           "returnAll",
			Type:           schema.TypeBoolean,
			Default:        false,
			Description:    "Whether to return all results or only up to a given limit",
			DisplayOptions: schema.ShowFor(ResourceContact, OperationGetAll),
		},
		schema.Property{
			DisplayName:    "Limit",
			Name:           "limit",
			Type:           schema.TypeNumber,
			TypeOptions:    &schema.PropertyTypeOptions{MinValue: floatPtr(1)},
			Default:        DefaultLimit,
			Description:    "Max number of results to return",
			DisplayOptions: withShow(schema.ShowFor(ResourceContact, OperationGetAll), "returnAll", false),
		},
		schema.Property{
			DisplayName: "Additional Fields",
			Name:        "additionalFields",
			Type:        schema.TypeCollection,
			Placeholder: "Add Field",
			Default:     map[string]any{},
			DisplayOptions: schema.Show(map[string][]any{
				"resource":  {ResourceContact},
				"operation": {OperationCreate, OperationUpsert, OperationUpdate},
			}),
			Fields: contactFields(),
		},
	)
	return properties
}

func eventProperties() schema.Properties {
	return schema.Properties{
		{
			DisplayName:    "Conversion Identifier",
			Name:           "conversion_identifier",
			Type:           schema.TypeString,
			Required:       true,
			Default:        "",
			Description:    "The name of the conversion event",
			DisplayOptions: schema.ShowFor(ResourceEvent, OperationConversion),
		},
		{
			DisplayName:    "Conversion Identifier",
			Name:           "conversion_identifier",
			Type:           schema.TypeString,
			Required:       true,
			Default:        "lead",
			Description:    "The name of the conversion that creates the lead",
			DisplayOptions: schema.ShowFor(ResourceLead, OperationCreate),
		},
		{
			DisplayName: "Funnel Name",
			Name:        "funnel_name",
			Type:        schema.TypeString,
			Default:     DefaultFunnel,
			Description: "Funnel the sale or opportunity belongs to",
			DisplayOptions: schema.Show(map[string][]any{
				"resource":  {ResourceEvent, ResourceLead},
				"operation": {OperationSale, OperationMarkOpportunity, OperationMarkLost},
			}),
		},
		{
			DisplayName:    "Value",
			Name:           "value",
			Type:           schema.TypeNumber,
			Default:        0,
			Description:    "Value of the sale",
			DisplayOptions: schema.ShowFor(ResourceEvent, OperationSale),
		},
		{
			DisplayName:    "Reason",
			Name:           "reason",
			Type:           schema.TypeString,
			Default:        "",
			Description:    "Why the opportunity was lost",
			DisplayOptions: schema.ShowFor(ResourceLead, OperationMarkLost),
		},
		{
			DisplayName: "Additional Fields",
			Name:        "additionalFields",
			Type:        schema.TypeCollection,
			Placeholder: "Add Field",
			Default:     map[string]any{},
			DisplayOptions: schema.Show(map[string][]any{
				"resource":  {ResourceEvent, ResourceLead},
				"operation": {OperationConversion, OperationCreate},
			}),
			Fields: append(contactFields(), conversionFields()...),
		},
	}
}

func funnelProperties() schema.Properties {
	properties := identifierProperties(ResourceFunnel, OperationGet, OperationUpdate)
	return append(properties, schema.Property{
		DisplayName:    "Update Fields",
		Name:           "updateFields",
		Type:           schema.TypeCollection,
		Placeholder:    "Add Field",
		Default:        map[string]any{},
		DisplayOptions: schema.ShowFor(ResourceFunnel, OperationUpdate),
		Fields: []schema.Property{
			{
				DisplayName: "Lifecycle Stage",
				Name:        "lifecycle_stage",
				Type:        schema.TypeOptions,
				Options: []schema.Option{
					{Name: "Lead", Value: "Lead"},
					{Name: "Qualified Lead", Value: "Qualified Lead"},
					{Name: "Client", Value: "Client"},
				},
				Default: "Lead",
			},
			{DisplayName: "Opportunity", Name: "opportunity", Type: schema.TypeBoolean, Default: false},
			{DisplayName: "Contact Owner Email", Name: "contact_owner_email", Type: schema.TypeString, Default: ""},
		},
	})
}

func contactFields() []schema.Property {
	return []schema.Property{
		{DisplayName: "Bio", Name: "bio", Type: schema.TypeString, Default: "", Description: "Notes about this contact"},
		{DisplayName: "Birthday Date", Name: "birthdate", Type: schema.TypeDateTime, Default: "", Placeholder: "1990-11-23"},
		{DisplayName: "City", Name: "city", Type: schema.TypeString, Default: ""},
		{DisplayName: "Country", Name: "country", Type: schema.TypeString, Default: ""},
		{
			DisplayName: "Custom Fields",
			Name:        "customFields",
			Type:        schema.TypeFixedCollection,
			Placeholder: "Add Custom Field",
			Description: "Adds a custom field to set also values which have not been predefined",
			TypeOptions: &schema.PropertyTypeOptions{MultipleValues: true},
			Default:     map[string]any{},
			Groups: []schema.Group{{
				Name:        "field",
				DisplayName: "Field",
				Values: []schema.Property{
					{
						DisplayName: "Field Name or ID",
						Name:        "name",
						Type:        schema.TypeOptions,
						TypeOptions: &schema.PropertyTypeOptions{LoadOptionsMethod: api.LoadContactCustomFields},
						Default:     "",
					},
					{DisplayName: "Property Value", Name: "value", Type: schema.TypeString, Default: "", Description: "Value of the property to set"},
				},
			}},
		},
		{DisplayName: "Facebook", Name: "facebook", Type: schema.TypeString, Default: ""},
		{DisplayName: "Job Title", Name: "job_title", Type: schema.TypeString, Default: ""},
		{DisplayName: "Linkedin", Name: "linkedin", Type: schema.TypeString, Default: ""},
		{DisplayName: "Mobile Phone", Name: "mobile_phone", Type: schema.TypeString, Default: ""},
		{DisplayName: "Name", Name: "name", Type: schema.TypeString, Default: ""},
		{DisplayName: "Phone", Name: "personal_phone", Type: schema.TypeString, Default: ""},
		{DisplayName: "State", Name: "state", Type: schema.TypeString, Default: ""},
		{DisplayName: "Tags", Name: "tags", Type: schema.TypeString, Default: "", Description: "Comma separated list of tags"},
		{DisplayName: "Twitter", Name: "twitter", Type: schema.TypeString, Default: ""},
		{DisplayName: "Website", Name: "website", Type: schema.TypeString, Default: ""},
	}
}

func conversionFields() []schema.Property {
	return []schema.Property{
		{DisplayName: "Company Name", Name: "company_name", Type: schema.TypeString, Default: ""},
		{DisplayName: "Traffic Campaign", Name: "traffic_campaign", Type: schema.TypeString, Default: ""},
		{DisplayName: "Traffic Medium", Name: "traffic_medium", Type: schema.TypeString, Default: ""},
		{DisplayName: "Traffic Source", Name: "traffic_source", Type: schema.TypeString, Default: ""},
		{DisplayName: "Traffic Value", Name: "traffic_value", Type: schema.TypeString, Default: ""},
	}
}

func withShow(options *schema.DisplayOptions, key string, value any) *schema.DisplayOptions {
	options.Show[key] = []any{value}
	return options
}

func floatPtr(value float64) *float64 {
	return &value
}
