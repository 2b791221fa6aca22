package domain

import "encoding/json"

// Defaults returns the canonical default settings document. Merge guarantees
// every key present here exists in any loaded document, even when the stored
// copy is partial or predates a field being added.
func Defaults() Settings {
	return Settings{
		Version: CurrentVersion,
		Business: Business{
			Name:         "My Tiffin Service",
			Email:        "billing@example.com",
			Phone:        "(555) 555-0100",
			WhatsappLink: "https://wa.me/15555550100",
		},
		Templates: Templates{
			FirstNotice: Template{
				Name: "First Notice",
				Message: "Hi {{customerName}}, your tiffin bill for {{month}} is {{balance}} " +
					"for {{numTiffins}} tiffins. Please send an e-transfer to {{etransferEmail}}. " +
					"Thank you! - {{businessName}}",
			},
			FollowUp: Template{
				Name: "Follow Up",
				Message: "Hi {{customerName}}, a friendly reminder that your {{month}} tiffin " +
					"balance of {{balance}} is still outstanding. Please send an e-transfer to " +
					"{{etransferEmail}} when you get a chance. - {{businessName}}",
			},
			FinalNotice: Template{
				Name: "Final Notice",
				Message: "Hi {{customerName}}, this is the final notice for your {{month}} tiffin " +
					"balance of {{balance}}. Please settle it today via e-transfer to " +
					"{{etransferEmail}} to avoid a pause in your deliveries. - {{businessName}}",
			},
			ThankYouMessage: "Hi {{customerName}}, we received your payment for order {{orderId}}. " +
				"Thank you for choosing {{businessName}}! Questions? Reach us at {{whatsappLink}}.",
		},
		Behavior: Behavior{
			DryRun:              false,
			BatchSize:           50,
			MessageDelayMs:      1000,
			HeaderRow:           1,
			AutoThankYouEnabled: true,
		},
		Colors: Colors{
			SuccessColor: "#B7E1CD",
			ErrorColor:   "#F4C7C3",
			DryRunColor:  "#FCE8B2",
		},
		Columns: map[string]string{
			ColumnPhoneNumber:   "Phone Number",
			ColumnCustomerName:  "Customer Name",
			ColumnBalance:       "Balance",
			ColumnNumTiffins:    "Number of Tiffins",
			ColumnDueDate:       "Due Date",
			ColumnMessageStatus: "Message Status",
			ColumnOrderID:       "Order ID",
			ColumnPaymentStatus: "Payment Status",
		},
	}
}

// ToMap converts a settings document to its generic map form for Merge and
// Migrate, which operate on stored documents of unknown shape.
func (s Settings) ToMap() (map[string]any, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromMap decodes a generic document into the typed settings value.
func FromMap(doc map[string]any) (Settings, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Settings{}, err
	}
	var out Settings
	if err := json.Unmarshal(raw, &out); err != nil {
		return Settings{}, err
	}
	return out, nil
}
