package assistant

import "time"

type IntentType string

const (
	IntentInventory IntentType = "inventory"
	IntentDocuments IntentType = "documents"
	IntentBooking   IntentType = "booking"
	IntentAbout     IntentType = "about"
	IntentGeneral   IntentType = "general"
)

type SubIntent string

const (
	// inventory
	SubSemanticSearch SubIntent = "semantic_search"
	SubCarDetails     SubIntent = "car_details"
	SubAvailability   SubIntent = "availability"
	SubRecommendation SubIntent = "recommendation"

	// documents
	SubTerms   SubIntent = "terms"
	SubFaq     SubIntent = "faq"
	SubPrivacy SubIntent = "privacy"
	SubHelp    SubIntent = "help"

	// booking
	SubBookingHistory SubIntent = "booking_history"
	SubPaymentHistory SubIntent = "payment_history"
	SubFreezeHistory  SubIntent = "freeze_history"

	// about
	SubCompany     SubIntent = "company"
	SubServices    SubIntent = "services"
	SubContact     SubIntent = "contact"
	SubGeneralInfo SubIntent = "general_info"

	// general
	SubGreeting    SubIntent = "greeting"
	SubChitchat    SubIntent = "chitchat"
	SubUnclear     SubIntent = "unclear"
	SubHelpRequest SubIntent = "help_request"
)

var subIntentsByType = map[IntentType]map[SubIntent]struct{}{
	IntentInventory: {
		SubSemanticSearch: {}, SubCarDetails: {}, SubAvailability: {}, SubRecommendation: {},
	},
	IntentDocuments: {
		SubTerms: {}, SubFaq: {}, SubPrivacy: {}, SubHelp: {},
	},
	IntentBooking: {
		SubBookingHistory: {}, SubPaymentHistory: {}, SubFreezeHistory: {},
	},
	IntentAbout: {
		SubCompany: {}, SubServices: {}, SubContact: {}, SubGeneralInfo: {},
	},
	IntentGeneral: {
		SubGreeting: {}, SubChitchat: {}, SubUnclear: {}, SubHelpRequest: {},
	},
}

func (t IntentType) Valid() bool {
	_, ok := subIntentsByType[t]
	return ok
}

// Allows reports whether the sub-intent belongs to this primary type. The
// empty sub-intent is always allowed.
func (t IntentType) Allows(s SubIntent) bool {
	if s == "" {
		return true
	}
	subs, ok := subIntentsByType[t]
	if !ok {
		return false
	}
	_, ok = subs[s]
	return ok
}

// Intent is the classifier's typed verdict for one turn.
type Intent struct {
	Type                IntentType             `json:"intent_type"`
	SubIntent           SubIntent              `json:"sub_intent,omitempty"`
	Confidence          float64                `json:"confidence"`
	Filters             *SearchFilter          `json:"filters,omitempty"`
	StartDate           *time.Time             `json:"extracted_start_date,omitempty"`
	EndDate             *time.Time             `json:"extracted_end_date,omitempty"`
	HasDates            bool                   `json:"has_dates"`
	FlowContinuation    bool                   `json:"flow_continuation"`
	ContinuationContext map[string]interface{} `json:"continuation_context,omitempty"`
}

// Normalize degrades an unrecognized primary type to low-confidence general
// and drops a sub-intent that does not belong to its primary type. The turn
// is never failed over a bad label.
func (i *Intent) Normalize() {
	if !i.Type.Valid() {
		i.Type = IntentGeneral
		i.SubIntent = SubUnclear
		if i.Confidence > 0.3 {
			i.Confidence = 0.3
		}
		return
	}
	if !i.Type.Allows(i.SubIntent) {
		i.SubIntent = ""
	}
}
