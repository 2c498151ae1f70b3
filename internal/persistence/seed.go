package persistence

import (
	"time"

	"aeracore/pkg/domain"
)

// DefaultKey is the fixed key the document is persisted under.
const DefaultKey = "aera_backend_db_v1"

// Seed builds the first-run dataset. Timestamps are derived from now so two
// seeds taken with the same clock are identical.
func Seed(now time.Time) domain.Document {
	now = now.UTC()
	doc := domain.NewDocument()
	doc.Organizations = []domain.OrganizationProfile{
		{
			ID:                    "CH-9921",
			Name:                  "Grace Community Church",
			Type:                  domain.OrgTypeChurch,
			Address:               "4500 Main St",
			AdminContact:          "Pastor John",
			AdminPhone:            "555-0101",
			ReplenishmentProvider: "Diocese HQ",
			ReplenishmentEmail:    "supply@diocese.example.org",
			ReplenishmentPhone:    "555-9000",
			Verified:              true,
			Active:                true,
			CurrentBroadcast:      "Choir practice cancelled. Shelter open in Gym.",
		},
		{
			ID:                    "NGO-5500",
			Name:                  "Regional Aid Network",
			Type:                  domain.OrgTypeNGO,
			Address:               "100 Relief Blvd",
			AdminContact:          "Sarah Connor",
			AdminPhone:            "555-0102",
			ReplenishmentProvider: "FEMA Region 4",
			ReplenishmentEmail:    "logistics@fema.example.gov",
			ReplenishmentPhone:    "555-9001",
			Verified:              true,
			Active:                true,
		},
	}
	allOn := domain.NotificationSettings{Push: true, SMS: true, Email: true}
	doc.Users = []domain.UserProfile{
		{
			ID: "u0", FullName: "System Admin", Phone: "555-0000", Address: "HQ",
			EmergencyContactName: "Ops Center", EmergencyContactPhone: "555-9999", EmergencyContactRelation: "Supervisor",
			Role: domain.RoleAdmin, Language: domain.LanguageEnglish, Active: true, Notifications: allOn,
		},
		{
			ID: "u1", FullName: "Alice Johnson", Phone: "555-1001", Address: "101 Pine St",
			Household: []domain.HouseholdMember{
				{ID: "h1", Name: "Bob Johnson", Age: "35"},
				{ID: "h2", Name: "Timmy Johnson", Age: "8", Needs: "Asthma"},
			},
			PetDetails:           "1 Cat",
			EmergencyContactName: "Bob Johnson", EmergencyContactPhone: "555-2001", EmergencyContactRelation: "Spouse",
			CommunityID: "CH-9921", Role: domain.RoleGeneralUser, Language: domain.LanguageEnglish, Active: true, Notifications: allOn,
		},
		{
			ID: "u2", FullName: "David Brown", Phone: "555-1002", Address: "202 Oak Ave",
			MedicalNeeds:         "Insulin Dependent",
			EmergencyContactName: "Martha Brown", EmergencyContactPhone: "555-2002", EmergencyContactRelation: "Mother",
			CommunityID: "CH-9921", Role: domain.RoleGeneralUser, Language: domain.LanguageEnglish, Active: true, Notifications: allOn,
		},
		{
			ID: "u3", FullName: "Pastor John", Phone: "555-0101", Address: "4500 Main St",
			Household: []domain.HouseholdMember{
				{ID: "h3", Name: "Mary Smith", Age: "45"},
				{ID: "h4", Name: "Luke Smith", Age: "12"},
				{ID: "h5", Name: "Mark Smith", Age: "10"},
			},
			EmergencyContactName: "Church Office", EmergencyContactPhone: "555-0100", EmergencyContactRelation: "Work",
			CommunityID: "CH-9921", Role: domain.RoleInstitutionAdmin, Language: domain.LanguageEnglish, Active: true, Notifications: allOn,
		},
		{
			ID: "u4", FullName: "Sarah Connor", Phone: "555-9111", Address: "Fire Station 1",
			EmergencyContactName: "Dispatcher", EmergencyContactPhone: "555-9000", EmergencyContactRelation: "Work",
			Role: domain.RoleFirstResponder, Language: domain.LanguageEnglish, Active: true, Notifications: allOn,
		},
	}
	doc.Inventories = map[string]domain.OrgInventory{
		"CH-9921":  {Water: 120, Food: 45, Blankets: 300, MedicalKits: 15},
		"NGO-5500": {Water: 5000, Food: 2000, Blankets: 1000, MedicalKits: 500},
	}
	doc.ReplenishmentRequests = []domain.ReplenishmentRequest{
		{
			ID: "req-1", OrgID: "CH-9921", OrgName: "Grace Community Church",
			Item: domain.ItemWaterCases, Quantity: 50, Provider: "Diocese HQ",
			Status: domain.ReplenishmentPending, Timestamp: now.Add(-time.Hour), Synced: true,
		},
		{
			ID: "req-2", OrgID: "NGO-5500", OrgName: "Regional Aid Network",
			Item: domain.ItemMedicalKits, Quantity: 200, Provider: "FEMA Region 4",
			Status: domain.ReplenishmentFulfilled, Timestamp: now.Add(-24 * time.Hour), Synced: true,
		},
	}
	doc.Normalize()
	return doc
}
