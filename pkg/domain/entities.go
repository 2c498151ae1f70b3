// Package domain defines the persisted document, its entities and value types,
// and the rule evaluation primitives shared by aeracore components.
package domain

import "time"

// EntityType identifies the type of record stored in the document.
type EntityType string

// Supported entity type identifiers used in Change records and errors.
const (
	EntityUser          EntityType = "user"
	EntityOrganization  EntityType = "organization"
	EntityInventory     EntityType = "inventory"
	EntityHelpRequest   EntityType = "help_request"
	EntityReplenishment EntityType = "replenishment_request"
	EntityTicker        EntityType = "ticker"
	EntitySession       EntityType = "session"
)

// UserRole enumerates the roles a user profile can hold.
type UserRole string

// Known user roles.
const (
	RoleAdmin            UserRole = "ADMIN"
	RoleContractor       UserRole = "CONTRACTOR"
	RoleLocalAuthority   UserRole = "LOCAL_AUTHORITY"
	RoleFirstResponder   UserRole = "FIRST_RESPONDER"
	RoleGeneralUser      UserRole = "GENERAL_USER"
	RoleInstitutionAdmin UserRole = "INSTITUTION_ADMIN"
)

// LanguageCode is a user's preferred interface language.
type LanguageCode string

// Supported languages.
const (
	LanguageEnglish LanguageCode = "en"
	LanguageSpanish LanguageCode = "es"
	LanguageFrench  LanguageCode = "fr"
)

// HouseholdMember describes a dependant registered under a user profile.
type HouseholdMember struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Age   string `json:"age"`
	Needs string `json:"needs"`
}

// NotificationSettings holds per-channel opt-ins.
type NotificationSettings struct {
	Push  bool `json:"push"`
	SMS   bool `json:"sms"`
	Email bool `json:"email"`
}

// StatusRequest records an organization's pending "are you safe" ping.
type StatusRequest struct {
	RequesterName string    `json:"requesterName"`
	Timestamp     time.Time `json:"timestamp"`
}

// UserProfile is a registered person. HouseholdMembers is derived from
// Household on every save and is never authoritative.
type UserProfile struct {
	ID                       string               `json:"id"`
	FullName                 string               `json:"fullName"`
	Phone                    string               `json:"phone"`
	Email                    string               `json:"email,omitempty"`
	Address                  string               `json:"address"`
	HouseholdMembers         int                  `json:"householdMembers"`
	Household                []HouseholdMember    `json:"household"`
	PetDetails               string               `json:"petDetails"`
	MedicalNeeds             string               `json:"medicalNeeds"`
	EmergencyContactName     string               `json:"emergencyContactName"`
	EmergencyContactPhone    string               `json:"emergencyContactPhone"`
	EmergencyContactRelation string               `json:"emergencyContactRelation"`
	CommunityID              string               `json:"communityId"`
	Role                     UserRole             `json:"role"`
	Language                 LanguageCode         `json:"language"`
	Active                   bool                 `json:"active"`
	Notifications            NotificationSettings `json:"notifications"`
	PendingStatusRequest     *StatusRequest       `json:"pendingStatusRequest,omitempty"`
}

// OrganizationType enumerates supported organization kinds.
type OrganizationType string

// Known organization types.
const (
	OrgTypeChurch          OrganizationType = "CHURCH"
	OrgTypeNGO             OrganizationType = "NGO"
	OrgTypeCommunityCenter OrganizationType = "COMMUNITY_CENTER"
	OrgTypeLocalGov        OrganizationType = "LOCAL_GOV"
)

// OrganizationProfile is a community institution that members link to.
type OrganizationProfile struct {
	ID                    string           `json:"id"`
	Name                  string           `json:"name"`
	Type                  OrganizationType `json:"type"`
	Address               string           `json:"address"`
	AdminContact          string           `json:"adminContact"`
	AdminPhone            string           `json:"adminPhone"`
	ReplenishmentProvider string           `json:"replenishmentProvider"`
	ReplenishmentEmail    string           `json:"replenishmentEmail"`
	ReplenishmentPhone    string           `json:"replenishmentPhone"`
	RegisteredPopulation  int              `json:"registeredPopulation,omitempty"`
	Verified              bool             `json:"verified"`
	Active                bool             `json:"active"`
	CurrentBroadcast      string           `json:"currentBroadcast,omitempty"`
	LastBroadcastTime     *time.Time       `json:"lastBroadcastTime,omitempty"`
}

// OrgInventory holds the four stock counters of an organization.
type OrgInventory struct {
	Water       int `json:"water"`
	Food        int `json:"food"`
	Blankets    int `json:"blankets"`
	MedicalKits int `json:"medicalKits"`
}

// HelpRequestStatus tracks dispatch progress of a help request.
type HelpRequestStatus string

// Help request statuses.
const (
	HelpStatusPending    HelpRequestStatus = "PENDING"
	HelpStatusReceived   HelpRequestStatus = "RECEIVED"
	HelpStatusDispatched HelpRequestStatus = "DISPATCHED"
	HelpStatusResolved   HelpRequestStatus = "RESOLVED"
)

// Valid reports whether s is a known help request status.
func (s HelpRequestStatus) Valid() bool {
	switch s {
	case HelpStatusPending, HelpStatusReceived, HelpStatusDispatched, HelpStatusResolved:
		return true
	}
	return false
}

// Priority is the computed triage priority of a help request.
type Priority string

// Triage priorities, lowest to highest.
const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

// HelpRequestIntake is the household safety/situation questionnaire. Nil
// booleans mean the question was not answered.
type HelpRequestIntake struct {
	IsSafe               *bool    `json:"isSafe"`
	Location             string   `json:"location"`
	EmergencyType        string   `json:"emergencyType"`
	IsInjured            *bool    `json:"isInjured"`
	InjuryDetails        string   `json:"injuryDetails"`
	SituationDescription string   `json:"situationDescription"`
	CanEvacuate          *bool    `json:"canEvacuate"`
	HazardsPresent       *bool    `json:"hazardsPresent"`
	HazardDetails        string   `json:"hazardDetails"`
	PeopleCount          int      `json:"peopleCount"`
	PetsPresent          *bool    `json:"petsPresent"`
	HasWater             *bool    `json:"hasWater"`
	HasFood              *bool    `json:"hasFood"`
	HasMeds              *bool    `json:"hasMeds"`
	HasPower             *bool    `json:"hasPower"`
	HasPhone             *bool    `json:"hasPhone"`
	NeedsTransport       *bool    `json:"needsTransport"`
	VulnerableGroups     []string `json:"vulnerableGroups"`
	MedicalConditions    string   `json:"medicalConditions"`
	DamageType           string   `json:"damageType"`
	ConsentToShare       bool     `json:"consentToShare"`
}

// HelpRequestRecord is a submitted intake snapshot. Only Location, Status and
// Synced change after creation.
type HelpRequestRecord struct {
	HelpRequestIntake
	ID        string            `json:"id"`
	UserID    string            `json:"userId"`
	Timestamp time.Time         `json:"timestamp"`
	Status    HelpRequestStatus `json:"status"`
	Priority  Priority          `json:"priority"`
	Synced    bool              `json:"synced"`
	// CheckIn is set on records that report a member status on someone's
	// behalf; it overrides isSafe when deriving the member's status.
	CheckIn MemberStatus `json:"checkInStatus,omitempty"`
}

// HelpRequestUpdate names every field of a help request that may change.
type HelpRequestUpdate struct {
	Location *string            `json:"location,omitempty"`
	Status   *HelpRequestStatus `json:"status,omitempty"`
}

// ReplenishmentStatus tracks a resupply request through fulfillment.
type ReplenishmentStatus string

// Replenishment statuses. STOCKED is terminal for inventory purposes.
const (
	ReplenishmentPending   ReplenishmentStatus = "PENDING"
	ReplenishmentApproved  ReplenishmentStatus = "APPROVED"
	ReplenishmentFulfilled ReplenishmentStatus = "FULFILLED"
	ReplenishmentStocked   ReplenishmentStatus = "STOCKED"
)

// Valid reports whether s is a known replenishment status.
func (s ReplenishmentStatus) Valid() bool {
	switch s {
	case ReplenishmentPending, ReplenishmentApproved, ReplenishmentFulfilled, ReplenishmentStocked:
		return true
	}
	return false
}

// SignatureType selects which signature slot a signature fills.
type SignatureType string

// Signature slots.
const (
	SignatureRelease SignatureType = "RELEASE"
	SignatureReceive SignatureType = "RECEIVE"
)

// ReplenishmentRequest is an organization's resupply request.
type ReplenishmentRequest struct {
	ID                string              `json:"id"`
	OrgID             string              `json:"orgId"`
	OrgName           string              `json:"orgName"`
	Item              RequestItem         `json:"item"`
	Quantity          int                 `json:"quantity"`
	Provider          string              `json:"provider"`
	Status            ReplenishmentStatus `json:"status"`
	Timestamp         time.Time           `json:"timestamp"`
	Synced            bool                `json:"synced"`
	FulfilledAt       *time.Time          `json:"fulfilledAt,omitempty"`
	OrgConfirmed      bool                `json:"orgConfirmed,omitempty"`
	OrgConfirmedAt    *time.Time          `json:"orgConfirmedAt,omitempty"`
	Stocked           bool                `json:"stocked,omitempty"`
	StockedAt         *time.Time          `json:"stockedAt,omitempty"`
	StockedQuantity   int                 `json:"stockedQuantity,omitempty"`
	Signature         string              `json:"signature,omitempty"`
	SignedAt          *time.Time          `json:"signedAt,omitempty"`
	ReceivedSignature string              `json:"receivedSignature,omitempty"`
	ReceivedAt        *time.Time          `json:"receivedAt,omitempty"`
}

// MemberStatus is the derived safety status of an organization member.
type MemberStatus string

// Member statuses.
const (
	MemberSafe    MemberStatus = "SAFE"
	MemberDanger  MemberStatus = "DANGER"
	MemberUnknown MemberStatus = "UNKNOWN"
)

// OrgMember is the read-only join of a linked user and their latest help request.
type OrgMember struct {
	ID                       string       `json:"id"`
	Name                     string       `json:"name"`
	Status                   MemberStatus `json:"status"`
	LastUpdate               string       `json:"lastUpdate"`
	Location                 string       `json:"location"`
	Needs                    []string     `json:"needs"`
	Phone                    string       `json:"phone"`
	Address                  string       `json:"address"`
	EmergencyContactName     string       `json:"emergencyContactName"`
	EmergencyContactPhone    string       `json:"emergencyContactPhone"`
	EmergencyContactRelation string       `json:"emergencyContactRelation"`
}

// Bool returns a pointer to v, for populating tri-state intake answers.
func Bool(v bool) *bool { return &v }

// IsTrue reports whether b is answered true.
func IsTrue(b *bool) bool { return b != nil && *b }

// IsFalse reports whether b is answered false. Unanswered is not false.
func IsFalse(b *bool) bool { return b != nil && !*b }
