package domain

import "time"

// LotType is the kind of unit.
type LotType string

const (
	LotApartment LotType = "apartment"
	LotStudio    LotType = "studio"
	LotShop      LotType = "shop"
	LotOffice    LotType = "office"
	LotLand      LotType = "land"
	LotHouse     LotType = "house"
	LotWarehouse LotType = "warehouse"
)

// Lot is a single leasable or sellable unit within a building.
// Version increases on every status change and guards compare-and-swap.
type Lot struct {
	ID                       string    `json:"id"`
	BuildingID               string    `json:"buildingId"`
	Type                     LotType   `json:"type"`
	FloorArea                float64   `json:"floorArea"`
	Rooms                    int       `json:"rooms"`
	BaseRent                 Money     `json:"baseRent"`
	BaseCharges              Money     `json:"baseCharges"`
	BaseSalePrice            Money     `json:"baseSalePrice"`
	DefaultInstallmentMonths int       `json:"defaultInstallmentMonths"`
	Status                   LotStatus `json:"status"`
	Version                  int64     `json:"version"`
	CreatedAt                time.Time `json:"createdAt"`
	UpdatedAt                time.Time `json:"updatedAt"`
}

// ClientType is the declared role of a party.
type ClientType string

const (
	ClientTenant   ClientType = "tenant"
	ClientBuyer    ClientType = "buyer"
	ClientProspect ClientType = "prospect"
)

// Client is a party read from the client directory.
type Client struct {
	ID   string     `json:"id"`
	Name string     `json:"name"`
	Type ClientType `json:"type"`
}

// Actor is the calling identity.
type Actor string

// Capability is a permission the engine checks before mutating anything.
type Capability string

const (
	CanEditProperties Capability = "can_edit_properties"
	CanManageTenants  Capability = "can_manage_tenants"
	CanViewFinances   Capability = "can_view_finances"
)

// CapabilitySet is a static grant list, handy when the caller already
// resolved the actor's permissions.
type CapabilitySet map[Capability]bool

// HasCapability ignores the actor and answers from the set.
func (s CapabilitySet) HasCapability(_ Actor, c Capability) bool {
	return s[c]
}
