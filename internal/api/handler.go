package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/beesaferoot/lotassign/assign"
	"github.com/beesaferoot/lotassign/domain"
)

// Catalog is the lot and client bookkeeping behind the handlers.
type Catalog interface {
	CreateLot(ctx context.Context, lot *domain.Lot) error
	LoadLot(ctx context.Context, id string) (*domain.Lot, error)
	CreateClient(ctx context.Context, c *domain.Client) error
	GetContract(ctx context.Context, id string) (*domain.Contract, error)
}

type Handler struct {
	assigner *assign.Assigner
	catalog  Catalog
	perms    assign.Permissions
	currency domain.Currency
}

func NewHandler(assigner *assign.Assigner, catalog Catalog, perms assign.Permissions, currency domain.Currency) *Handler {
	return &Handler{
		assigner: assigner,
		catalog:  catalog,
		perms:    perms,
		currency: currency,
	}
}

type createLotRequest struct {
	BuildingID               string           `json:"buildingId" binding:"required"`
	Type                     domain.LotType   `json:"type" binding:"required"`
	FloorArea                float64          `json:"floorArea"`
	Rooms                    int              `json:"rooms"`
	BaseRent                 *decimal.Decimal `json:"baseRent"`
	BaseCharges              *decimal.Decimal `json:"baseCharges"`
	BaseSalePrice            *decimal.Decimal `json:"baseSalePrice"`
	DefaultInstallmentMonths int              `json:"defaultInstallmentMonths"`
}

type createClientRequest struct {
	Name string            `json:"name" binding:"required"`
	Type domain.ClientType `json:"type" binding:"required"`
}

type assignRequest struct {
	ClientID     string              `json:"clientId"`
	ContractType domain.ContractType `json:"contractType"`
	Terms        domain.RawTerms     `json:"terms"`
}

// contractView adds the decoded terms to a contract.
type contractView struct {
	*domain.Contract
	Terms domain.RawTerms `json:"terms"`
}

func (h *Handler) view(c *domain.Contract) contractView {
	v := contractView{Contract: c}
	if c.Terms != nil {
		v.Terms = c.Terms.Raw(c.Currency)
	}
	return v
}

// CreateLot registers a new lot as libre.
func (h *Handler) CreateLot(c *gin.Context) {
	if !h.allowed(c, domain.CanEditProperties) {
		return
	}
	var req createLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	lot := &domain.Lot{
		BuildingID:               req.BuildingID,
		Type:                     req.Type,
		FloorArea:                req.FloorArea,
		Rooms:                    req.Rooms,
		DefaultInstallmentMonths: req.DefaultInstallmentMonths,
	}
	ve := &domain.ValidationError{}
	h.money(ve, "baseRent", req.BaseRent, &lot.BaseRent)
	h.money(ve, "baseCharges", req.BaseCharges, &lot.BaseCharges)
	h.money(ve, "baseSalePrice", req.BaseSalePrice, &lot.BaseSalePrice)
	if len(ve.Errors) > 0 {
		Fail(c, ve)
		return
	}

	if err := h.catalog.CreateLot(c.Request.Context(), lot); err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusCreated, lot)
}

func (h *Handler) GetLot(c *gin.Context) {
	lot, err := h.catalog.LoadLot(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, lot)
}

func (h *Handler) CreateClient(c *gin.Context) {
	if !h.allowed(c, domain.CanManageTenants) {
		return
	}
	var req createClientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	switch req.Type {
	case domain.ClientTenant, domain.ClientBuyer, domain.ClientProspect:
	default:
		Fail(c, &domain.ValidationError{Errors: []domain.FieldError{{
			Field: "type", Code: domain.CodeFormat, Message: fmt.Sprintf("unknown client type %q", req.Type),
		}}})
		return
	}

	client := &domain.Client{Name: req.Name, Type: req.Type}
	if err := h.catalog.CreateClient(c.Request.Context(), client); err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusCreated, client)
}

// Assign binds a client to the lot in the path.
func (h *Handler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}

	contract, err := h.assigner.Assign(c.Request.Context(), assign.Request{
		LotID:        c.Param("id"),
		ClientID:     req.ClientID,
		ContractType: req.ContractType,
		Terms:        req.Terms,
		Actor:        actorOf(c),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusCreated, h.view(contract))
}

func (h *Handler) CompleteSale(c *gin.Context) {
	contract, err := h.assigner.CompleteSale(c.Request.Context(), c.Param("id"), actorOf(c))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, h.view(contract))
}

func (h *Handler) AmendTerms(c *gin.Context) {
	var terms domain.RawTerms
	if err := c.ShouldBindJSON(&terms); err != nil {
		BadRequest(c, err.Error())
		return
	}

	contract, err := h.assigner.Amend(c.Request.Context(), assign.AmendRequest{
		ContractID: c.Param("id"),
		Terms:      terms,
		Actor:      actorOf(c),
	})
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, h.view(contract))
}

// GetContract shows a contract with its schedule, which needs finance access.
func (h *Handler) GetContract(c *gin.Context) {
	if !h.allowed(c, domain.CanViewFinances) {
		return
	}
	contract, err := h.catalog.GetContract(c.Request.Context(), c.Param("id"))
	if err != nil {
		Fail(c, err)
		return
	}
	Success(c, http.StatusOK, h.view(contract))
}

func (h *Handler) allowed(c *gin.Context, capability domain.Capability) bool {
	actor := actorOf(c)
	if !h.perms.HasCapability(actor, capability) {
		Fail(c, fmt.Errorf("%w: %q lacks %s", domain.ErrPermissionDenied, actor, capability))
		return false
	}
	return true
}

func (h *Handler) money(ve *domain.ValidationError, field string, in *decimal.Decimal, out *domain.Money) {
	if in == nil {
		return
	}
	m, err := h.currency.ToMinor(*in)
	switch {
	case err != nil:
		ve.Errors = append(ve.Errors, domain.FieldError{Field: field, Code: domain.CodePrecision, Message: err.Error()})
	case m < 0:
		ve.Errors = append(ve.Errors, domain.FieldError{Field: field, Code: domain.CodeRange, Message: "must not be negative"})
	default:
		*out = m
	}
}
