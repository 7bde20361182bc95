package store

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/beesaferoot/lotassign/domain"
)

type LotRecord struct {
	ID                       string `gorm:"primaryKey;size:36"`
	BuildingID               string `gorm:"size:64;index"`
	Type                     string `gorm:"size:32;not null"`
	FloorArea                float64
	Rooms                    int
	BaseRent                 int64
	BaseCharges              int64
	BaseSalePrice            int64
	DefaultInstallmentMonths int
	Status                   string `gorm:"size:16;not null;index"`
	Version                  int64  `gorm:"not null;default:1"`
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

func (LotRecord) TableName() string { return "lots" }

type ClientRecord struct {
	ID        string `gorm:"primaryKey;size:36"`
	Name      string `gorm:"size:255;not null"`
	Type      string `gorm:"size:16;not null"`
	CreatedAt time.Time
}

func (ClientRecord) TableName() string { return "clients" }

// ContractRecord stores the typed terms as JSON; the schedule lives in
// obligations.
type ContractRecord struct {
	ID                 string `gorm:"primaryKey;size:36"`
	LotID              string `gorm:"size:36;not null;index"`
	ClientID           string `gorm:"size:36;not null;index"`
	Type               string `gorm:"size:16;not null"`
	Status             string `gorm:"size:16;not null;index"`
	StartDate          time.Time
	EndDate            *time.Time
	ExpiresAt          *time.Time `gorm:"index"`
	CurrencyCode       string     `gorm:"size:3;not null"`
	CurrencyMinorUnits int32
	Terms              string `gorm:"type:text;not null"`
	Advisories         string `gorm:"type:text"`
	CreatedBy          string `gorm:"size:255"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	Obligations        []ObligationRecord `gorm:"foreignKey:ContractID;constraint:OnDelete:CASCADE"`
}

func (ContractRecord) TableName() string { return "contracts" }

type ObligationRecord struct {
	ID              uint   `gorm:"primaryKey"`
	ContractID      string `gorm:"size:36;not null;index"`
	Seq             int    `gorm:"not null"`
	Kind            string `gorm:"size:16;not null"`
	DueDate         time.Time
	Amount          int64
	Charges         int64
	PenaltyEligible bool
	GracePeriodDays int
	LatePenaltyRate decimal.Decimal `gorm:"type:numeric(9,6)"`
}

func (ObligationRecord) TableName() string { return "obligations" }

func lotFromDomain(l *domain.Lot) LotRecord {
	return LotRecord{
		ID:                       l.ID,
		BuildingID:               l.BuildingID,
		Type:                     string(l.Type),
		FloorArea:                l.FloorArea,
		Rooms:                    l.Rooms,
		BaseRent:                 int64(l.BaseRent),
		BaseCharges:              int64(l.BaseCharges),
		BaseSalePrice:            int64(l.BaseSalePrice),
		DefaultInstallmentMonths: l.DefaultInstallmentMonths,
		Status:                   string(l.Status),
		Version:                  l.Version,
		CreatedAt:                l.CreatedAt,
		UpdatedAt:                l.UpdatedAt,
	}
}

func (r LotRecord) toDomain() *domain.Lot {
	return &domain.Lot{
		ID:                       r.ID,
		BuildingID:               r.BuildingID,
		Type:                     domain.LotType(r.Type),
		FloorArea:                r.FloorArea,
		Rooms:                    r.Rooms,
		BaseRent:                 domain.Money(r.BaseRent),
		BaseCharges:              domain.Money(r.BaseCharges),
		BaseSalePrice:            domain.Money(r.BaseSalePrice),
		DefaultInstallmentMonths: r.DefaultInstallmentMonths,
		Status:                   domain.LotStatus(r.Status),
		Version:                  r.Version,
		CreatedAt:                r.CreatedAt.UTC(),
		UpdatedAt:                r.UpdatedAt.UTC(),
	}
}

func (r ClientRecord) toDomain() *domain.Client {
	return &domain.Client{ID: r.ID, Name: r.Name, Type: domain.ClientType(r.Type)}
}

func contractFromDomain(c *domain.Contract) (ContractRecord, error) {
	terms, err := encodeTerms(c.Terms)
	if err != nil {
		return ContractRecord{}, err
	}
	advisories, err := json.Marshal(c.Advisories)
	if err != nil {
		return ContractRecord{}, fmt.Errorf("failed to encode advisories: %w", err)
	}

	return ContractRecord{
		ID:                 c.ID,
		LotID:              c.LotID,
		ClientID:           c.ClientID,
		Type:               string(c.Type),
		Status:             string(c.Status),
		StartDate:          c.StartDate,
		EndDate:            c.EndDate,
		ExpiresAt:          expiresAt(c.Terms),
		CurrencyCode:       c.Currency.Code,
		CurrencyMinorUnits: c.Currency.MinorUnits,
		Terms:              terms,
		Advisories:         string(advisories),
		CreatedBy:          string(c.CreatedBy),
		CreatedAt:          c.CreatedAt,
		UpdatedAt:          c.UpdatedAt,
		Obligations:        obligationsFromDomain(c.ID, c.Schedule),
	}, nil
}

// expiresAt is the value of the indexed expires_at column: the hold deadline
// for reservations, NULL for everything else.
func expiresAt(t domain.Terms) *time.Time {
	r, ok := t.(domain.ReservationTerms)
	if !ok {
		return nil
	}
	exp := r.ExpirationDate
	return &exp
}

func (r ContractRecord) toDomain() (*domain.Contract, error) {
	ct := domain.ContractType(r.Type)
	terms, err := decodeTerms(ct, r.Terms)
	if err != nil {
		return nil, fmt.Errorf("contract %s: %w", r.ID, err)
	}
	var advisories []string
	if r.Advisories != "" {
		if err := json.Unmarshal([]byte(r.Advisories), &advisories); err != nil {
			return nil, fmt.Errorf("contract %s: failed to decode advisories: %w", r.ID, err)
		}
	}

	sched := make(domain.Schedule, 0, len(r.Obligations))
	for _, o := range r.Obligations {
		sched = append(sched, domain.Obligation{
			Seq:             o.Seq,
			Kind:            domain.ObligationKind(o.Kind),
			DueDate:         o.DueDate.UTC(),
			Amount:          domain.Money(o.Amount),
			Charges:         domain.Money(o.Charges),
			PenaltyEligible: o.PenaltyEligible,
			GracePeriodDays: o.GracePeriodDays,
			LatePenaltyRate: o.LatePenaltyRate,
		})
	}

	c := &domain.Contract{
		ID:         r.ID,
		LotID:      r.LotID,
		ClientID:   r.ClientID,
		Type:       ct,
		Status:     domain.ContractStatus(r.Status),
		StartDate:  r.StartDate.UTC(),
		Currency:   domain.Currency{Code: r.CurrencyCode, MinorUnits: r.CurrencyMinorUnits},
		Terms:      terms,
		Schedule:   sched,
		CreatedBy:  domain.Actor(r.CreatedBy),
		Advisories: advisories,
		CreatedAt:  r.CreatedAt.UTC(),
		UpdatedAt:  r.UpdatedAt.UTC(),
	}
	if r.EndDate != nil {
		end := r.EndDate.UTC()
		c.EndDate = &end
	}
	return c, nil
}

func obligationsFromDomain(contractID string, s domain.Schedule) []ObligationRecord {
	out := make([]ObligationRecord, 0, len(s))
	for _, o := range s {
		out = append(out, ObligationRecord{
			ContractID:      contractID,
			Seq:             o.Seq,
			Kind:            string(o.Kind),
			DueDate:         o.DueDate,
			Amount:          int64(o.Amount),
			Charges:         int64(o.Charges),
			PenaltyEligible: o.PenaltyEligible,
			GracePeriodDays: o.GracePeriodDays,
			LatePenaltyRate: o.LatePenaltyRate,
		})
	}
	return out
}

func encodeTerms(t domain.Terms) (string, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("failed to encode terms: %w", err)
	}
	return string(data), nil
}

func decodeTerms(ct domain.ContractType, data string) (domain.Terms, error) {
	var err error
	switch ct {
	case domain.ContractLease:
		var t domain.LeaseTerms
		err = json.Unmarshal([]byte(data), &t)
		return t, wrapDecode(err)
	case domain.ContractSale:
		var t domain.SaleTerms
		err = json.Unmarshal([]byte(data), &t)
		return t, wrapDecode(err)
	case domain.ContractReservation:
		var t domain.ReservationTerms
		err = json.Unmarshal([]byte(data), &t)
		return t, wrapDecode(err)
	}
	return nil, fmt.Errorf("unknown contract type %q", ct)
}

func wrapDecode(err error) error {
	if err != nil {
		return fmt.Errorf("failed to decode terms: %w", err)
	}
	return nil
}
