package domain

// LotStatus is the occupancy state of a lot.
type LotStatus string

const (
	StatusLibre       LotStatus = "libre"
	StatusReserve     LotStatus = "reserve"
	StatusLoue        LotStatus = "loue"
	StatusVendu       LotStatus = "vendu"
	StatusHorsService LotStatus = "hors_service"
)

// Valid reports whether s is one of the five defined statuses.
func (s LotStatus) Valid() bool {
	switch s {
	case StatusLibre, StatusReserve, StatusLoue, StatusVendu, StatusHorsService:
		return true
	}
	return false
}

// Terminal reports whether no transition can leave s.
func (s LotStatus) Terminal() bool {
	return s == StatusVendu
}

// Trigger names the event that drives a status change.
type Trigger string

const (
	TriggerReservation       Trigger = "reservation"
	TriggerLease             Trigger = "lease"
	TriggerCashSale          Trigger = "cash_sale"
	TriggerInstallmentSale   Trigger = "installment_sale"
	TriggerSaleCompleted     Trigger = "sale_completed"
	TriggerReservationExpiry Trigger = "reservation_expired"
)

// Transition is one legal edge of the lot status machine.
type Transition struct {
	From LotStatus
	To   LotStatus
	Via  Trigger
}

// Transitions lists every legal edge. Anything absent is rejected.
// hors_service has no edges here: it is left only by maintenance tooling.
var Transitions = []Transition{
	{From: StatusLibre, To: StatusReserve, Via: TriggerReservation},
	{From: StatusLibre, To: StatusLoue, Via: TriggerLease},
	{From: StatusLibre, To: StatusVendu, Via: TriggerCashSale},
	{From: StatusLibre, To: StatusReserve, Via: TriggerInstallmentSale},
	{From: StatusLibre, To: StatusVendu, Via: TriggerSaleCompleted},

	{From: StatusReserve, To: StatusLoue, Via: TriggerLease},
	{From: StatusReserve, To: StatusVendu, Via: TriggerCashSale},
	{From: StatusReserve, To: StatusReserve, Via: TriggerInstallmentSale},
	{From: StatusReserve, To: StatusVendu, Via: TriggerSaleCompleted},
	{From: StatusReserve, To: StatusLibre, Via: TriggerReservationExpiry},
}

// Next returns the status reached from `from` on trigger t, or a
// *TransitionError wrapping ErrInvalidTransition.
func Next(from LotStatus, t Trigger) (LotStatus, error) {
	for _, tr := range Transitions {
		if tr.From == from && tr.Via == t {
			return tr.To, nil
		}
	}
	return "", &TransitionError{From: from, Trigger: t}
}

// Assignable reports whether a lot in status s may receive a new contract at all.
// A reserve lot additionally requires the reservation holder to match.
func Assignable(s LotStatus) bool {
	return s == StatusLibre || s == StatusReserve
}
