package core

// DenyReason explains why a line item may not be removed.
type DenyReason string

const (
	DenyNoUser            DenyReason = "no_user"
	DenyNoOrderCycle      DenyReason = "no_order_cycle"
	DenyNotOwner          DenyReason = "not_owner"
	DenyChangesNotAllowed DenyReason = "changes_not_allowed"
)

// Decision is the outcome of a policy check. Reason is empty when Allowed.
type Decision struct {
	Allowed bool
	Reason  DenyReason
}

// Err returns nil for an allowed decision and a *DeniedError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	return &DeniedError{Reason: d.Reason}
}

// AuthorizeLineItemDeletion decides whether user may remove a line item from order.
// Rules are checked in order and the first match wins. The check never mutates anything.
func AuthorizeLineItemDeletion(user *User, order *Order) Decision {
	switch {
	case user == nil:
		return Decision{Reason: DenyNoUser}
	case order.OrderCycleID == nil:
		return Decision{Reason: DenyNoOrderCycle}
	case !order.OwnedBy(user.ID):
		return Decision{Reason: DenyNotOwner}
	case order.Completed() && !allowsOrderChanges(order.Distributor):
		return Decision{Reason: DenyChangesNotAllowed}
	}
	return Decision{Allowed: true}
}

func allowsOrderChanges(distributor *Enterprise) bool {
	return distributor != nil && distributor.AllowOrderChanges
}
