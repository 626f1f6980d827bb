package domain

// ShippingMethod selects which fulfillment track an order follows.
type ShippingMethod string

const (
	// MethodDelivery routes the order through a courier after payment.
	MethodDelivery ShippingMethod = "DELIVERY"
	// MethodManual is fulfilled by the store itself (pickup or arranged delivery).
	MethodManual ShippingMethod = "MANUAL"
)

// ValidMethod reports whether m is a known shipping method.
func ValidMethod(m ShippingMethod) bool {
	return m == MethodDelivery || m == MethodManual
}

// OrderStatus enumerates lifecycle states for orders.
type OrderStatus string

const (
	// StatusUnpaid indicates the order awaits payment completion.
	StatusUnpaid OrderStatus = "UNPAID"
	// StatusPaid indicates payment settled and fulfillment can begin.
	StatusPaid OrderStatus = "PAID"
	// StatusShipped indicates a delivery order has been handed to the courier.
	StatusShipped OrderStatus = "SHIPPED"
	// StatusDelivered indicates a delivery order reached the customer.
	StatusDelivered OrderStatus = "DELIVERED"
	// StatusProcessing indicates a manual order is being prepared.
	StatusProcessing OrderStatus = "PROCESSING"
	// StatusComplete indicates a manual order has been handed over.
	StatusComplete OrderStatus = "COMPLETE"
	// StatusCancelled indicates the order was terminated before fulfillment.
	StatusCancelled OrderStatus = "CANCELLED"
)

// methodTracks lists the forward progression per shipping method, in order.
var methodTracks = map[ShippingMethod][]OrderStatus{
	MethodDelivery: {StatusUnpaid, StatusPaid, StatusShipped, StatusDelivered},
	MethodManual:   {StatusUnpaid, StatusPaid, StatusProcessing, StatusComplete},
}

// cancellableFrom lists the only states that may move to CANCELLED.
var cancellableFrom = map[OrderStatus]bool{
	StatusUnpaid: true,
	StatusPaid:   true,
}

// StatusOrdinal returns the position of status on the method's forward track,
// or -1 when the status does not belong to the track (including CANCELLED).
func StatusOrdinal(method ShippingMethod, status OrderStatus) int {
	for i, s := range methodTracks[method] {
		if s == status {
			return i
		}
	}
	return -1
}

// ValidStatus reports whether status names a known order state: CANCELLED
// or any position on either method's track. Callers that know the method
// use StatusOrdinal for the stricter per-track check.
func ValidStatus(status OrderStatus) bool {
	if status == StatusCancelled {
		return true
	}
	for method := range methodTracks {
		if StatusOrdinal(method, status) >= 0 {
			return true
		}
	}
	return false
}

// IsLegalTransition reports whether an order using the given method may move
// from one status to another. Forward moves advance exactly one step on the
// method's track. CANCELLED is reachable only from UNPAID or PAID and is
// absorbing. Everything else, including same-state and backward moves, is
// rejected.
func IsLegalTransition(method ShippingMethod, from, to OrderStatus) bool {
	if from == StatusCancelled {
		return false
	}
	if to == StatusCancelled {
		return cancellableFrom[from]
	}
	fi := StatusOrdinal(method, from)
	ti := StatusOrdinal(method, to)
	if fi < 0 || ti < 0 {
		return false
	}
	return ti == fi+1
}

// IsTerminal reports whether no further transitions can leave the status.
func IsTerminal(method ShippingMethod, status OrderStatus) bool {
	if status == StatusCancelled {
		return true
	}
	track := methodTracks[method]
	return len(track) > 0 && track[len(track)-1] == status
}

// PastPaid reports whether the status sits beyond PAID on the method's track.
func PastPaid(method ShippingMethod, status OrderStatus) bool {
	ord := StatusOrdinal(method, status)
	paid := StatusOrdinal(method, StatusPaid)
	return ord > paid && paid >= 0
}

// AtOrPastPaid reports whether payment has already settled for the status.
func AtOrPastPaid(method ShippingMethod, status OrderStatus) bool {
	ord := StatusOrdinal(method, status)
	paid := StatusOrdinal(method, StatusPaid)
	return ord >= paid && paid >= 0
}
