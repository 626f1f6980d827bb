package domain

import "testing"

func TestIsLegalTransitionDeliveryTrack(t *testing.T) {
	cases := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"unpaid to paid", StatusUnpaid, StatusPaid, true},
		{"paid to shipped", StatusPaid, StatusShipped, true},
		{"shipped to delivered", StatusShipped, StatusDelivered, true},
		{"skip to shipped", StatusUnpaid, StatusShipped, false},
		{"skip to delivered", StatusPaid, StatusDelivered, false},
		{"backward", StatusShipped, StatusPaid, false},
		{"same state", StatusPaid, StatusPaid, false},
		{"cancel from unpaid", StatusUnpaid, StatusCancelled, true},
		{"cancel from paid", StatusPaid, StatusCancelled, true},
		{"cancel from shipped", StatusShipped, StatusCancelled, false},
		{"cancel from delivered", StatusDelivered, StatusCancelled, false},
		{"leave cancelled", StatusCancelled, StatusPaid, false},
		{"cancel twice", StatusCancelled, StatusCancelled, false},
		{"manual status on delivery track", StatusPaid, StatusProcessing, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsLegalTransition(MethodDelivery, tc.from, tc.to); got != tc.want {
				t.Fatalf("IsLegalTransition(DELIVERY, %s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestIsLegalTransitionManualTrack(t *testing.T) {
	cases := []struct {
		name string
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{"unpaid to paid", StatusUnpaid, StatusPaid, true},
		{"paid to processing", StatusPaid, StatusProcessing, true},
		{"processing to complete", StatusProcessing, StatusComplete, true},
		{"skip to complete", StatusPaid, StatusComplete, false},
		{"backward", StatusProcessing, StatusPaid, false},
		{"cancel from processing", StatusProcessing, StatusCancelled, false},
		{"cancel from complete", StatusComplete, StatusCancelled, false},
		{"cancel from paid", StatusPaid, StatusCancelled, true},
		{"delivery status on manual track", StatusPaid, StatusShipped, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsLegalTransition(MethodManual, tc.from, tc.to); got != tc.want {
				t.Fatalf("IsLegalTransition(MANUAL, %s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestStatusOrdinal(t *testing.T) {
	if got := StatusOrdinal(MethodDelivery, StatusShipped); got != 2 {
		t.Fatalf("ordinal = %d, want 2", got)
	}
	if got := StatusOrdinal(MethodManual, StatusShipped); got != -1 {
		t.Fatalf("ordinal = %d, want -1", got)
	}
	if got := StatusOrdinal(MethodDelivery, StatusCancelled); got != -1 {
		t.Fatalf("ordinal = %d, want -1", got)
	}
}

func TestValidStatus(t *testing.T) {
	for _, status := range []OrderStatus{
		StatusUnpaid, StatusPaid, StatusShipped, StatusDelivered,
		StatusProcessing, StatusComplete, StatusCancelled,
	} {
		if !ValidStatus(status) {
			t.Fatalf("ValidStatus(%s) = false, want true", status)
		}
	}
	if ValidStatus(OrderStatus("REFUNDED")) {
		t.Fatal("ValidStatus should reject unknown statuses")
	}
	if ValidStatus(OrderStatus("")) {
		t.Fatal("ValidStatus should reject the empty status")
	}
}

func TestPastPaid(t *testing.T) {
	if PastPaid(MethodDelivery, StatusPaid) {
		t.Fatal("PAID should not count as past PAID")
	}
	if !PastPaid(MethodDelivery, StatusShipped) {
		t.Fatal("SHIPPED should count as past PAID")
	}
	if !PastPaid(MethodManual, StatusProcessing) {
		t.Fatal("PROCESSING should count as past PAID")
	}
	if PastPaid(MethodManual, StatusUnpaid) {
		t.Fatal("UNPAID should not count as past PAID")
	}
}

func TestIsTerminal(t *testing.T) {
	if !IsTerminal(MethodDelivery, StatusDelivered) {
		t.Fatal("DELIVERED should be terminal for delivery orders")
	}
	if !IsTerminal(MethodManual, StatusComplete) {
		t.Fatal("COMPLETE should be terminal for manual orders")
	}
	if !IsTerminal(MethodDelivery, StatusCancelled) {
		t.Fatal("CANCELLED should always be terminal")
	}
	if IsTerminal(MethodDelivery, StatusShipped) {
		t.Fatal("SHIPPED should not be terminal")
	}
}
