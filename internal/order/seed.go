package order

import "time"

// Seed loads a small set of demo orders into the store so the chat flow can
// be exercised without the external order-placement system.
func Seed(s *InMemoryStore) {
	now := time.Now()
	for _, o := range []Order{
		{
			OrderID:     "ORD-2024-001",
			OwnerID:     "user-1001",
			Status:      StatusConfirmed,
			TotalAmount: 59.90,
			Items:       []Item{{Name: "Wireless Mouse", Quantity: 1, Price: 24.90}, {Name: "USB-C Hub", Quantity: 1, Price: 35.00}},
			CreatedAt:   now.Add(-48 * time.Hour),
		},
		{
			OrderID:     "ORD-2024-002",
			OwnerID:     "user-1001",
			Status:      StatusShipped,
			TotalAmount: 129.00,
			Items:       []Item{{Name: "Mechanical Keyboard", Quantity: 1, Price: 129.00}},
			CreatedAt:   now.Add(-120 * time.Hour),
		},
		{
			OrderID:     "ORD-2024-003",
			OwnerID:     "user-1002",
			Status:      StatusPending,
			TotalAmount: 18.50,
			Items:       []Item{{Name: "Phone Stand", Quantity: 2, Price: 9.25}},
			CreatedAt:   now.Add(-2 * time.Hour),
		},
		{
			OrderID:     "ORD-2024-004",
			OwnerID:     "user-1002",
			Status:      StatusRefundPending,
			TotalAmount: 220.00,
			Items:       []Item{{Name: "Monitor", Quantity: 1, Price: 220.00}},
			CreatedAt:   now.Add(-200 * time.Hour),
		},
	} {
		s.Put(o)
	}
}
