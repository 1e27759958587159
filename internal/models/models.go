package models

// All lists every migrated model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Park{},
		&Bike{},
		&BookingRequest{},
		&Rental{},
		&Referrer{},
		&AuditLog{},
	}
}
