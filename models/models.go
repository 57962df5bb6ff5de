package models

// AllModels returns every model in migration order
func AllModels() []interface{} {
	return []interface{}{
		&User{},
		&Service{},
		&ServiceTag{},
		&ServiceMedia{},
		&Booking{},
		&Review{},
		&Token{},
		&Availability{},
		&Notification{},
	}
}
