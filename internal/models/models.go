package models

// All lists every persisted model for migrations.
func All() []interface{} {
	return []interface{}{
		&Test{},
		&Submission{},
		&Booking{},
		&StoredFile{},
		&AuditEntry{},
		&Notification{},
	}
}
