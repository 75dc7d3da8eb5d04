package models

// All returns every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&UserProfile{},
		&Property{},
		&Room{},
		&Topic{},
		&Machine{},
		&PreventiveMaintenance{},
		&Job{},
		&JobAttachment{},
		&JobChecklistItem{},
		&JobHistory{},
	}
}
