package models

// All lists every table for AutoMigrate.
func All() []interface{} {
	return []interface{}{
		&Chain{},
		&District{},
		&Salon{},
		&User{},
		&RoleChangeAudit{},
		&Employee{},
		&Invitation{},
		&Supplier{},
		&SupplierSalon{},
		&BonusRule{},
		&BonusCalculation{},
		&GrowthBonusOverride{},
		&ImportedSale{},
		&NormalizedSale{},
		&TariffTemplate{},
		&PowerOfAttorney{},
		&Announcement{},
		&HubSpotConnection{},
	}
}
