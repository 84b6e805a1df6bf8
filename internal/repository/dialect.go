package repository

import "gorm.io/gorm"

func textColumn(db *gorm.DB, column string) string {
	if db.Dialector.Name() == "postgres" {
		return column + "::text"
	}
	return column
}

func randomOrder(db *gorm.DB) string {
	if db.Dialector.Name() == "mysql" {
		return "RAND()"
	}
	return "RANDOM()"
}
