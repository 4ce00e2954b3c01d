package migration

import (
	"fmt"

	"github.com/communityweb/strtracker/internal/domain"
	"gorm.io/gorm"
)

// Models lists every table the tracker owns
func Models() []interface{} {
	return []interface{}{
		&domain.User{},
		&domain.Report{},
		&domain.ReportText{},
		&domain.ReportFile{},
		&domain.CarbonCopy{},
	}
}

// Run executes AutoMigrate for the tracker tables. Existing tables are altered
// in place; nothing is dropped.
func Run(db *gorm.DB) error {
	for _, m := range Models() {
		if err := db.AutoMigrate(m); err != nil {
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}
