package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	pkgdb "github.com/smallbiznis/exporta/pkg/db"
	"gorm.io/gorm"
)

const (
	defaultOwnerEmail   = "exporter@exporta.local"
	defaultOwnerDisplay = "Default Exporter"
)

// User is the record owner. The single-tenant deployment only ever
// needs the seeded default, multi-user setups create more rows.
type User struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Email       string    `gorm:"index" json:"email"`
	DisplayName string    `gorm:"column:display_name" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// LookupDefaultOwner resolves the seeded bootstrap user's ID.
func LookupDefaultOwner(db *gorm.DB) (int64, error) {
	var user User
	if err := db.Where("email = ?", defaultOwnerEmail).Take(&user).Error; err != nil {
		return 0, err
	}
	return user.ID, nil
}

// EnsureDefaultOwner seeds the bootstrap user every calculation record
// falls back to when no owner header is supplied.
func EnsureDefaultOwner(db *gorm.DB, ownerID int64) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if ownerID == 0 {
			node, err := snowflake.NewNode(1)
			if err != nil {
				return err
			}
			var existing User
			err = tx.Where("email = ?", defaultOwnerEmail).Take(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			ownerID = node.Generate().Int64()
		} else {
			var existing User
			err := tx.Where("id = ?", ownerID).Take(&existing).Error
			if err == nil {
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		now := time.Now().UTC()
		err := tx.Create(&User{
			ID:          ownerID,
			Email:       defaultOwnerEmail,
			DisplayName: defaultOwnerDisplay,
			CreatedAt:   now,
			UpdatedAt:   now,
		}).Error
		if pkgdb.IsDuplicateKeyErr(err) {
			// Another replica won the seed race.
			return nil
		}
		return err
	})
}
