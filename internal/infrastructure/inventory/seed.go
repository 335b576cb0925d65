package inventory

import (
	"context"
	"strings"

	authsvc "ppm-backend/internal/application/auth"
	"ppm-backend/internal/application/booking"
	"ppm-backend/internal/domain"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedResult counts rows offered to the database. Rows whose id already exists are skipped.
type SeedResult struct {
	Pools     int
	Projects  int
	Resources int
	Users     int
}

// Seed writes inv into db in one transaction. Existing rows are left untouched.
func Seed(ctx context.Context, db *gorm.DB, inv *Inventory) (SeedResult, error) {
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		skip := func() *gorm.DB { return tx.Clauses(clause.OnConflict{DoNothing: true}) }
		if len(inv.Pools) > 0 {
			if err := skip().Create(&inv.Pools).Error; err != nil {
				return err
			}
		}
		for _, p := range inv.Projects {
			if err := skip().Omit(clause.Associations).Create(&p).Error; err != nil {
				return err
			}
			if len(p.Requirements) > 0 {
				if err := skip().Create(&p.Requirements).Error; err != nil {
					return err
				}
			}
		}
		store := &booking.GormStore{DB: tx}
		if err := store.Provision(ctx, inv.Resources...); err != nil {
			return err
		}
		for _, u := range inv.Users {
			hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), 10)
			if err != nil {
				return err
			}
			user := u.user()
			user.PasswordHash = string(hash)
			if err := tx.Where("email = ?", user.Email).FirstOrCreate(&user).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return SeedResult{}, err
	}
	return SeedResult{Pools: len(inv.Pools), Projects: len(inv.Projects), Resources: len(inv.Resources), Users: len(inv.Users)}, nil
}

// Provision loads resources into any store that accepts them, e.g. the in-memory one.
func Provision(ctx context.Context, p booking.Provisioner, inv *Inventory) error {
	return p.Provision(ctx, inv.Resources...)
}

func (u SeedUser) user() domain.User {
	user := domain.User{
		Email:    strings.ToLower(strings.TrimSpace(u.Email)),
		Fullname: u.Fullname,
		Role:     u.Role,
	}
	if u.Department != "" {
		d := u.Department
		user.Department = &d
	}
	return user
}

// MemoryUsers builds the login table used when no database is configured.
func MemoryUsers(inv *Inventory) (*authsvc.MemoryUsers, error) {
	users := make([]domain.User, 0, len(inv.Users))
	passwords := make([]string, 0, len(inv.Users))
	for _, u := range inv.Users {
		users = append(users, u.user())
		passwords = append(passwords, u.Password)
	}
	return authsvc.NewMemoryUsers(users, passwords)
}
