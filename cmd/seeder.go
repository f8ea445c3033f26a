package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/safebank/banking/internal/auth"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the RBAC catalog and bootstrap users",
	Long: `Seed the permission catalog, the role matrix and a bootstrap admin
account. Safe to run repeatedly: existing rows are left alone.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			clearTables(db)
		}

		seedPermissions(db)
		seedRoles(db)
		seedUser(db, cfg.Security.BCryptCost, "admin@safebank.local", "SafeBank Admin", "ChangeMe123!", "admin", true)
		seedUser(db, cfg.Security.BCryptCost, "demo@safebank.local", "Demo Customer", "DemoPass123!", "customer", false)

		fmt.Println("Seeding complete")
	},
}

func clearTables(db *gorm.DB) {
	// child tables first so foreign keys do not block the truncation
	tables := []string{
		"ticket_notes", "tickets",
		"transactions", "accounts",
		"security_events", "audit_logs",
		"user_roles", "role_permissions",
		"users", "roles", "permissions",
	}
	for _, t := range tables {
		if err := db.Exec("DELETE FROM " + t).Error; err != nil {
			log.Fatalf("failed to clear table %s: %v", t, err)
		}
	}
	fmt.Println("Cleared existing data")
}

func seedPermissions(db *gorm.DB) {
	for _, code := range auth.AllPermissionCodes {
		var exists int
		if err := db.Raw("SELECT 1 FROM permissions WHERE code = ?", code).Row().Scan(&exists); err == nil {
			continue
		}
		desc := strings.NewReplacer(":", " ", "_", " ").Replace(code)
		if err := db.Exec("INSERT INTO permissions (code, description) VALUES (?, ?)", code, desc).Error; err != nil {
			log.Fatalf("failed to insert permission %s: %v", code, err)
		}
	}
	fmt.Println("Seeded permission catalog")
}

func seedRoles(db *gorm.DB) {
	for roleName, codes := range auth.RolePermissionMap {
		var roleID int64
		if err := db.Raw("SELECT id FROM roles WHERE name = ?", roleName).Row().Scan(&roleID); err != nil {
			if err := db.Exec("INSERT INTO roles (name, description) VALUES (?, ?)", roleName, roleName+" role").Error; err != nil {
				log.Fatalf("failed to insert role %s: %v", roleName, err)
			}
			if err := db.Raw("SELECT id FROM roles WHERE name = ?", roleName).Row().Scan(&roleID); err != nil {
				log.Fatalf("role not found after insert %s: %v", roleName, err)
			}
		}

		for _, code := range codes {
			var permID int64
			if err := db.Raw("SELECT id FROM permissions WHERE code = ?", code).Row().Scan(&permID); err != nil {
				log.Fatalf("permission not found %s: %v", code, err)
			}
			var exists int
			if err := db.Raw("SELECT 1 FROM role_permissions WHERE role_id = ? AND permission_id = ?", roleID, permID).Row().Scan(&exists); err == nil {
				continue
			}
			if err := db.Exec("INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)", roleID, permID).Error; err != nil {
				log.Fatalf("failed to grant %s to role %s: %v", code, roleName, err)
			}
		}
	}
	fmt.Println("Seeded role matrix")
}

func seedUser(db *gorm.DB, bcryptCost int, email, fullName, password, roleName string, mustChange bool) {
	var userID int64
	if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&userID); err != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			log.Fatalf("failed to hash password for %s: %v", email, err)
		}
		if err := db.Exec(
			"INSERT INTO users (email, full_name, password_hash, is_active, must_change_password, created_at, updated_at) VALUES (?, ?, ?, true, ?, now(), now())",
			email, fullName, string(hash), mustChange,
		).Error; err != nil {
			log.Fatalf("failed to insert user %s: %v", email, err)
		}
		if err := db.Raw("SELECT id FROM users WHERE email = ?", email).Row().Scan(&userID); err != nil {
			log.Fatalf("user not found after insert %s: %v", email, err)
		}
		fmt.Printf("Seeded user %s (role %s)\n", email, roleName)
	}

	var roleID int64
	if err := db.Raw("SELECT id FROM roles WHERE name = ?", roleName).Row().Scan(&roleID); err != nil {
		log.Fatalf("role not found %s: %v", roleName, err)
	}
	var exists int
	if err := db.Raw("SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?", userID, roleID).Row().Scan(&exists); err == nil {
		return
	}
	if err := db.Exec("INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)", userID, roleID).Error; err != nil {
		log.Fatalf("failed to assign role %s to %s: %v", roleName, email, err)
	}
}
