// Command migrate-passwords replaces plaintext passwords imported into the
// users table with bcrypt hashes.
package main

import (
	"log"
	"strings"

	"manuscript-review-api/config"
	"manuscript-review-api/controllers"
	"manuscript-review-api/models"

	"github.com/joho/godotenv"
	"gorm.io/gorm"
)

const batchSize = 200

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	db, err := config.OpenDB()
	if err != nil {
		log.Fatal(err)
	}

	var migrated, skipped, failed int
	var batch []models.User
	result := db.Where("delete_at IS NULL").FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
		for _, user := range batch {
			// bcrypt hashes start with $2
			if user.Password == "" || strings.HasPrefix(user.Password, "$2") {
				skipped++
				continue
			}

			hashed, err := controllers.HashPassword(user.Password)
			if err != nil {
				log.Printf("Failed to hash password for user %s: %v", user.Email, err)
				failed++
				continue
			}
			err = db.Model(&models.User{}).
				Where("user_id = ?", user.UserID).
				Update("password", hashed).Error
			if err != nil {
				log.Printf("Failed to update password for user %s: %v", user.Email, err)
				failed++
				continue
			}
			migrated++
		}
		return nil
	})
	if result.Error != nil {
		log.Fatal("Failed to fetch users:", result.Error)
	}

	log.Printf("Password migration completed: %d hashed, %d skipped, %d failed", migrated, skipped, failed)
}
