package commands

import (
	"errors"
	"fmt"
	"strings"

	"motorent/internal/apperr"
	"motorent/internal/auth"
	"motorent/internal/database"
	"motorent/internal/models"

	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var (
	adminEmail    string
	adminName     string
	adminPassword string
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin",
	Short: "Create an admin user, or promote an existing user to admin",
	Long: `Create an admin user. When the email already exists the user is promoted and,
if --password is given, the password is reset.

Examples:
  motorent create-admin --email admin@motorent.vn --name Admin --password 'change-me-please'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := connect(); err != nil {
			return err
		}
		defer database.Close()

		user, created, err := ensureAdmin(adminEmail, adminName, adminPassword)
		if err != nil {
			return err
		}
		verb := "promoted"
		if created {
			verb = "created"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "admin %s: #%d %s\n", verb, user.ID, user.Email)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createAdminCmd)

	createAdminCmd.Flags().StringVar(&adminEmail, "email", "", "Admin email (required)")
	createAdminCmd.Flags().StringVar(&adminName, "name", "Administrator", "Display name")
	createAdminCmd.Flags().StringVar(&adminPassword, "password", "", "Password (required for new users)")
	_ = createAdminCmd.MarkFlagRequired("email")
}

func ensureAdmin(email, name, password string) (*models.User, bool, error) {
	email = auth.NormalizeEmail(email)
	if err := apperr.Validate(struct {
		Email string `json:"email" validate:"required,email"`
	}{email}); err != nil {
		return nil, false, err
	}

	var user models.User
	err := database.DB.Where("email = ?", email).First(&user).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if len(password) < 8 {
			return nil, false, fmt.Errorf("--password of at least 8 characters is required for a new admin")
		}
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, false, err
		}
		user = models.User{
			Name:         strings.TrimSpace(name),
			Email:        email,
			PasswordHash: hash,
			Role:         models.RoleAdmin,
		}
		if err := database.DB.Create(&user).Error; err != nil {
			return nil, false, err
		}
		return &user, true, nil
	case err != nil:
		return nil, false, err
	}

	user.Role = models.RoleAdmin
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, false, err
		}
		user.PasswordHash = hash
	}
	if err := database.DB.Omit("Parks").Save(&user).Error; err != nil {
		return nil, false, err
	}
	return &user, false, nil
}
