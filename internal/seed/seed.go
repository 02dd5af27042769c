// Package seed loads the reference roles, demo accounts, main menu and
// activity types. Running it twice leaves the database unchanged.
package seed

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Organisation-de-merge/backend-cesizen/internal/models"
)

// MainMenuLabel names the menu created for the public navigation.
const MainMenuLabel = "Menu Principal"

// RoleSeed is a role created when no role with the same label exists.
type RoleSeed struct {
	Label string
	Level int
}

// UserSeed is an account created when its email is unused.
type UserSeed struct {
	Name      string
	Email     string
	Password  string
	RoleLabel string
}

// DefaultRoles are the platform's reference roles.
var DefaultRoles = []RoleSeed{
	{Label: "Administrateur", Level: 100},
	{Label: "Modérateur", Level: 80},
	{Label: "Auteur", Level: 60},
	{Label: "Utilisateur", Level: 1},
}

// DefaultUsers are the demo accounts, one per reference role.
var DefaultUsers = []UserSeed{
	{Name: "Admin CESIZEN", Email: "admin@cesizen.fr", Password: "admin123", RoleLabel: "Administrateur"},
	{Name: "Modérateur", Email: "mod@cesizen.fr", Password: "mod123", RoleLabel: "Modérateur"},
	{Name: "Auteur", Email: "author@cesizen.fr", Password: "author123", RoleLabel: "Auteur"},
	{Name: "Utilisateur", Email: "user@cesizen.fr", Password: "user123", RoleLabel: "Utilisateur"},
}

// DefaultActivityTypes are the initial activity categories.
var DefaultActivityTypes = []string{"Yoga", "Méditation", "Respiration"}

type roleStore interface {
	List(ctx context.Context, filter models.RoleFilter) ([]models.Role, error)
	Create(ctx context.Context, role *models.Role) error
}

type userStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
}

type menuStore interface {
	FindByLabel(ctx context.Context, label string) (*models.InformationMenu, error)
	Create(ctx context.Context, m *models.InformationMenu) error
}

type activityTypeStore interface {
	List(ctx context.Context) ([]models.ActivityType, error)
	Create(ctx context.Context, t *models.ActivityType) error
}

type passwordHasher interface {
	Hash(plaintext string) (string, error)
}

// Report counts what a run created.
type Report struct {
	Roles         int
	Users         int
	Menus         int
	ActivityTypes int
}

// Seeder writes the reference data through the repositories.
type Seeder struct {
	roles  roleStore
	users  userStore
	menus  menuStore
	types  activityTypeStore
	hasher passwordHasher
	logger *zap.Logger
}

// New constructs a Seeder.
func New(roles roleStore, users userStore, menus menuStore, types activityTypeStore, hasher passwordHasher, logger *zap.Logger) *Seeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Seeder{roles: roles, users: users, menus: menus, types: types, hasher: hasher, logger: logger}
}

// Run creates whatever reference data is missing.
func (s *Seeder) Run(ctx context.Context) (Report, error) {
	var report Report

	roleIDs, created, err := s.seedRoles(ctx)
	if err != nil {
		return report, err
	}
	report.Roles = created

	if report.Users, err = s.seedUsers(ctx, roleIDs); err != nil {
		return report, err
	}
	if report.Menus, err = s.seedMenu(ctx); err != nil {
		return report, err
	}
	if report.ActivityTypes, err = s.seedActivityTypes(ctx); err != nil {
		return report, err
	}

	s.logger.Info("seed completed",
		zap.Int("roles", report.Roles),
		zap.Int("users", report.Users),
		zap.Int("menus", report.Menus),
		zap.Int("activity_types", report.ActivityTypes),
	)
	return report, nil
}

// seedRoles returns the ids of active roles keyed by lower-cased label.
// Disabled roles are left disabled and are not recreated.
func (s *Seeder) seedRoles(ctx context.Context) (map[string]int64, int, error) {
	existing, err := s.roles.List(ctx, models.RoleFilter{Status: models.RoleStatusAll})
	if err != nil {
		return nil, 0, fmt.Errorf("list roles: %w", err)
	}

	known := make(map[string]bool, len(existing))
	active := make(map[string]int64, len(existing))
	for _, role := range existing {
		key := strings.ToLower(role.Label)
		known[key] = true
		if !role.Deleted() {
			active[key] = role.ID
		}
	}

	created := 0
	for _, seed := range DefaultRoles {
		key := strings.ToLower(seed.Label)
		if known[key] {
			continue
		}
		role := &models.Role{Label: seed.Label, Level: seed.Level}
		if err := s.roles.Create(ctx, role); err != nil {
			return nil, created, fmt.Errorf("create role %s: %w", seed.Label, err)
		}
		active[key] = role.ID
		created++
	}
	return active, created, nil
}

func (s *Seeder) seedUsers(ctx context.Context, roleIDs map[string]int64) (int, error) {
	created := 0
	for _, seed := range DefaultUsers {
		_, err := s.users.FindByEmail(ctx, seed.Email)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return created, fmt.Errorf("find user %s: %w", seed.Email, err)
		}

		roleID, ok := roleIDs[strings.ToLower(seed.RoleLabel)]
		if !ok {
			s.logger.Warn("skipping seed user on disabled role", zap.String("email", seed.Email), zap.String("role", seed.RoleLabel))
			continue
		}

		hash, err := s.hasher.Hash(seed.Password)
		if err != nil {
			return created, fmt.Errorf("hash password for %s: %w", seed.Email, err)
		}
		user := &models.User{
			Email:        seed.Email,
			Name:         seed.Name,
			PasswordHash: hash,
			RoleID:       roleID,
			IsActive:     true,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return created, fmt.Errorf("create user %s: %w", seed.Email, err)
		}
		created++
	}
	return created, nil
}

func (s *Seeder) seedMenu(ctx context.Context) (int, error) {
	_, err := s.menus.FindByLabel(ctx, MainMenuLabel)
	if err == nil {
		return 0, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("find main menu: %w", err)
	}
	if err := s.menus.Create(ctx, &models.InformationMenu{Label: MainMenuLabel, PageIDs: []int64{}}); err != nil {
		return 0, fmt.Errorf("create main menu: %w", err)
	}
	return 1, nil
}

func (s *Seeder) seedActivityTypes(ctx context.Context) (int, error) {
	existing, err := s.types.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list activity types: %w", err)
	}
	known := make(map[string]bool, len(existing))
	for _, t := range existing {
		known[strings.ToLower(t.Label)] = true
	}

	created := 0
	for _, label := range DefaultActivityTypes {
		if known[strings.ToLower(label)] {
			continue
		}
		if err := s.types.Create(ctx, &models.ActivityType{Label: label}); err != nil {
			return created, fmt.Errorf("create activity type %s: %w", label, err)
		}
		created++
	}
	return created, nil
}
