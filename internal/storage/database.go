package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/lifecompass/backend/pkg/types"
	"github.com/lifecompass/backend/pkg/utils"
)

// ErrNotFound is returned by repositories when no row matches
var ErrNotFound = errors.New("record not found")

// Database represents the database connection manager
type Database struct {
	DB     *gorm.DB
	config *types.DatabaseConfig
	logger *utils.Logger
}

// NewDatabase connects to PostgreSQL and configures the pool
func NewDatabase(config *types.DatabaseConfig, log *utils.Logger) (*Database, error) {
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		config.Host,
		config.Port,
		config.Username,
		config.Password,
		config.Database,
		sslMode,
	)

	database, err := Open(postgres.Open(dsn), config, log)
	if err != nil {
		return nil, err
	}

	if err := database.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.WithField("host", config.Host).WithField("database", config.Database).
		Info("Successfully connected to PostgreSQL database")
	return database, nil
}

// Open wraps an arbitrary GORM dialector, which lets tests hand in a mocked connection
func Open(dialector gorm.Dialector, config *types.DatabaseConfig, log *utils.Logger) (*Database, error) {
	if log == nil {
		log = utils.NewNopLogger()
	}

	gormLogger := logger.New(
		log,
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	// TranslateError turns unique violations into gorm.ErrDuplicatedKey
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLogger, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying SQL DB: %w", err)
	}
	if config != nil {
		if config.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(config.MaxOpenConns)
		}
		if config.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(config.MaxIdleConns)
		}
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	return &Database{DB: db, config: config, logger: log}, nil
}

// Ping tests the database connection
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return sqlDB.PingContext(ctx)
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AutoMigrate runs database migrations
func (d *Database) AutoMigrate() error {
	d.logger.Info("Starting database migration")

	models := []interface{}{
		&User{},
		&JobPosting{},
		&Application{},
		&ApplicationStatusHistory{},
		&ChatMessage{},
		&SavedJob{},
	}

	for _, model := range models {
		if err := d.DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	d.logger.Info("Database migration completed successfully")
	return nil
}

// SeedAdmin creates the configured admin account when it does not exist yet.
// Nothing is created unless both admin email and password are configured.
func (d *Database) SeedAdmin(ctx context.Context) error {
	if d.config == nil || d.config.AdminEmail == "" || d.config.AdminPassword == "" {
		return nil
	}

	users := d.UserRepo()
	if _, err := users.GetByEmail(ctx, d.config.AdminEmail); err == nil {
		return nil
	} else if !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("failed to look up admin user: %w", err)
	}

	hash, err := utils.HashPassword(d.config.AdminPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &User{
		Email:        strings.ToLower(d.config.AdminEmail),
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         types.RoleAdmin,
		IsActive:     true,
	}
	if err := users.Create(ctx, admin); err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	d.logger.WithField("email", admin.Email).Info("Created default admin user")
	return nil
}

// UserRepository provides user data access methods
type UserRepository struct {
	db *gorm.DB
}

// UserRepo returns the user repository
func (d *Database) UserRepo() *UserRepository {
	return &UserRepository{db: d.DB}
}

func (r *UserRepository) Create(ctx context.Context, user *User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (r *UserRepository) UpdateRole(ctx context.Context, id string, role types.Role) error {
	res := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *UserRepository) TouchLastLogin(ctx context.Context, id string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).Update("last_login", &now).Error
}

// notFound maps GORM's sentinel onto ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// IsNotFound reports whether err means no row matched
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, gorm.ErrRecordNotFound)
}

// IsDuplicate reports whether err is a unique constraint violation
func IsDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}
