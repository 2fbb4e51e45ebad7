// Package postgres implements storage.Store on PostgreSQL.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"xdao.co/tokengate/storage"
)

// Store persists visibility records, posts, and creator profiles.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Connect opens a PostgreSQL-backed store and migrates its tables.
func Connect(dsn string, logger *slog.Logger) (*Store, error) {
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open gorm postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("resolve postgres sql db handle: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if err := db.AutoMigrate(&fileVisibilityModel{}, &postModel{}, &creatorModel{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate storage tables: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type fileVisibilityModel struct {
	URI        string `gorm:"column:uri;primaryKey"`
	Visibility string `gorm:"column:visibility;not null"`
}

func (fileVisibilityModel) TableName() string { return "files_metadata" }

type postModel struct {
	ID         uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Community  string    `gorm:"column:community;index;not null"`
	Author     string    `gorm:"column:author;not null"`
	Visibility string    `gorm:"column:visibility;index;not null"`
	CreatedAt  time.Time `gorm:"column:creation_date;index;not null"`
	Content    string    `gorm:"column:content;type:text"`
	FilePaths  string    `gorm:"column:file_paths;type:text"`
}

func (postModel) TableName() string { return "posts" }

type creatorModel struct {
	Address     string `gorm:"column:address;primaryKey"`
	Username    string `gorm:"column:username;not null"`
	Image       string `gorm:"column:image"`
	Description string `gorm:"column:description;type:text"`
	Banner      string `gorm:"column:banner"`
}

func (creatorModel) TableName() string { return "creators" }

func (s *Store) SetVisibility(ctx context.Context, uri string, v storage.Visibility) error {
	if !v.Valid() {
		return storage.ErrInvalidVisibility
	}
	row := fileVisibilityModel{URI: uri, Visibility: string(v)}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "uri"}},
		DoUpdates: clause.Assignments(map[string]any{"visibility": row.Visibility}),
	}).Create(&row).Error
	if err != nil {
		return s.logError("storage_set_visibility_failed", err, "uri", uri)
	}
	return nil
}

func (s *Store) Visibility(ctx context.Context, uri string) (storage.Visibility, error) {
	var row fileVisibilityModel
	err := s.db.WithContext(ctx).Where("uri = ?", uri).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", storage.ErrNotFound
		}
		return "", s.logError("storage_get_visibility_failed", err, "uri", uri)
	}
	return storage.Visibility(row.Visibility), nil
}

func (s *Store) CreatePost(ctx context.Context, p storage.Post) error {
	if !p.Visibility.Valid() {
		return storage.ErrInvalidVisibility
	}
	paths, err := json.Marshal(p.FilePaths)
	if err != nil {
		return fmt.Errorf("encode file paths: %w", err)
	}
	row := postModel{
		Community:  p.Community,
		Author:     p.Author,
		Visibility: string(p.Visibility),
		CreatedAt:  p.CreatedAt,
		Content:    p.Content,
		FilePaths:  string(paths),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return s.logError("storage_create_post_failed", err, "community", p.Community, "author", p.Author)
	}
	return nil
}

func (s *Store) PostsByCommunity(ctx context.Context, community string) ([]storage.Post, error) {
	var rows []postModel
	err := s.db.WithContext(ctx).
		Where("community = ?", community).
		Order("creation_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, s.logError("storage_list_posts_failed", err, "community", community)
	}
	return postsFromRows(rows)
}

func (s *Store) LatestPublic(ctx context.Context) ([]storage.Post, error) {
	var rows []postModel
	err := s.db.WithContext(ctx).
		Where("visibility = ?", string(storage.VisibilityPublic)).
		Order("creation_date DESC").
		Find(&rows).Error
	if err != nil {
		return nil, s.logError("storage_list_latest_posts_failed", err)
	}
	return postsFromRows(rows)
}

func (s *Store) PutCreator(ctx context.Context, c storage.Creator) error {
	row := creatorModel{
		Address:     c.Address,
		Username:    c.Username,
		Image:       c.Image,
		Description: c.Description,
		Banner:      c.Banner,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address"}},
		DoUpdates: clause.Assignments(map[string]any{
			"username":    row.Username,
			"image":       row.Image,
			"description": row.Description,
			"banner":      row.Banner,
		}),
	}).Create(&row).Error
	if err != nil {
		return s.logError("storage_put_creator_failed", err, "address", c.Address)
	}
	return nil
}

func (s *Store) Creator(ctx context.Context, address string) (storage.Creator, error) {
	var row creatorModel
	err := s.db.WithContext(ctx).Where("address = ?", address).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return storage.Creator{}, storage.ErrNotFound
		}
		return storage.Creator{}, s.logError("storage_get_creator_failed", err, "address", address)
	}
	return creatorFromRow(row), nil
}

func (s *Store) Creators(ctx context.Context) ([]storage.Creator, error) {
	var rows []creatorModel
	err := s.db.WithContext(ctx).Order("address ASC").Find(&rows).Error
	if err != nil {
		return nil, s.logError("storage_list_creators_failed", err)
	}
	out := make([]storage.Creator, 0, len(rows))
	for _, row := range rows {
		out = append(out, creatorFromRow(row))
	}
	return out, nil
}

func postsFromRows(rows []postModel) ([]storage.Post, error) {
	out := make([]storage.Post, 0, len(rows))
	for _, row := range rows {
		var paths []string
		if row.FilePaths != "" {
			if err := json.Unmarshal([]byte(row.FilePaths), &paths); err != nil {
				return nil, fmt.Errorf("decode file paths: %w", err)
			}
		}
		out = append(out, storage.Post{
			Community:  row.Community,
			Author:     row.Author,
			Visibility: storage.Visibility(row.Visibility),
			CreatedAt:  row.CreatedAt,
			Content:    row.Content,
			FilePaths:  paths,
		})
	}
	return out, nil
}

func creatorFromRow(row creatorModel) storage.Creator {
	return storage.Creator{
		Address:     row.Address,
		Username:    row.Username,
		Image:       row.Image,
		Description: row.Description,
		Banner:      row.Banner,
	}
}

func (s *Store) logError(event string, err error, args ...any) error {
	s.logger.Error(event, append(args, "error", err.Error())...)
	return err
}
