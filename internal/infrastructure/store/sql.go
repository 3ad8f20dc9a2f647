package store

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"supportdesk/internal/shared/id"
	"supportdesk/internal/shared/logger"
)

// nodeRow registers a node in its parent's child list.
type nodeRow struct {
	Path      string `gorm:"primaryKey;size:512"`
	Parent    string `gorm:"size:512;index:idx_store_nodes_parent,priority:1"`
	NodeKey   string `gorm:"size:128;index:idx_store_nodes_parent,priority:2"`
	CreatedAt time.Time
}

func (nodeRow) TableName() string { return "store_nodes" }

// fieldRow holds one field of one record, so Update touches only the rows it names.
type fieldRow struct {
	Path      string         `gorm:"primaryKey;size:512"`
	Field     string         `gorm:"primaryKey;size:128"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

func (fieldRow) TableName() string { return "store_fields" }

// SQLStore persists nodes through gorm on MySQL or SQLite. The schema is created by the
// migrate command. Change notifications are delivered to subscribers of this process only.
type SQLStore struct {
	db       *gorm.DB
	keys     *id.PushKeyGenerator
	watchers *watchers
}

func NewSQLStore(db *gorm.DB, log logger.Interface) *SQLStore {
	return &SQLStore{
		db:       db,
		keys:     id.NewPushKeyGenerator(),
		watchers: newWatchers(log),
	}
}

func (s *SQLStore) Get(ctx context.Context, path string) (Snapshot, error) {
	if err := ValidatePath(path); err != nil {
		return Snapshot{}, err
	}
	db := s.db.WithContext(ctx)

	var own []fieldRow
	if err := db.Where("path = ?", path).Find(&own).Error; err != nil {
		return Snapshot{}, unavailable("get", err)
	}

	var nodes []nodeRow
	if err := db.Where("parent = ?", path).Order("node_key").Find(&nodes).Error; err != nil {
		return Snapshot{}, unavailable("get children", err)
	}

	snap := Snapshot{Path: path, Record: rowsToRecord(own)}
	if len(nodes) == 0 {
		return snap, nil
	}

	childPaths := make([]string, len(nodes))
	for i, n := range nodes {
		childPaths[i] = n.Path
	}
	var childFields []fieldRow
	if err := db.Where("path IN ?", childPaths).Find(&childFields).Error; err != nil {
		return Snapshot{}, unavailable("get children", err)
	}

	byPath := make(map[string][]fieldRow, len(nodes))
	for _, row := range childFields {
		byPath[row.Path] = append(byPath[row.Path], row)
	}
	snap.Children = make([]Child, len(nodes))
	for i, n := range nodes {
		snap.Children[i] = Child{Key: n.NodeKey, Record: rowsToRecord(byPath[n.Path])}
	}
	return snap, nil
}

func (s *SQLStore) Set(ctx context.Context, path string, fields Fields) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	record, _, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if len(record) == 0 {
		return ErrEmptyRecord
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.link(tx, path); err != nil {
			return err
		}
		if err := tx.Where("path = ?", path).Delete(&fieldRow{}).Error; err != nil {
			return err
		}
		return s.upsertFields(tx, path, record)
	})
	if err != nil {
		return unavailable("set", err)
	}

	s.watchers.notify(path)
	return nil
}

func (s *SQLStore) Update(ctx context.Context, path string, fields Fields) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	set, removed, err := encodeFields(fields)
	if err != nil {
		return err
	}
	if len(set) == 0 && len(removed) == 0 {
		return nil
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(set) > 0 {
			if err := s.link(tx, path); err != nil {
				return err
			}
			if err := s.upsertFields(tx, path, set); err != nil {
				return err
			}
		}
		if len(removed) > 0 {
			if err := tx.Where("path = ? AND field IN ?", path, removed).Delete(&fieldRow{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return unavailable("update", err)
	}

	s.watchers.notify(path)
	return nil
}

func (s *SQLStore) Push(ctx context.Context, parent string, fields Fields) (string, error) {
	if err := ValidatePath(parent); err != nil {
		return "", err
	}
	key, err := s.keys.Next()
	if err != nil {
		return "", unavailable("push", err)
	}
	if err := s.Set(ctx, Join(parent, key), fields); err != nil {
		return "", err
	}
	return key, nil
}

// Remove deletes the subtree with a range scan; '0' is the byte after '/'.
func (s *SQLStore) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	lo, hi := path+"/", path+"0"

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("path = ? OR (path >= ? AND path < ?)", path, lo, hi).Delete(&fieldRow{}).Error; err != nil {
			return err
		}
		return tx.Where("path = ? OR (path >= ? AND path < ?)", path, lo, hi).Delete(&nodeRow{}).Error
	})
	if err != nil {
		return unavailable("remove", err)
	}

	s.watchers.notify(path)
	return nil
}

func (s *SQLStore) Subscribe(ctx context.Context, path string, fn func(Snapshot)) (func(), error) {
	return s.watchers.add(ctx, path, fn, s.Get)
}

// Close ends subscriptions. The connection pool belongs to the caller.
func (s *SQLStore) Close() error {
	s.watchers.closeAll()
	return nil
}

func (s *SQLStore) link(tx *gorm.DB, path string) error {
	chain := append(ancestors(path), path)
	now := time.Now()
	rows := make([]nodeRow, len(chain))
	for i, p := range chain {
		rows[i] = nodeRow{Path: p, Parent: Parent(p), NodeKey: Base(p), CreatedAt: now}
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}},
		DoNothing: true,
	}).Create(&rows).Error
}

func (s *SQLStore) upsertFields(tx *gorm.DB, path string, record Record) error {
	now := time.Now()
	rows := make([]fieldRow, 0, len(record))
	for name, value := range record {
		rows = append(rows, fieldRow{Path: path, Field: name, Value: datatypes.JSON(value), UpdatedAt: now})
	}
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "path"}, {Name: "field"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
}

func rowsToRecord(rows []fieldRow) Record {
	if len(rows) == 0 {
		return nil
	}
	record := make(Record, len(rows))
	for _, row := range rows {
		record[row.Field] = json.RawMessage(row.Value)
	}
	return record
}
