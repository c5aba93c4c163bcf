package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const snowflakeNode = 7

type PostgresJobRepository struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewPostgresJobRepository(db *gorm.DB) (*PostgresJobRepository, error) {
	node, err := snowflake.NewNode(snowflakeNode)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}
	return &PostgresJobRepository{db: db, snowflake: node}, nil
}

func (r *PostgresJobRepository) Create(ctx context.Context, kind, workspaceID string, payload json.RawMessage) (*Job, error) {
	job := &Job{
		ID:          r.snowflake.Generate().Int64(),
		Kind:        kind,
		WorkspaceID: workspaceID,
		Payload:     datatypes.JSON(payload),
		Status:      JobStatusPending,
	}

	result := r.db.WithContext(ctx).Create(job)
	if result.Error != nil {
		return nil, result.Error
	}

	return job, nil
}

func (r *PostgresJobRepository) Get(ctx context.Context, id int64) (*Job, error) {
	var job Job
	result := r.db.WithContext(ctx).First(&job, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}

	return &job, nil
}

func (r *PostgresJobRepository) UpdateStatus(ctx context.Context, id int64, status JobStatus, err *string) error {
	updates := map[string]interface{}{
		"status": status,
		"error":  err,
	}
	if status == JobStatusRunning {
		updates["attempts"] = gorm.Expr("attempts + 1")
	}

	result := r.db.WithContext(ctx).Model(&Job{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return errors.New("job not found")
	}

	return nil
}

func (r *PostgresJobRepository) CountByStatus(ctx context.Context) (map[JobStatus]int64, error) {
	var rows []struct {
		Status JobStatus
		Count  int64
	}
	result := r.db.WithContext(ctx).
		Model(&Job{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows)
	if result.Error != nil {
		return nil, result.Error
	}

	counts := make(map[JobStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
