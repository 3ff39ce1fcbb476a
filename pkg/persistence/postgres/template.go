package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/loomflow/loom/pkg/models"
	"github.com/loomflow/loom/pkg/persistence"
)

// TemplateRepository stores template documents.
type TemplateRepository struct {
	db *sql.DB
}

func (r *TemplateRepository) Save(ctx context.Context, template *models.Template) error {
	data, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal template %s: %w", template.ID, err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO templates (id, data)
		VALUES ($1, $2)
		ON CONFLICT (id) DO UPDATE SET data = EXCLUDED.data
	`, template.ID, data)
	if err != nil {
		return fmt.Errorf("failed to save template %s: %w", template.ID, err)
	}

	return nil
}

func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.Template, error) {
	row := r.db.QueryRowContext(ctx, `SELECT data FROM templates WHERE id = $1`, id)

	var data []byte

	err := row.Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, persistence.ErrTemplateNotFound
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get template %s: %w", id, err)
	}

	template := &models.Template{}
	if err := json.Unmarshal(data, template); err != nil {
		return nil, fmt.Errorf("failed to unmarshal template %s: %w", id, err)
	}

	return template, nil
}

func (r *TemplateRepository) List(ctx context.Context) ([]*models.Template, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT data FROM templates ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list templates: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var templates []*models.Template

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}

		template := &models.Template{}
		if err := json.Unmarshal(data, template); err != nil {
			return nil, fmt.Errorf("failed to unmarshal template: %w", err)
		}

		templates = append(templates, template)
	}

	return templates, rows.Err()
}
