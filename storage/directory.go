package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ferreirogomes/fracionado/models"
)

// Os cadastros de ativos e usuários pertencem a outros serviços. Estes métodos
// existem para que o núcleo os consulte no mesmo banco e para semear ambientes de teste.

// SaveUser grava ou atualiza um usuário.
func (q queries) SaveUser(ctx context.Context, user models.User) error {
	_, err := q.exec(ctx, `
		INSERT INTO users (id, name, email, is_active, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, email = excluded.email, is_active = excluded.is_active`,
		user.ID, user.Name, user.Email, user.IsActive, user.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar usuário: %w", err)
	}
	return nil
}

// GetUser obtém um usuário pelo ID.
func (q queries) GetUser(ctx context.Context, id string) (models.User, bool, error) {
	var user models.User
	err := q.get(ctx, &user, `SELECT id, name, email, is_active, created_at FROM users WHERE id = ?`, id)
	if errors.Is(err, ErrNotFound) {
		return models.User{}, false, nil
	}
	if err != nil {
		return models.User{}, false, fmt.Errorf("falha ao buscar usuário: %w", err)
	}
	return user, true, nil
}

// UserExistsAndActive reporta se o usuário existe e está ativo.
func (q queries) UserExistsAndActive(ctx context.Context, id string) (bool, error) {
	user, found, err := q.GetUser(ctx, id)
	if err != nil {
		return false, err
	}
	return found && user.IsActive, nil
}

// SaveAsset grava ou atualiza um ativo.
func (q queries) SaveAsset(ctx context.Context, asset models.Asset) error {
	_, err := q.exec(ctx, `
		INSERT INTO assets (id, name, total_unit, unit_min, unit_max, total_value, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET name = excluded.name, total_unit = excluded.total_unit,
			unit_min = excluded.unit_min, unit_max = excluded.unit_max, total_value = excluded.total_value`,
		asset.ID, asset.Name, asset.TotalUnit, asset.UnitMin, asset.UnitMax, asset.TotalValue, asset.CreatedAt)
	if err != nil {
		return fmt.Errorf("falha ao salvar ativo: %w", err)
	}
	return nil
}

// GetAsset obtém um ativo pelo ID.
func (q queries) GetAsset(ctx context.Context, id string) (models.Asset, bool, error) {
	var asset models.Asset
	err := q.get(ctx, &asset, `
		SELECT id, name, total_unit, unit_min, unit_max, total_value, created_at
		FROM assets WHERE id = ?`, id)
	if errors.Is(err, ErrNotFound) {
		return models.Asset{}, false, nil
	}
	if err != nil {
		return models.Asset{}, false, fmt.Errorf("falha ao buscar ativo: %w", err)
	}
	return asset, true, nil
}
