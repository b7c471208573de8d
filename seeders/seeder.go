package seeders

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"ticketing-attachments/internal/repositories"
)

// SeedAll наполняет базу тестовыми данными для локальной разработки:
// роли с привилегиями, дерево подразделений, пользователи и пара тикетов.
// Все шаги идут в одной транзакции: либо полный набор, либо ничего.
func SeedAll(db *pgxpool.Pool) {
	ctx := context.Background()
	log.Println("▶️  Запуск наполнения базы...")

	err := repositories.WithTx(ctx, db, func(tx pgx.Tx) error {
		if err := seedRoles(ctx, tx); err != nil {
			return fmt.Errorf("роли: %w", err)
		}
		if err := seedOrgUnits(ctx, tx); err != nil {
			return fmt.Errorf("подразделения: %w", err)
		}
		if err := seedUsers(ctx, tx); err != nil {
			return fmt.Errorf("пользователи: %w", err)
		}
		if err := seedTickets(ctx, tx); err != nil {
			return fmt.Errorf("тикеты: %w", err)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("❌ Ошибка наполнения базы: %v", err)
	}

	log.Println("✅ Наполнение базы завершено!")
}

func seedRoles(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO roles (name, permissions) VALUES
			('operator', ''),
			('inspector', 'CONFIDENTIAL_VIEW'),
			('auditor', 'CONFIDENTIAL_VIEW,EXPORT_CONFIDENTIAL')
		ON CONFLICT (name) DO NOTHING`)
	return err
}

func seedOrgUnits(ctx context.Context, tx pgx.Tx) error {
	// министерство -> область -> район -> школа
	_, err := tx.Exec(ctx, `
		INSERT INTO org_units (id, parent_id, name, type, path, depth) VALUES
			(1, NULL, 'Министерство образования', 'ministry', '/00000001', 1),
			(2, 1, 'Согдийская область', 'province', '/00000001/00000002', 2),
			(3, 2, 'Худжандский район', 'region', '/00000001/00000002/00000003', 3),
			(4, 3, 'Школа №12', 'school', '/00000001/00000002/00000003/00000004', 4)
		ON CONFLICT (id) DO NOTHING`)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `SELECT setval('org_units_id_seq', (SELECT MAX(id) FROM org_units))`)
	return err
}

func seedUsers(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO users (username, email, role_id, org_unit_id, scope_level) VALUES
			('school_operator', 'operator@school12.tj', (SELECT id FROM roles WHERE name = 'operator'), 4, 'SELF'),
			('region_inspector', 'inspector@khujand.tj', (SELECT id FROM roles WHERE name = 'inspector'), 3, 'REGION'),
			('ministry_auditor', 'auditor@edu.tj', (SELECT id FROM roles WHERE name = 'auditor'), 1, 'MINISTRY')
		ON CONFLICT (username) DO NOTHING`)
	return err
}

func seedTickets(ctx context.Context, tx pgx.Tx) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO tickets (created_by, owner_org_unit_id, title, description, priority, status, sensitivity_level)
		SELECT u.id, 4, 'Принтер не печатает', 'Кабинет информатики, принтер HP выдает ошибку E3.', 'MED', 'OPEN', 'REGULAR'
		FROM users u WHERE u.username = 'school_operator'
		AND NOT EXISTS (SELECT 1 FROM tickets WHERE title = 'Принтер не печатает')`)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (created_by, owner_org_unit_id, title, description, priority, status, sensitivity_level)
		SELECT u.id, 3, 'Инцидент с персональными данными', 'Детали в приложенном акте.', 'HIGH', 'OPEN', 'CONFIDENTIAL'
		FROM users u WHERE u.username = 'region_inspector'
		AND NOT EXISTS (SELECT 1 FROM tickets WHERE title = 'Инцидент с персональными данными')`)
	return err
}
