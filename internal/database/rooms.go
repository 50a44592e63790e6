package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"staybook/internal/models"
)

// Room types

func (db *DB) CreateRoomType(ctx context.Context, rt *models.RoomType) error {
	query := `INSERT INTO room_types (name, price, capacity, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, strings.TrimSpace(rt.Name), rt.Price, rt.Capacity, now, now)
	if err != nil {
		return fmt.Errorf("failed to create room type: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	rt.ID = id
	rt.CreatedAt = now
	rt.UpdatedAt = now
	return nil
}

func (db *DB) GetRoomType(ctx context.Context, id int64) (*models.RoomType, error) {
	var rt models.RoomType
	query := `SELECT id, name, price, capacity, created_at, updated_at FROM room_types WHERE id = ?`
	err := db.QueryRowContext(ctx, query, id).Scan(
		&rt.ID, &rt.Name, &rt.Price, &rt.Capacity, &rt.CreatedAt, &rt.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room type: %w", err)
	}
	return &rt, nil
}

func (db *DB) GetRoomTypes(ctx context.Context) ([]*models.RoomType, error) {
	query := `SELECT id, name, price, capacity, created_at, updated_at FROM room_types ORDER BY name`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get room types: %w", err)
	}
	defer rows.Close()

	var types []*models.RoomType
	for rows.Next() {
		rt := &models.RoomType{}
		if err := rows.Scan(&rt.ID, &rt.Name, &rt.Price, &rt.Capacity, &rt.CreatedAt, &rt.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan room type: %w", err)
		}
		types = append(types, rt)
	}
	return types, rows.Err()
}

func (db *DB) UpdateRoomType(ctx context.Context, rt *models.RoomType) error {
	query := `UPDATE room_types SET name = ?, price = ?, capacity = ?, updated_at = ? WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query, strings.TrimSpace(rt.Name), rt.Price, rt.Capacity, now, rt.ID)
	if err != nil {
		return fmt.Errorf("failed to update room type: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	rt.UpdatedAt = now
	return nil
}

// DeleteRoomType refuses to delete a type still referenced by rooms.
func (db *DB) DeleteRoomType(ctx context.Context, id int64) error {
	var refs int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rooms WHERE room_type_id = ?`, id).Scan(&refs); err != nil {
		return fmt.Errorf("failed to count referencing rooms: %w", err)
	}
	if refs > 0 {
		return ErrRestricted
	}

	result, err := db.ExecContext(ctx, `DELETE FROM room_types WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room type: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// Rooms

func (db *DB) CreateRoom(ctx context.Context, room *models.Room) error {
	img := paddedImages(room.Images)
	query := `INSERT INTO rooms (room_type_id, room_num, description, image1, image2, image3, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		room.RoomTypeID, strings.TrimSpace(room.RoomNum), room.Description, img[0], img[1], img[2], now, now)
	if err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	room.ID = id
	room.CreatedAt = now
	room.UpdatedAt = now
	return nil
}

func (db *DB) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	query := `SELECT r.id, r.room_type_id, r.room_num, r.description, r.image1, r.image2, r.image3,
                     r.created_at, r.updated_at, t.name, t.price, t.capacity
              FROM rooms r JOIN room_types t ON t.id = r.room_type_id
              WHERE r.id = ?`
	room, err := scanRoom(db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

func (db *DB) GetRooms(ctx context.Context) ([]*models.Room, error) {
	query := `SELECT r.id, r.room_type_id, r.room_num, r.description, r.image1, r.image2, r.image3,
                     r.created_at, r.updated_at, t.name, t.price, t.capacity
              FROM rooms r JOIN room_types t ON t.id = r.room_type_id
              ORDER BY r.room_num`
	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get rooms: %w", err)
	}
	defer rows.Close()

	var rooms []*models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (db *DB) UpdateRoom(ctx context.Context, room *models.Room) error {
	img := paddedImages(room.Images)
	query := `UPDATE rooms SET room_type_id = ?, room_num = ?, description = ?, image1 = ?, image2 = ?, image3 = ?, updated_at = ?
              WHERE id = ?`
	now := time.Now()
	result, err := db.ExecContext(ctx, query,
		room.RoomTypeID, strings.TrimSpace(room.RoomNum), room.Description, img[0], img[1], img[2], now, room.ID)
	if err != nil {
		return fmt.Errorf("failed to update room: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	room.UpdatedAt = now
	return nil
}

// DeleteRoom refuses to delete a room still referenced by bookings.
func (db *DB) DeleteRoom(ctx context.Context, id int64) error {
	var refs int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings WHERE room_id = ?`, id).Scan(&refs); err != nil {
		return fmt.Errorf("failed to count referencing bookings: %w", err)
	}
	if refs > 0 {
		return ErrRestricted
	}

	result, err := db.ExecContext(ctx, `DELETE FROM rooms WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete room: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row rowScanner) (*models.Room, error) {
	room := &models.Room{}
	var img1, img2, img3 sql.NullString
	var desc sql.NullString
	err := row.Scan(
		&room.ID, &room.RoomTypeID, &room.RoomNum, &desc, &img1, &img2, &img3,
		&room.CreatedAt, &room.UpdatedAt, &room.TypeName, &room.Price, &room.Capacity,
	)
	if err != nil {
		return nil, err
	}
	room.Description = desc.String
	for _, img := range []sql.NullString{img1, img2, img3} {
		if img.Valid && img.String != "" {
			room.Images = append(room.Images, img.String)
		}
	}
	return room, nil
}

func paddedImages(images []string) [3]string {
	var out [3]string
	for i := 0; i < len(images) && i < models.MaxRoomImages; i++ {
		out[i] = images[i]
	}
	return out
}
