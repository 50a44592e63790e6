package service

import (
	"context"
	"fmt"
	"sync"

	"staybook/internal/database"
	"staybook/internal/domain"
	"staybook/internal/models"

	"github.com/rs/zerolog"
)

// RoomService keeps the room catalog cached in memory; the catalog changes
// rarely and every availability page hits it.
type RoomService struct {
	store    domain.Store
	logger   *zerolog.Logger
	rooms    []*models.Room
	roomsMap map[int64]*models.Room
	mu       sync.RWMutex
}

func NewRoomService(ctx context.Context, store domain.Store, logger *zerolog.Logger) (*RoomService, error) {
	s := &RoomService{
		store:  store,
		logger: logger,
	}
	if err := s.Refresh(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *RoomService) Refresh(ctx context.Context) error {
	rooms, err := s.store.GetRooms(ctx)
	if err != nil {
		return fmt.Errorf("failed to load rooms: %w", err)
	}

	roomsMap := make(map[int64]*models.Room, len(rooms))
	for _, room := range rooms {
		roomsMap[room.ID] = room
	}

	s.mu.Lock()
	s.rooms = rooms
	s.roomsMap = roomsMap
	s.mu.Unlock()

	return nil
}

func (s *RoomService) GetRooms(ctx context.Context) ([]*models.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.rooms, nil
}

func (s *RoomService) GetRoom(ctx context.Context, id int64) (*models.Room, error) {
	s.mu.RLock()
	room, ok := s.roomsMap[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("room %d: %w", id, database.ErrNotFound)
	}
	return room, nil
}

func (s *RoomService) CreateRoom(ctx context.Context, room *models.Room) error {
	if err := s.store.CreateRoom(ctx, room); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *RoomService) UpdateRoom(ctx context.Context, room *models.Room) error {
	if err := s.store.UpdateRoom(ctx, room); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *RoomService) DeleteRoom(ctx context.Context, id int64) error {
	if err := s.store.DeleteRoom(ctx, id); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *RoomService) GetRoomTypes(ctx context.Context) ([]*models.RoomType, error) {
	return s.store.GetRoomTypes(ctx)
}

func (s *RoomService) CreateRoomType(ctx context.Context, rt *models.RoomType) error {
	if err := s.store.CreateRoomType(ctx, rt); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *RoomService) UpdateRoomType(ctx context.Context, rt *models.RoomType) error {
	if err := s.store.UpdateRoomType(ctx, rt); err != nil {
		return err
	}
	return s.Refresh(ctx)
}

func (s *RoomService) DeleteRoomType(ctx context.Context, id int64) error {
	if err := s.store.DeleteRoomType(ctx, id); err != nil {
		return err
	}
	return s.Refresh(ctx)
}
