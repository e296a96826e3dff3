package room

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	Name        string
	Type        string
	NightlyRate decimal.Decimal
	MaxAdults   int
	MaxChildren int
	BedCount    int
}

// UpdateRequest carries optional changes; nil fields are left untouched.
// Rate changes never reprice existing bookings, which keep their snapshot.
type UpdateRequest struct {
	Name        *string
	Type        *string
	NightlyRate *decimal.Decimal
	MaxAdults   *int
	MaxChildren *int
	BedCount    *int
	IsActive    *bool
	IsAvailable *bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Room, error)
	GetByID(ctx context.Context, id int64) (*Room, error)
	List(ctx context.Context, filter Filter) ([]*Room, int, error)
	ListBookable(ctx context.Context, q Query) ([]*Room, error)
	Update(ctx context.Context, id int64, req UpdateRequest) (*Room, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Room, error) {
	rm := &Room{
		Name:        strings.TrimSpace(req.Name),
		Type:        strings.ToLower(strings.TrimSpace(req.Type)),
		NightlyRate: req.NightlyRate.Round(2),
		MaxAdults:   req.MaxAdults,
		MaxChildren: req.MaxChildren,
		BedCount:    req.BedCount,
		IsActive:    true,
		IsAvailable: true,
	}
	if rm.BedCount == 0 {
		rm.BedCount = 1
	}

	if err := validate(rm); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func (s *service) GetByID(ctx context.Context, id int64) (*Room, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Room, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *service) ListBookable(ctx context.Context, q Query) ([]*Room, error) {
	q.Type = strings.ToLower(strings.TrimSpace(q.Type))
	return s.repo.ListBookable(ctx, q)
}

func (s *service) Update(ctx context.Context, id int64, req UpdateRequest) (*Room, error) {
	rm, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		rm.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		rm.Type = strings.ToLower(strings.TrimSpace(*req.Type))
	}
	if req.NightlyRate != nil {
		rm.NightlyRate = req.NightlyRate.Round(2)
	}
	if req.MaxAdults != nil {
		rm.MaxAdults = *req.MaxAdults
	}
	if req.MaxChildren != nil {
		rm.MaxChildren = *req.MaxChildren
	}
	if req.BedCount != nil {
		rm.BedCount = *req.BedCount
	}
	if req.IsActive != nil {
		rm.IsActive = *req.IsActive
	}
	if req.IsAvailable != nil {
		rm.IsAvailable = *req.IsAvailable
	}

	if err := validate(rm); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rm); err != nil {
		return nil, err
	}
	return rm, nil
}

func validate(rm *Room) error {
	switch {
	case rm.Name == "":
		return ErrEmptyName
	case rm.Type == "":
		return ErrEmptyType
	case rm.NightlyRate.IsNegative():
		return ErrInvalidRate
	case rm.MaxAdults < 1 || rm.MaxChildren < 0:
		return ErrInvalidCapacity
	case rm.BedCount < 1:
		return ErrInvalidBeds
	}
	return nil
}
