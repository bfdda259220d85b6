package services

import (
	"errors"
	"fmt"
	"math"

	"vtc-platform/internal/dispatch-service/core/domain/dto"
)

var (
	ErrEmptyField       = errors.New("field is empty")
	ErrInvalidLatitude  = errors.New("invalid latitude [-90, 90]")
	ErrInvalidLongitude = errors.New("invalid longitude [-180, 180]")
	ErrInvalidAddress   = errors.New("maximum 255 characters allowed")
)

func validateOrderRequest(req dto.OrderRequestDto) error {
	if err := validateID(req.CustomerId); err != nil {
		return fmt.Errorf("invalid customer id: %v", err)
	}

	if err := validateLatLng(req.PickUpLatitude, req.PickUpLongitude); err != nil {
		return fmt.Errorf("invalid pickup coords: %v", err)
	}
	if err := validateAddress(req.PickUpAddress); err != nil {
		return fmt.Errorf("invalid pickup address: %v", err)
	}

	if err := validateLatLng(req.DestinationLatitude, req.DestinationLongitude); err != nil {
		return fmt.Errorf("invalid destination coords: %v", err)
	}
	if err := validateAddress(req.DestinationAddress); err != nil {
		return fmt.Errorf("invalid destination address: %v", err)
	}

	if req.VehicleType == nil || *req.VehicleType == "" {
		return fmt.Errorf("invalid vehicle type: %v", ErrEmptyField)
	}
	if req.City == nil || *req.City == "" {
		return fmt.Errorf("invalid city: %v", ErrEmptyField)
	}

	return nil
}

func validateID(id *string) error {
	if id == nil || *id == "" {
		return ErrEmptyField
	}
	return nil
}

func validateLatLng(lat, lng *float64) error {
	if lat == nil || lng == nil {
		return ErrEmptyField
	}
	if math.Abs(*lat) > 90 {
		return ErrInvalidLatitude
	}
	if math.Abs(*lng) > 180 {
		return ErrInvalidLongitude
	}
	return nil
}

func validateAddress(s *string) error {
	if s == nil || *s == "" {
		return ErrEmptyField
	}
	if len(*s) > 255 {
		return ErrInvalidAddress
	}
	return nil
}
